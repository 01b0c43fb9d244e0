package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"finance_backend/internal/feature/auth/domain"
	"finance_backend/internal/feature/auth/domain/entity"
)

// mockUserRepository is a mock implementation of the UserRepository interface.
type mockUserRepository struct {
	CreateFunc         func(ctx context.Context, user *entity.User) error
	FindByUsernameFunc func(ctx context.Context, username string) (*entity.User, error)
}

func (m *mockUserRepository) Create(ctx context.Context, user *entity.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	return nil, domain.ErrUserNotFound
}

// mockJWTGenerator is a mock implementation of the JWTGenerator interface.
type mockJWTGenerator struct {
	GenerateTokenFunc func(userID uint, username string) (string, error)
}

func (m *mockJWTGenerator) GenerateToken(userID uint, username string) (string, error) {
	if m.GenerateTokenFunc != nil {
		return m.GenerateTokenFunc(userID, username)
	}
	return "mock-jwt-token", nil
}

func newTestUsecase(repo UserRepository, gen JWTGenerator) *authUsecase {
	uc := NewAuthUsecase(repo, gen)
	uc.cost = bcrypt.MinCost
	return uc
}

func TestAuthUsecase_Register(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		username   string
		email      string
		password   string
		createFunc func(ctx context.Context, user *entity.User) error
		wantErr    error
		wantAnyErr bool
	}{
		{
			name:     "success: password hashed and fields normalized",
			username: " alice ",
			email:    "Alice@Example.com",
			password: "password123",
			createFunc: func(ctx context.Context, user *entity.User) error {
				assert.Equal(t, "alice", user.Username)
				assert.Equal(t, "alice@example.com", user.Email)
				assert.NotEqual(t, "password123", user.Password)
				assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
				return nil
			},
		},
		{
			name:     "error: short password",
			username: "alice",
			email:    "alice@example.com",
			password: "short",
			createFunc: func(ctx context.Context, user *entity.User) error {
				t.Error("Create should not be called")
				return nil
			},
			wantErr: domain.ErrWeakPassword,
		},
		{
			name:     "error: duplicate user",
			username: "alice",
			email:    "alice@example.com",
			password: "password123",
			createFunc: func(ctx context.Context, user *entity.User) error {
				return domain.ErrUserAlreadyExists
			},
			wantErr: domain.ErrUserAlreadyExists,
		},
		{
			name:     "error: database failure",
			username: "alice",
			email:    "alice@example.com",
			password: "password123",
			createFunc: func(ctx context.Context, user *entity.User) error {
				return errors.New("connection refused")
			},
			wantAnyErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uc := newTestUsecase(&mockUserRepository{CreateFunc: tt.createFunc}, &mockJWTGenerator{})
			err := uc.Register(context.Background(), tt.username, tt.email, tt.password)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantAnyErr:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrUserAlreadyExists)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthUsecase_Login(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	alice := &entity.User{ID: 9, Username: "alice", Password: string(hash)}

	tests := []struct {
		name      string
		username  string
		password  string
		findFunc  func(ctx context.Context, username string) (*entity.User, error)
		tokenFunc func(userID uint, username string) (string, error)
		wantToken string
		wantErr   error
		wantAny   bool
	}{
		{
			name:     "success: token issued",
			username: "alice",
			password: "password123",
			findFunc: func(ctx context.Context, username string) (*entity.User, error) { return alice, nil },
			tokenFunc: func(userID uint, username string) (string, error) {
				assert.Equal(t, uint(9), userID)
				assert.Equal(t, "alice", username)
				return "signed", nil
			},
			wantToken: "signed",
		},
		{
			name:     "error: wrong password",
			username: "alice",
			password: "wrong-password",
			findFunc: func(ctx context.Context, username string) (*entity.User, error) { return alice, nil },
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name:     "error: unknown user",
			username: "nobody",
			password: "password123",
			wantErr:  domain.ErrInvalidCredentials,
		},
		{
			name:     "error: repository failure is not reported as bad credentials",
			username: "alice",
			password: "password123",
			findFunc: func(ctx context.Context, username string) (*entity.User, error) {
				return nil, errors.New("db down")
			},
			wantAny: true,
		},
		{
			name:     "error: token generation failure",
			username: "alice",
			password: "password123",
			findFunc: func(ctx context.Context, username string) (*entity.User, error) { return alice, nil },
			tokenFunc: func(userID uint, username string) (string, error) {
				return "", errors.New("no secret")
			},
			wantAny: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			uc := newTestUsecase(
				&mockUserRepository{FindByUsernameFunc: tt.findFunc},
				&mockJWTGenerator{GenerateTokenFunc: tt.tokenFunc},
			)
			token, err := uc.Login(context.Background(), tt.username, tt.password)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, token)
			case tt.wantAny:
				assert.Error(t, err)
				assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantToken, token)
			}
		})
	}
}
