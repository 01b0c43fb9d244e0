// Package jwtmw は認証トークンの発行とGinの認証ミドルウェアを提供します。
package jwtmw

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finance_backend/internal/platform/config"
)

const (
	// EnvKeyJWTSecret はトークン署名鍵を保持する環境変数名です。
	EnvKeyJWTSecret = "JWT_SECRET"
	// DefaultExpiration はトークンの既定の有効期間です。
	DefaultExpiration = time.Hour
)

// Config holds the token signing configuration.
type Config struct {
	Secret     string
	Expiration time.Duration
}

// LoadConfig loads JWT configuration from environment variables.
func LoadConfig() Config {
	return Config{
		Secret:     config.String(EnvKeyJWTSecret, ""),
		Expiration: config.Duration("JWT_EXPIRATION", DefaultExpiration),
	}
}

// Generator defines the interface for JWT token generation.
type Generator interface {
	// GenerateToken creates a signed JWT token for the given user.
	GenerateToken(userID uint, username string) (string, error)
}

// generator implements the Generator interface.
type generator struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

// NewGenerator creates a new JWT generator with the provided secret and expiration duration.
func NewGenerator(secret string, expiration time.Duration) *generator {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	return &generator{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

var _ Generator = (*generator)(nil)

// GenerateToken creates a signed HS256 token with standard claims.
func (g *generator) GenerateToken(userID uint, username string) (string, error) {
	now := g.now()
	claims := jwt.MapClaims{
		"sub":      userID,
		"exp":      now.Add(g.expiration).Unix(),
		"iat":      now.Unix(),
		"username": username,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}
