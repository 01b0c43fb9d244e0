package adapters

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finance_backend/internal/feature/portfolio/domain/entity"
	"finance_backend/internal/feature/portfolio/usecase"
)

type holdingGorm struct {
	db *gorm.DB
}

var _ usecase.HoldingRepository = (*holdingGorm)(nil)

func NewHoldingRepository(db *gorm.DB) *holdingGorm {
	return &holdingGorm{db: db}
}

type HoldingModel struct {
	ID     uint            `gorm:"primaryKey"`
	UserID uint            `gorm:"not null;uniqueIndex:holding_user_ticker,priority:1"`
	Ticker string          `gorm:"size:32;not null;uniqueIndex:holding_user_ticker,priority:2;index"`
	Shares decimal.Decimal `gorm:"type:numeric(20,6);not null"`
	Price  decimal.Decimal `gorm:"type:numeric(20,6);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (HoldingModel) TableName() string {
	return "holdings"
}

func toEntity(m HoldingModel) entity.Holding {
	return entity.Holding{
		ID:        m.ID,
		UserID:    m.UserID,
		Ticker:    m.Ticker,
		Shares:    m.Shares,
		Price:     m.Price,
		UpdatedAt: m.UpdatedAt,
	}
}

// Add inserts the holding or, when the user already holds the ticker,
// adds the new shares to the existing row in a single statement.
func (r *holdingGorm) Add(ctx context.Context, h entity.Holding) error {
	m := HoldingModel{
		UserID: h.UserID,
		Ticker: h.Ticker,
		Shares: h.Shares,
		Price:  h.Price,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "ticker"}},
		DoUpdates: clause.Assignments(map[string]any{
			"shares":     gorm.Expr("holdings.shares + excluded.shares"),
			"updated_at": gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&m).Error
}

func (r *holdingGorm) ListByUser(ctx context.Context, userID uint) ([]entity.Holding, error) {
	var rows []HoldingModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("ticker ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Holding, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}

// DistinctTickers returns every ticker held by at least one user.
func (r *holdingGorm) DistinctTickers(ctx context.Context) ([]string, error) {
	var tickers []string
	if err := r.db.WithContext(ctx).
		Model(&HoldingModel{}).
		Distinct("ticker").
		Order("ticker ASC").
		Pluck("ticker", &tickers).Error; err != nil {
		return nil, err
	}
	return tickers, nil
}

// UpdatePriceByTicker sets the last known price on every holding of ticker
// and returns the number of rows touched. Holdings are never created here.
func (r *holdingGorm) UpdatePriceByTicker(ctx context.Context, ticker string, price decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&HoldingModel{}).
		Where("ticker = ?", ticker).
		Updates(map[string]any{"price": price, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

// TickersByUser returns the tickers held by userID in ticker order.
func (r *holdingGorm) TickersByUser(ctx context.Context, userID uint) ([]string, error) {
	var tickers []string
	if err := r.db.WithContext(ctx).
		Model(&HoldingModel{}).
		Where("user_id = ?", userID).
		Order("ticker ASC").
		Pluck("ticker", &tickers).Error; err != nil {
		return nil, err
	}
	return tickers, nil
}
