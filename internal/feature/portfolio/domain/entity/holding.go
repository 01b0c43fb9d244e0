// Package entity defines the domain entities for the portfolio feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one user's position in one ticker.
// A user has at most one Holding per ticker; adding shares to an existing
// ticker increases Shares instead of creating a second row.
type Holding struct {
	ID     uint
	UserID uint
	Ticker string

	// Shares is the number of shares held. Always positive.
	Shares decimal.Decimal

	// Price is the last known price. It is set from the purchase price on insert
	// and overwritten by the scheduled refresher.
	Price decimal.Decimal

	UpdatedAt time.Time
}
