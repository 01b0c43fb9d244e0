// Package domain defines domain-level errors for the portfolio feature.
package domain

import "errors"

var (
	// ErrInvalidHolding indicates a missing ticker or a non-positive share count or price.
	ErrInvalidHolding = errors.New("ticker, shares, and price are required")
)
