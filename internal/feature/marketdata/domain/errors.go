// Package domain defines domain-level errors for the marketdata feature.
package domain

import (
	"errors"
	"strings"
)

// Errors surfaced by the market data client and the price cache.
// Callers distinguish them with errors.Is; adapters wrap them with provider detail.
var (
	// ErrNotFound indicates the ticker is unknown to the provider or the data window is empty.
	ErrNotFound = errors.New("ticker not found")

	// ErrUpstreamUnavailable indicates a network or provider failure.
	ErrUpstreamUnavailable = errors.New("market data provider unavailable")

	// ErrTimeout indicates the provider did not answer before the call deadline.
	ErrTimeout = errors.New("market data request timed out")
)

// Kind returns a stable, lower_snake name for the error class of err.
// It is used in API responses that report per-ticker failures.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "upstream_unavailable"
	}
}

// NormalizeTicker trims and uppercases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}
