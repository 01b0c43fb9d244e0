// Package twelvedata provides a client for the Twelve Data stock market API.
package twelvedata

import (
	"finance_backend/internal/platform/config"
)

const (
	// DefaultBaseURL is the public Twelve Data endpoint.
	DefaultBaseURL = "https://api.twelvedata.com"
	// DefaultMaxBatch is the number of symbols sent in one batch /price request.
	DefaultMaxBatch = 120
)

// Config holds configuration for the Twelve Data API client.
type Config struct {
	TwelveDataAPIKey string // API key for authentication
	BaseURL          string // Base URL for the API (e.g., "https://api.twelvedata.com")
	MaxBatch         int    // Max symbols per batch request; larger batches are split
}

// LoadConfig loads Twelve Data configuration from environment variables.
func LoadConfig() Config {
	return Config{
		TwelveDataAPIKey: config.String("TWELVE_DATA_API_KEY", ""),
		BaseURL:          config.String("TWELVE_DATA_BASE_URL", DefaultBaseURL),
		MaxBatch:         config.Int("TWELVE_DATA_MAX_BATCH", DefaultMaxBatch),
	}
}
