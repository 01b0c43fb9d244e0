// Package domain defines the strategy catalog and domain errors for the strategy feature.
package domain

import "errors"

var (
	// ErrInvalidStrategy indicates a strategy name that is not in the catalog.
	ErrInvalidStrategy = errors.New("invalid strategy")
)
