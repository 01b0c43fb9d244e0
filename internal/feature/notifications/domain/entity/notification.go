// Package entity defines the domain models for the notifications feature.
package entity

import "time"

// Notification is a message generated for a user about one of their holdings.
type Notification struct {
	ID        uint
	UserID    uint
	Ticker    string
	Message   string
	Timestamp time.Time
}
