// Package domain defines domain-level errors for the auth feature.
package domain

import "errors"

// Domain errors for authentication operations.
var (
	// ErrUserAlreadyExists indicates that the username or email is already registered.
	ErrUserAlreadyExists = errors.New("username or email already exists")

	// ErrUserNotFound indicates that no user was found with the given criteria.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials indicates that the username or password is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrWeakPassword indicates that the password does not meet the minimum length.
	ErrWeakPassword = errors.New("password must be at least 8 characters long")
)
