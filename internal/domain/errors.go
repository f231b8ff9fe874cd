package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors carry no infrastructure dependency.

var (
	// Submission errors
	ErrInvalidAction     = errors.New("category and description are required")
	ErrInvalidTokenValue = errors.New("token value must be positive")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrUnknownActivity   = errors.New("activity not in catalog")
	ErrTokenMismatch     = errors.New("token value does not match catalog")

	// Redemption errors
	ErrAlreadyRedeemed     = errors.New("reward already redeemed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidCost         = errors.New("reward cost must be non-negative")
	ErrUnknownReward       = errors.New("reward not in catalog")

	// Lookup errors
	ErrActionNotFound = errors.New("action not found")

	// Login errors
	ErrInvalidCredentials = errors.New("invalid email or password")
)
