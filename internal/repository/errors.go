package repository

import "errors"

// Conditional writes report a lost compare-and-swap through these errors so the
// service layer can tell a business rule apart from a storage failure.
var (
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrCapacityRaceLost   = errors.New("seat no longer available")
	ErrAlreadyQueued      = errors.New("user is already on the waitlist for this class")
	ErrEntryNotFound      = errors.New("waitlist entry not found")
	ErrStaleStatus        = errors.New("booking status changed concurrently")
)
