package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Eursukkul/studio-booking/internal/repository"
)

var (
	ErrForbidden                = errors.New("not allowed to act on this booking")
	ErrIncompatibleSubscription = errors.New("subscription category does not match the class category")
	ErrInsufficientCredit       = repository.ErrInsufficientCredit
	ErrAlreadyBooked            = errors.New("user already has an active booking for this class")
	ErrAlreadyQueued            = repository.ErrAlreadyQueued
	ErrClassNotFound            = errors.New("class not found")
	ErrClassCancelled           = errors.New("class is cancelled")
	ErrClassClosed              = errors.New("class is no longer open for booking")
	ErrBookingNotFound          = errors.New("booking not found")
	ErrWaitlistEntryNotFound    = repository.ErrEntryNotFound
	ErrInvalidTransition        = errors.New("booking cannot make this transition")
	ErrCapacityRaceLost         = repository.ErrCapacityRaceLost
	ErrStorageUnavailable       = errors.New("storage unavailable")
)

var domainErrors = []error{
	ErrForbidden,
	ErrIncompatibleSubscription,
	ErrInsufficientCredit,
	ErrAlreadyBooked,
	ErrAlreadyQueued,
	ErrClassNotFound,
	ErrClassCancelled,
	ErrClassClosed,
	ErrBookingNotFound,
	ErrWaitlistEntryNotFound,
	ErrInvalidTransition,
	ErrCapacityRaceLost,
	ErrStorageUnavailable,
}

// storageErr passes domain errors through and classifies everything else,
// timeouts and rows missing mid-transaction included, as a storage failure.
// Call sites translate the not-found cases they expect into domain errors.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	for _, d := range domainErrors {
		if errors.Is(err, d) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
