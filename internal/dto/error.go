package dto

import "net/http"

// Stable error codes returned to clients.
const (
	CodeNotAuthenticated         = "NOT_AUTHENTICATED"
	CodeForbidden                = "FORBIDDEN"
	CodeInvalidRequest           = "INVALID_REQUEST"
	CodeIncompatibleSubscription = "INCOMPATIBLE_SUBSCRIPTION"
	CodeInsufficientCredit       = "INSUFFICIENT_CREDIT"
	CodeAlreadyBooked            = "ALREADY_BOOKED"
	CodeAlreadyQueued            = "ALREADY_QUEUED"
	CodeClassNotFound            = "CLASS_NOT_FOUND"
	CodeClassCancelled           = "CLASS_CANCELLED"
	CodeClassClosed              = "CLASS_CLOSED"
	CodeBookingNotFound          = "BOOKING_NOT_FOUND"
	CodeNotFound                 = "NOT_FOUND"
	CodeInvalidTransition        = "INVALID_TRANSITION"
	CodeCapacityRaceLost         = "CAPACITY_RACE_LOST"
	CodeStorageUnavailable       = "STORAGE_UNAVAILABLE"
	CodeInternal                 = "INTERNAL"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CodeForStatus picks a generic code for errors raised without one, such as
// echo's own 404 and 405.
func CodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidRequest
	case http.StatusUnauthorized:
		return CodeNotAuthenticated
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return CodeNotFound
	case http.StatusServiceUnavailable:
		return CodeStorageUnavailable
	default:
		return CodeInternal
	}
}
