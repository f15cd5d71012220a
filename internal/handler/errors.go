package handler

import (
	"errors"
	"net/http"

	"github.com/Eursukkul/studio-booking/internal/dto"
	"github.com/Eursukkul/studio-booking/internal/service"
	"github.com/labstack/echo/v4"
)

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrForbidden, http.StatusForbidden, dto.CodeForbidden},
	{service.ErrIncompatibleSubscription, http.StatusUnprocessableEntity, dto.CodeIncompatibleSubscription},
	{service.ErrInsufficientCredit, http.StatusUnprocessableEntity, dto.CodeInsufficientCredit},
	{service.ErrAlreadyBooked, http.StatusConflict, dto.CodeAlreadyBooked},
	{service.ErrAlreadyQueued, http.StatusConflict, dto.CodeAlreadyQueued},
	{service.ErrClassNotFound, http.StatusNotFound, dto.CodeClassNotFound},
	{service.ErrClassCancelled, http.StatusConflict, dto.CodeClassCancelled},
	{service.ErrClassClosed, http.StatusConflict, dto.CodeClassClosed},
	{service.ErrBookingNotFound, http.StatusNotFound, dto.CodeBookingNotFound},
	{service.ErrWaitlistEntryNotFound, http.StatusNotFound, dto.CodeNotFound},
	{service.ErrInvalidTransition, http.StatusConflict, dto.CodeInvalidTransition},
	{service.ErrCapacityRaceLost, http.StatusConflict, dto.CodeCapacityRaceLost},
	{service.ErrStorageUnavailable, http.StatusServiceUnavailable, dto.CodeStorageUnavailable},
}

// toHTTPError maps a service error to a status and a stable error code.
func toHTTPError(err error) *echo.HTTPError {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return echo.NewHTTPError(e.status, dto.ErrorResponse{Code: e.code, Message: e.err.Error()})
		}
	}
	return echo.NewHTTPError(http.StatusInternalServerError, dto.ErrorResponse{Code: dto.CodeInternal, Message: err.Error()})
}

func badRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, dto.ErrorResponse{Code: dto.CodeInvalidRequest, Message: msg})
}
