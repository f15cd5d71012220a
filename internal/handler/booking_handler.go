package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Eursukkul/studio-booking/internal/dto"
	"github.com/Eursukkul/studio-booking/internal/middleware"
	"github.com/Eursukkul/studio-booking/internal/models"
	"github.com/Eursukkul/studio-booking/internal/repository"
	"github.com/Eursukkul/studio-booking/internal/service"
	"github.com/labstack/echo/v4"
)

type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/classes/:id/bookings", h.RequestBooking)
	g.DELETE("/classes/:id/waitlist", h.LeaveWaitlist)

	g.GET("/bookings/:id", h.GetBooking)
	g.DELETE("/bookings/:id", h.CancelBooking)
	g.PATCH("/bookings/:id/attendance", h.MarkAttendance, middleware.RequireRole(models.RoleStaff, models.RoleInstructor))

	g.GET("/me/bookings", h.ListBookings)
	g.GET("/me/waitlist", h.ListWaitlist)
}

func parseID(c echo.Context, what string) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("invalid " + what + " id")
	}
	return uint(id), nil
}

func actorOf(c echo.Context) (models.Actor, error) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		return models.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, dto.ErrorResponse{
			Code:    dto.CodeNotAuthenticated,
			Message: "not authenticated",
		})
	}
	return actor, nil
}

// RequestBooking answers 201 when a seat was confirmed and 202 when the
// caller was put on the waitlist.
func (h *BookingHandler) RequestBooking(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	classID, err := parseID(c, "class")
	if err != nil {
		return err
	}

	result, err := h.svc.RequestBooking(c.Request().Context(), actor.UserID, classID)
	if err != nil {
		return toHTTPError(err)
	}

	resp := dto.BookingResultResponse{RemainingCredits: result.Balance}
	if result.Waitlisted() {
		w := dto.ToWaitlistEntryResponse(result.WaitlistEntry)
		resp.Status = "waitlisted"
		resp.Waitlist = &w
		return c.JSON(http.StatusAccepted, resp)
	}
	b := dto.ToBookingResponse(result.Booking)
	resp.Status = string(models.StatusConfirmed)
	resp.Booking = &b
	return c.JSON(http.StatusCreated, resp)
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	bookingID, err := parseID(c, "booking")
	if err != nil {
		return err
	}

	result, err := h.svc.CancelBooking(c.Request().Context(), actor, bookingID)
	if err != nil {
		return toHTTPError(err)
	}

	resp := dto.CancelResultResponse{
		Booking:          dto.ToBookingResponse(result.Booking),
		RemainingCredits: result.Balance,
		DroppedUserIDs:   result.Dropped,
	}
	if result.Promoted != nil {
		p := dto.ToBookingResponse(result.Promoted)
		resp.Promoted = &p
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) GetBooking(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "booking")
	if err != nil {
		return err
	}

	booking, err := h.svc.GetBooking(c.Request().Context(), actor, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) MarkAttendance(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	id, err := parseID(c, "booking")
	if err != nil {
		return err
	}

	var req dto.AttendanceRequest
	if err := c.Bind(&req); err != nil {
		return badRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	booking, err := h.svc.MarkAttendance(c.Request().Context(), actor, id, *req.Attended)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *BookingHandler) LeaveWaitlist(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}
	classID, err := parseID(c, "class")
	if err != nil {
		return err
	}

	if err := h.svc.LeaveWaitlist(c.Request().Context(), actor.UserID, classID); err != nil {
		return toHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListBookings accepts from/to as RFC 3339 timestamps or YYYY-MM-DD dates and
// an optional status.
func (h *BookingHandler) ListBookings(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	var filter repository.BookingFilter
	if filter.From, err = parseTimeParam(c, "from"); err != nil {
		return err
	}
	if filter.To, err = parseTimeParam(c, "to"); err != nil {
		return err
	}
	if s := c.QueryParam("status"); s != "" {
		status := models.BookingStatus(s)
		if !status.Valid() {
			return badRequest("invalid status")
		}
		filter.Status = &status
	}

	bookings, err := h.svc.ListBookings(c.Request().Context(), actor.UserID, filter)
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.BookingResponse, len(bookings))
	for i := range bookings {
		resp[i] = dto.ToBookingResponse(&bookings[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *BookingHandler) ListWaitlist(c echo.Context) error {
	actor, err := actorOf(c)
	if err != nil {
		return err
	}

	entries, err := h.svc.ListWaitlist(c.Request().Context(), actor.UserID)
	if err != nil {
		return toHTTPError(err)
	}

	resp := make([]dto.WaitlistEntryResponse, len(entries))
	for i := range entries {
		resp[i] = dto.ToWaitlistEntryResponse(&entries[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func parseTimeParam(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	if t, err := time.Parse(time.DateOnly, v); err == nil {
		return &t, nil
	}
	return nil, badRequest("invalid " + name + " date")
}
