package handler

import (
	"net/http"

	"github.com/Eursukkul/studio-booking/internal/dto"
	"github.com/Eursukkul/studio-booking/internal/middleware"
	"github.com/Eursukkul/studio-booking/internal/models"
	"github.com/Eursukkul/studio-booking/internal/service"
	"github.com/labstack/echo/v4"
)

type ClassHandler struct {
	svc service.BookingService
}

func NewClassHandler(svc service.BookingService) *ClassHandler {
	return &ClassHandler{svc: svc}
}

func (h *ClassHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/classes/:id/status", h.GetClassStatus)
	g.POST("/classes/:id/cancel", h.CancelClass, middleware.RequireRole(models.RoleStaff))
}

func (h *ClassHandler) GetClassStatus(c echo.Context) error {
	classID, err := parseID(c, "class")
	if err != nil {
		return err
	}

	st, err := h.svc.ClassStatus(c.Request().Context(), classID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(http.StatusOK, dto.ClassStatusResponse{
		ID:             st.Class.ID,
		Name:           st.Class.Name,
		Category:       st.Class.Category,
		Status:         st.Class.Status,
		Capacity:       st.Class.Capacity,
		StartsAt:       st.Class.StartsAt,
		Confirmed:      st.Confirmed,
		Waitlisted:     st.Waitlisted,
		SeatsAvailable: st.SeatsAvailable,
	})
}

func (h *ClassHandler) CancelClass(c echo.Context) error {
	classID, err := parseID(c, "class")
	if err != nil {
		return err
	}

	n, err := h.svc.CancelClass(c.Request().Context(), classID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, dto.ClassCancelResponse{ClassID: classID, BookingsCancelled: n})
}
