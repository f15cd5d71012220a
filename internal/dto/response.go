package dto

import (
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
)

type BookingResponse struct {
	ID             uint                 `json:"id"`
	ClassID        uint                 `json:"class_id"`
	UserID         string               `json:"user_id"`
	SubscriptionID uint                 `json:"subscription_id"`
	Status         models.BookingStatus `json:"status"`
	ClassName      string               `json:"class_name,omitempty"`
	ClassStartsAt  *time.Time           `json:"class_starts_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

type WaitlistEntryResponse struct {
	ClassID       uint       `json:"class_id"`
	UserID        string     `json:"user_id"`
	Position      int        `json:"position"`
	ClassName     string     `json:"class_name,omitempty"`
	ClassStartsAt *time.Time `json:"class_starts_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// BookingResultResponse answers a booking request. Status is "confirmed" with
// Booking set, or "waitlisted" with Waitlist set.
type BookingResultResponse struct {
	Status           string                 `json:"status"`
	Booking          *BookingResponse       `json:"booking,omitempty"`
	Waitlist         *WaitlistEntryResponse `json:"waitlist,omitempty"`
	RemainingCredits int                    `json:"remaining_credits"`
}

type CancelResultResponse struct {
	Booking          BookingResponse  `json:"booking"`
	RemainingCredits int              `json:"remaining_credits"`
	Promoted         *BookingResponse `json:"promoted,omitempty"`
	// DroppedUserIDs are waitlisted users skipped during promotion because
	// they could no longer pay for the class.
	DroppedUserIDs []string `json:"dropped_user_ids,omitempty"`
}

type ClassStatusResponse struct {
	ID             uint               `json:"id"`
	Name           string             `json:"name"`
	Category       models.Category    `json:"category"`
	Status         models.ClassStatus `json:"status"`
	Capacity       int                `json:"capacity"`
	StartsAt       time.Time          `json:"starts_at"`
	Confirmed      int64              `json:"confirmed_count"`
	Waitlisted     int64              `json:"waitlisted_count"`
	SeatsAvailable int                `json:"seats_available"`
}

type ClassCancelResponse struct {
	ClassID           uint `json:"class_id"`
	BookingsCancelled int  `json:"bookings_cancelled"`
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	resp := BookingResponse{
		ID:             b.ID,
		ClassID:        b.ClassID,
		UserID:         b.UserID,
		SubscriptionID: b.SubscriptionID,
		Status:         b.Status,
		CreatedAt:      b.CreatedAt,
	}
	if b.Class != nil {
		startsAt := b.Class.StartsAt
		resp.ClassName = b.Class.Name
		resp.ClassStartsAt = &startsAt
	}
	return resp
}

func ToWaitlistEntryResponse(e *models.WaitlistEntry) WaitlistEntryResponse {
	resp := WaitlistEntryResponse{
		ClassID:   e.ClassID,
		UserID:    e.UserID,
		Position:  e.Position,
		CreatedAt: e.CreatedAt,
	}
	if e.Class != nil {
		startsAt := e.Class.StartsAt
		resp.ClassName = e.Class.Name
		resp.ClassStartsAt = &startsAt
	}
	return resp
}
