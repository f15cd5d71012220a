package notifier

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindConfirmed  Kind = "confirmed"
	KindWaitlisted Kind = "waitlisted"
	KindPromoted   Kind = "promoted"
	KindCancelled  Kind = "cancelled"
)

// Notification is one message to a user about a booking state change.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      Kind      `json:"kind"`
	ClassID   uint      `json:"class_id"`
	BookingID uint      `json:"booking_id,omitempty"`
	Position  int       `json:"position,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New stamps a notification with a fresh id and the current time.
func New(userID string, kind Kind, classID uint) Notification {
	return Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		ClassID:   classID,
		Timestamp: time.Now().UTC(),
	}
}

// Notifier is fire-and-forget: booking state is authoritative and never
// depends on whether a notification was delivered.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// LogNotifier only logs. Used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) {
	log.Printf("[Notifier] %s user=%s class=%d booking=%d position=%d", n.Kind, n.UserID, n.ClassID, n.BookingID, n.Position)
}
