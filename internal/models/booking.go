package models

import "time"

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusAttended  BookingStatus = "attended"
	StatusNoShow    BookingStatus = "no_show"
)

// Valid reports whether s is one of the persisted booking states.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusConfirmed, StatusCancelled, StatusAttended, StatusNoShow:
		return true
	}
	return false
}

type Booking struct {
	ID             uint          `gorm:"primaryKey" json:"id"`
	ClassID        uint          `gorm:"not null;index" json:"class_id"`
	UserID         string        `gorm:"not null;index" json:"user_id"`
	SubscriptionID uint          `gorm:"not null" json:"subscription_id"`
	Status         BookingStatus `gorm:"type:varchar(20);not null;default:'confirmed'" json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	Class *ClassInstance `gorm:"foreignKey:ClassID" json:"class,omitempty"`
}
