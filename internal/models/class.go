package models

import "time"

type ClassStatus string

const (
	ClassScheduled ClassStatus = "scheduled"
	ClassCancelled ClassStatus = "cancelled"
	ClassCompleted ClassStatus = "completed"
)

// ClassInstance is one scheduled occurrence of a class. SeatsTaken mirrors the
// number of confirmed bookings and is only changed through compare-and-swap
// updates, so it can never exceed Capacity.
type ClassInstance struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	Name            string      `gorm:"not null" json:"name"`
	Category        Category    `gorm:"type:varchar(20);not null" json:"category"`
	Capacity        int         `gorm:"not null;check:capacity > 0" json:"capacity"`
	SeatsTaken      int         `gorm:"not null;default:0" json:"seats_taken"`
	StartsAt        time.Time   `gorm:"not null;index" json:"starts_at"`
	DurationMinutes int         `gorm:"not null;default:60" json:"duration_minutes"`
	InstructorID    string      `json:"instructor_id"`
	Status          ClassStatus `gorm:"type:varchar(20);not null;default:'scheduled'" json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// EndsAt is the scheduled end of the class.
func (c *ClassInstance) EndsAt() time.Time {
	return c.StartsAt.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// Bookable reports whether new bookings may be taken at now.
func (c *ClassInstance) Bookable(now time.Time) bool {
	return c.Status == ClassScheduled && now.Before(c.StartsAt)
}
