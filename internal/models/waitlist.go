package models

import "time"

// WaitlistEntry is a pending seat request. Position is 1-based and dense per class.
type WaitlistEntry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"not null;uniqueIndex:idx_waitlist_class_user" json:"class_id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_waitlist_class_user;index" json:"user_id"`
	Position  int       `gorm:"not null" json:"position"`
	CreatedAt time.Time `json:"created_at"`

	Class *ClassInstance `gorm:"foreignKey:ClassID" json:"class,omitempty"`
}
