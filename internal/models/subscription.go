package models

import "time"

type Category string

const (
	CategoryGroup    Category = "group"
	CategoryPersonal Category = "personal"
	CategoryDayPass  Category = "daypass"
)

// Accepts reports whether a subscription of category sub may book a class of
// category c. Personal classes take personal subscriptions only; every other
// class takes any non-personal subscription.
func (c Category) Accepts(sub Category) bool {
	return (c == CategoryPersonal) == (sub == CategoryPersonal)
}

type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

type Subscription struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	UserID           string             `gorm:"not null;index" json:"user_id"`
	Category         Category           `gorm:"type:varchar(20);not null" json:"category"`
	RemainingCredits int                `gorm:"not null;default:0;check:remaining_credits >= 0" json:"remaining_credits"`
	StartsAt         time.Time          `gorm:"not null" json:"starts_at"`
	EndsAt           time.Time          `gorm:"not null" json:"ends_at"`
	Status           SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Usable reports whether the subscription is active and inside its validity window.
func (s *Subscription) Usable(at time.Time) bool {
	return s.Status == SubscriptionActive && !at.Before(s.StartsAt) && at.Before(s.EndsAt)
}

type CreditReason string

const (
	CreditReasonBooking CreditReason = "booking"
	CreditReasonRefund  CreditReason = "refund"
)

// CreditTransaction is an append-only record of one ledger change.
type CreditTransaction struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	SubscriptionID uint         `gorm:"not null;index" json:"subscription_id"`
	BookingID      *uint        `json:"booking_id,omitempty"`
	Delta          int          `gorm:"not null" json:"delta"`
	Reason         CreditReason `gorm:"type:varchar(20);not null" json:"reason"`
	BalanceAfter   int          `gorm:"not null" json:"balance_after"`
	CreatedAt      time.Time    `json:"created_at"`
}
