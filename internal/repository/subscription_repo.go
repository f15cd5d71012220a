package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"gorm.io/gorm"
)

// SubscriptionRepository is the credit ledger. Balance changes are
// compare-and-swap updates on remaining_credits, each paired with an
// append-only CreditTransaction in the caller's transaction.
type SubscriptionRepository interface {
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Subscription, error)
	FindUsableByUser(ctx context.Context, tx *gorm.DB, userID string, at time.Time) ([]models.Subscription, error)
	Debit(ctx context.Context, tx *gorm.DB, subscriptionID uint, bookingID *uint, at time.Time) (int, error)
	Credit(ctx context.Context, tx *gorm.DB, subscriptionID uint, bookingID *uint) (int, error)
	Transactions(ctx context.Context, subscriptionID uint) ([]models.CreditTransaction, error)
	GetDB() *gorm.DB
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *subscriptionRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := tx.WithContext(ctx).First(&sub, id).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindUsableByUser returns the user's active subscriptions valid at the given
// time, the one ending soonest first.
func (r *subscriptionRepository) FindUsableByUser(ctx context.Context, tx *gorm.DB, userID string, at time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := tx.WithContext(ctx).
		Where("user_id = ? AND status = ? AND starts_at <= ? AND ends_at > ?", userID, models.SubscriptionActive, at, at).
		Order("ends_at ASC, id ASC").
		Find(&subs).Error
	return subs, err
}

// Debit consumes one credit. It fails with ErrInsufficientCredit, leaving the
// balance untouched, when the balance is zero or the subscription is not usable.
func (r *subscriptionRepository) Debit(ctx context.Context, tx *gorm.DB, subscriptionID uint, bookingID *uint, at time.Time) (int, error) {
	res := tx.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND status = ? AND remaining_credits > 0 AND starts_at <= ? AND ends_at > ?",
			subscriptionID, models.SubscriptionActive, at, at).
		Update("remaining_credits", gorm.Expr("remaining_credits - 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, ErrInsufficientCredit
	}
	return r.record(ctx, tx, subscriptionID, bookingID, -1, models.CreditReasonBooking)
}

// Credit refunds one credit regardless of the subscription's status.
func (r *subscriptionRepository) Credit(ctx context.Context, tx *gorm.DB, subscriptionID uint, bookingID *uint) (int, error) {
	res := tx.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ?", subscriptionID).
		Update("remaining_credits", gorm.Expr("remaining_credits + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return r.record(ctx, tx, subscriptionID, bookingID, 1, models.CreditReasonRefund)
}

func (r *subscriptionRepository) record(ctx context.Context, tx *gorm.DB, subscriptionID uint, bookingID *uint, delta int, reason models.CreditReason) (int, error) {
	sub, err := r.FindByID(ctx, tx, subscriptionID)
	if err != nil {
		return 0, err
	}
	entry := &models.CreditTransaction{
		SubscriptionID: subscriptionID,
		BookingID:      bookingID,
		Delta:          delta,
		Reason:         reason,
		BalanceAfter:   sub.RemainingCredits,
	}
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return 0, err
	}
	return sub.RemainingCredits, nil
}

func (r *subscriptionRepository) Transactions(ctx context.Context, subscriptionID uint) ([]models.CreditTransaction, error) {
	var txs []models.CreditTransaction
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("id ASC").
		Find(&txs).Error
	return txs, err
}
