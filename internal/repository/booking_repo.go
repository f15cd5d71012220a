package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"gorm.io/gorm"
)

// BookingFilter narrows a user's booking history. Zero values mean no bound.
type BookingFilter struct {
	From   *time.Time
	To     *time.Time
	Status *models.BookingStatus
}

type BookingRepository interface {
	Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error
	FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error)
	FindByUser(ctx context.Context, userID string, filter BookingFilter) ([]models.Booking, error)
	FindByClassAndStatus(ctx context.Context, tx *gorm.DB, classID uint, status models.BookingStatus) ([]models.Booking, error)
	FindActiveByUserAndClass(ctx context.Context, tx *gorm.DB, userID string, classID uint) (*models.Booking, error)
	CountByStatus(ctx context.Context, tx *gorm.DB, classID uint, status models.BookingStatus) (int64, error)
	TransitionStatus(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.BookingStatus) error
	CloseConfirmed(ctx context.Context, tx *gorm.DB, classID uint, to models.BookingStatus) (int64, error)
	GetDB() *gorm.DB
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *bookingRepository) Create(ctx context.Context, tx *gorm.DB, booking *models.Booking) error {
	return tx.WithContext(ctx).Create(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Booking, error) {
	var booking models.Booking
	if err := tx.WithContext(ctx).Preload("Class").First(&booking, id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByUser lists a user's bookings ordered by class start. The date range
// applies to the class start time, not to when the booking was made.
func (r *bookingRepository) FindByUser(ctx context.Context, userID string, filter BookingFilter) ([]models.Booking, error) {
	var bookings []models.Booking
	q := r.db.WithContext(ctx).
		Joins("JOIN class_instances ON class_instances.id = bookings.class_id").
		Preload("Class").
		Where("bookings.user_id = ?", userID)
	if filter.From != nil {
		q = q.Where("class_instances.starts_at >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("class_instances.starts_at < ?", *filter.To)
	}
	if filter.Status != nil {
		q = q.Where("bookings.status = ?", *filter.Status)
	}
	if err := q.Order("class_instances.starts_at ASC, bookings.id ASC").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) FindByClassAndStatus(ctx context.Context, tx *gorm.DB, classID uint, status models.BookingStatus) ([]models.Booking, error) {
	var bookings []models.Booking
	err := tx.WithContext(ctx).
		Where("class_id = ? AND status = ?", classID, status).
		Order("id ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepository) FindActiveByUserAndClass(ctx context.Context, tx *gorm.DB, userID string, classID uint) (*models.Booking, error) {
	var booking models.Booking
	err := tx.WithContext(ctx).
		Where("user_id = ? AND class_id = ? AND status <> ?", userID, classID, models.StatusCancelled).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) CountByStatus(ctx context.Context, tx *gorm.DB, classID uint, status models.BookingStatus) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("class_id = ? AND status = ?", classID, status).
		Count(&count).Error
	return count, err
}

// TransitionStatus moves a booking from one status to another and fails with
// ErrStaleStatus if the booking was no longer in the expected status.
func (r *bookingRepository) TransitionStatus(ctx context.Context, tx *gorm.DB, bookingID uint, from, to models.BookingStatus) error {
	res := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", bookingID, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleStatus
	}
	return nil
}

// CloseConfirmed moves every still-confirmed booking of a class to a final
// status and returns how many changed.
func (r *bookingRepository) CloseConfirmed(ctx context.Context, tx *gorm.DB, classID uint, to models.BookingStatus) (int64, error) {
	res := tx.WithContext(ctx).
		Model(&models.Booking{}).
		Where("class_id = ? AND status = ?", classID, models.StatusConfirmed).
		Update("status", to)
	return res.RowsAffected, res.Error
}
