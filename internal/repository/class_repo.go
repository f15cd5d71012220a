package repository

import (
	"context"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ClassRepository interface {
	FindByID(ctx context.Context, id uint) (*models.ClassInstance, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ClassInstance, error)
	Upsert(ctx context.Context, tx *gorm.DB, class *models.ClassInstance) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ClassStatus) error
	ClaimSeat(ctx context.Context, tx *gorm.DB, id uint) error
	ReleaseSeat(ctx context.Context, tx *gorm.DB, id uint) error
	ResetSeats(ctx context.Context, tx *gorm.DB, id uint) error
	FindScheduledStartedBefore(ctx context.Context, cutoff time.Time) ([]models.ClassInstance, error)
	GetDB() *gorm.DB
}

type classRepository struct {
	db *gorm.DB
}

func NewClassRepository(db *gorm.DB) ClassRepository {
	return &classRepository{db: db}
}

func (r *classRepository) GetDB() *gorm.DB {
	return r.db
}

func (r *classRepository) FindByID(ctx context.Context, id uint) (*models.ClassInstance, error) {
	var class models.ClassInstance
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

// FindByIDForUpdate locks the class row for the rest of the transaction. Every
// operation that changes seats or the waitlist of a class goes through here
// first, which serializes them per class.
func (r *classRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.ClassInstance, error) {
	var class models.ClassInstance
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&class, id).Error; err != nil {
		return nil, err
	}
	return &class, nil
}

// Upsert inserts or refreshes a class coming from the schedule service. The
// seat counter and status are owned locally and never overwritten here.
func (r *classRepository) Upsert(ctx context.Context, tx *gorm.DB, class *models.ClassInstance) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "capacity", "starts_at", "duration_minutes", "instructor_id", "updated_at"}),
	}).Create(class).Error
}

func (r *classRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id uint, status models.ClassStatus) error {
	return tx.WithContext(ctx).
		Model(&models.ClassInstance{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ClaimSeat takes one seat only if the counter is still below capacity.
func (r *classRepository) ClaimSeat(ctx context.Context, tx *gorm.DB, id uint) error {
	res := tx.WithContext(ctx).
		Model(&models.ClassInstance{}).
		Where("id = ? AND seats_taken < capacity", id).
		Update("seats_taken", gorm.Expr("seats_taken + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCapacityRaceLost
	}
	return nil
}

func (r *classRepository) ReleaseSeat(ctx context.Context, tx *gorm.DB, id uint) error {
	return tx.WithContext(ctx).
		Model(&models.ClassInstance{}).
		Where("id = ? AND seats_taken > 0", id).
		Update("seats_taken", gorm.Expr("seats_taken - 1")).Error
}

func (r *classRepository) ResetSeats(ctx context.Context, tx *gorm.DB, id uint) error {
	return tx.WithContext(ctx).
		Model(&models.ClassInstance{}).
		Where("id = ?", id).
		Update("seats_taken", 0).Error
}

func (r *classRepository) FindScheduledStartedBefore(ctx context.Context, cutoff time.Time) ([]models.ClassInstance, error) {
	var classes []models.ClassInstance
	err := r.db.WithContext(ctx).
		Where("status = ? AND starts_at < ?", models.ClassScheduled, cutoff).
		Order("starts_at ASC").
		Find(&classes).Error
	return classes, err
}
