package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"gorm.io/gorm"
)

// WaitlistRepository keeps a dense 1..N ordering per class. Callers must hold
// the class row lock (ClassRepository.FindByIDForUpdate) around every write so
// that position assignment and compaction cannot interleave.
type WaitlistRepository interface {
	Enqueue(ctx context.Context, tx *gorm.DB, classID uint, userID string) (*models.WaitlistEntry, error)
	DequeueFront(ctx context.Context, tx *gorm.DB, classID uint) (*models.WaitlistEntry, error)
	Remove(ctx context.Context, tx *gorm.DB, classID uint, userID string) error
	Find(ctx context.Context, tx *gorm.DB, classID uint, userID string) (*models.WaitlistEntry, error)
	FindByClass(ctx context.Context, tx *gorm.DB, classID uint) ([]models.WaitlistEntry, error)
	ListFor(ctx context.Context, userID string, now time.Time) ([]models.WaitlistEntry, error)
	Count(ctx context.Context, tx *gorm.DB, classID uint) (int64, error)
	DeleteByClass(ctx context.Context, tx *gorm.DB, classID uint) (int64, error)
	GetDB() *gorm.DB
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (r *waitlistRepository) GetDB() *gorm.DB {
	return r.db
}

// Enqueue appends the user at max(position)+1, or 1 on an empty list.
func (r *waitlistRepository) Enqueue(ctx context.Context, tx *gorm.DB, classID uint, userID string) (*models.WaitlistEntry, error) {
	db := tx.WithContext(ctx)

	_, err := r.Find(ctx, tx, classID, userID)
	if err == nil {
		return nil, ErrAlreadyQueued
	}
	if !errors.Is(err, ErrEntryNotFound) {
		return nil, err
	}

	var last int
	if err := db.Model(&models.WaitlistEntry{}).
		Where("class_id = ?", classID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&last).Error; err != nil {
		return nil, err
	}

	entry := &models.WaitlistEntry{
		ClassID:  classID,
		UserID:   userID,
		Position: last + 1,
	}
	if err := db.Create(entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyQueued
		}
		return nil, err
	}
	return entry, nil
}

// DequeueFront removes and returns the position-1 entry. It returns nil, nil
// when the waitlist is empty.
func (r *waitlistRepository) DequeueFront(ctx context.Context, tx *gorm.DB, classID uint) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := tx.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("position ASC").
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.deleteAndCompact(ctx, tx, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *waitlistRepository) Remove(ctx context.Context, tx *gorm.DB, classID uint, userID string) error {
	entry, err := r.Find(ctx, tx, classID, userID)
	if err != nil {
		return err
	}
	return r.deleteAndCompact(ctx, tx, entry)
}

func (r *waitlistRepository) deleteAndCompact(ctx context.Context, tx *gorm.DB, entry *models.WaitlistEntry) error {
	db := tx.WithContext(ctx)
	if err := db.Delete(&models.WaitlistEntry{}, entry.ID).Error; err != nil {
		return err
	}
	return db.Model(&models.WaitlistEntry{}).
		Where("class_id = ? AND position > ?", entry.ClassID, entry.Position).
		Update("position", gorm.Expr("position - 1")).Error
}

func (r *waitlistRepository) Find(ctx context.Context, tx *gorm.DB, classID uint, userID string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := tx.WithContext(ctx).
		Where("class_id = ? AND user_id = ?", classID, userID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *waitlistRepository) FindByClass(ctx context.Context, tx *gorm.DB, classID uint) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := tx.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("position ASC").
		Find(&entries).Error
	return entries, err
}

// ListFor returns the user's entries for scheduled classes that have not
// started yet. Entries of past classes stay in the table until swept.
func (r *waitlistRepository) ListFor(ctx context.Context, userID string, now time.Time) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	err := r.db.WithContext(ctx).
		Joins("JOIN class_instances ON class_instances.id = waitlist_entries.class_id").
		Preload("Class").
		Where("waitlist_entries.user_id = ? AND class_instances.status = ? AND class_instances.starts_at > ?",
			userID, models.ClassScheduled, now).
		Order("class_instances.starts_at ASC").
		Find(&entries).Error
	return entries, err
}

func (r *waitlistRepository) Count(ctx context.Context, tx *gorm.DB, classID uint) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.WaitlistEntry{}).
		Where("class_id = ?", classID).
		Count(&count).Error
	return count, err
}

func (r *waitlistRepository) DeleteByClass(ctx context.Context, tx *gorm.DB, classID uint) (int64, error) {
	res := tx.WithContext(ctx).
		Where("class_id = ?", classID).
		Delete(&models.WaitlistEntry{})
	return res.RowsAffected, res.Error
}
