package database

import (
	"fmt"
	"log"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	return db
}

// Migrate creates the schema. It works against Postgres and SQLite so tests
// can share it.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.ClassInstance{},
		&models.Subscription{},
		&models.CreditTransaction{},
		&models.Booking{},
		&models.WaitlistEntry{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// Partial unique index: one active booking per (class, user)
	if err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_booking_active
		ON bookings (class_id, user_id)
		WHERE status <> 'cancelled'
	`).Error; err != nil {
		return fmt.Errorf("create idx_booking_active: %w", err)
	}

	// Positions are renumbered in place, so (class_id, position) is not a
	// unique index; density is guaranteed by the class row lock instead.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_waitlist_class_position
		ON waitlist_entries (class_id, position)
	`).Error; err != nil {
		return fmt.Errorf("create idx_waitlist_class_position: %w", err)
	}

	return nil
}
