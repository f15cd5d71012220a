// Package testdb opens a throwaway in-memory SQLite database with the booking
// schema for repository and service tests.
package testdb

import (
	"testing"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"github.com/Eursukkul/studio-booking/pkg/database"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated database. A single connection keeps the in-memory
// database alive and serializes transactions the way the class row lock does
// on Postgres.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Class inserts a scheduled class starting at startsAt.
func Class(t testing.TB, db *gorm.DB, category models.Category, capacity int, startsAt time.Time) *models.ClassInstance {
	t.Helper()
	class := &models.ClassInstance{
		Name:            string(category) + " class",
		Category:        category,
		Capacity:        capacity,
		StartsAt:        startsAt.UTC(),
		DurationMinutes: 60,
		Status:          models.ClassScheduled,
	}
	require.NoError(t, db.Create(class).Error)
	return class
}

// Subscription inserts an active subscription valid for a month around now.
func Subscription(t testing.TB, db *gorm.DB, userID string, category models.Category, credits int, now time.Time) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		UserID:           userID,
		Category:         category,
		RemainingCredits: credits,
		StartsAt:         now.Add(-24 * time.Hour).UTC(),
		EndsAt:           now.Add(30 * 24 * time.Hour).UTC(),
		Status:           models.SubscriptionActive,
	}
	require.NoError(t, db.Create(sub).Error)
	return sub
}
