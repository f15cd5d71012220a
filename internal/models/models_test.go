package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCategoryAccepts(t *testing.T) {
	assert.True(t, CategoryPersonal.Accepts(CategoryPersonal))
	assert.False(t, CategoryPersonal.Accepts(CategoryGroup))
	assert.False(t, CategoryPersonal.Accepts(CategoryDayPass))
	assert.True(t, CategoryGroup.Accepts(CategoryDayPass))
	assert.True(t, CategoryDayPass.Accepts(CategoryGroup))
	assert.False(t, CategoryGroup.Accepts(CategoryPersonal))
}

func TestClassBookable(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	class := ClassInstance{Status: ClassScheduled, StartsAt: now.Add(time.Minute), DurationMinutes: 45}

	assert.True(t, class.Bookable(now))
	assert.False(t, class.Bookable(class.StartsAt))
	assert.Equal(t, now.Add(46*time.Minute), class.EndsAt())

	class.Status = ClassCancelled
	assert.False(t, class.Bookable(now))
}

func TestSubscriptionUsable(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	sub := Subscription{Status: SubscriptionActive, StartsAt: now, EndsAt: now.Add(time.Hour)}

	assert.True(t, sub.Usable(now))
	assert.False(t, sub.Usable(now.Add(time.Hour)))
	assert.False(t, sub.Usable(now.Add(-time.Second)))

	sub.Status = SubscriptionExpired
	assert.False(t, sub.Usable(now))
}

func TestBookingStatusValid(t *testing.T) {
	for _, s := range []BookingStatus{StatusConfirmed, StatusCancelled, StatusAttended, StatusNoShow} {
		assert.True(t, s.Valid())
	}
	assert.False(t, BookingStatus("waitlisted").Valid())
}
