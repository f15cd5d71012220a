package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"github.com/Eursukkul/studio-booking/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func positions(t *testing.T, repo WaitlistRepository, classID uint) ([]string, []int) {
	t.Helper()
	entries, err := repo.FindByClass(context.Background(), repo.GetDB(), classID)
	require.NoError(t, err)
	users := make([]string, len(entries))
	pos := make([]int, len(entries))
	for i, e := range entries {
		users[i] = e.UserID
		pos[i] = e.Position
	}
	return users, pos
}

func TestEnqueue_AssignsDensePositions(t *testing.T) {
	db := testdb.New(t)
	repo := NewWaitlistRepository(db)
	class := testdb.Class(t, db, models.CategoryGroup, 1, time.Now().Add(24*time.Hour))
	ctx := context.Background()

	for i, user := range []string{"A", "B", "C"} {
		entry, err := repo.Enqueue(ctx, db, class.ID, user)
		require.NoError(t, err)
		assert.Equal(t, i+1, entry.Position)
	}

	users, pos := positions(t, repo, class.ID)
	assert.Equal(t, []string{"A", "B", "C"}, users)
	assert.Equal(t, []int{1, 2, 3}, pos)
}

func TestEnqueue_AlreadyQueued(t *testing.T) {
	db := testdb.New(t)
	repo := NewWaitlistRepository(db)
	class := testdb.Class(t, db, models.CategoryGroup, 1, time.Now().Add(24*time.Hour))
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, db, class.ID, "A")
	require.NoError(t, err)

	_, err = repo.Enqueue(ctx, db, class.ID, "A")
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	count, err := repo.Count(ctx, db, class.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEnqueue_PositionsArePerClass(t *testing.T) {
	db := testdb.New(t)
	repo := NewWaitlistRepository(db)
	yoga := testdb.Class(t, db, models.CategoryGroup, 1, time.Now().Add(24*time.Hour))
	spin := testdb.Class(t, db, models.CategoryGroup, 1, time.Now().Add(48*time.Hour))
	ctx := context.Background()

	_, err := repo.Enqueue(ctx, db, yoga.ID, "A")
	require.NoError(t, err)
	entry, err := repo.Enqueue(ctx, db, spin.ID, "A")
	require.NoError(t, err)

	assert.Equal(t, 1, entry.Position)
}

// [A, B, C] with B leaving becomes [A, C] at positions [1, 2].
func TestRemove_CompactsLaterEntries(t *testing.T) {
	db := testdb.New(t)
	repo := NewWaitlistRepository(db)
	class := testdb.Class(t, db, models.CategoryGroup, 1, time.Now().Add(24*time.Hour))
	ctx := context.Background()

	for _, user := range []string{"A", "B", "C"} {
		_, err := repo.Enqueue(ctx, db, class.ID, user)
		require.NoError(t, err)
	}

	require.NoError(t, repo.Remove(ctx, db, class.ID, "B"))

	users, pos := positions(t, repo, class.ID)
	assert.Equal(t, []string{"A", "C"}, users)
	assert.Equal(t, []int{1, 2}, pos)

	assert.ErrorIs(t, repo.Remove(ctx, db, class.ID, "B"), ErrEntryNotFound)
	users, _ = positions(t, repo, class.ID)
	assert.Equal(t, []string{"A", "C"}, users)
}

func TestDequeueFront(t *testing.T) {
	db := testdb.New(t)
	repo := NewWaitlistRepository(db)
	class := testdb.Class(t, db, models.CategoryGroup, 1, time.Now().Add(24*time.Hour))
	ctx := context.Background()

	empty, err := repo.DequeueFront(ctx, db, class.ID)
	require.NoError(t, err)
	assert.Nil(t, empty)

	for _, user := range []string{"A", "B", "C"} {
		_, err := repo.Enqueue(ctx, db, class.ID, user)
		require.NoError(t, err)
	}

	front, err := repo.DequeueFront(ctx, db, class.ID)
	require.NoError(t, err)
	require.NotNil(t, front)
	assert.Equal(t, "A", front.UserID)

	users, pos := positions(t, repo, class.ID)
	assert.Equal(t, []string{"B", "C"}, users)
	assert.Equal(t, []int{1, 2}, pos)

	// A new joiner goes behind the compacted list
	entry, err := repo.Enqueue(ctx, db, class.ID, "D")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Position)
}

func TestWaitlist_StaysDenseUnderMixedOperations(t *testing.T) {
	db := testdb.New(t)
	repo := NewWaitlistRepository(db)
	class := testdb.Class(t, db, models.CategoryGroup, 1, time.Now().Add(24*time.Hour))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := repo.Enqueue(ctx, db, class.ID, fmt.Sprintf("user-%02d", i))
		require.NoError(t, err)
	}
	require.NoError(t, repo.Remove(ctx, db, class.ID, "user-04"))
	_, err := repo.DequeueFront(ctx, db, class.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Remove(ctx, db, class.ID, "user-09"))
	_, err = repo.Enqueue(ctx, db, class.ID, "user-10")
	require.NoError(t, err)
	require.NoError(t, repo.Remove(ctx, db, class.ID, "user-01"))

	users, pos := positions(t, repo, class.ID)
	assert.Equal(t, []string{"user-02", "user-03", "user-05", "user-06", "user-07", "user-08", "user-10"}, users)
	for i, p := range pos {
		assert.Equal(t, i+1, p)
	}
}

func TestListFor_OnlyFutureScheduledClasses(t *testing.T) {
	db := testdb.New(t)
	repo := NewWaitlistRepository(db)
	now := time.Now().UTC()
	past := testdb.Class(t, db, models.CategoryGroup, 1, now.Add(-time.Hour))
	future := testdb.Class(t, db, models.CategoryGroup, 1, now.Add(time.Hour))
	cancelled := testdb.Class(t, db, models.CategoryGroup, 1, now.Add(2*time.Hour))
	require.NoError(t, db.Model(cancelled).Update("status", models.ClassCancelled).Error)
	ctx := context.Background()

	for _, c := range []*models.ClassInstance{past, future, cancelled} {
		_, err := repo.Enqueue(ctx, db, c.ID, "A")
		require.NoError(t, err)
	}

	entries, err := repo.ListFor(ctx, "A", now)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, future.ID, entries[0].ClassID)
	require.NotNil(t, entries[0].Class)
	assert.Equal(t, future.Name, entries[0].Class.Name)
}

func TestDeleteByClass(t *testing.T) {
	db := testdb.New(t)
	repo := NewWaitlistRepository(db)
	class := testdb.Class(t, db, models.CategoryGroup, 1, time.Now().Add(24*time.Hour))
	other := testdb.Class(t, db, models.CategoryGroup, 1, time.Now().Add(24*time.Hour))
	ctx := context.Background()

	for _, user := range []string{"A", "B"} {
		_, err := repo.Enqueue(ctx, db, class.ID, user)
		require.NoError(t, err)
	}
	_, err := repo.Enqueue(ctx, db, other.ID, "A")
	require.NoError(t, err)

	n, err := repo.DeleteByClass(ctx, db, class.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err := repo.Count(ctx, db, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
