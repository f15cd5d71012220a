package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"github.com/Eursukkul/studio-booking/internal/service"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked = true
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked = true
	a.requeue = requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeSyncer struct {
	synced    []models.ClassInstance
	cancelled []uint
	syncErr   error
	cancelErr error
}

func (f *fakeSyncer) SyncClass(ctx context.Context, class *models.ClassInstance) (*service.SyncResult, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	f.synced = append(f.synced, *class)
	return &service.SyncResult{Class: class, RequestedCapacity: class.Capacity}, nil
}

func (f *fakeSyncer) CancelClass(ctx context.Context, classID uint) (int, error) {
	f.cancelled = append(f.cancelled, classID)
	return 0, f.cancelErr
}

func deliver(cc *ClassConsumer, body string) *fakeAcknowledger {
	ack := &fakeAcknowledger{}
	cc.handleMessage(amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(body)})
	return ack
}

func TestHandleMessage_SyncsClass(t *testing.T) {
	syncer := &fakeSyncer{}
	cc := NewClassConsumer(syncer, time.Second)

	ack := deliver(cc, `{"id":12,"name":"Reformer","category":"personal","capacity":1,"starts_at":"2026-03-05T07:00:00Z","instructor_id":"coach-1"}`)
	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	assert.Empty(t, syncer.cancelled)

	require.Len(t, syncer.synced, 1)
	class := syncer.synced[0]
	assert.Equal(t, uint(12), class.ID)
	assert.Equal(t, "Reformer", class.Name)
	assert.Equal(t, models.CategoryPersonal, class.Category)
	assert.Equal(t, 1, class.Capacity)
	assert.Equal(t, 60, class.DurationMinutes, "missing duration defaults to an hour")
	assert.Equal(t, "coach-1", class.InstructorID)
	assert.True(t, time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC).Equal(class.StartsAt))

	ack = deliver(cc, `{"id":12,"name":"Reformer","category":"personal","capacity":2,"starts_at":"2026-03-05T07:00:00Z","duration_minutes":45}`)
	assert.True(t, ack.acked)
	require.Len(t, syncer.synced, 2)
	assert.Equal(t, 45, syncer.synced[1].DurationMinutes)
}

func TestHandleMessage_CancelledCascades(t *testing.T) {
	syncer := &fakeSyncer{}
	cc := NewClassConsumer(syncer, time.Second)

	ack := deliver(cc, `{"id":3,"name":"Spin","category":"group","capacity":20,"starts_at":"2026-03-05T07:00:00Z","status":"cancelled"}`)
	assert.True(t, ack.acked)
	assert.Len(t, syncer.synced, 1)
	assert.Equal(t, []uint{3}, syncer.cancelled)
}

func TestHandleMessage_CancelFailureRequeues(t *testing.T) {
	syncer := &fakeSyncer{cancelErr: service.ErrStorageUnavailable}
	cc := NewClassConsumer(syncer, time.Second)

	ack := deliver(cc, `{"id":3,"name":"Spin","category":"group","capacity":20,"starts_at":"2026-03-05T07:00:00Z","status":"cancelled"}`)
	assert.False(t, ack.acked)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
}

func TestHandleMessage_RejectsBadMessages(t *testing.T) {
	syncer := &fakeSyncer{}
	cc := NewClassConsumer(syncer, time.Second)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"id":`},
		{"unknown category", `{"id":1,"name":"X","category":"outdoor","capacity":5,"starts_at":"2026-03-05T07:00:00Z"}`},
		{"zero capacity", `{"id":1,"name":"X","category":"group","capacity":0,"starts_at":"2026-03-05T07:00:00Z"}`},
		{"missing name", `{"id":1,"category":"group","capacity":5,"starts_at":"2026-03-05T07:00:00Z"}`},
		{"unknown status", `{"id":1,"name":"X","category":"group","capacity":5,"starts_at":"2026-03-05T07:00:00Z","status":"moved"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := deliver(cc, tt.body)
			assert.True(t, ack.nacked)
			assert.False(t, ack.requeue, "malformed messages must not loop")
		})
	}
	assert.Empty(t, syncer.synced)
}

func TestHandleMessage_StorageFailureRequeues(t *testing.T) {
	cc := NewClassConsumer(&fakeSyncer{syncErr: service.ErrStorageUnavailable}, time.Second)

	ack := deliver(cc, `{"id":1,"name":"X","category":"group","capacity":5,"starts_at":"2026-03-05T07:00:00Z"}`)
	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue)
}
