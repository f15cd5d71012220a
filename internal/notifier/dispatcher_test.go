package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	failures int
	attempts int
	sent     []Notification
	block    chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, n Notification) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeSender) delivered() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.sent...)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 1
	cfg.QueueSize = 8
	cfg.RatePerSec = 1000
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	cfg.SendTimeout = time.Second
	return cfg
}

func TestNewDispatcher_Validation(t *testing.T) {
	_, err := NewDispatcher(nil, testConfig())
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Workers = 0
	_, err = NewDispatcher(&fakeSender{}, cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.QueueSize = 0
	_, err = NewDispatcher(&fakeSender{}, cfg)
	assert.Error(t, err)
}

func TestDispatcher_DeliversAndDrainsOnClose(t *testing.T) {
	sender := &fakeSender{}
	d, err := NewDispatcher(sender, testConfig())
	require.NoError(t, err)

	for _, kind := range []Kind{KindConfirmed, KindWaitlisted, KindPromoted} {
		d.Notify(context.Background(), New("user-1", kind, 7))
	}
	require.NoError(t, d.Close(context.Background()))

	sent := sender.delivered()
	require.Len(t, sent, 3)
	assert.Equal(t, KindConfirmed, sent[0].Kind)
	assert.NotEmpty(t, sent[0].ID)
	assert.Equal(t, uint(7), sent[0].ClassID)
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	sender := &fakeSender{failures: 2}
	d, err := NewDispatcher(sender, testConfig())
	require.NoError(t, err)

	d.Notify(context.Background(), New("user-1", KindPromoted, 7))
	require.NoError(t, d.Close(context.Background()))

	assert.Len(t, sender.delivered(), 1)
	assert.Equal(t, 3, sender.attempts)
}

func TestDispatcher_GivesUpAfterMaxAttempts(t *testing.T) {
	sender := &fakeSender{failures: 10}
	d, err := NewDispatcher(sender, testConfig())
	require.NoError(t, err)

	d.Notify(context.Background(), New("user-1", KindCancelled, 7))
	require.NoError(t, d.Close(context.Background()))

	assert.Empty(t, sender.delivered())
	assert.Equal(t, 3, sender.attempts)
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	cfg := testConfig()
	cfg.QueueSize = 1
	d, err := NewDispatcher(sender, cfg)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Notify(context.Background(), New("user-1", KindWaitlisted, 7))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Notify blocked on a full queue")
	}

	close(sender.block)
	require.NoError(t, d.Close(context.Background()))

	// One in flight plus at most one queued
	assert.LessOrEqual(t, len(sender.delivered()), 2)
	assert.GreaterOrEqual(t, len(sender.delivered()), 1)
}

func TestDispatcher_CloseTwice(t *testing.T) {
	d, err := NewDispatcher(&fakeSender{}, testConfig())
	require.NoError(t, err)

	require.NoError(t, d.Close(context.Background()))
	assert.ErrorIs(t, d.Close(context.Background()), ErrDispatcherClosed)

	// Notify after close is a logged no-op
	d.Notify(context.Background(), New("user-1", KindConfirmed, 1))
}
