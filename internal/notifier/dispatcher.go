package notifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Sender delivers a single notification, typically to a message broker.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

type Config struct {
	Workers     int
	QueueSize   int
	RatePerSec  rate.Limit
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	SendTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:     2,
		QueueSize:   256,
		RatePerSec:  50,
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
		SendTimeout: 5 * time.Second,
	}
}

var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Dispatcher queues notifications and delivers them from a small worker pool
// at a bounded rate. Notify never blocks the caller: a full queue drops the
// notification and logs it.
type Dispatcher struct {
	sender  Sender
	cfg     Config
	queue   chan Notification
	limiter *rate.Limiter
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewDispatcher(sender Sender, cfg Config) (*Dispatcher, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender must not be nil")
	}
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("workers must be greater than 0, got %d", cfg.Workers)
	}
	if cfg.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be greater than 0, got %d", cfg.QueueSize)
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		sender:  sender,
		cfg:     cfg,
		queue:   make(chan Notification, cfg.QueueSize),
		limiter: rate.NewLimiter(cfg.RatePerSec, burst),
		ctx:     ctx,
		cancel:  cancel,
	}
	d.startWorkers()
	return d, nil
}

func (d *Dispatcher) Notify(_ context.Context, n Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		log.Printf("[Dispatcher] closed, dropping %s for user %s", n.Kind, n.UserID)
		return
	}

	select {
	case d.queue <- n:
	default:
		log.Printf("[Dispatcher] queue full, dropping %s for user %s", n.Kind, n.UserID)
	}
}

func (d *Dispatcher) startWorkers() {
	d.wg.Add(d.cfg.Workers)
	for range d.cfg.Workers {
		go func() {
			defer d.wg.Done()
			for n := range d.queue {
				if err := d.limiter.Wait(d.ctx); err != nil {
					log.Printf("[Dispatcher] shutting down, dropping %s for user %s", n.Kind, n.UserID)
					continue
				}
				if err := d.deliver(n); err != nil {
					log.Printf("[Dispatcher] failed to deliver %s to user %s: %v", n.Kind, n.UserID, err)
				}
			}
		}()
	}
}

// deliver retries with exponential backoff up to MaxAttempts.
func (d *Dispatcher) deliver(n Notification) error {
	var lastErr error
	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(d.cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
			if delay > d.cfg.MaxDelay {
				delay = d.cfg.MaxDelay
			}
			select {
			case <-time.After(delay):
			case <-d.ctx.Done():
				return d.ctx.Err()
			}
		}

		ctx, cancel := context.WithTimeout(d.ctx, d.cfg.SendTimeout)
		err := d.sender.Send(ctx, n)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("gave up after %d attempts: %w", d.cfg.MaxAttempts, lastErr)
}

// Close stops accepting notifications and waits for queued ones to drain, or
// for ctx to expire, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
