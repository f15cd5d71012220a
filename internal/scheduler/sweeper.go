package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Eursukkul/studio-booking/internal/service"
	"github.com/go-co-op/gocron/v2"
)

// Sweeper runs the maintenance sweep on a fixed interval. A failed run is
// logged and simply retried on the next tick.
type Sweeper struct {
	scheduler gocron.Scheduler
	svc       service.SweepService
	timeout   time.Duration
}

func NewSweeper(svc service.SweepService, interval, timeout time.Duration) (*Sweeper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	sw := &Sweeper{scheduler: s, svc: svc, timeout: timeout}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(sw.Run),
		gocron.WithName("waitlist-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("register sweep job: %w", err)
	}
	return sw, nil
}

func (sw *Sweeper) Start() {
	sw.scheduler.Start()
	log.Println("[Sweeper] started")
}

// Run executes one sweep. Errors never leave this function.
func (sw *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), sw.timeout)
	defer cancel()

	res, err := sw.svc.Sweep(ctx, time.Now())
	if err != nil {
		log.Printf("[Sweeper] sweep finished with errors: %v", err)
	}
	if res.ClassesClosed > 0 {
		log.Printf("[Sweeper] closed %d classes, removed %d waitlist entries", res.ClassesClosed, res.EntriesRemoved)
	}
}

func (sw *Sweeper) Stop() error {
	if err := sw.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	log.Println("[Sweeper] stopped")
	return nil
}
