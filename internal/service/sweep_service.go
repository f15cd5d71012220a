package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"github.com/Eursukkul/studio-booking/internal/repository"
	"gorm.io/gorm"
)

const DefaultSweepGrace = 2 * time.Hour

// SweptBookingStatus is what an unmarked confirmed booking becomes when its
// class is swept. Staff mark no-shows before the grace period runs out; a
// booking nobody touched keeps its credit consumed as attended.
const SweptBookingStatus = models.StatusAttended

type SweepResult struct {
	ClassesClosed  int
	BookingsClosed int64
	EntriesRemoved int64
}

// SweepService closes classes that ended more than the grace period ago,
// closes their remaining confirmed bookings and purges their waitlists.
type SweepService interface {
	Sweep(ctx context.Context, now time.Time) (SweepResult, error)
}

type sweepService struct {
	db          *gorm.DB
	classRepo   repository.ClassRepository
	bookingRepo repository.BookingRepository
	waitRepo    repository.WaitlistRepository
	grace       time.Duration
}

func NewSweepService(
	classRepo repository.ClassRepository,
	bookingRepo repository.BookingRepository,
	waitRepo repository.WaitlistRepository,
	grace time.Duration,
) SweepService {
	if grace <= 0 {
		grace = DefaultSweepGrace
	}
	return &sweepService{
		db:          classRepo.GetDB(),
		classRepo:   classRepo,
		bookingRepo: bookingRepo,
		waitRepo:    waitRepo,
		grace:       grace,
	}
}

// Sweep handles each class in its own transaction; one failing class does not
// stop the others. Failures are returned joined and left for the next run.
func (s *sweepService) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var result SweepResult

	// Started before the cutoff is a superset; the end time is checked per class
	classes, err := s.classRepo.FindScheduledStartedBefore(ctx, now.Add(-s.grace))
	if err != nil {
		return result, storageErr(err)
	}

	var errs []error
	for _, c := range classes {
		if c.EndsAt().Add(s.grace).After(now) {
			continue
		}
		var completed bool
		var closed, removed int64
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			class, err := s.classRepo.FindByIDForUpdate(ctx, tx, c.ID)
			if err != nil {
				return err
			}
			if class.Status != models.ClassScheduled {
				return nil
			}
			closed, err = s.bookingRepo.CloseConfirmed(ctx, tx, class.ID, SweptBookingStatus)
			if err != nil {
				return err
			}
			removed, err = s.waitRepo.DeleteByClass(ctx, tx, class.ID)
			if err != nil {
				return err
			}
			if err := s.classRepo.UpdateStatus(ctx, tx, class.ID, models.ClassCompleted); err != nil {
				return err
			}
			completed = true
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("class %d: %w", c.ID, storageErr(err)))
			continue
		}
		if !completed {
			continue
		}
		result.ClassesClosed++
		result.BookingsClosed += closed
		result.EntriesRemoved += removed
	}
	return result, errors.Join(errs...)
}
