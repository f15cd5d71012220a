package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"github.com/Eursukkul/studio-booking/internal/notifier"
	"github.com/Eursukkul/studio-booking/internal/repository"
	"gorm.io/gorm"
)

// BookingResult is the outcome of a booking request: exactly one of Booking
// and WaitlistEntry is set.
type BookingResult struct {
	Booking       *models.Booking
	WaitlistEntry *models.WaitlistEntry
	Balance       int
}

func (r *BookingResult) Waitlisted() bool {
	return r.WaitlistEntry != nil
}

type CancelResult struct {
	Booking  *models.Booking
	Balance  int
	Promoted *models.Booking
	// Dropped lists users removed from the waitlist during promotion because
	// they no longer had a usable subscription with credit.
	Dropped []string
}

type ClassStatus struct {
	Class          *models.ClassInstance
	Confirmed      int64
	Waitlisted     int64
	SeatsAvailable int
}

// SyncResult describes what a schedule update changed locally.
type SyncResult struct {
	Class *models.ClassInstance
	// RequestedCapacity differs from Class.Capacity when the update asked for
	// fewer seats than are already confirmed.
	RequestedCapacity int
	Promoted          []*models.Booking
	Dropped           []string
}

func (r *SyncResult) Clamped() bool {
	return r.Class.Capacity != r.RequestedCapacity
}

type BookingService interface {
	RequestBooking(ctx context.Context, userID string, classID uint) (*BookingResult, error)
	CancelBooking(ctx context.Context, actor models.Actor, bookingID uint) (*CancelResult, error)
	LeaveWaitlist(ctx context.Context, userID string, classID uint) error
	GetBooking(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error)
	ListBookings(ctx context.Context, userID string, filter repository.BookingFilter) ([]models.Booking, error)
	ListWaitlist(ctx context.Context, userID string) ([]models.WaitlistEntry, error)
	MarkAttendance(ctx context.Context, actor models.Actor, bookingID uint, attended bool) (*models.Booking, error)
	AvailableSeats(ctx context.Context, classID uint) (int, error)
	ClassStatus(ctx context.Context, classID uint) (*ClassStatus, error)
	CancelClass(ctx context.Context, classID uint) (int, error)
	SyncClass(ctx context.Context, class *models.ClassInstance) (*SyncResult, error)
}

type bookingService struct {
	db          *gorm.DB
	bookingRepo repository.BookingRepository
	classRepo   repository.ClassRepository
	subRepo     repository.SubscriptionRepository
	waitRepo    repository.WaitlistRepository
	notifier    notifier.Notifier
	now         func() time.Time
}

type Option func(*bookingService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *bookingService) {
		s.now = now
	}
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	classRepo repository.ClassRepository,
	subRepo repository.SubscriptionRepository,
	waitRepo repository.WaitlistRepository,
	n notifier.Notifier,
	opts ...Option,
) BookingService {
	if n == nil {
		n = notifier.LogNotifier{}
	}
	s := &bookingService{
		db:          bookingRepo.GetDB(),
		bookingRepo: bookingRepo,
		classRepo:   classRepo,
		subRepo:     subRepo,
		waitRepo:    waitRepo,
		notifier:    n,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *bookingService) RequestBooking(ctx context.Context, userID string, classID uint) (*BookingResult, error) {
	var result *BookingResult
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Lock the class row; serializes every seat and waitlist change for this class
		class, err := s.classRepo.FindByIDForUpdate(ctx, tx, classID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClassNotFound
			}
			return err
		}
		if class.Status == models.ClassCancelled {
			return ErrClassCancelled
		}
		if !class.Bookable(now) {
			return ErrClassClosed
		}

		// 2. One active booking or waitlist entry per (user, class)
		_, err = s.bookingRepo.FindActiveByUserAndClass(ctx, tx, userID, classID)
		if err == nil {
			return ErrAlreadyBooked
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if _, err := s.waitRepo.Find(ctx, tx, classID, userID); err == nil {
			return ErrAlreadyQueued
		} else if !errors.Is(err, repository.ErrEntryNotFound) {
			return err
		}

		// 3. Subscription must fit the class category and hold a credit
		sub, err := s.pickSubscription(ctx, tx, userID, class, now)
		if err != nil {
			return err
		}

		// 4. Seat available → confirm, otherwise queue
		confirmed, err := s.bookingRepo.CountByStatus(ctx, tx, classID, models.StatusConfirmed)
		if err != nil {
			return err
		}
		if class.Capacity-int(confirmed) > 0 {
			booking, balance, err := s.confirm(ctx, tx, class, userID, sub.ID, now)
			if err == nil {
				result = &BookingResult{Booking: booking, Balance: balance}
				return nil
			}
			if !errors.Is(err, ErrCapacityRaceLost) {
				return err
			}
			log.Printf("[BookingService] class %d: seat claim lost for user %s, queueing", classID, userID)
		}

		entry, err := s.waitRepo.Enqueue(ctx, tx, classID, userID)
		if err != nil {
			return err
		}
		result = &BookingResult{WaitlistEntry: entry, Balance: sub.RemainingCredits}
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	if result.Waitlisted() {
		n := notifier.New(userID, notifier.KindWaitlisted, classID)
		n.Position = result.WaitlistEntry.Position
		s.notifier.Notify(ctx, n)
	} else {
		n := notifier.New(userID, notifier.KindConfirmed, classID)
		n.BookingID = result.Booking.ID
		s.notifier.Notify(ctx, n)
	}
	return result, nil
}

// pickSubscription returns the usable subscription compatible with the class
// that ends soonest and still has a credit. Compatibility is checked before
// credit so a category mismatch is always reported as such.
func (s *bookingService) pickSubscription(ctx context.Context, tx *gorm.DB, userID string, class *models.ClassInstance, now time.Time) (*models.Subscription, error) {
	subs, err := s.subRepo.FindUsableByUser(ctx, tx, userID, now)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, ErrInsufficientCredit
	}

	compatible := false
	for i := range subs {
		if !class.Category.Accepts(subs[i].Category) {
			continue
		}
		compatible = true
		if subs[i].RemainingCredits > 0 {
			return &subs[i], nil
		}
	}
	if !compatible {
		return nil, ErrIncompatibleSubscription
	}
	return nil, ErrInsufficientCredit
}

// confirm claims a seat, creates the booking and debits the credit as one unit
// inside tx. A lost seat claim is reported as ErrCapacityRaceLost with nothing
// written.
func (s *bookingService) confirm(ctx context.Context, tx *gorm.DB, class *models.ClassInstance, userID string, subscriptionID uint, now time.Time) (*models.Booking, int, error) {
	if err := s.classRepo.ClaimSeat(ctx, tx, class.ID); err != nil {
		return nil, 0, err
	}
	booking := &models.Booking{
		ClassID:        class.ID,
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Status:         models.StatusConfirmed,
	}
	if err := s.bookingRepo.Create(ctx, tx, booking); err != nil {
		return nil, 0, err
	}
	balance, err := s.subRepo.Debit(ctx, tx, subscriptionID, &booking.ID, now)
	if err != nil {
		return nil, 0, err
	}
	return booking, balance, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, actor models.Actor, bookingID uint) (*CancelResult, error) {
	var result *CancelResult
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		booking, err := s.bookingRepo.FindByID(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.UserID != actor.UserID && !actor.CanManage() {
			return ErrForbidden
		}
		if booking.Status != models.StatusConfirmed {
			return ErrInvalidTransition
		}

		// Lock the class row before touching seats so promotion is serialized
		class, err := s.classRepo.FindByIDForUpdate(ctx, tx, booking.ClassID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClassNotFound
			}
			return err
		}
		// A finished or closed class keeps its credits; only the sweep or staff
		// settle those bookings.
		if class.Status != models.ClassScheduled || !now.Before(class.EndsAt()) {
			return ErrClassClosed
		}

		if err := s.bookingRepo.TransitionStatus(ctx, tx, booking.ID, models.StatusConfirmed, models.StatusCancelled); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrInvalidTransition
			}
			return err
		}
		booking.Status = models.StatusCancelled

		balance, err := s.subRepo.Credit(ctx, tx, booking.SubscriptionID, &booking.ID)
		if err != nil {
			return err
		}
		if err := s.classRepo.ReleaseSeat(ctx, tx, class.ID); err != nil {
			return err
		}

		result = &CancelResult{Booking: booking, Balance: balance}
		if !class.Bookable(now) {
			return nil
		}

		promoted, dropped, err := s.promote(ctx, tx, class, now)
		if err != nil {
			return err
		}
		result.Promoted = promoted
		result.Dropped = dropped
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}

	n := notifier.New(result.Booking.UserID, notifier.KindCancelled, result.Booking.ClassID)
	n.BookingID = result.Booking.ID
	s.notifier.Notify(ctx, n)
	if result.Promoted != nil {
		p := notifier.New(result.Promoted.UserID, notifier.KindPromoted, result.Promoted.ClassID)
		p.BookingID = result.Promoted.ID
		s.notifier.Notify(ctx, p)
	}
	return result, nil
}

// promote fills one freed seat from the head of the waitlist. Entries whose
// owner has no usable compatible subscription with credit are dropped from the
// queue, not re-queued, and the loop moves on to the next entry.
func (s *bookingService) promote(ctx context.Context, tx *gorm.DB, class *models.ClassInstance, now time.Time) (*models.Booking, []string, error) {
	confirmed, err := s.bookingRepo.CountByStatus(ctx, tx, class.ID, models.StatusConfirmed)
	if err != nil {
		return nil, nil, err
	}
	if class.Capacity-int(confirmed) <= 0 {
		return nil, nil, nil
	}

	var dropped []string
	for {
		entry, err := s.waitRepo.DequeueFront(ctx, tx, class.ID)
		if err != nil {
			return nil, dropped, err
		}
		if entry == nil {
			return nil, dropped, nil
		}

		sub, err := s.pickSubscription(ctx, tx, entry.UserID, class, now)
		if err != nil {
			if errors.Is(err, ErrInsufficientCredit) || errors.Is(err, ErrIncompatibleSubscription) {
				log.Printf("[BookingService] class %d: dropping waitlisted user %s: %v", class.ID, entry.UserID, err)
				dropped = append(dropped, entry.UserID)
				continue
			}
			return nil, dropped, err
		}

		// Savepoint: a credit spent elsewhere since the check drops this entry only
		var booking *models.Booking
		err = tx.Transaction(func(sp *gorm.DB) error {
			var err error
			booking, _, err = s.confirm(ctx, sp, class, entry.UserID, sub.ID, now)
			return err
		})
		if errors.Is(err, ErrInsufficientCredit) {
			log.Printf("[BookingService] class %d: dropping waitlisted user %s: %v", class.ID, entry.UserID, err)
			dropped = append(dropped, entry.UserID)
			continue
		}
		if err != nil {
			return nil, dropped, err
		}
		log.Printf("[BookingService] class %d: promoted user %s from waitlist (booking %d)", class.ID, entry.UserID, booking.ID)
		return booking, dropped, nil
	}
}

func (s *bookingService) LeaveWaitlist(ctx context.Context, userID string, classID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.classRepo.FindByIDForUpdate(ctx, tx, classID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClassNotFound
			}
			return err
		}
		return s.waitRepo.Remove(ctx, tx, classID, userID)
	})
	return storageErr(err)
}

func (s *bookingService) GetBooking(ctx context.Context, actor models.Actor, id uint) (*models.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, storageErr(err)
	}
	if booking.UserID != actor.UserID && !actor.CanManage() {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *bookingService) ListBookings(ctx context.Context, userID string, filter repository.BookingFilter) ([]models.Booking, error) {
	bookings, err := s.bookingRepo.FindByUser(ctx, userID, filter)
	return bookings, storageErr(err)
}

func (s *bookingService) ListWaitlist(ctx context.Context, userID string) ([]models.WaitlistEntry, error) {
	entries, err := s.waitRepo.ListFor(ctx, userID, s.now())
	return entries, storageErr(err)
}

// MarkAttendance closes a confirmed booking as attended or no-show once the
// class has started. The seat and the credit stay consumed either way.
func (s *bookingService) MarkAttendance(ctx context.Context, actor models.Actor, bookingID uint, attended bool) (*models.Booking, error) {
	if !actor.CanManage() {
		return nil, ErrForbidden
	}
	to := models.StatusNoShow
	if attended {
		to = models.StatusAttended
	}
	now := s.now()

	var booking *models.Booking
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err := s.bookingRepo.FindByID(ctx, tx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		// Same lock order as cancellation: class row first, then the booking CAS
		class, err := s.classRepo.FindByIDForUpdate(ctx, tx, b.ClassID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClassNotFound
			}
			return err
		}
		if now.Before(class.StartsAt) {
			return ErrInvalidTransition
		}
		if err := s.bookingRepo.TransitionStatus(ctx, tx, b.ID, models.StatusConfirmed, to); err != nil {
			if errors.Is(err, repository.ErrStaleStatus) {
				return ErrInvalidTransition
			}
			return err
		}
		b.Status = to
		booking = b
		return nil
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return booking, nil
}

// AvailableSeats is a point-in-time snapshot; writers re-check under the class lock.
func (s *bookingService) AvailableSeats(ctx context.Context, classID uint) (int, error) {
	status, err := s.ClassStatus(ctx, classID)
	if err != nil {
		return 0, err
	}
	return status.SeatsAvailable, nil
}

func (s *bookingService) ClassStatus(ctx context.Context, classID uint) (*ClassStatus, error) {
	class, err := s.classRepo.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		return nil, storageErr(err)
	}
	confirmed, err := s.bookingRepo.CountByStatus(ctx, s.db, classID, models.StatusConfirmed)
	if err != nil {
		return nil, storageErr(err)
	}
	waitlisted, err := s.waitRepo.Count(ctx, s.db, classID)
	if err != nil {
		return nil, storageErr(err)
	}
	available := class.Capacity - int(confirmed)
	if available < 0 {
		available = 0
	}
	return &ClassStatus{
		Class:          class,
		Confirmed:      confirmed,
		Waitlisted:     waitlisted,
		SeatsAvailable: available,
	}, nil
}

// CancelClass cancels the class and cascades: every confirmed booking is
// cancelled with a refund and the waitlist is removed. It returns the number
// of bookings cancelled. Cancelling an already cancelled class is a no-op.
func (s *bookingService) CancelClass(ctx context.Context, classID uint) (int, error) {
	var cancelled []models.Booking

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		class, err := s.classRepo.FindByIDForUpdate(ctx, tx, classID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClassNotFound
			}
			return err
		}
		if class.Status == models.ClassCancelled {
			return nil
		}

		bookings, err := s.bookingRepo.FindByClassAndStatus(ctx, tx, classID, models.StatusConfirmed)
		if err != nil {
			return err
		}
		for i := range bookings {
			b := &bookings[i]
			if err := s.bookingRepo.TransitionStatus(ctx, tx, b.ID, models.StatusConfirmed, models.StatusCancelled); err != nil {
				return err
			}
			if _, err := s.subRepo.Credit(ctx, tx, b.SubscriptionID, &b.ID); err != nil {
				return err
			}
			b.Status = models.StatusCancelled
		}
		if err := s.classRepo.ResetSeats(ctx, tx, classID); err != nil {
			return err
		}
		if _, err := s.waitRepo.DeleteByClass(ctx, tx, classID); err != nil {
			return err
		}
		if err := s.classRepo.UpdateStatus(ctx, tx, classID, models.ClassCancelled); err != nil {
			return err
		}
		cancelled = bookings
		return nil
	})
	if err != nil {
		return 0, storageErr(err)
	}

	for _, b := range cancelled {
		n := notifier.New(b.UserID, notifier.KindCancelled, b.ClassID)
		n.BookingID = b.ID
		s.notifier.Notify(ctx, n)
	}
	log.Printf("[BookingService] class %d cancelled, %d bookings refunded", classID, len(cancelled))
	return len(cancelled), nil
}

// SyncClass applies a schedule update to the local class under the class row
// lock. Capacity never drops below the confirmed count; the excess is clamped
// and logged. Seats gained on a bookable class are filled from the waitlist
// before any new request can take them. Status, seats taken and the waitlist
// stay locally owned.
func (s *bookingService) SyncClass(ctx context.Context, in *models.ClassInstance) (*SyncResult, error) {
	result := &SyncResult{RequestedCapacity: in.Capacity}
	now := s.now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.classRepo.FindByIDForUpdate(ctx, tx, in.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			class := *in
			class.Status = models.ClassScheduled
			class.SeatsTaken = 0
			if err := s.classRepo.Upsert(ctx, tx, &class); err != nil {
				return err
			}
			result.Class = &class
			return nil
		}
		if err != nil {
			return err
		}

		confirmed, err := s.bookingRepo.CountByStatus(ctx, tx, in.ID, models.StatusConfirmed)
		if err != nil {
			return err
		}

		class := *existing
		class.Name = in.Name
		class.Category = in.Category
		class.Capacity = in.Capacity
		class.StartsAt = in.StartsAt
		class.DurationMinutes = in.DurationMinutes
		class.InstructorID = in.InstructorID
		if class.Capacity < int(confirmed) {
			log.Printf("[BookingService] class %d: capacity %d is below %d confirmed bookings, keeping %d",
				class.ID, in.Capacity, confirmed, confirmed)
			class.Capacity = int(confirmed)
		}
		if err := s.classRepo.Upsert(ctx, tx, &class); err != nil {
			return err
		}
		result.Class = &class

		if !class.Bookable(now) {
			return nil
		}
		for {
			promoted, dropped, err := s.promote(ctx, tx, &class, now)
			if err != nil {
				return err
			}
			result.Dropped = append(result.Dropped, dropped...)
			if promoted == nil {
				return nil
			}
			result.Promoted = append(result.Promoted, promoted)
		}
	})
	if err != nil {
		return nil, storageErr(err)
	}

	for _, b := range result.Promoted {
		p := notifier.New(b.UserID, notifier.KindPromoted, b.ClassID)
		p.BookingID = b.ID
		s.notifier.Notify(ctx, p)
	}
	return result, nil
}
