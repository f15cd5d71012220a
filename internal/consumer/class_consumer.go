package consumer

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Eursukkul/studio-booking/internal/models"
	"github.com/Eursukkul/studio-booking/internal/service"
	"github.com/go-playground/validator/v10"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ClassMessage is what the schedule service publishes on class.* routing keys.
type ClassMessage struct {
	ID              uint      `json:"id" validate:"required"`
	Name            string    `json:"name" validate:"required"`
	Category        string    `json:"category" validate:"required,oneof=group personal daypass"`
	Capacity        int       `json:"capacity" validate:"required,gt=0"`
	StartsAt        time.Time `json:"starts_at" validate:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"gte=0"`
	InstructorID    string    `json:"instructor_id"`
	Status          string    `json:"status" validate:"omitempty,oneof=scheduled cancelled"`
}

// classSyncer is the slice of BookingService the consumer needs.
type classSyncer interface {
	SyncClass(ctx context.Context, class *models.ClassInstance) (*service.SyncResult, error)
	CancelClass(ctx context.Context, classID uint) (int, error)
}

type ClassConsumer struct {
	bookings classSyncer
	validate *validator.Validate
	timeout  time.Duration
}

func NewClassConsumer(bookings classSyncer, timeout time.Duration) *ClassConsumer {
	return &ClassConsumer{
		bookings: bookings,
		validate: validator.New(),
		timeout:  timeout,
	}
}

// Start listens for messages and syncs classes into the local booking DB.
func (cc *ClassConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		for msg := range msgs {
			cc.handleMessage(msg)
		}
		log.Println("[ClassConsumer] channel closed, stopping consumer")
	}()
}

func (cc *ClassConsumer) handleMessage(msg amqp.Delivery) {
	var in ClassMessage
	if err := json.Unmarshal(msg.Body, &in); err != nil {
		log.Printf("[ClassConsumer] failed to unmarshal: %v", err)
		msg.Nack(false, false)
		return
	}
	if err := cc.validate.Struct(in); err != nil {
		log.Printf("[ClassConsumer] invalid class message: %v", err)
		msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cc.timeout)
	defer cancel()

	duration := in.DurationMinutes
	if duration == 0 {
		duration = 60
	}
	class := &models.ClassInstance{
		ID:              in.ID,
		Name:            in.Name,
		Category:        models.Category(in.Category),
		Capacity:        in.Capacity,
		StartsAt:        in.StartsAt,
		DurationMinutes: duration,
		InstructorID:    in.InstructorID,
		Status:          models.ClassScheduled,
	}
	res, err := cc.bookings.SyncClass(ctx, class)
	if err != nil {
		log.Printf("[ClassConsumer] failed to sync class %d: %v", in.ID, err)
		msg.Nack(false, true) // requeue
		return
	}
	if res.Clamped() {
		log.Printf("[ClassConsumer] class %d: capacity clamped from %d to %d", in.ID, res.RequestedCapacity, res.Class.Capacity)
	}
	if len(res.Promoted) > 0 {
		log.Printf("[ClassConsumer] class %d: %d waitlisted users promoted after capacity change", in.ID, len(res.Promoted))
	}

	if models.ClassStatus(in.Status) == models.ClassCancelled {
		n, err := cc.bookings.CancelClass(ctx, in.ID)
		if err != nil {
			log.Printf("[ClassConsumer] failed to cancel class %d: %v", in.ID, err)
			msg.Nack(false, true)
			return
		}
		log.Printf("[ClassConsumer] class %d cancelled, %d bookings refunded", in.ID, n)
	}

	log.Printf("[ClassConsumer] synced class %d: %s", class.ID, class.Name)
	msg.Ack(false)
}

var _ classSyncer = (service.BookingService)(nil)
