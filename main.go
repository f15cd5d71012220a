package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/studio-booking/config"
	"github.com/Eursukkul/studio-booking/internal/consumer"
	"github.com/Eursukkul/studio-booking/internal/handler"
	"github.com/Eursukkul/studio-booking/internal/middleware"
	"github.com/Eursukkul/studio-booking/internal/notifier"
	"github.com/Eursukkul/studio-booking/internal/repository"
	"github.com/Eursukkul/studio-booking/internal/scheduler"
	"github.com/Eursukkul/studio-booking/internal/service"
	"github.com/Eursukkul/studio-booking/pkg/database"
	"github.com/Eursukkul/studio-booking/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	db := database.NewPostgresDB(cfg.DSN())

	// Repositories
	classRepo := repository.NewClassRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	waitRepo := repository.NewWaitlistRepository(db)

	// Services and the background sweep are built before any broker connection
	// so a failure here leaves nothing open.
	sweepSvc := service.NewSweepService(classRepo, bookingRepo, waitRepo, cfg.SweepGrace)
	sweeper, err := scheduler.NewSweeper(sweepSvc, cfg.SweepInterval, time.Minute)
	if err != nil {
		log.Fatalf("failed to create sweeper: %v", err)
	}

	// Notifications: RabbitMQ when configured, log-only otherwise
	var n notifier.Notifier = notifier.LogNotifier{}
	var dispatcher *notifier.Dispatcher
	var publisher *rabbitmq.Publisher
	if cfg.RabbitURL != "" {
		publisher, err = rabbitmq.NewPublisher(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()

		ncfg := notifier.DefaultConfig()
		ncfg.Workers = cfg.NotifyWorkers
		ncfg.QueueSize = cfg.NotifyQueueSize
		ncfg.RatePerSec = rate.Limit(cfg.NotifyRate)
		dispatcher, err = notifier.NewDispatcher(publisher, ncfg)
		if err != nil {
			publisher.Close()
			log.Fatalf("failed to start notification dispatcher: %v", err)
		}
		n = dispatcher
	}

	bookingSvc := service.NewBookingService(bookingRepo, classRepo, subRepo, waitRepo, n)

	// RabbitMQ consumer: sync classes from the schedule service. log.Fatalf
	// skips deferred calls, so failures close what is already open.
	if cfg.RabbitURL != "" {
		mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
		if err != nil {
			publisher.Close()
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer mqConsumer.Close()

		msgs, err := mqConsumer.Consume()
		if err != nil {
			mqConsumer.Close()
			publisher.Close()
			log.Fatalf("failed to start consuming: %v", err)
		}
		consumer.NewClassConsumer(bookingSvc, cfg.RequestTimeout).Start(msgs)
	}

	sweeper.Start()

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewRequestValidator()
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())
	e.Use(echoMw.ContextTimeout(cfg.RequestTimeout))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "studio-booking"})
	})

	api := e.Group("/api/v1", middleware.Auth(cfg.JWTSecret))
	handler.NewBookingHandler(bookingSvc).RegisterRoutes(api)
	handler.NewClassHandler(bookingSvc).RegisterRoutes(api)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Booking Service starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Shut down through the normal path so deferred closes run
			log.Printf("server failed: %v", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	log.Println("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := sweeper.Stop(); err != nil {
		log.Printf("sweeper shutdown: %v", err)
	}
	if dispatcher != nil {
		if err := dispatcher.Close(ctx); err != nil {
			log.Printf("dispatcher shutdown: %v", err)
		}
	}
}
