// Worker process: consumes booking and notification events off Kafka,
// fans out in-app and email notifications, and sweeps no-show bookings.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	kafkaGo "github.com/segmentio/kafka-go"

	"rideway/internal/auth"
	"rideway/internal/config"
	"rideway/internal/email"
	"rideway/internal/infra"
	"rideway/internal/kafka"
	"rideway/internal/logger"
	"rideway/internal/modules/booking"
	"rideway/internal/modules/matching"
	"rideway/internal/modules/notification"
	"rideway/internal/modules/user"
)

func main() {
	cfg := config.Load()
	lg := logger.New(cfg.ServiceName + "-worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DSN(), "migrations", lg)
	if err != nil {
		log.Fatalf("postgres init: %v", err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.RedisAddr, cfg.RedisPassword)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	tokens := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	userStore := user.NewPGStore(dbPool)
	userSvc := user.NewService(userStore, tokens, nil, nil, "", lg)

	bookingStore := booking.NewPGStore(dbPool)
	matchIndex := matching.NewRedisStore(redisClient)
	bookingSvc := booking.NewService(bookingStore, userSvc, matchIndex, nil, producer, cfg.Kafka.BookingTopic, lg)

	notificationStore := notification.NewPGStore(dbPool)
	notificationSvc := notification.NewService(notificationStore, userSvc, email.NewLogSender(lg), lg)

	deliver := func(ctx context.Context, ev kafka.NotificationEvent) {
		if err := notificationSvc.Deliver(ctx, ev); err != nil {
			lg.Warn("deliver notification failed",
				logger.String("user_id", ev.UserID),
				logger.String("kind", ev.Kind),
				logger.Error(err))
		}
	}

	// Booking events fan out to one notification per affected party.
	bookingConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingTopic)
	defer bookingConsumer.Close()
	go func() {
		err := bookingConsumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var ev kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				lg.Warn("decode booking event failed", logger.Error(err))
				return nil
			}
			for _, n := range notification.FromBookingEvent(ev) {
				deliver(ctx, n)
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			lg.Error("booking consumer stopped", logger.Error(err))
		}
	}()

	// Direct notifications (welcome, password reset) published by the API.
	notificationConsumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer notificationConsumer.Close()
	go func() {
		err := notificationConsumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var ev kafka.NotificationEvent
			if err := json.Unmarshal(msg.Value, &ev); err != nil {
				lg.Warn("decode notification event failed", logger.Error(err))
				return nil
			}
			deliver(ctx, ev)
			return nil
		})
		if err != nil && ctx.Err() == nil {
			lg.Error("notification consumer stopped", logger.Error(err))
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.NoShowSweepMinutes) * time.Minute)
	defer sweepTicker.Stop()
	grace := time.Duration(cfg.NoShowGraceMinutes) * time.Minute

	lg.Info("worker started")
	for {
		select {
		case <-sweepTicker.C:
			swept, err := bookingSvc.SweepNoShows(ctx, grace)
			if err != nil {
				lg.Error("no-show sweep failed", logger.Error(err))
				continue
			}
			for i := range swept {
				b := &swept[i]
				ev := kafka.BookingEvent{
					Type:          kafka.EventBookingNoShow,
					BookingID:     string(b.ID),
					RiderID:       string(b.RiderID),
					Status:        string(b.Status),
					VehicleType:   b.VehicleType,
					Total:         b.Fare.Total,
					ScheduledTime: b.ScheduledTime,
				}
				if err := producer.Publish(ctx, cfg.Kafka.BookingTopic, string(b.ID), ev); err != nil {
					lg.Warn("publish no-show event failed",
						logger.String("booking_id", string(b.ID)),
						logger.Error(err))
				}
			}
			if len(swept) > 0 {
				lg.Info("swept no-show bookings", logger.Int("count", len(swept)))
			}
		case <-ctx.Done():
			lg.Info("worker shutting down")
			return
		}
	}
}
