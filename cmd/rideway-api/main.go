// Entry point for the API server: loads config, wires module services,
// serves HTTP until interrupted.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rideway/internal/auth"
	"rideway/internal/config"
	httptransport "rideway/internal/http"
	"rideway/internal/infra"
	"rideway/internal/kafka"
	"rideway/internal/logger"
	"rideway/internal/maps"
	"rideway/internal/modules/booking"
	"rideway/internal/modules/matching"
	"rideway/internal/modules/notification"
	"rideway/internal/modules/payment"
	"rideway/internal/modules/user"
)

func main() {
	cfg := config.Load()
	lg := logger.New(cfg.ServiceName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DSN(), "migrations", lg)
	if err != nil {
		log.Fatalf("postgres init: %v", err)
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.RedisAddr, cfg.RedisPassword)

	tokens := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	var geocoder user.Geocoder
	if cfg.MapsAPIKey != "" {
		g, err := maps.NewGeocodeService(cfg.MapsAPIKey)
		if err != nil {
			log.Fatalf("maps init: %v", err)
		}
		geocoder = g
	}

	userStore := user.NewPGStore(dbPool)
	userSvc := user.NewService(userStore, tokens, geocoder, producer, cfg.Kafka.NotificationsTopic, lg)

	bookingStore := booking.NewPGStore(dbPool)
	matchIndex := matching.NewRedisStore(redisClient)

	paymentStore := payment.NewPGStore(dbPool)
	paymentSvc := payment.NewService(paymentStore, payment.SimGateway{}, bookingStore, userStore, lg)

	bookingSvc := booking.NewService(bookingStore, userSvc, matchIndex, paymentSvc, producer, cfg.Kafka.BookingTopic, lg)

	matchingSvc := matching.NewService(matchIndex, bookingStore, userStore, cfg.Matching.RadiusKm, cfg.Matching.Limit, lg)

	notificationStore := notification.NewPGStore(dbPool)
	notificationSvc := notification.NewService(notificationStore, userSvc, nil, lg)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Tokens:        tokens,
		Users:         userSvc,
		Bookings:      bookingSvc,
		Payments:      paymentSvc,
		Matching:      matchingSvc,
		Notifications: notificationSvc,
		Log:           lg,
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Warn("shutdown", logger.Error(err))
		}
	}()

	lg.Info("http server listening", logger.String("addr", cfg.HTTPAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}
