package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotusair/booking/config"
	"github.com/lotusair/booking/internal/bootstrap"
	"github.com/lotusair/booking/internal/cache"
	"github.com/lotusair/booking/internal/kafka"
	"github.com/lotusair/booking/internal/repository"
	"github.com/lotusair/booking/internal/service/booking"
	"github.com/lotusair/booking/internal/service/draft"
	"github.com/lotusair/booking/internal/service/flights"
	"github.com/lotusair/booking/internal/service/members"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SearchCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	flightRepo := repository.NewFlightRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	memberRepo := repository.NewMemberRepository(pool)

	holdTTL := time.Duration(cfg.Booking.SeatHoldTTLMinutes) * time.Minute
	draftTTL := time.Duration(cfg.Booking.DraftTTLMinutes) * time.Minute

	svc := bootstrap.Services{
		Flights: flights.NewFlightService(flightRepo, redisCache),
		Drafts:  draft.NewDraftService(flightRepo, redisCache, redisCache, draftTTL, holdTTL),
		Bookings: booking.NewBookingService(
			bookingRepo,
			flightRepo,
			memberRepo,
			redisCache,
			redisCache,
			producer,
			cfg.Kafka.BookingTopic,
			holdTTL,
			booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		),
		Members: members.NewMemberService(
			memberRepo,
			redisCache,
			producer,
			cfg.Kafka.NotificationsTopic,
			time.Duration(cfg.Booking.SessionTTLHours)*time.Hour,
			time.Duration(cfg.Booking.ActionTokenTTLHours)*time.Hour,
		),
	}

	if err := bootstrap.Run(ctx, cfg, svc); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
