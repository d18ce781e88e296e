package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lotusair/booking/config"
	"github.com/lotusair/booking/internal/cache"
	"github.com/lotusair/booking/internal/email"
	"github.com/lotusair/booking/internal/kafka"
	"github.com/lotusair/booking/internal/repository"
	"github.com/lotusair/booking/internal/service/draft"
	"github.com/lotusair/booking/internal/service/members"
	kafkaGo "github.com/segmentio/kafka-go"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SearchCacheTTL)*time.Second)

	flightRepo := repository.NewFlightRepository(pool)
	draftService := draft.NewDraftService(
		flightRepo,
		redisCache,
		redisCache,
		time.Duration(cfg.Booking.DraftTTLMinutes)*time.Minute,
		time.Duration(cfg.Booking.SeatHoldTTLMinutes)*time.Minute,
	)

	memberRepo := repository.NewMemberRepository(pool)
	memberService := members.NewMemberService(
		memberRepo,
		redisCache,
		nil,
		"",
		time.Duration(cfg.Booking.SessionTTLHours)*time.Hour,
		time.Duration(cfg.Booking.ActionTokenTTLHours)*time.Hour,
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender(cfg.SMTP)

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.NotificationEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("decode event error: %v", err)
				return nil
			}
			return emailSender.Send(ctx, event)
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.SweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			removed, err := memberService.ExpireSessions(ctx)
			if err != nil {
				log.Printf("expire sessions error: %v", err)
			} else if removed > 0 {
				log.Printf("expired %d sessions", removed)
			}

			released, err := draftService.ReleaseOrphanedHolds(ctx)
			if err != nil {
				log.Printf("release orphaned holds error: %v", err)
			} else if released > 0 {
				log.Printf("released %d orphaned seat holds", released)
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
