package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/hotelops/config"
	"github.com/Domenick1991/hotelops/internal/cache"
	"github.com/Domenick1991/hotelops/internal/email"
	"github.com/Domenick1991/hotelops/internal/interval"
	"github.com/Domenick1991/hotelops/internal/kafka"
	"github.com/Domenick1991/hotelops/internal/pricing"
	"github.com/Domenick1991/hotelops/internal/repository"
	"github.com/Domenick1991/hotelops/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
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

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.UnitsCacheTTLSeconds)*time.Second)

	unitRepo := repository.NewUnitRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	pricingRepo := repository.NewPricingRuleRepository(pool)

	holidays, err := cfg.Pricing.HolidayDates()
	if err != nil {
		log.Fatalf("parse holidays: %v", err)
	}
	calculator := pricing.NewCalculator(pricingRepo, pricing.NewDateSet(holidays))

	bookingService := booking.NewBookingService(
		bookingRepo,
		unitRepo,
		interval.NewChecker(bookingRepo),
		calculator,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.UnitLockTTLSeconds)*time.Second,
		time.Duration(cfg.Booking.HoldTTLMinutes)*time.Minute,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.Consume(ctx, kafka.EventHandlers{
			Booking: emailSender.SendBooking,
			Payment: emailSender.SendPayment,
		}); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	expireTicker := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer expireTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-expireTicker.C:
			expired, err := bookingService.ExpireUnpaidBookings(ctx)
			if err != nil {
				log.Printf("expire bookings error: %v", err)
				continue
			}
			if len(expired) > 0 {
				log.Printf("released %d unpaid holds", len(expired))
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
