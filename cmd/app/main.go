package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Domenick1991/hotelops/config"
	"github.com/Domenick1991/hotelops/internal/bootstrap"
	"github.com/Domenick1991/hotelops/internal/cache"
	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/Domenick1991/hotelops/internal/gateway"
	"github.com/Domenick1991/hotelops/internal/interval"
	"github.com/Domenick1991/hotelops/internal/kafka"
	"github.com/Domenick1991/hotelops/internal/pricing"
	"github.com/Domenick1991/hotelops/internal/repository"
	"github.com/Domenick1991/hotelops/internal/service/booking"
	"github.com/Domenick1991/hotelops/internal/service/payment"
	"github.com/Domenick1991/hotelops/internal/service/units"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	unitsTTL := time.Duration(cfg.Booking.UnitsCacheTTLSeconds) * time.Second
	redisCache := cache.NewRedisCache(cfg.Redis, unitsTTL)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	unitRepo := repository.NewUnitRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	pricingRepo := repository.NewPricingRuleRepository(pool)

	holidays, err := cfg.Pricing.HolidayDates()
	if err != nil {
		log.Fatalf("parse holidays: %v", err)
	}
	calculator := pricing.NewCalculator(pricingRepo, pricing.NewDateSet(holidays))
	checker := interval.NewChecker(bookingRepo)

	bookingService := booking.NewBookingService(
		bookingRepo,
		unitRepo,
		checker,
		calculator,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.UnitLockTTLSeconds)*time.Second,
		time.Duration(cfg.Booking.HoldTTLMinutes)*time.Minute,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	registry := gateway.NewRegistry()
	for method, provider := range cfg.Gateway.Providers {
		registry.Register(domain.PaymentMethod(strings.ToUpper(method)), gateway.NewHTTPAdapter(provider.BaseURL, provider.APIKey))
	}

	currency := cfg.Gateway.Currency
	if currency == "" {
		currency = "USD"
	}
	paymentService := payment.NewPaymentService(
		paymentRepo,
		bookingService,
		registry,
		producer,
		cfg.Kafka.PaymentTopic,
		cfg.Gateway.WebhookSecret,
		currency,
		payment.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	unitService := units.NewUnitService(unitRepo, redisCache)

	services := bootstrap.Services{
		Units:    unitService,
		Bookings: bookingService,
		Payments: paymentService,
		Pricer:   calculator,
	}
	if err := bootstrap.Run(ctx, cfg, services); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
