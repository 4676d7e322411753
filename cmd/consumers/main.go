package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinebook/cmd/consumers/jobs"
	"cinebook/internal/config"
	"cinebook/internal/consumers"
	"cinebook/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	log.Info("Starting consumers service...")

	// Tells consumer connections apart from the API in the streaming server monitor
	cfg.NATS.ClientID = cfg.NATS.ClientID + "-consumers"

	consumerService, err := consumers.NewConsumerService(cfg)
	if err != nil {
		logger.Fatal("Failed to create consumer service", "error", err)
	}

	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var expiration *jobs.BookingExpirationJob
	if cfg.Booking.PendingTTL > 0 {
		expiration = jobs.NewBookingExpirationJob(consumerService.Services().Bookings, cfg.Booking.PendingTTL, 30*time.Second)
		expiration.Start(ctx)
	} else {
		log.Info("Booking expiration disabled", "env", "BOOKING_PENDING_TTL_MIN")
	}

	log.Info("Consumers service started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down consumers service...")

	if expiration != nil {
		expiration.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		log.Error("Error during shutdown", "error", err)
	}

	log.Info("Consumers service stopped")
}
