package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinebook/internal/api"
	"cinebook/internal/config"
	"cinebook/internal/logger"
	"cinebook/internal/validation"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if len(os.Args) > 1 && os.Args[1] == "validate" {
		runValidation(os.Args[2:])
		return
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logger.Fatal("Failed to start API", "error", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.GetRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Get().Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Get().Error("Server forced to shutdown", "error", err)
	}

	if err := server.Cleanup(); err != nil {
		logger.Get().Error("Error during cleanup", "error", err)
	}

	logger.Get().Info("Server stopped")
}

// runValidation implements `api validate`
func runValidation(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	baseURL := fs.String("url", "http://localhost:8081", "base URL of the running API")
	userID := fs.Int64("user", 1, "existing user id to book for")
	showtimeID := fs.Int64("showtime", 1, "existing showtime id to book")
	seatA := fs.String("seat-a", "J10", "free seat used for the double booking check")
	seatB := fs.String("seat-b", "J11", "first free seat used for the delete check")
	seatC := fs.String("seat-c", "J12", "second free seat used for the delete check")
	_ = fs.Parse(args)

	opts := validation.DefaultOptions(*baseURL)
	opts.UserID = *userID
	opts.ShowtimeID = *showtimeID
	opts.Seats = [3]string{*seatA, *seatB, *seatC}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := validation.NewValidator(opts).Run(ctx); err != nil {
		logger.Fatal("Validation failed", "error", err)
	}
}
