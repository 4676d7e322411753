package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"cinebook/internal/cache"
	"cinebook/internal/database"
	"cinebook/internal/messaging"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database      database.Config
	NATS          messaging.Config
	Redis         cache.Config
	Elasticsearch ElasticsearchConfig
	Booking       BookingConfig
}

// BookingConfig controls the booking transaction and the demo seeding policy.
type BookingConfig struct {
	TxTimeout  time.Duration
	PendingTTL time.Duration

	// DemoSeeding lets unknown showtimes above DemoShowtimeThreshold and unknown
	// seat codes be provisioned on the fly. Never enable it in production.
	DemoSeeding           bool
	DemoShowtimeThreshold int64
	DemoMovieID           int64
	DemoScreenID          int64
	DemoBasePrice         string
	DemoShowtimeDuration  time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory, when present, is loaded first and never overrides
// variables that are already set.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	return &Config{
		Port:           getEnv("PORT", "8081"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "cinebook"),
			Password:           getEnv("DB_PASSWORD", "cinebook"),
			DBName:             getEnv("DB_NAME", "cinebook"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		NATS: messaging.Config{
			Enabled:   getEnvBool("NATS_ENABLED", false),
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "cinebook"),
			ClientID:  getEnv("NATS_CLIENT_ID", "cinebook-api"),
		},

		Redis: cache.Config{
			Enabled:    getEnvBool("REDIS_ENABLED", false),
			Addr:       getEnv("REDIS_ADDR", "localhost:6379"),
			Password:   os.Getenv("REDIS_PASSWORD"),
			DB:         getEnvInt("REDIS_DB", 0),
			SeatMapTTL: time.Duration(getEnvInt("SEAT_MAP_CACHE_TTL_SEC", 30)) * time.Second,
		},

		Elasticsearch: LoadElasticsearchConfig(),

		Booking: BookingConfig{
			TxTimeout:             time.Duration(getEnvInt("BOOKING_TX_TIMEOUT_SEC", 10)) * time.Second,
			PendingTTL:            time.Duration(getEnvInt("BOOKING_PENDING_TTL_MIN", 0)) * time.Minute,
			DemoSeeding:           getEnvBool("DEMO_SEEDING", false),
			DemoShowtimeThreshold: int64(getEnvInt("DEMO_SHOWTIME_THRESHOLD", 10)),
			DemoMovieID:           int64(getEnvInt("DEMO_MOVIE_ID", 1)),
			DemoScreenID:          int64(getEnvInt("DEMO_SCREEN_ID", 1)),
			DemoBasePrice:         getEnv("DEMO_BASE_PRICE", "10.00"),
			DemoShowtimeDuration:  time.Duration(getEnvInt("DEMO_SHOWTIME_DURATION_MIN", 120)) * time.Minute,
		},
	}
}

// getEnv returns the environment variable or the default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
