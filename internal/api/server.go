package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"cinebook/internal/cache"
	"cinebook/internal/config"
	"cinebook/internal/database"
	"cinebook/internal/handlers"
	"cinebook/internal/logger"
	"cinebook/internal/messaging"
	"cinebook/internal/metrics"
	"cinebook/internal/middleware"
	"cinebook/internal/search"
	"cinebook/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the HTTP API of the booking service
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	cache    *cache.SeatMapCache
	search   *search.ElasticsearchClient
	services *service.Services
	metrics  *metrics.Metrics
}

// NewServer connects every backing store and builds the router.
// Postgres is mandatory; NATS, Redis and Elasticsearch are used only when enabled.
func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	log := logger.Get()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s := &Server{
		config:  cfg,
		db:      db,
		metrics: metrics.New(prometheus.DefaultRegisterer),
	}

	deps := service.Deps{
		DB:      db,
		Metrics: s.metrics,
		Booking: cfg.Booking,
	}

	if cfg.NATS.Enabled {
		nc, err := messaging.NewNATSClient(cfg.NATS)
		if err != nil {
			log.Warn("NATS unavailable, booking events will not be published", "error", err)
		} else {
			s.nats = nc
			deps.Publisher = nc
		}
	}

	if cfg.Redis.Enabled {
		c, err := cache.NewSeatMapCache(cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable, seat maps are served from Postgres", "error", err)
		} else {
			s.cache = c
			deps.Cache = c
		}
	}

	if cfg.Elasticsearch.Enabled {
		es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
		if err != nil {
			log.Warn("Elasticsearch unavailable, booking reports are disabled", "error", err)
		} else {
			s.search = es
			deps.Reporter = es
		}
	}

	s.services = service.NewServices(deps)
	s.router = s.newRouter()

	return s, nil
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(s.metrics.Middleware())
	router.Use(middleware.Timeout(s.config.RequestTimeout))

	h := handlers.NewHandlers(s.services)
	h.RegisterRoutes(router.Group("/api"))

	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// healthCheck reports database reachability plus the state of the optional backends
func (s *Server) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	db := s.db.HealthCheck(ctx)

	status := http.StatusOK
	if db.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	backends := gin.H{
		"nats":  s.nats != nil,
		"redis": s.cache != nil,
	}
	if s.search != nil {
		backends["elasticsearch"] = s.search.HealthCheck(ctx) == nil
	} else {
		backends["elasticsearch"] = false
	}

	c.JSON(status, gin.H{
		"status":   db.Status,
		"service":  "cinebook-api",
		"database": db,
		"backends": backends,
	})
}

// GetRouter returns the router, used by main and by tests
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Services exposes the service layer to background jobs sharing this process
func (s *Server) Services() *service.Services {
	return s.services
}

// Cleanup closes every connection the server opened
func (s *Server) Cleanup() error {
	log := logger.Get()

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
