package consumers

import (
	"context"
	"fmt"

	"cinebook/internal/config"
	"cinebook/internal/database"
	"cinebook/internal/logger"
	"cinebook/internal/messaging"
	"cinebook/internal/models"
	"cinebook/internal/search"
	"cinebook/internal/service"

	"github.com/nats-io/stan.go"
)

const queueGroup = "booking-indexer"

// ConsumerService keeps the bookings index in step with the booking events
// and owns the services used by the background jobs.
type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	services *service.Services
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	es, err := search.NewElasticsearchClient(cfg.Elasticsearch)
	if err != nil {
		natsClient.Close()
		db.Close()
		return nil, fmt.Errorf("connect to Elasticsearch: %w", err)
	}

	// Expired bookings are announced on the same stream the indexer reads.
	services := service.NewServices(service.Deps{
		DB:        db,
		Publisher: natsClient,
		Booking:   cfg.Booking,
	})

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		services: services,
		handlers: NewHandlers(es),
	}, nil
}

// Services exposes the service layer for the background jobs
func (cs *ConsumerService) Services() *service.Services {
	return cs.services
}

func (cs *ConsumerService) Start() error {
	logger.Get().Info("Starting NATS consumers...")

	subscriptions := []struct {
		subject string
		handle  func(ctx context.Context, data []byte) error
	}{
		{models.EventBookingCreated, cs.handlers.HandleBookingCreated},
		{models.EventBookingUpdated, cs.handlers.HandleBookingUpdated},
		{models.EventBookingDeleted, cs.handlers.HandleBookingDeleted},
	}

	for _, s := range subscriptions {
		sub, err := cs.nats.SubscribeQueue(s.subject, queueGroup, cs.handlers.ack(s.subject, s.handle))
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", s.subject, err)
		}
		cs.subs = append(cs.subs, sub)
	}

	logger.Get().Info("All consumers started successfully", "subjects", len(cs.subs))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	log := logger.Get()
	log.Info("Shutting down consumer service...")

	// Close keeps the durable position, Unsubscribe would drop it.
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			log.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			log.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			log.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
