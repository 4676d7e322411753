package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cinebook/internal/config"
	"cinebook/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// BookingDocument is the indexed form of a booking
type BookingDocument struct {
	BookingID   int64                `json:"booking_id"`
	UserID      int64                `json:"users_id"`
	Status      models.BookingStatus `json:"booking_status"`
	PromotionID *int64               `json:"promotion_id,omitempty"`
	ShowtimeIDs []int64              `json:"showtime_ids,omitempty"`
	TicketCount int                  `json:"ticket_count"`
	CreatedAt   time.Time            `json:"booking_date,omitzero"`
	UpdatedAt   time.Time            `json:"updated_at"`

	StatusVersion int64 `json:"status_version"`
}

// ElasticsearchClient maintains the bookings index
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	mapping := map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"booking_id":     map[string]any{"type": "long"},
				"users_id":       map[string]any{"type": "long"},
				"booking_status": map[string]any{"type": "keyword"},
				"promotion_id":   map[string]any{"type": "long"},
				"showtime_ids":   map[string]any{"type": "long"},
				"ticket_count":   map[string]any{"type": "integer"},
				"booking_date":   map[string]any{"type": "date"},
				"updated_at":     map[string]any{"type": "date"},
				"status_version": map[string]any{"type": "long"},
			},
		},
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  bytes.NewReader(body),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// Status and promotion carry a status_version (event time in unix nanos).
// booking.created and booking.updated arrive on separate channels, so a write
// only replaces them when its version is not older than the stored one.
const (
	indexCreatedScript = `
ctx._source.users_id = params.doc.users_id;
ctx._source.showtime_ids = params.doc.showtime_ids;
ctx._source.ticket_count = params.doc.ticket_count;
ctx._source.booking_date = params.doc.booking_date;
if (ctx._source.status_version == null || ctx._source.status_version < params.doc.status_version) {
	ctx._source.booking_status = params.doc.booking_status;
	ctx._source.promotion_id = params.doc.promotion_id;
	ctx._source.updated_at = params.doc.updated_at;
	ctx._source.status_version = params.doc.status_version;
}`

	updateStatusScript = `
if (ctx._source.status_version != null && ctx._source.status_version > params.doc.status_version) {
	ctx.op = 'noop';
} else {
	ctx._source.booking_status = params.doc.booking_status;
	ctx._source.promotion_id = params.doc.promotion_id;
	ctx._source.updated_at = params.doc.updated_at;
	ctx._source.status_version = params.doc.status_version;
}`
)

// IndexBooking stores a newly created booking. If a later status change was
// indexed first, only the fields that change carries no value for are filled in.
func (c *ElasticsearchClient) IndexBooking(ctx context.Context, doc *BookingDocument) error {
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}
	doc.StatusVersion = doc.UpdatedAt.UnixNano()

	return c.scriptedUpsert(ctx, doc.BookingID, indexCreatedScript, doc)
}

// UpdateBookingStatus sets status and promotion as of at, creating a minimal
// document when the booking was never indexed. Older changes are ignored.
func (c *ElasticsearchClient) UpdateBookingStatus(ctx context.Context, bookingID int64, status models.BookingStatus, promotionID *int64, at time.Time) error {
	doc := &BookingDocument{
		BookingID:     bookingID,
		Status:        status,
		PromotionID:   promotionID,
		UpdatedAt:     at,
		StatusVersion: at.UnixNano(),
	}

	return c.scriptedUpsert(ctx, bookingID, updateStatusScript, doc)
}

func (c *ElasticsearchClient) scriptedUpsert(ctx context.Context, bookingID int64, script string, doc *BookingDocument) error {
	body, err := json.Marshal(map[string]any{
		"script": map[string]any{
			"lang":   "painless",
			"source": script,
			"params": map[string]any{"doc": doc},
		},
		"upsert": doc,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal booking: %w", err)
	}

	retries := 3
	req := esapi.UpdateRequest{
		Index:           c.config.Index,
		DocumentID:      strconv.FormatInt(bookingID, 10),
		Body:            bytes.NewReader(body),
		Refresh:         "wait_for",
		RetryOnConflict: &retries,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index booking: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}

	return nil
}

func (c *ElasticsearchClient) DeleteBooking(ctx context.Context, bookingID int64) error {
	req := esapi.DeleteRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(bookingID, 10),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete error: %s", res.String())
	}

	return nil
}

// StatusSummary aggregates booking and ticket counts per status
func (c *ElasticsearchClient) StatusSummary(ctx context.Context) (*models.BookingReport, error) {
	query := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"by_status": map[string]any{
				"terms": map[string]any{"field": "booking_status", "size": 10},
			},
			"tickets": map[string]any{
				"sum": map[string]any{"field": "ticket_count"},
			},
		},
	}

	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal aggregation: %w", err)
	}

	req := esapi.SearchRequest{
		Index:          []string{c.config.Index},
		Body:           bytes.NewReader(body),
		TrackTotalHits: true,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute aggregation: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("aggregation error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
		} `json:"hits"`
		Aggregations struct {
			ByStatus struct {
				Buckets []struct {
					Key      string `json:"key"`
					DocCount int64  `json:"doc_count"`
				} `json:"buckets"`
			} `json:"by_status"`
			Tickets struct {
				Value float64 `json:"value"`
			} `json:"tickets"`
		} `json:"aggregations"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation response: %w", err)
	}

	report := &models.BookingReport{
		TotalBookings: response.Hits.Total.Value,
		TotalTickets:  int64(response.Aggregations.Tickets.Value),
		ByStatus:      make(map[string]int64, len(response.Aggregations.ByStatus.Buckets)),
	}
	for _, b := range response.Aggregations.ByStatus.Buckets {
		report.ByStatus[b.Key] = b.DocCount
	}

	return report, nil
}

func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}

	return nil
}
