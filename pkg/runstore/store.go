// Package runstore keeps a JSON summary of every scrape run in Redis so
// dashboards and follow-up jobs can see what the last runs produced.
package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL is how long a summary is retained.
const DefaultTTL = 30 * 24 * time.Hour

var (
	// ErrNotFound indicates no summary exists for the dataset.
	ErrNotFound = errors.New("run summary not found")

	// ErrInvalidSummary indicates the stored value could not be decoded.
	ErrInvalidSummary = errors.New("invalid run summary")
)

// Summary describes one scrape run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Dataset   string        `json:"dataset"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	Requests   int    `json:"requests"`
	Pages      int    `json:"pages"`
	Records    int    `json:"records"`
	PagesHint  int    `json:"pages_hint"`
	StopReason string `json:"stop_reason"`
	FetchError string `json:"fetch_error,omitempty"`

	Spreadsheet      string `json:"spreadsheet,omitempty"`
	SpreadsheetError string `json:"spreadsheet_error,omitempty"`
	Table            string `json:"table,omitempty"`
	TableError       string `json:"table_error,omitempty"`
}

// Key returns the Redis key for a dataset.
// Format: mmreality:run:<dataset>
func Key(dataset string) string {
	return "mmreality:run:" + strings.TrimSpace(dataset)
}

// Store saves and loads run summaries.
type Store struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewStore creates a store. A non-positive ttl uses DefaultTTL.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Save stores s under its dataset key, replacing any previous run of the
// same dataset.
func (s *Store) Save(ctx context.Context, summary Summary) error {
	if summary.Dataset == "" {
		return fmt.Errorf("summary dataset is required")
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}

	if err := s.redis.Set(ctx, Key(summary.Dataset), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	return nil
}

// Get loads the summary for a dataset.
// Returns ErrNotFound if there is none.
func (s *Store) Get(ctx context.Context, dataset string) (*Summary, error) {
	data, err := s.redis.Get(ctx, Key(dataset)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSummary, err)
	}

	return &summary, nil
}

// Delete removes the summary for a dataset.
func (s *Store) Delete(ctx context.Context, dataset string) error {
	if err := s.redis.Del(ctx, Key(dataset)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
