package repository

import (
	"context"
	"time"

	"decostore-rest-api/internal/model"
)

// MirrorRepository is the local key/value mirror of cart state.
type MirrorRepository interface {
	// Get returns the stored value and its last update time, or nil when absent.
	Get(ctx context.Context, key string) ([]byte, *time.Time, error)

	// Put inserts or replaces the value under key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteStale removes entries not updated within threshold.
	DeleteStale(ctx context.Context, threshold time.Duration) (int64, error)

	// GetStats returns statistics about the mirror database.
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}

// QuoteLogRepository stores the outcome of saved quotes.
type QuoteLogRepository interface {
	InsertQuoteLog(ctx context.Context, log *model.QuoteLog) error
	GetQuoteLogs(ctx context.Context, limit, offset int) ([]model.QuoteLog, int64, error)
	Close() error
}
