package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteMirrorRepository implements MirrorRepository using SQLite.
// Thread-safe with WAL mode for concurrent reads.
type SQLiteMirrorRepository struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger logrus.FieldLogger
}

// NewSQLiteMirrorRepository creates a new SQLite mirror repository.
// dbPath is the path to the SQLite database file (e.g., "./data/cart_mirror.db")
func NewSQLiteMirrorRepository(dbPath string, logger logrus.FieldLogger) (*SQLiteMirrorRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create mirror directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createSQLiteMirrorTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger = logger.WithField("component", "sqlite_mirror")
	logger.WithField("path", dbPath).Info("mirror repository initialized")
	return &SQLiteMirrorRepository{db: db, logger: logger}, nil
}

func createSQLiteMirrorTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS cart_mirror (
		mirror_key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cart_mirror_updated_at ON cart_mirror(updated_at);
	`
	_, err := db.Exec(query)
	return err
}

// Get returns the value stored under key.
func (r *SQLiteMirrorRepository) Get(ctx context.Context, key string) ([]byte, *time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var value string
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, `SELECT value, updated_at FROM cart_mirror WHERE mirror_key = ?`, key).
		Scan(&value, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get mirror entry: %w", err)
	}
	return []byte(value), &updatedAt, nil
}

// Put inserts or replaces the value under key.
func (r *SQLiteMirrorRepository) Put(ctx context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := `
		INSERT INTO cart_mirror (mirror_key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(mirror_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to put mirror entry: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *SQLiteMirrorRepository) Delete(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_mirror WHERE mirror_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete mirror entry: %w", err)
	}
	return nil
}

// DeleteStale removes entries not updated within threshold.
func (r *SQLiteMirrorRepository) DeleteStale(ctx context.Context, threshold time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().UTC().Add(-threshold)
	result, err := r.db.ExecContext(ctx, `DELETE FROM cart_mirror WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale mirror entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		r.logger.WithFields(logrus.Fields{"deleted": deleted, "threshold": threshold.String()}).Info("pruned stale mirror entries")
	}
	return deleted, nil
}

// GetStats returns statistics about the mirror database.
func (r *SQLiteMirrorRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})

	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cart_mirror").Scan(&count); err != nil {
		return nil, err
	}
	stats["total_entries"] = count

	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteMirrorRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteMirrorRepository implements MirrorRepository
var _ MirrorRepository = (*SQLiteMirrorRepository)(nil)
