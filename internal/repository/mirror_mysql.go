package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

// MySQLMirrorRepository implements MirrorRepository using MySQL.
type MySQLMirrorRepository struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

// NewMySQLMirrorRepository opens dsn and ensures the mirror table exists.
func NewMySQLMirrorRepository(dsn string, logger logrus.FieldLogger) (*MySQLMirrorRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	query := `
	CREATE TABLE IF NOT EXISTS cart_mirror (
		mirror_key VARCHAR(191) NOT NULL PRIMARY KEY,
		value MEDIUMTEXT NOT NULL,
		updated_at DATETIME(6) NOT NULL,
		INDEX idx_cart_mirror_updated_at (updated_at)
	)`
	if _, err := db.ExecContext(ctx, query); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger = logger.WithField("component", "mysql_mirror")
	logger.Info("mirror repository initialized")
	return &MySQLMirrorRepository{db: db, logger: logger}, nil
}

// Get returns the value stored under key.
func (r *MySQLMirrorRepository) Get(ctx context.Context, key string) ([]byte, *time.Time, error) {
	var value []byte
	var updatedAt time.Time
	err := r.db.QueryRowContext(ctx, `SELECT value, updated_at FROM cart_mirror WHERE mirror_key = ?`, key).
		Scan(&value, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to get mirror entry: %w", err)
	}
	return value, &updatedAt, nil
}

// Put inserts or replaces the value under key.
func (r *MySQLMirrorRepository) Put(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO cart_mirror (mirror_key, value, updated_at)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE
			value = VALUES(value),
			updated_at = VALUES(updated_at)`

	if _, err := r.db.ExecContext(ctx, query, key, string(value), time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to put mirror entry: %w", err)
	}
	return nil
}

// Delete removes key.
func (r *MySQLMirrorRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_mirror WHERE mirror_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete mirror entry: %w", err)
	}
	return nil
}

// DeleteStale removes entries not updated within threshold.
func (r *MySQLMirrorRepository) DeleteStale(ctx context.Context, threshold time.Duration) (int64, error) {
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

// GetStats returns statistics about the mirror table.
func (r *MySQLMirrorRepository) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cart_mirror").Scan(&count); err != nil {
		return nil, err
	}
	stats["total_entries"] = count

	dbStats := r.db.Stats()
	stats["connections"] = map[string]interface{}{
		"open":   dbStats.OpenConnections,
		"in_use": dbStats.InUse,
		"idle":   dbStats.Idle,
	}
	return stats, nil
}

// Close closes the database connection pool.
func (r *MySQLMirrorRepository) Close() error {
	return r.db.Close()
}

// Ensure MySQLMirrorRepository implements MirrorRepository
var _ MirrorRepository = (*MySQLMirrorRepository)(nil)
