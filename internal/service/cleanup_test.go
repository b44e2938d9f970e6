package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staleRecorder is a MirrorRepository that only records DeleteStale calls.
type staleRecorder struct {
	mu         sync.Mutex
	thresholds []time.Duration
	deleted    int64
	err        error
}

func (r *staleRecorder) Get(ctx context.Context, key string) ([]byte, *time.Time, error) {
	return nil, nil, nil
}
func (r *staleRecorder) Put(ctx context.Context, key string, value []byte) error { return nil }
func (r *staleRecorder) Delete(ctx context.Context, key string) error            { return nil }
func (r *staleRecorder) GetStats(ctx context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{}, nil
}
func (r *staleRecorder) Close() error { return nil }

func (r *staleRecorder) DeleteStale(ctx context.Context, threshold time.Duration) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.thresholds = append(r.thresholds, threshold)
	return r.deleted, r.err
}

func (r *staleRecorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.thresholds)
}

func TestCleanupScheduler_RunNow(t *testing.T) {
	repo := &staleRecorder{deleted: 3}
	s := NewCleanupScheduler(repo, CleanupConfig{}, quietLogger())

	n, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []time.Duration{30 * 24 * time.Hour}, repo.thresholds)

	repo.err = errors.New("disk full")
	_, err = s.RunNow()
	assert.EqualError(t, err, "disk full")
}

func TestCleanupScheduler_StartStop(t *testing.T) {
	repo := &staleRecorder{}
	s := NewCleanupScheduler(repo, CleanupConfig{
		StaleThreshold:  time.Hour,
		CleanupInterval: 10 * time.Millisecond,
	}, quietLogger())

	s.Start()
	s.Start()
	assert.Eventually(t, func() bool { return repo.calls() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, time.Hour, repo.thresholds[0])
}
