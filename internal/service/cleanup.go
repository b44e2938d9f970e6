package service

import (
	"context"
	"sync"
	"time"

	"decostore-rest-api/internal/repository"

	"github.com/sirupsen/logrus"
)

// CleanupConfig holds configuration for the cleanup scheduler.
type CleanupConfig struct {
	// StaleThreshold is the age after which mirrored carts are deleted.
	// Default: 30 days
	StaleThreshold time.Duration

	// CleanupInterval is how often the cleanup runs.
	// Default: 24 hours
	CleanupInterval time.Duration

	// InitialDelay postpones the first run after Start.
	InitialDelay time.Duration
}

// DefaultCleanupConfig returns default cleanup configuration.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		StaleThreshold:  30 * 24 * time.Hour,
		CleanupInterval: 24 * time.Hour,
		InitialDelay:    time.Minute,
	}
}

// CleanupScheduler periodically prunes stale entries from the cart mirror.
type CleanupScheduler struct {
	repo      repository.MirrorRepository
	config    CleanupConfig
	logger    logrus.FieldLogger
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	isRunning bool
	mu        sync.Mutex
}

// NewCleanupScheduler creates a new cleanup scheduler.
func NewCleanupScheduler(repo repository.MirrorRepository, config CleanupConfig, logger logrus.FieldLogger) *CleanupScheduler {
	defaults := DefaultCleanupConfig()
	if config.StaleThreshold == 0 {
		config.StaleThreshold = defaults.StaleThreshold
	}
	if config.CleanupInterval == 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &CleanupScheduler{
		repo:   repo,
		config: config,
		logger: logger.WithField("component", "cleanup"),
		stopCh: make(chan struct{}),
	}
}

// Start begins the cleanup scheduler.
func (s *CleanupScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.ticker = time.NewTicker(s.config.CleanupInterval)
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"interval":  s.config.CleanupInterval.String(),
		"threshold": s.config.StaleThreshold.String(),
	}).Info("cleanup scheduler started")

	go func() {
		select {
		case <-time.After(s.config.InitialDelay):
			s.runCleanup()
		case <-s.stopCh:
		}
	}()

	go s.run()
}

func (s *CleanupScheduler) run() {
	for {
		select {
		case <-s.ticker.C:
			s.runCleanup()
		case <-s.stopCh:
			s.logger.Info("cleanup scheduler stopped")
			return
		}
	}
}

func (s *CleanupScheduler) runCleanup() {
	deleted, err := s.RunNow()
	if err != nil {
		s.logger.WithError(err).Error("cart mirror cleanup failed")
		return
	}
	s.logger.WithField("deleted", deleted).Info("cart mirror cleanup finished")
}

// Stop stops the cleanup scheduler.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		if s.ticker != nil {
			s.ticker.Stop()
		}
		close(s.stopCh)
		s.isRunning = false
	})
}

// RunNow triggers an immediate cleanup run and returns the number of
// deleted mirror entries.
func (s *CleanupScheduler) RunNow() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	return s.repo.DeleteStale(ctx, s.config.StaleThreshold)
}
