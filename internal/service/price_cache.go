package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"decostore-rest-api/internal/cache"
	"decostore-rest-api/internal/model"

	"github.com/sirupsen/logrus"
)

// StylePriceSource fetches display prices of a style.
type StylePriceSource interface {
	GetStylePrice(ctx context.Context, styleNumber string) (*model.StylePrice, error)
}

// PriceCacheService serves style prices through the cache layer.
type PriceCacheService struct {
	source StylePriceSource
	cache  cache.Cache
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewPriceCacheService creates a price cache. Returns nil if source is nil.
func NewPriceCacheService(source StylePriceSource, c cache.Cache, ttl time.Duration, logger logrus.FieldLogger) *PriceCacheService {
	if source == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &PriceCacheService{
		source: source,
		cache:  c,
		ttl:    ttl,
		logger: logger.WithField("component", "price_cache"),
	}
}

func priceKey(styleNumber string) string {
	return "price:" + strings.ToUpper(strings.TrimSpace(styleNumber))
}

// GetStylePrice returns the cached price list of a style, fetching it on a
// miss. A failing cache falls through to the source.
func (s *PriceCacheService) GetStylePrice(ctx context.Context, styleNumber string) (*model.StylePrice, error) {
	key := priceKey(styleNumber)

	if s.cache != nil {
		raw, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var sp model.StylePrice
			if err := json.Unmarshal(raw, &sp); err == nil {
				return &sp, nil
			}
			s.logger.WithField("key", key).Warn("discarding unreadable cached price")
		case !errors.Is(err, cache.ErrCacheMiss):
			s.logger.WithError(err).WithField("key", key).Warn("price cache read failed")
		}
	}

	sp, err := s.source.GetStylePrice(ctx, strings.TrimSpace(styleNumber))
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if raw, err := json.Marshal(sp); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
				s.logger.WithError(err).WithField("key", key).Warn("price cache write failed")
			}
		}
	}
	return sp, nil
}

// Invalidate drops the cached prices of a style.
func (s *PriceCacheService) Invalidate(ctx context.Context, styleNumber string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, priceKey(styleNumber))
}

// Stats reports the cache counters.
func (s *PriceCacheService) Stats() cache.Stats {
	if s.cache == nil {
		return cache.Stats{Type: "none"}
	}
	return s.cache.Stats()
}
