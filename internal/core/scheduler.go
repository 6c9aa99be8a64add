package core

// scheduler.go runs background maintenance for the document cache.
//
// Documents that have sat in the cache longer than MaxAge are dropped on
// every tick, so a long-running server does not hold uploads that nobody
// looks at any more. Saved copies in the Store are not touched.

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ExpiryConfig controls the cache expiry scheduler.
type ExpiryConfig struct {
	MaxAge        time.Duration // Time a document stays cached (default: 24h)
	CheckInterval time.Duration // How often to sweep (default: 10m)
}

// Defaults for ExpiryConfig.
const (
	DefaultDocumentMaxAge = 24 * time.Hour
	DefaultSweepInterval  = 10 * time.Minute
)

func (c ExpiryConfig) withDefaults() ExpiryConfig {
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultDocumentMaxAge
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultSweepInterval
	}
	return c
}

// StartExpiryScheduler sweeps the cache every CheckInterval until ctx is
// cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartExpiryScheduler(ctx context.Context, cfg ExpiryConfig) {
	cfg = cfg.withDefaults()
	s.logger.Info("expiry scheduler started",
		"max_age", cfg.MaxAge,
		"check_interval", cfg.CheckInterval,
	)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry scheduler stopped")
			return
		case <-ticker.C:
			s.ExpireDocuments(cfg.MaxAge)
		}
	}
}

// ExpireDocuments drops documents cached longer than maxAge ago and returns
// how many were dropped.
func (s *Service) ExpireDocuments(maxAge time.Duration) int {
	start := time.Now()
	cutoff := s.opts.Now().Add(-maxAge)

	s.mu.Lock()
	kept := s.order[:0]
	var expired []uuid.UUID
	for _, id := range s.order {
		if s.cached[id].Before(cutoff) {
			expired = append(expired, id)
			delete(s.docs, id)
			delete(s.cached, id)
			continue
		}
		kept = append(kept, id)
	}
	s.order = kept
	cached := len(s.docs)
	s.mu.Unlock()

	s.metrics.SetDocumentsCached(cached)
	if len(expired) > 0 {
		s.logger.Info("expired cached documents",
			"expired", len(expired),
			"cached", cached,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return len(expired)
}
