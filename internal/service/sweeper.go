// Package service contains the business logic layer.
//
// This file implements the expiry sweeper: a recurring job that finds
// approved subscriptions whose validity window has elapsed and downgrades the
// affected users. Sweeping proactively (rather than lazily at request time)
// keeps a user's effective tier correct even if they make no requests near
// the expiry boundary, and means feature gating never has to special-case
// "approved but actually expired".
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/metrics"
)

// =============================================================================
// Store Interface
// =============================================================================

// SweepStore defines the storage operations the sweeper needs.
type SweepStore interface {
	// ListExpiredRequests selects approved requests with endDate < now.
	ListExpiredRequests(ctx context.Context, now time.Time) ([]domain.ExpiredSubscription, error)

	// ExpireRequest atomically transitions one request to expired and
	// downgrades the owning user to guest. Check-and-set on the approved
	// status: returns false if the record was already handled.
	ExpireRequest(ctx context.Context, requestID, userID uuid.UUID) (bool, error)
}

// =============================================================================
// Sweeper
// =============================================================================

// Sweeper downgrades users whose paid period has elapsed.
type Sweeper struct {
	store    SweepStore
	clock    Clock
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper. interval governs the Start loop; RunOnce can
// always be invoked directly (tests, admin trigger).
func NewSweeper(store SweepStore, clock Clock, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		store:    store,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the sweep immediately and then on every tick until ctx is
// cancelled. Intended to be run in its own goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("expiry sweeper started", "interval", s.interval)

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				// Systemic failure is fatal to this run only; the next
				// scheduled tick retries.
				s.logger.Error("expiry sweep failed", "error", err)
			}
		}
	}
}

// RunOnce executes a single sweep and returns the number of subscriptions
// expired. Each record's transition is its own atomic unit: one failing
// record is logged and skipped, never aborting the batch. Re-running with no
// intervening state change is a no-op, because the selection predicate only
// matches records still in approved state.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	now := s.clock.Now()
	metrics.SweepRunsTotal.Inc()

	expired, err := s.store.ListExpiredRequests(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	s.logger.Info("found expired subscriptions", "count", len(expired))

	var done int
	for _, e := range expired {
		ok, err := s.store.ExpireRequest(ctx, e.RequestID, e.UserID)
		if err != nil {
			s.logger.Error("failed to expire subscription",
				"request_id", e.RequestID,
				"user_id", e.UserID,
				"error", err,
			)
			continue
		}
		if !ok {
			// Already handled by a concurrent or earlier sweep.
			continue
		}
		done++
		s.logger.Info("subscription expired, user downgraded",
			"request_id", e.RequestID,
			"user_id", e.UserID,
		)
	}

	metrics.SweepExpiredTotal.Add(float64(done))
	return done, nil
}
