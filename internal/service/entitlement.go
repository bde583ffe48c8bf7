// Package service contains the business logic layer.
//
// Services orchestrate interactions between the repository, external
// collaborators and domain logic. They are responsible for input validation,
// business rule enforcement, transaction coordination and error translation
// (database errors -> domain errors).
//
// This file implements the entitlement service: the usage ledger that owns
// every read and write of the monthly analysis counter, and the resolver that
// reports a user's effective {tier, quota, features}.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/metrics"
)

// =============================================================================
// Store Interface
// =============================================================================

// EntitlementStore defines the storage operations the entitlement service
// needs. Implemented by the repository; tests use an in-memory fake.
type EntitlementStore interface {
	// GetUserByID returns the user, or sql.ErrNoRows if absent.
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// ConsumeUsage atomically performs reset-or-increment of the monthly
	// counter under a finite quota. It must decide rollover, gate and
	// increment in a single conditional update so concurrent callers cannot
	// lose updates or double-reset. Returns the counter after the update, or
	// sql.ErrNoRows when the quota gate rejects (no mutation performed).
	ConsumeUsage(ctx context.Context, userID uuid.UUID, now time.Time, quota int) (int, error)

	// RecordUnlimitedUsage performs the same reset-or-increment with no
	// quota gate, for uncapped tiers.
	RecordUnlimitedUsage(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// EntitlementService resolves entitlements and consumes usage quota.
type EntitlementService interface {
	// ResolveEntitlement returns the user's effective tier, quota, feature
	// set and current-month usage. A counter whose reset anchor predates the
	// current month is reported as zero usage: the gate must never reject on
	// a stale, pre-rollover counter.
	ResolveEntitlement(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error)

	// TryConsume attempts to consume one unit of usage for a usage-bearing
	// action. An exhausted quota is a normal outcome (Allowed=false), not an
	// error.
	//
	// Guarantee: the whole reset-or-increment is one conditional atomic
	// update keyed on the stored reset date, so concurrent requests at the
	// month boundary cannot double-reset the counter or lose an increment.
	TryConsume(ctx context.Context, userID uuid.UUID) (*domain.ConsumeResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type entitlementService struct {
	store  EntitlementStore
	clock  Clock
	logger *slog.Logger
}

// NewEntitlementService creates a new EntitlementService.
func NewEntitlementService(store EntitlementStore, clock Clock, logger *slog.Logger) EntitlementService {
	return &entitlementService{
		store:  store,
		clock:  clock,
		logger: logger,
	}
}

// ResolveEntitlement returns the user's effective entitlement.
func (s *entitlementService) ResolveEntitlement(ctx context.Context, userID uuid.UUID) (*domain.Entitlement, error) {
	const op = "entitlement.resolve"

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to load user")
	}

	policy := domain.PolicyFor(user.Tier)

	used := user.AnalysesThisMonth
	if !sameMonth(user.AnalysesResetDate, s.clock.Now()) {
		// Rollover is pending; the stored counter belongs to a prior month.
		used = 0
	}

	remaining := domain.QuotaUnlimited
	if !policy.Unlimited() {
		remaining = policy.MonthlyQuota - used
		if remaining < 0 {
			remaining = 0
		}
	}

	return &domain.Entitlement{
		Tier:         user.Tier,
		MonthlyQuota: policy.MonthlyQuota,
		Features:     policy.Features,
		Used:         used,
		Remaining:    remaining,
	}, nil
}

// TryConsume attempts to consume one unit of usage.
func (s *entitlementService) TryConsume(ctx context.Context, userID uuid.UUID) (*domain.ConsumeResult, error) {
	const op = "entitlement.try_consume"

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to load user")
	}

	policy := domain.PolicyFor(user.Tier)
	now := s.clock.Now()

	if policy.Unlimited() {
		// Counter is kept for observability only; never gates.
		if _, err := s.store.RecordUnlimitedUsage(ctx, userID, now); err != nil {
			return nil, domain.Internal(err, op, "failed to record usage")
		}
		return &domain.ConsumeResult{Allowed: true, Remaining: domain.QuotaUnlimited}, nil
	}

	count, err := s.store.ConsumeUsage(ctx, userID, now, policy.MonthlyQuota)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// The user exists (loaded above), so the conditional update was
			// rejected by the quota gate.
			s.logger.Info("analysis quota exhausted",
				"user_id", userID,
				"tier", user.Tier,
				"quota", policy.MonthlyQuota,
			)
			metrics.QuotaDeniedTotal.Inc()
			return &domain.ConsumeResult{Allowed: false, Remaining: 0}, nil
		}
		return nil, domain.Internal(err, op, "failed to consume usage")
	}

	return &domain.ConsumeResult{
		Allowed:   true,
		Remaining: policy.MonthlyQuota - count,
	}, nil
}

// sameMonth reports whether two instants fall in the same calendar month,
// compared in UTC.
func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}
