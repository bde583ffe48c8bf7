// Package service contains the business logic layer.
//
// This file implements the subscription request workflow: a user submits a
// payment claim, an admin approves (assigning a validity window and upgrading
// the user's tier) or rejects it. Every state transition is a check-and-set
// in storage, and approval commits the request transition and the entitlement
// upgrade as one atomic unit.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/email"
	"github.com/skillora/skillora/internal/metrics"
	"github.com/skillora/skillora/internal/repository"
)

// =============================================================================
// Store Interface
// =============================================================================

// SubscriptionStore defines the storage operations the subscription workflow
// needs. The Approve/SetDates/Reject methods are check-and-set: they return
// false, without mutating anything, when the request is no longer in a state
// the transition is valid from.
type SubscriptionStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetSubscriptionRequest(ctx context.Context, id uuid.UUID) (*domain.SubscriptionRequest, error)
	HasPendingRequest(ctx context.Context, userID uuid.UUID) (bool, error)
	CreateSubscriptionRequest(ctx context.Context, userID uuid.UUID, plan domain.Tier, amount int, proofKey string) (*domain.SubscriptionRequest, error)
	ApproveRequest(ctx context.Context, p domain.ApprovalParams) (bool, error)
	SetRequestDates(ctx context.Context, p domain.ApprovalParams) (bool, error)
	RejectRequest(ctx context.Context, p domain.RejectionParams) (bool, error)
	ListSubscriptionRequestsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.SubscriptionRequest, error)
	ListSubscriptionRequestsByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.SubscriptionRequest, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// SubscriptionService manages the lifecycle of subscription requests.
type SubscriptionService interface {
	// CreateRequest records a payment claim in pending state with a
	// snapshotted amount.
	// Returns domain.EINVALID if the plan is not purchasable.
	// Returns domain.ECONFLICT if the user already has a pending request.
	CreateRequest(ctx context.Context, userID uuid.UUID, plan domain.Tier, amount int, proofKey string) (*domain.SubscriptionRequest, error)

	// Approve verifies a pending request: sets the validity window and
	// reviewer, and upgrades the owning user's tier, atomically.
	// Returns domain.ENOTFOUND if the request does not exist.
	// Returns domain.ECONFLICT if the request is not pending (including when
	// a concurrent review won the race).
	// Returns domain.EINVALID if endDate <= startDate.
	Approve(ctx context.Context, requestID, reviewerID uuid.UUID, startDate, endDate time.Time, note string) (*domain.SubscriptionRequest, error)

	// Reject declines a pending request. The user's entitlement is never
	// touched by rejection. Error semantics match Approve.
	Reject(ctx context.Context, requestID, reviewerID uuid.UUID, note string) (*domain.SubscriptionRequest, error)

	// SetDates is the administrative override to correct or extend a
	// request's validity window. It is permitted while the request is
	// pending or approved, and forces the request into approved state with
	// the same atomic dual-write as Approve, since it is also used to
	// manually grant access.
	SetDates(ctx context.Context, requestID, reviewerID uuid.UUID, startDate, endDate time.Time, note string) (*domain.SubscriptionRequest, error)

	// ListForUser returns the user's request history, newest first.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.SubscriptionRequest, error)

	// ListByStatus returns the admin review queue for a status, oldest first.
	ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.SubscriptionRequest, error)
}

// =============================================================================
// Implementation
// =============================================================================

type subscriptionService struct {
	store  SubscriptionStore
	clock  Clock
	email  email.Service // may be nil; notifications are best-effort
	logger *slog.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
// emailService may be nil to disable review notifications.
func NewSubscriptionService(store SubscriptionStore, clock Clock, emailService email.Service, logger *slog.Logger) SubscriptionService {
	return &subscriptionService{
		store:  store,
		clock:  clock,
		email:  emailService,
		logger: logger,
	}
}

// CreateRequest records a new payment claim.
func (s *subscriptionService) CreateRequest(ctx context.Context, userID uuid.UUID, plan domain.Tier, amount int, proofKey string) (*domain.SubscriptionRequest, error) {
	const op = "subscription.create_request"

	if !plan.IsPaid() {
		return nil, domain.Invalid(op, fmt.Sprintf("plan must be %s or %s", domain.TierPro, domain.TierRecruiter))
	}
	if amount <= 0 {
		return nil, domain.Invalid(op, "amount must be positive")
	}

	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to load user")
	}

	// A user may hold at most one pending request. A renewal while a
	// previous request is approved is allowed. The unique index backs this
	// check up under concurrent creation.
	pending, err := s.store.HasPendingRequest(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to check pending requests")
	}
	if pending {
		return nil, domain.Conflict(op, "A subscription request is already awaiting review")
	}

	req, err := s.store.CreateSubscriptionRequest(ctx, userID, plan, amount, proofKey)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return nil, domain.Conflict(op, "A subscription request is already awaiting review")
		}
		return nil, domain.Internal(err, op, "failed to create subscription request")
	}

	metrics.SubscriptionRequestsTotal.Inc()
	s.logger.Info("subscription request created",
		"request_id", req.ID,
		"user_id", userID,
		"plan", plan,
		"amount", amount,
	)
	return req, nil
}

// Approve verifies a pending request and upgrades the user atomically.
func (s *subscriptionService) Approve(ctx context.Context, requestID, reviewerID uuid.UUID, startDate, endDate time.Time, note string) (*domain.SubscriptionRequest, error) {
	const op = "subscription.approve"

	req, err := s.loadRequest(ctx, op, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestStatusPending {
		return nil, domain.Conflict(op, fmt.Sprintf("request is %s; only pending requests can be approved", req.Status))
	}
	if err := validateWindow(op, startDate, endDate); err != nil {
		return nil, err
	}

	ok, err := s.store.ApproveRequest(ctx, domain.ApprovalParams{
		RequestID:  req.ID,
		UserID:     req.UserID,
		ReviewerID: reviewerID,
		Plan:       req.Plan,
		StartDate:  startDate,
		EndDate:    endDate,
		ReviewedAt: s.clock.Now(),
		Note:       note,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to approve request")
	}
	if !ok {
		// A concurrent review committed first.
		return nil, domain.Conflict(op, "request is no longer pending")
	}

	metrics.SubscriptionDecisionsTotal.WithLabelValues("approved").Inc()
	s.logger.Info("subscription request approved",
		"request_id", req.ID,
		"user_id", req.UserID,
		"plan", req.Plan,
		"reviewer_id", reviewerID,
		"end_date", endDate,
	)
	s.notifyDecision(ctx, req, domain.RequestStatusApproved, endDate, note)

	return s.loadRequest(ctx, op, requestID)
}

// Reject declines a pending request without touching entitlement.
func (s *subscriptionService) Reject(ctx context.Context, requestID, reviewerID uuid.UUID, note string) (*domain.SubscriptionRequest, error) {
	const op = "subscription.reject"

	req, err := s.loadRequest(ctx, op, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestStatusPending {
		return nil, domain.Conflict(op, fmt.Sprintf("request is %s; only pending requests can be rejected", req.Status))
	}

	ok, err := s.store.RejectRequest(ctx, domain.RejectionParams{
		RequestID:  req.ID,
		ReviewerID: reviewerID,
		ReviewedAt: s.clock.Now(),
		Note:       note,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to reject request")
	}
	if !ok {
		return nil, domain.Conflict(op, "request is no longer pending")
	}

	metrics.SubscriptionDecisionsTotal.WithLabelValues("rejected").Inc()
	s.logger.Info("subscription request rejected",
		"request_id", req.ID,
		"user_id", req.UserID,
		"reviewer_id", reviewerID,
	)
	s.notifyDecision(ctx, req, domain.RequestStatusRejected, time.Time{}, note)

	return s.loadRequest(ctx, op, requestID)
}

// SetDates corrects or extends a request's validity window.
func (s *subscriptionService) SetDates(ctx context.Context, requestID, reviewerID uuid.UUID, startDate, endDate time.Time, note string) (*domain.SubscriptionRequest, error) {
	const op = "subscription.set_dates"

	req, err := s.loadRequest(ctx, op, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, domain.Conflict(op, fmt.Sprintf("cannot modify a %s request", req.Status))
	}
	if err := validateWindow(op, startDate, endDate); err != nil {
		return nil, err
	}

	ok, err := s.store.SetRequestDates(ctx, domain.ApprovalParams{
		RequestID:  req.ID,
		UserID:     req.UserID,
		ReviewerID: reviewerID,
		Plan:       req.Plan,
		StartDate:  startDate,
		EndDate:    endDate,
		ReviewedAt: s.clock.Now(),
		Note:       note,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to set request dates")
	}
	if !ok {
		return nil, domain.Conflict(op, "request state changed during update")
	}

	s.logger.Info("subscription dates overridden",
		"request_id", req.ID,
		"user_id", req.UserID,
		"reviewer_id", reviewerID,
		"start_date", startDate,
		"end_date", endDate,
	)

	return s.loadRequest(ctx, op, requestID)
}

// ListForUser returns the user's request history.
func (s *subscriptionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.SubscriptionRequest, error) {
	const op = "subscription.list_for_user"
	reqs, err := s.store.ListSubscriptionRequestsByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list subscription requests")
	}
	return reqs, nil
}

// ListByStatus returns the admin review queue.
func (s *subscriptionService) ListByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.SubscriptionRequest, error) {
	const op = "subscription.list_by_status"
	if !status.IsValid() {
		return nil, domain.Invalid(op, fmt.Sprintf("unknown status %q", status))
	}
	reqs, err := s.store.ListSubscriptionRequestsByStatus(ctx, status)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list subscription requests")
	}
	return reqs, nil
}

// loadRequest fetches a request, translating storage errors.
func (s *subscriptionService) loadRequest(ctx context.Context, op string, id uuid.UUID) (*domain.SubscriptionRequest, error) {
	req, err := s.store.GetSubscriptionRequest(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "subscription request", id.String())
		}
		return nil, domain.Internal(err, op, "failed to load subscription request")
	}
	return req, nil
}

// validateWindow enforces endDate > startDate.
func validateWindow(op string, start, end time.Time) error {
	if !end.After(start) {
		return domain.Invalid(op, "end date must be after start date")
	}
	return nil
}

// notifyDecision emails the requesting user about a review decision.
// Failures are logged and never fail the review itself.
func (s *subscriptionService) notifyDecision(ctx context.Context, req *domain.SubscriptionRequest, decision domain.RequestStatus, endDate time.Time, note string) {
	if s.email == nil {
		return
	}
	user, err := s.store.GetUserByID(ctx, req.UserID)
	if err != nil {
		s.logger.Warn("failed to load user for notification", "user_id", req.UserID, "error", err)
		return
	}

	switch decision {
	case domain.RequestStatusApproved:
		err = s.email.SendSubscriptionApprovedEmail(ctx, user.Email, user.DisplayName(), req.Plan, endDate)
	case domain.RequestStatusRejected:
		err = s.email.SendSubscriptionRejectedEmail(ctx, user.Email, user.DisplayName(), req.Plan, note)
	}
	if err != nil {
		s.logger.Warn("failed to send review notification",
			"request_id", req.ID,
			"decision", decision,
			"error", err,
		)
	}
}
