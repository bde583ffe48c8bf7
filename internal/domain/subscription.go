// Package domain contains core business types and interfaces.
//
// This file defines the SubscriptionRequest entity and its status state
// machine. Requests are an append-only history: they are never deleted, only
// transitioned, and rejected/expired are terminal.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Request Status
// =============================================================================

// RequestStatus represents the lifecycle state of a subscription request.
type RequestStatus string

const (
	// RequestStatusPending indicates a payment claim awaiting admin review.
	// A user may hold at most one pending request at a time.
	RequestStatusPending RequestStatus = "pending"

	// RequestStatusApproved indicates an admin verified the payment and
	// assigned a validity window. The owning user's tier was upgraded in the
	// same transaction.
	RequestStatusApproved RequestStatus = "approved"

	// RequestStatusRejected indicates an admin declined the claim. Terminal.
	// Rejection never mutates the user's entitlement.
	RequestStatusRejected RequestStatus = "rejected"

	// RequestStatusExpired indicates the validity window elapsed and the
	// sweeper downgraded the user. Terminal.
	RequestStatusExpired RequestStatus = "expired"
)

// String returns the string representation of the status.
func (s RequestStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved,
		RequestStatusRejected, RequestStatusExpired:
		return true
	}
	return false
}

// IsTerminal returns true for states that no transition leaves.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusRejected || s == RequestStatusExpired
}

// CanTransitionTo checks if the request can move to the target status.
//
// Valid transitions:
//   - pending -> approved (admin verified payment)
//   - pending -> rejected (admin declined)
//   - approved -> expired (validity window elapsed, sweeper only)
//   - approved -> approved (admin date override re-grants/extends access)
func (s RequestStatus) CanTransitionTo(target RequestStatus) bool {
	switch s {
	case RequestStatusPending:
		return target == RequestStatusApproved || target == RequestStatusRejected
	case RequestStatusApproved:
		return target == RequestStatusExpired || target == RequestStatusApproved
	}
	return false
}

// =============================================================================
// Subscription Request
// =============================================================================

// SubscriptionRequest represents a user-submitted claim of payment, pending
// human verification.
type SubscriptionRequest struct {
	ID     uuid.UUID
	UserID uuid.UUID

	// Plan is the requested tier. Only paid tiers are ever requested.
	Plan Tier

	// Amount is the price snapshot taken at creation time. Immutable.
	Amount int

	// ProofKey is the storage key of the uploaded payment-proof screenshot.
	ProofKey string

	Status RequestStatus

	// StartDate and EndDate bound the validity window. Populated on approval.
	StartDate *time.Time
	EndDate   *time.Time

	// Review metadata, populated on approval or rejection.
	ReviewedBy *uuid.UUID
	ReviewedAt *time.Time
	AdminNote  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpiredAt returns true if the request is approved with a validity window
// that has elapsed as of now.
func (r *SubscriptionRequest) IsExpiredAt(now time.Time) bool {
	return r.Status == RequestStatusApproved && r.EndDate != nil && r.EndDate.Before(now)
}

// =============================================================================
// Workflow Parameters
// =============================================================================

// ApprovalParams carries everything the atomic approval dual-write needs:
// the request transition and the owning user's entitlement upgrade.
type ApprovalParams struct {
	RequestID  uuid.UUID
	UserID     uuid.UUID
	ReviewerID uuid.UUID
	Plan       Tier
	StartDate  time.Time
	EndDate    time.Time
	ReviewedAt time.Time
	Note       string
}

// RejectionParams carries the fields recorded on rejection. Rejection never
// touches the owning user's entitlement.
type RejectionParams struct {
	RequestID  uuid.UUID
	ReviewerID uuid.UUID
	ReviewedAt time.Time
	Note       string
}

// ExpiredSubscription identifies one approved request whose validity window
// has elapsed, as selected by the expiry sweeper.
type ExpiredSubscription struct {
	RequestID uuid.UUID
	UserID    uuid.UUID
}
