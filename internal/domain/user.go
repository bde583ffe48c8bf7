// Package domain contains core business types and interfaces.
//
// This file defines the User domain type, which carries the entitlement
// fields governed by the usage ledger, the subscription workflow and the
// expiry sweeper. No code outside those components may mutate Tier,
// AnalysesThisMonth, SubscriptionStatus or SubscriptionEndDate.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus mirrors whether a paid subscription is currently in force.
type SubscriptionStatus string

const (
	// SubscriptionStatusNone is the initial state; the user has never held
	// a paid subscription.
	SubscriptionStatusNone SubscriptionStatus = "none"

	// SubscriptionStatusActive indicates an approved subscription whose
	// validity window has not yet elapsed.
	SubscriptionStatusActive SubscriptionStatus = "active"

	// SubscriptionStatusCancelled indicates a previously active subscription
	// that has expired or been revoked.
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// User represents a registered user of the platform.
//
// This is the domain representation designed for use in business logic,
// decoupled from the database row shape.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string // Never expose this in API responses
	Name         string

	// Entitlement fields. Mutated only by the usage ledger, the
	// subscription workflow and the expiry sweeper.
	Tier                Tier
	AnalysesThisMonth   int
	AnalysesResetDate   time.Time
	SubscriptionStatus  SubscriptionStatus
	SubscriptionEndDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasActiveSubscription returns true if a paid subscription is in force.
func (u *User) HasActiveSubscription() bool {
	return u.SubscriptionStatus == SubscriptionStatusActive
}

// DisplayName returns the user's name, or email if name is empty.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// RegisterParams contains the validated parameters for user registration.
type RegisterParams struct {
	Email    string
	Password string // Raw password, hashed by the service
	Name     string
}

// LoginResult contains the result of a successful login.
type LoginResult struct {
	User        *User
	AccessToken string // Signed JWT bearer token
	ExpiresAt   time.Time
}
