// Package email sends transactional notifications for subscription review
// decisions.
//
// The Service interface has an SMTP implementation that works with Mailhog in
// development and any authenticated SMTP relay in production.
package email

import (
	"context"
	"time"

	"github.com/skillora/skillora/internal/domain"
)

// Service sends subscription lifecycle notifications. All methods are
// context-aware for timeout and cancellation support.
type Service interface {
	// SendSubscriptionApprovedEmail tells a user their upgrade request was
	// approved and when the subscription ends.
	SendSubscriptionApprovedEmail(ctx context.Context, to, name string, plan domain.Tier, endDate time.Time) error

	// SendSubscriptionRejectedEmail tells a user their upgrade request was
	// rejected, including the reviewer's note when one was left.
	SendSubscriptionRejectedEmail(ctx context.Context, to, name string, plan domain.Tier, note string) error
}

// Email represents a single outbound message.
type Email struct {
	To      string
	Subject string
	Body    string // Plain text content
}

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname ("localhost" for Mailhog)
	Port     int    // SMTP server port (1025 for Mailhog)
	Username string // Auth username (empty for Mailhog)
	Password string // Auth password (empty for Mailhog)
	From     string // Sender email address
	FromName string // Sender display name
}

const (
	// DefaultFromEmail is the default sender for transactional emails.
	DefaultFromEmail = "noreply@skillora.app"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Skillora"
)
