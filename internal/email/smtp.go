package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/skillora/skillora/internal/domain"
)

// SMTPService sends plain-text notification emails via SMTP.
//
// Works with Mailhog (no auth) in development and standard authenticated SMTP
// relays in production.
type SMTPService struct {
	config SMTPConfig
	logger *slog.Logger
}

// NewSMTPService creates an SMTP-based email service.
func NewSMTPService(config SMTPConfig, logger *slog.Logger) *SMTPService {
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}
	return &SMTPService{config: config, logger: logger}
}

// planTitle renders a tier as a display name, e.g. "Pro" or "Recruiter".
var planTitle = cases.Title(language.English)

// SendSubscriptionApprovedEmail tells a user their upgrade was approved.
func (s *SMTPService) SendSubscriptionApprovedEmail(ctx context.Context, to, name string, plan domain.Tier, endDate time.Time) error {
	planName := planTitle.String(string(plan))

	body := fmt.Sprintf(`Hi %s,

Good news! Your %s subscription request has been approved.

Your %s plan is active now and runs until %s. All plan features are unlocked immediately.

Thanks,
The Skillora Team
`, name, planName, planName, endDate.Format("January 2, 2006"))

	return s.send(ctx, Email{
		To:      to,
		Subject: fmt.Sprintf("Your %s subscription is active", planName),
		Body:    body,
	})
}

// SendSubscriptionRejectedEmail tells a user their upgrade was rejected.
func (s *SMTPService) SendSubscriptionRejectedEmail(ctx context.Context, to, name string, plan domain.Tier, note string) error {
	planName := planTitle.String(string(plan))

	reason := ""
	if note != "" {
		reason = fmt.Sprintf("\nReviewer note: %s\n", note)
	}

	body := fmt.Sprintf(`Hi %s,

Unfortunately we could not approve your %s subscription request.
%s
If you believe the payment proof was valid, you can submit a new request with a clearer proof of payment.

Thanks,
The Skillora Team
`, name, planName, reason)

	return s.send(ctx, Email{
		To:      to,
		Subject: fmt.Sprintf("Your %s subscription request was declined", planName),
		Body:    body,
	})
}

// send delivers an email via SMTP.
func (s *SMTPService) send(ctx context.Context, email Email) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	msg := s.buildMessage(email)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	// Mailhog takes no auth
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	if err := smtp.SendMail(addr, auth, s.config.From, []string{email.To}, msg); err != nil {
		s.logger.Error("failed to send email",
			"to", email.To,
			"subject", email.Subject,
			"error", err,
		)
		return fmt.Errorf("send email: %w", err)
	}

	s.logger.Info("email sent",
		"to", email.To,
		"subject", email.Subject,
	)

	return nil
}

// buildMessage constructs the raw message with headers.
func (s *SMTPService) buildMessage(email Email) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", s.config.FromName, s.config.From))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.Body)
	buf.WriteString("\r\n")

	return buf.Bytes()
}

var _ Service = (*SMTPService)(nil)
