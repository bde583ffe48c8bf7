package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillora/skillora/internal/domain"
)

const requestColumns = `id, user_id, plan, amount, proof_key, status,
	start_date, end_date, reviewed_by, reviewed_at, admin_note,
	created_at, updated_at`

// scanRequest scans one subscription request row.
func scanRequest(row interface{ Scan(...any) error }) (*domain.SubscriptionRequest, error) {
	var (
		req        domain.SubscriptionRequest
		plan       string
		status     string
		start, end sql.NullTime
		reviewedBy uuid.NullUUID
		reviewedAt sql.NullTime
		note       sql.NullString
	)
	err := row.Scan(&req.ID, &req.UserID, &plan, &req.Amount, &req.ProofKey,
		&status, &start, &end, &reviewedBy, &reviewedAt, &note,
		&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return nil, err
	}
	req.Plan = domain.Tier(plan)
	req.Status = domain.RequestStatus(status)
	if start.Valid {
		t := start.Time
		req.StartDate = &t
	}
	if end.Valid {
		t := end.Time
		req.EndDate = &t
	}
	if reviewedBy.Valid {
		id := reviewedBy.UUID
		req.ReviewedBy = &id
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		req.ReviewedAt = &t
	}
	req.AdminNote = note.String
	return &req, nil
}

// CreateSubscriptionRequest inserts a new pending request with a snapshotted
// amount. Returns ErrDuplicatePending if the user already has a pending
// request; the partial unique index makes this hold under concurrent inserts.
func (r *Repository) CreateSubscriptionRequest(ctx context.Context, userID uuid.UUID, plan domain.Tier, amount int, proofKey string) (*domain.SubscriptionRequest, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO subscription_requests (user_id, plan, amount, proof_key)
		VALUES ($1, $2, $3, $4)
		RETURNING `+requestColumns,
		userID, string(plan), amount, proofKey)
	req, err := scanRequest(row)
	if err != nil {
		if isUniqueViolation(err, "subscription_requests_one_pending_per_user") {
			return nil, ErrDuplicatePending
		}
		return nil, fmt.Errorf("create subscription request: %w", err)
	}
	return req, nil
}

// GetSubscriptionRequest returns the request with the given ID.
// Returns sql.ErrNoRows if no such request exists.
func (r *Repository) GetSubscriptionRequest(ctx context.Context, id uuid.UUID) (*domain.SubscriptionRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM subscription_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// HasPendingRequest reports whether the user currently has a pending request.
func (r *Repository) HasPendingRequest(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subscription_requests
			WHERE user_id = $1 AND status = 'pending'
		)`, userID).Scan(&exists)
	return exists, err
}

// ListSubscriptionRequestsByUser returns the user's request history, newest
// first.
func (r *Repository) ListSubscriptionRequestsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.SubscriptionRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM subscription_requests
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

// ListSubscriptionRequestsByStatus returns all requests in the given status,
// oldest first (review queue order).
func (r *Repository) ListSubscriptionRequestsByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.SubscriptionRequest, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+requestColumns+` FROM subscription_requests
		WHERE status = $1
		ORDER BY created_at ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRequests(rows)
}

func collectRequests(rows *sql.Rows) ([]*domain.SubscriptionRequest, error) {
	var reqs []*domain.SubscriptionRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// ApproveRequest performs the approval dual-write as one transaction:
// the request transition and the owning user's entitlement upgrade commit
// together or not at all.
//
// The request update is a check-and-set guarded by status = 'pending'; if a
// concurrent review already moved the request, no row matches, the
// transaction is rolled back and false is returned.
func (r *Repository) ApproveRequest(ctx context.Context, p domain.ApprovalParams) (bool, error) {
	return r.reviewTransition(ctx, p, `status = 'pending'`)
}

// SetRequestDates performs the administrative date override: the same atomic
// dual-write as ApproveRequest, but permitted while the request is pending or
// already approved. It forces the request into approved state, since the
// override is also used to manually grant or extend access.
func (r *Repository) SetRequestDates(ctx context.Context, p domain.ApprovalParams) (bool, error) {
	return r.reviewTransition(ctx, p, `status IN ('pending', 'approved')`)
}

func (r *Repository) reviewTransition(ctx context.Context, p domain.ApprovalParams, statusGuard string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE subscription_requests SET
			status = 'approved',
			start_date = $2,
			end_date = $3,
			reviewed_by = $4,
			reviewed_at = $5,
			admin_note = $6,
			updated_at = now()
		WHERE id = $1 AND `+statusGuard,
		p.RequestID, p.StartDate, p.EndDate, p.ReviewerID, p.ReviewedAt, p.Note)
	if err != nil {
		return false, fmt.Errorf("update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET
			tier = $2,
			subscription_status = 'active',
			subscription_end_date = $3,
			updated_at = now()
		WHERE id = $1`,
		p.UserID, string(p.Plan), p.EndDate)
	if err != nil {
		return false, fmt.Errorf("update user entitlement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit approve tx: %w", err)
	}
	return true, nil
}

// RejectRequest marks a pending request rejected. The owning user's
// entitlement is deliberately untouched. Check-and-set on status = 'pending';
// returns false if the request was already reviewed.
func (r *Repository) RejectRequest(ctx context.Context, p domain.RejectionParams) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscription_requests SET
			status = 'rejected',
			reviewed_by = $2,
			reviewed_at = $3,
			admin_note = $4,
			updated_at = now()
		WHERE id = $1 AND status = 'pending'`,
		p.RequestID, p.ReviewerID, p.ReviewedAt, p.Note)
	if err != nil {
		return false, fmt.Errorf("reject request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListExpiredRequests selects every approved request whose validity window
// has elapsed as of now. Already-expired records are naturally excluded by
// the status predicate, which is what makes the sweep idempotent.
func (r *Repository) ListExpiredRequests(ctx context.Context, now time.Time) ([]domain.ExpiredSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id FROM subscription_requests
		WHERE status = 'approved' AND end_date < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expired []domain.ExpiredSubscription
	for rows.Next() {
		var e domain.ExpiredSubscription
		if err := rows.Scan(&e.RequestID, &e.UserID); err != nil {
			return nil, err
		}
		expired = append(expired, e)
	}
	return expired, rows.Err()
}

// ExpireRequest transitions one approved request to expired and downgrades
// the owning user to guest, as a single transaction. Check-and-set on
// status = 'approved' so that re-running a sweep cannot re-expire a record;
// returns false when the request was already handled.
func (r *Repository) ExpireRequest(ctx context.Context, requestID, userID uuid.UUID) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin expire tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE subscription_requests SET
			status = 'expired',
			updated_at = now()
		WHERE id = $1 AND status = 'approved'`, requestID)
	if err != nil {
		return false, fmt.Errorf("update request: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET
			tier = 'guest',
			subscription_status = 'cancelled',
			subscription_end_date = NULL,
			updated_at = now()
		WHERE id = $1`, userID)
	if err != nil {
		return false, fmt.Errorf("downgrade user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit expire tx: %w", err)
	}
	return true, nil
}
