package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillora/skillora/internal/domain"
)

const userColumns = `id, email, password_hash, name, tier, analyses_this_month,
	analyses_reset_date, subscription_status, subscription_end_date,
	created_at, updated_at`

// scanUser scans one user row into a domain.User.
func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var (
		u       domain.User
		tier    string
		status  string
		endDate sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &tier,
		&u.AnalysesThisMonth, &u.AnalysesResetDate, &status, &endDate,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Tier = domain.Tier(tier)
	u.SubscriptionStatus = domain.SubscriptionStatus(status)
	if endDate.Valid {
		t := endDate.Time
		u.SubscriptionEndDate = &t
	}
	return &u, nil
}

// CreateUser inserts a new user at the guest tier with a fresh usage anchor.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash, name string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, password_hash, name)
		VALUES ($1, $2, $3)
		RETURNING `+userColumns,
		email, passwordHash, name)
	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err, "users_email_key") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUserByID returns the user with the given ID.
// Returns sql.ErrNoRows if no such user exists.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetUserByEmail returns the user with the given email.
// Returns sql.ErrNoRows if no such user exists.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// monthEq compares the calendar month of two timestamps in UTC inside SQL.
// Kept as a fragment so the consume statements stay readable.
const monthEq = `date_trunc('month', analyses_reset_date AT TIME ZONE 'UTC') =
	date_trunc('month', $2::timestamptz AT TIME ZONE 'UTC')`

// ConsumeUsage atomically performs the reset-or-increment of the monthly
// usage counter for a finite quota, as a single conditional UPDATE:
//
//   - if the stored reset anchor is in a prior month, the counter becomes 1
//     (the attempted action is the first use of the new period) and the
//     anchor advances to now;
//   - otherwise, if the counter is below quota, it is incremented in place;
//   - otherwise no row matches and sql.ErrNoRows is returned with no mutation.
//
// Because rollover and increment are decided inside one statement, concurrent
// requests at the month boundary cannot double-reset or lose an increment.
// Returns the counter value after the update.
func (r *Repository) ConsumeUsage(ctx context.Context, userID uuid.UUID, now time.Time, quota int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			analyses_this_month = CASE WHEN `+monthEq+`
				THEN analyses_this_month + 1 ELSE 1 END,
			analyses_reset_date = CASE WHEN `+monthEq+`
				THEN analyses_reset_date ELSE $2::timestamptz END,
			updated_at = now()
		WHERE id = $1
		  AND (NOT (`+monthEq+`) OR analyses_this_month < $3)
		RETURNING analyses_this_month`,
		userID, now, quota).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RecordUnlimitedUsage performs the same reset-or-increment without a quota
// gate. Used for uncapped tiers, where the counter is kept for observability
// only. Returns sql.ErrNoRows if the user does not exist.
func (r *Repository) RecordUnlimitedUsage(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			analyses_this_month = CASE WHEN `+monthEq+`
				THEN analyses_this_month + 1 ELSE 1 END,
			analyses_reset_date = CASE WHEN `+monthEq+`
				THEN analyses_reset_date ELSE $2::timestamptz END,
			updated_at = now()
		WHERE id = $1
		RETURNING analyses_this_month`,
		userID, now).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
