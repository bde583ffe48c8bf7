// Package repository implements persistent storage for users, subscription
// requests and analyses on PostgreSQL.
//
// All entitlement mutations are expressed as single conditional UPDATE
// statements or short transactions so that the service layer's atomicity
// guarantees hold under concurrent requests. SQL is hand-written against
// database/sql using the pgx stdlib driver.
package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicatePending is returned when inserting a subscription request for a
// user who already has one in pending state. Enforced by a partial unique
// index, so the check holds under concurrent creation.
var ErrDuplicatePending = errors.New("repository: user already has a pending subscription request")

// ErrEmailTaken is returned when inserting a user with an email that is
// already registered.
var ErrEmailTaken = errors.New("repository: email already registered")

// Repository provides access to all persistent storage operations.
type Repository struct {
	db *sql.DB
}

// New creates a Repository backed by the given database handle.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation, optionally on the named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.Code != "23505" {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
