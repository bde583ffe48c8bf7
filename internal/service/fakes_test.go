package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/repository"
)

// fakeClock is a Clock pinned to a settable instant.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory stand-in for the repository. It mirrors the
// repository's contract: sql.ErrNoRows for missing rows and for quota-gate
// rejections, sentinel errors for unique violations, and check-and-set
// semantics (bool, no mutation on a stale precondition) for the review and
// expiry transitions.
type fakeStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*domain.User
	requests map[uuid.UUID]*domain.SubscriptionRequest
	analyses []*domain.Analysis

	// expireErrs injects a failure for specific requests in ExpireRequest.
	expireErrs map[uuid.UUID]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[uuid.UUID]*domain.User),
		requests:   make(map[uuid.UUID]*domain.SubscriptionRequest),
		expireErrs: make(map[uuid.UUID]error),
	}
}

// addUser seeds a user and returns it.
func (f *fakeStore) addUser(u *domain.User) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Tier == "" {
		u.Tier = domain.TierGuest
	}
	if u.SubscriptionStatus == "" {
		u.SubscriptionStatus = domain.SubscriptionStatusNone
	}
	f.users[u.ID] = u
	return u
}

// addRequest seeds a subscription request and returns it.
func (f *fakeStore) addRequest(r *domain.SubscriptionRequest) *domain.SubscriptionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = domain.RequestStatusPending
	}
	f.requests[r.ID] = r
	return r
}

// -----------------------------------------------------------------------------
// UserStore
// -----------------------------------------------------------------------------

func (f *fakeStore) CreateUser(ctx context.Context, email, passwordHash, name string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return nil, repository.ErrEmailTaken
		}
	}
	u := &domain.User{
		ID:                 uuid.New(),
		Email:              email,
		PasswordHash:       passwordHash,
		Name:               name,
		Tier:               domain.TierGuest,
		AnalysesResetDate:  time.Now().UTC(),
		SubscriptionStatus: domain.SubscriptionStatusNone,
		CreatedAt:          time.Now().UTC(),
		UpdatedAt:          time.Now().UTC(),
	}
	f.users[u.ID] = u
	return cloneUser(u), nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStore) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneUser(u), nil
}

// -----------------------------------------------------------------------------
// EntitlementStore
// -----------------------------------------------------------------------------

func (f *fakeStore) ConsumeUsage(ctx context.Context, userID uuid.UUID, now time.Time, quota int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	if !sameMonth(u.AnalysesResetDate, now) {
		u.AnalysesThisMonth = 1
		u.AnalysesResetDate = now
		return 1, nil
	}
	if u.AnalysesThisMonth >= quota {
		return 0, sql.ErrNoRows
	}
	u.AnalysesThisMonth++
	return u.AnalysesThisMonth, nil
}

func (f *fakeStore) RecordUnlimitedUsage(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return 0, sql.ErrNoRows
	}
	if !sameMonth(u.AnalysesResetDate, now) {
		u.AnalysesThisMonth = 1
		u.AnalysesResetDate = now
		return 1, nil
	}
	u.AnalysesThisMonth++
	return u.AnalysesThisMonth, nil
}

// -----------------------------------------------------------------------------
// SubscriptionStore
// -----------------------------------------------------------------------------

func (f *fakeStore) GetSubscriptionRequest(ctx context.Context, id uuid.UUID) (*domain.SubscriptionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneRequest(r), nil
}

func (f *fakeStore) HasPendingRequest(ctx context.Context, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.UserID == userID && r.Status == domain.RequestStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateSubscriptionRequest(ctx context.Context, userID uuid.UUID, plan domain.Tier, amount int, proofKey string) (*domain.SubscriptionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.UserID == userID && r.Status == domain.RequestStatusPending {
			return nil, repository.ErrDuplicatePending
		}
	}
	now := time.Now().UTC()
	r := &domain.SubscriptionRequest{
		ID:        uuid.New(),
		UserID:    userID,
		Plan:      plan,
		Amount:    amount,
		ProofKey:  proofKey,
		Status:    domain.RequestStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.requests[r.ID] = r
	return cloneRequest(r), nil
}

func (f *fakeStore) ApproveRequest(ctx context.Context, p domain.ApprovalParams) (bool, error) {
	return f.reviewTransition(p, func(s domain.RequestStatus) bool {
		return s == domain.RequestStatusPending
	})
}

func (f *fakeStore) SetRequestDates(ctx context.Context, p domain.ApprovalParams) (bool, error) {
	return f.reviewTransition(p, func(s domain.RequestStatus) bool {
		return s == domain.RequestStatusPending || s == domain.RequestStatusApproved
	})
}

func (f *fakeStore) reviewTransition(p domain.ApprovalParams, guard func(domain.RequestStatus) bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[p.RequestID]
	if !ok || !guard(r.Status) {
		return false, nil
	}
	u, ok := f.users[p.UserID]
	if !ok {
		return false, fmt.Errorf("fake: user %s not found", p.UserID)
	}

	start, end, reviewedAt := p.StartDate, p.EndDate, p.ReviewedAt
	r.Status = domain.RequestStatusApproved
	r.StartDate = &start
	r.EndDate = &end
	r.ReviewedBy = &p.ReviewerID
	r.ReviewedAt = &reviewedAt
	r.AdminNote = p.Note
	r.UpdatedAt = reviewedAt

	u.Tier = p.Plan
	u.SubscriptionStatus = domain.SubscriptionStatusActive
	u.SubscriptionEndDate = &end
	u.UpdatedAt = reviewedAt
	return true, nil
}

func (f *fakeStore) RejectRequest(ctx context.Context, p domain.RejectionParams) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[p.RequestID]
	if !ok || r.Status != domain.RequestStatusPending {
		return false, nil
	}
	reviewedAt := p.ReviewedAt
	r.Status = domain.RequestStatusRejected
	r.ReviewedBy = &p.ReviewerID
	r.ReviewedAt = &reviewedAt
	r.AdminNote = p.Note
	r.UpdatedAt = reviewedAt
	return true, nil
}

func (f *fakeStore) ListSubscriptionRequestsByUser(ctx context.Context, userID uuid.UUID) ([]*domain.SubscriptionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.SubscriptionRequest
	for _, r := range f.requests {
		if r.UserID == userID {
			out = append(out, cloneRequest(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) ListSubscriptionRequestsByStatus(ctx context.Context, status domain.RequestStatus) ([]*domain.SubscriptionRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.SubscriptionRequest
	for _, r := range f.requests {
		if r.Status == status {
			out = append(out, cloneRequest(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// -----------------------------------------------------------------------------
// SweepStore
// -----------------------------------------------------------------------------

func (f *fakeStore) ListExpiredRequests(ctx context.Context, now time.Time) ([]domain.ExpiredSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ExpiredSubscription
	for _, r := range f.requests {
		if r.IsExpiredAt(now) {
			out = append(out, domain.ExpiredSubscription{RequestID: r.ID, UserID: r.UserID})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].RequestID.String() < out[j].RequestID.String()
	})
	return out, nil
}

func (f *fakeStore) ExpireRequest(ctx context.Context, requestID, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.expireErrs[requestID]; err != nil {
		return false, err
	}
	r, ok := f.requests[requestID]
	if !ok || r.Status != domain.RequestStatusApproved {
		return false, nil
	}
	u, ok := f.users[userID]
	if !ok {
		return false, fmt.Errorf("fake: user %s not found", userID)
	}
	r.Status = domain.RequestStatusExpired
	u.Tier = domain.TierGuest
	u.SubscriptionStatus = domain.SubscriptionStatusCancelled
	u.SubscriptionEndDate = nil
	return true, nil
}

// -----------------------------------------------------------------------------
// AnalysisStore
// -----------------------------------------------------------------------------

func (f *fakeStore) CreateAnalysis(ctx context.Context, a *domain.Analysis) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	f.analyses = append(f.analyses, a)
	return nil
}

func (f *fakeStore) ListAnalysesByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Analysis
	for i := len(f.analyses) - 1; i >= 0 && len(out) < limit; i-- {
		if f.analyses[i].UserID == userID {
			out = append(out, f.analyses[i])
		}
	}
	return out, nil
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.SubscriptionEndDate != nil {
		d := *u.SubscriptionEndDate
		c.SubscriptionEndDate = &d
	}
	return &c
}

func cloneRequest(r *domain.SubscriptionRequest) *domain.SubscriptionRequest {
	c := *r
	if r.StartDate != nil {
		d := *r.StartDate
		c.StartDate = &d
	}
	if r.EndDate != nil {
		d := *r.EndDate
		c.EndDate = &d
	}
	if r.ReviewedBy != nil {
		d := *r.ReviewedBy
		c.ReviewedBy = &d
	}
	if r.ReviewedAt != nil {
		d := *r.ReviewedAt
		c.ReviewedAt = &d
	}
	return &c
}
