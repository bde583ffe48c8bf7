package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillora/skillora/internal/auth"
	"github.com/skillora/skillora/internal/domain"
)

// stubUserService accepts exactly one token and serves one user.
type stubUserService struct {
	user  *domain.User
	token string
}

func (s *stubUserService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubUserService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubUserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if s.user != nil && id == s.user.ID {
		return s.user, nil
	}
	return nil, domain.NotFound("user.get_by_id", "user", id.String())
}

func (s *stubUserService) VerifyAccessToken(token string) (uuid.UUID, error) {
	if s.user != nil && token == s.token {
		return s.user.ID, nil
	}
	return uuid.Nil, domain.Unauthorized("user.verify_token", "Invalid or expired access token")
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuthMiddleware(user *domain.User, token string, adminEmails []string) *AuthMiddleware {
	return NewAuthMiddleware(&stubUserService{user: user, token: token}, adminEmails, discardLogger())
}

// echoUser records whether the handler ran and which user it saw.
func echoUser(ran *bool, seen **domain.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*ran = true
		*seen = auth.GetUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantToken string
		wantOK    bool
	}{
		{"no header", "", "", false},
		{"standard bearer", "Bearer abc123", "abc123", true},
		{"case-insensitive scheme", "bearer abc123", "abc123", true},
		{"wrong scheme", "Basic abc123", "", false},
		{"missing token", "Bearer ", "", false},
		{"scheme only", "Bearer", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			token, ok := bearerToken(r)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantToken, token)
		})
	}
}

func TestWithUserAndRequireUser(t *testing.T) {
	user := &domain.User{ID: uuid.New(), Email: "user@example.com", Tier: domain.TierGuest}
	mw := newTestAuthMiddleware(user, "valid-token", nil)

	protected := func() (http.Handler, *bool, **domain.User) {
		ran := false
		var seen *domain.User
		h := Stack(mw.WithUser, mw.RequireUser)(echoUser(&ran, &seen))
		return h, &ran, &seen
	}

	t.Run("valid token reaches handler with user", func(t *testing.T) {
		h, ran, seen := protected()
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.Header.Set("Authorization", "Bearer valid-token")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, *ran)
		require.NotNil(t, *seen)
		assert.Equal(t, user.ID, (*seen).ID)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		h, ran, _ := protected()
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, *ran)
		assert.Contains(t, w.Body.String(), domain.EUNAUTHORIZED)
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		h, ran, _ := protected()
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.Header.Set("Authorization", "Bearer forged-token")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, *ran)
	})
}

func TestRequireTier(t *testing.T) {
	tests := []struct {
		name       string
		tier       domain.Tier
		required   domain.Tier
		wantStatus int
	}{
		{"guest denied recruiter route", domain.TierGuest, domain.TierRecruiter, http.StatusForbidden},
		{"pro denied recruiter route", domain.TierPro, domain.TierRecruiter, http.StatusForbidden},
		{"recruiter allowed", domain.TierRecruiter, domain.TierRecruiter, http.StatusOK},
		{"higher tier passes lower requirement", domain.TierRecruiter, domain.TierPro, http.StatusOK},
		{"unknown tier fails closed", domain.Tier("platinum"), domain.TierGuest, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &domain.User{ID: uuid.New(), Email: "user@example.com", Tier: tt.tier}
			mw := newTestAuthMiddleware(user, "valid-token", nil)

			ran := false
			var seen *domain.User
			h := Stack(mw.WithUser, mw.RequireUser, mw.RequireTier(tt.required))(echoUser(&ran, &seen))

			r := httptest.NewRequest(http.MethodPost, "/resumes/batch-analyze", nil)
			r.Header.Set("Authorization", "Bearer valid-token")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, ran)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	admins := []string{"Admin@Example.com"}

	tests := []struct {
		name       string
		email      string
		wantStatus int
	}{
		{"listed admin allowed", "admin@example.com", http.StatusOK},
		{"case-insensitive match", "ADMIN@example.COM", http.StatusOK},
		{"regular user denied", "user@example.com", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &domain.User{ID: uuid.New(), Email: tt.email, Tier: domain.TierGuest}
			mw := newTestAuthMiddleware(user, "valid-token", admins)

			ran := false
			var seen *domain.User
			h := Stack(mw.WithUser, mw.RequireUser, mw.RequireAdmin)(echoUser(&ran, &seen))

			r := httptest.NewRequest(http.MethodGet, "/admin/subscriptions", nil)
			r.Header.Set("Authorization", "Bearer valid-token")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestStackOrdering(t *testing.T) {
	var order []string
	tag := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Stack(tag("outer"), tag("middle"), tag("inner"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"outer", "middle", "inner", "handler"}, order)
}
