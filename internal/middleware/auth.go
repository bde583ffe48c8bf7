// Package middleware contains HTTP middleware for the Skillora API.
//
// Middleware functions follow the standard Go pattern of wrapping
// http.Handler and are composed with Stack.
package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/skillora/skillora/internal/auth"
	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/handler"
	"github.com/skillora/skillora/internal/service"
)

// AuthMiddleware authenticates requests with JWT bearer tokens.
type AuthMiddleware struct {
	userService service.UserService
	adminEmails map[string]bool
	logger      *slog.Logger
}

// NewAuthMiddleware creates an AuthMiddleware. adminEmails lists the accounts
// allowed through RequireAdmin.
func NewAuthMiddleware(userService service.UserService, adminEmails []string, logger *slog.Logger) *AuthMiddleware {
	admins := make(map[string]bool, len(adminEmails))
	for _, email := range adminEmails {
		email = strings.TrimSpace(strings.ToLower(email))
		if email != "" {
			admins[email] = true
		}
	}
	return &AuthMiddleware{
		userService: userService,
		adminEmails: admins,
		logger:      logger,
	}
}

// WithUser attempts to load the user from the Authorization header.
//
// The user is loaded fresh on every request so tier changes made by an admin
// or the sweeper take effect immediately, not at token refresh. Requests
// without a valid bearer token continue unauthenticated; RequireUser decides
// whether that is acceptable.
func (m *AuthMiddleware) WithUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		userID, err := m.userService.VerifyAccessToken(token)
		if err != nil {
			m.logger.Debug("rejected access token", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.userService.GetByID(r.Context(), userID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.SetUser(r.Context(), user)))
	})
}

// RequireUser rejects unauthenticated requests with 401.
//
// Must run after WithUser in the middleware chain.
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.GetUser(r.Context()) == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireTier rejects users below the given tier with 403. Unknown tiers
// never satisfy the check.
//
// Must run after RequireUser.
func (m *AuthMiddleware) RequireTier(min domain.Tier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := auth.GetUser(r.Context())
			if user == nil {
				handler.UnauthorizedResponse(w, r, m.logger)
				return
			}
			if !user.Tier.Meets(min) {
				err := domain.Forbidden("", "This feature requires the "+string(min)+" plan or higher")
				handler.ErrorResponse(w, r, m.logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin restricts access to the configured admin accounts.
//
// Must run after RequireUser.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := auth.GetUser(r.Context())
		if user == nil {
			handler.UnauthorizedResponse(w, r, m.logger)
			return
		}
		if !m.adminEmails[strings.ToLower(user.Email)] {
			m.logger.Warn("admin route denied", "user_id", user.ID, "path", r.URL.Path)
			err := domain.Forbidden("", "Admin access required")
			handler.ErrorResponse(w, r, m.logger, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// bearerToken extracts the token from an "Authorization: Bearer ..." header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// Stack composes middleware. The first middleware in the list is the
// outermost: it runs first on the request and last on the response.
func Stack(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
