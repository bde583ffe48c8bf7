// Package service contains the business logic layer.
//
// This file implements user registration, login and bearer-token
// verification. Passwords are hashed with bcrypt; access tokens are signed
// JWTs whose subject is the user ID. The token carries identity only — tier
// and quota are always re-read from storage per request, so sweeper
// downgrades take effect immediately.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/skillora/skillora/internal/domain"
	"github.com/skillora/skillora/internal/repository"
)

const (
	// BcryptCost is the cost factor for bcrypt password hashing.
	BcryptCost = 12

	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	// MaxPasswordLength caps passwords well under bcrypt's 72-byte limit.
	MaxPasswordLength = 72

	// DefaultTokenTTL is the access token lifetime when none is configured.
	DefaultTokenTTL = 24 * time.Hour

	tokenIssuer = "skillora"
)

// =============================================================================
// Store Interface
// =============================================================================

// UserStore defines the storage operations the user service needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, passwordHash, name string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// =============================================================================
// Interface Definition
// =============================================================================

// UserService manages accounts and access tokens.
type UserService interface {
	// Register creates a new user account at the guest tier.
	// Returns domain.ECONFLICT if the email is already registered.
	Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error)

	// Login authenticates a user and issues a signed access token.
	// Returns domain.EUNAUTHORIZED for invalid credentials.
	Login(ctx context.Context, email, password string) (*domain.LoginResult, error)

	// GetByID retrieves a user by ID.
	// Returns domain.ENOTFOUND if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// VerifyAccessToken validates a bearer token and returns the user ID it
	// identifies. Returns domain.EUNAUTHORIZED for any invalid token.
	VerifyAccessToken(token string) (uuid.UUID, error)
}

// UserServiceConfig configures token signing.
type UserServiceConfig struct {
	JWTSecret []byte
	TokenTTL  time.Duration
}

// =============================================================================
// Implementation
// =============================================================================

type userService struct {
	store  UserStore
	cfg    UserServiceConfig
	logger *slog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(store UserStore, cfg UserServiceConfig, logger *slog.Logger) UserService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	return &userService{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// Register creates a new guest-tier account.
func (s *userService) Register(ctx context.Context, params domain.RegisterParams) (*domain.User, error) {
	const op = "user.register"

	email := strings.ToLower(strings.TrimSpace(params.Email))
	name := strings.TrimSpace(params.Name)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.Invalid(op, "Invalid email address")
	}
	if name == "" {
		return nil, domain.Invalid(op, "Name is required")
	}
	if len(params.Password) < MinPasswordLength {
		return nil, domain.Invalid(op, "Password must be at least 8 characters")
	}
	if len(params.Password) > MaxPasswordLength {
		return nil, domain.Invalid(op, "Password is too long")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), BcryptCost)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to hash password")
	}

	user, err := s.store.CreateUser(ctx, email, string(hash), name)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, domain.Conflict(op, "Email already registered")
		}
		return nil, domain.Internal(err, op, "Failed to create user")
	}

	user.PasswordHash = ""
	s.logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	return user, nil
}

// Login authenticates and issues an access token.
func (s *userService) Login(ctx context.Context, email, password string) (*domain.LoginResult, error) {
	const op = "user.login"

	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a bcrypt comparison so response timing does not reveal
			// whether the email exists.
			_ = bcrypt.CompareHashAndPassword(
				[]byte("$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"),
				[]byte(password))
			return nil, domain.Unauthorized(op, "Invalid email or password")
		}
		return nil, domain.Internal(err, op, "Failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized(op, "Invalid email or password")
	}

	expiresAt := time.Now().Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.JWTSecret)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to sign access token")
	}

	user.PasswordHash = ""
	s.logger.Info("user logged in", "user_id", user.ID)
	return &domain.LoginResult{
		User:        user,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

// GetByID retrieves a user by ID.
func (s *userService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "user.get_by_id"
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", id.String())
		}
		return nil, domain.Internal(err, op, "Failed to load user")
	}
	return user, nil
}

// VerifyAccessToken validates a bearer token and extracts the user ID.
func (s *userService) VerifyAccessToken(token string) (uuid.UUID, error) {
	const op = "user.verify_token"

	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.cfg.JWTSecret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, domain.Unauthorized(op, "Invalid or expired access token")
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return uuid.Nil, domain.Unauthorized(op, "Invalid access token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, domain.Unauthorized(op, "Invalid access token")
	}
	return userID, nil
}
