package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillora/skillora/internal/domain"
)

var testJWTConfig = UserServiceConfig{
	JWTSecret: []byte("test-secret-do-not-use-in-production"),
	TokenTTL:  time.Hour,
}

func TestRegister(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, testJWTConfig, testLogger())

	user, err := svc.Register(context.Background(), domain.RegisterParams{
		Email:    "New.User@Example.COM",
		Password: "correct horse battery staple",
		Name:     "New User",
	})
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", user.Email, "email should be lowercased")
	assert.Equal(t, "New User", user.Name)
	assert.Equal(t, domain.TierGuest, user.Tier, "new accounts start at guest")
	assert.Empty(t, user.PasswordHash, "hash must never be returned")
}

func TestRegisterValidation(t *testing.T) {
	svc := NewUserService(newFakeStore(), testJWTConfig, testLogger())
	ctx := context.Background()

	tests := []struct {
		name   string
		params domain.RegisterParams
	}{
		{"invalid email", domain.RegisterParams{Email: "not-an-email", Password: "longenough", Name: "A"}},
		{"empty name", domain.RegisterParams{Email: "a@example.com", Password: "longenough", Name: "  "}},
		{"short password", domain.RegisterParams{Email: "a@example.com", Password: "short", Name: "A"}},
		{"over-long password", domain.RegisterParams{Email: "a@example.com", Password: string(make([]byte, 80)), Name: "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.params)
			require.Error(t, err)
			assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
		})
	}
}

func TestRegisterEmailTaken(t *testing.T) {
	svc := NewUserService(newFakeStore(), testJWTConfig, testLogger())
	ctx := context.Background()

	params := domain.RegisterParams{
		Email:    "dup@example.com",
		Password: "correct horse battery staple",
		Name:     "First",
	}
	_, err := svc.Register(ctx, params)
	require.NoError(t, err)

	_, err = svc.Register(ctx, params)
	require.Error(t, err)
	assert.Equal(t, domain.ECONFLICT, domain.ErrorCode(err))
}

func TestLoginAndVerifyToken(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, testJWTConfig, testLogger())
	ctx := context.Background()

	registered, err := svc.Register(ctx, domain.RegisterParams{
		Email:    "login@example.com",
		Password: "correct horse battery staple",
		Name:     "Login User",
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, "Login@Example.com", "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, result.User.ID)
	assert.Empty(t, result.User.PasswordHash)
	assert.NotEmpty(t, result.AccessToken)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)

	// The token round-trips to the same user ID.
	userID, err := svc.VerifyAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, userID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	store := newFakeStore()
	svc := NewUserService(store, testJWTConfig, testLogger())
	ctx := context.Background()

	_, err := svc.Register(ctx, domain.RegisterParams{
		Email:    "login@example.com",
		Password: "correct horse battery staple",
		Name:     "Login User",
	})
	require.NoError(t, err)

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, "login@example.com", "wrong password")
		require.Error(t, err)
		assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Login(ctx, "nobody@example.com", "whatever password")
		require.Error(t, err)
		assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
	})
}

func TestVerifyAccessTokenRejectsInvalidTokens(t *testing.T) {
	svc := NewUserService(newFakeStore(), testJWTConfig, testLogger())

	// Token signed with a different secret.
	store := newFakeStore()
	foreignSvc := NewUserService(store, UserServiceConfig{
		JWTSecret: []byte("a-completely-different-secret"),
		TokenTTL:  time.Hour,
	}, testLogger())
	ctx := context.Background()
	_, err := foreignSvc.Register(ctx, domain.RegisterParams{
		Email:    "foreign@example.com",
		Password: "correct horse battery staple",
		Name:     "Foreign",
	})
	require.NoError(t, err)
	foreign, err := foreignSvc.Login(ctx, "foreign@example.com", "correct horse battery staple")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"garbage token", "not.a.jwt"},
		{"wrong signing secret", foreign.AccessToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifyAccessToken(tt.token)
			require.Error(t, err)
			assert.Equal(t, domain.EUNAUTHORIZED, domain.ErrorCode(err))
		})
	}
}

func TestGetByID(t *testing.T) {
	store := newFakeStore()
	user := store.addUser(&domain.User{Email: "present@example.com"})
	svc := NewUserService(store, testJWTConfig, testLogger())
	ctx := context.Background()

	got, err := svc.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.GetByID(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}
