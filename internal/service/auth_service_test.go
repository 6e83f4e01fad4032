package service

import (
	"context"
	"testing"
	"time"

	"storefront-service/internal/repository"
	"storefront-service/internal/repository/memory"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newAuthService(t *testing.T) (*AuthService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewAuthService(store.Users(), "test-secret", 15*24*time.Hour, zaptest.NewLogger(t)), store
}

func TestAuth_RegisterLoginAndValidate(t *testing.T) {
	auth, _ := newAuthService(t)
	ctx := context.Background()

	u, err := auth.Register(ctx, "ana", "Ana@Example.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	logged, err := auth.Login(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, logged.ID)

	token, err := auth.IssueToken(logged)
	require.NoError(t, err)

	who, err := auth.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, who.ID)
	assert.Equal(t, "ana", who.Username)
	assert.False(t, who.IsAdmin)
}

func TestAuth_RegisterDuplicateEmail(t *testing.T) {
	auth, _ := newAuthService(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, "ana", "ana@example.com", "x")
	require.NoError(t, err)

	_, err = auth.Register(ctx, "ana2", "ana@example.com", "y")
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	auth, _ := newAuthService(t)
	ctx := context.Background()
	_, err := auth.Register(ctx, "ana", "ana@example.com", "right")
	require.NoError(t, err)

	for _, tc := range []struct{ email, password string }{
		{"ana@example.com", "wrong"},
		{"nobody@example.com", "right"},
	} {
		_, err := auth.Login(ctx, tc.email, tc.password)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "invalid email or password.", verr.Message)
	}
}

func TestAuth_ValidateTokenRejects(t *testing.T) {
	auth, store := newAuthService(t)
	ctx := context.Background()
	u, err := auth.Register(ctx, "ana", "ana@example.com", "pw")
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.ValidateToken(ctx, "not.a.token")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("other secret", func(t *testing.T) {
		other := NewAuthService(store.Users(), "other-secret", time.Hour, nil)
		token, err := other.IssueToken(u)
		require.NoError(t, err)
		_, err = auth.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := auth.IssueToken(u)
		require.NoError(t, err)
		auth.now = func() time.Time { return time.Now().Add(16 * 24 * time.Hour) }
		defer func() { auth.now = time.Now }()
		_, err = auth.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("unsigned", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"userId": u.ID.Hex()}).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = auth.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("deleted user", func(t *testing.T) {
		token, err := auth.IssueToken(u)
		require.NoError(t, err)
		require.NoError(t, store.Users().Delete(ctx, u.ID))
		_, err = auth.ValidateToken(ctx, token)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestAuth_AdminFlagComesFromStore(t *testing.T) {
	auth, store := newAuthService(t)
	ctx := context.Background()
	u, err := auth.Register(ctx, "ana", "ana@example.com", "pw")
	require.NoError(t, err)
	token, err := auth.IssueToken(u)
	require.NoError(t, err)

	isAdmin := true
	_, err = store.Users().Update(ctx, u.ID, repository.UserUpdate{IsAdmin: &isAdmin})
	require.NoError(t, err)

	who, err := auth.ValidateToken(ctx, token)
	require.NoError(t, err)
	assert.True(t, who.IsAdmin)
}
