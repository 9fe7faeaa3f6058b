package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestIssueAndVerify(t *testing.T) {
	a := New(Options{Secret: secret})

	token, err := a.Issue(Identity{UserID: "user1", Name: "Alice"}, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	id, err := a.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user1", Name: "Alice"}, id)
}

func TestVerifyProviderMetadataName(t *testing.T) {
	a := New(Options{Secret: secret})

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":           "user-42",
		"exp":           time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]any{"name": "Bob"},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	id, err := a.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-42", id.UserID)
	assert.Equal(t, "Bob", id.Name)
}

func TestVerifyInvalid(t *testing.T) {
	a := New(Options{Secret: secret})

	_, err := a.Verify("")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Contains(t, err.Error(), "empty token")

	_, err = a.Verify("invalid-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongKey, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user1",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("wrong-key"))
	_, err = a.Verify(wrongKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, _ := a.Issue(Identity{UserID: "user1"}, -time.Minute)
	_, err = a.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSubject, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	_, err = a.Verify(noSubject)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyWithoutSecret(t *testing.T) {
	a := New(Options{})
	_, err := a.Verify("something")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Issue(Identity{UserID: "u"}, time.Hour)
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	a := New(Options{Secret: secret, AllowTrustedHeader: true})
	token, err := a.Issue(Identity{UserID: "from-token"}, time.Hour)
	require.NoError(t, err)

	t.Run("bearer token wins over header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		r.Header.Set(DefaultUserHeader, "from-header")

		id, err := a.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, "from-token", id.UserID)
	})

	t.Run("trusted header", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(DefaultUserHeader, "from-header")
		r.Header.Set(DefaultNameHeader, "Carol")

		id, err := a.Authenticate(r)
		require.NoError(t, err)
		assert.Equal(t, Identity{UserID: "from-header", Name: "Carol"}, id)
	})

	t.Run("bad authorization format", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Basic abc")

		_, err := a.Authenticate(r)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no credentials", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := a.Authenticate(r)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})

	t.Run("header disabled", func(t *testing.T) {
		strict := New(Options{Secret: secret})
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(DefaultUserHeader, "from-header")

		_, err := strict.Authenticate(r)
		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: "user1"})
	id, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "user1", id.UserID)

	_, ok = FromContext(WithIdentity(context.Background(), Identity{}))
	assert.False(t, ok)
}
