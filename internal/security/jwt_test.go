package security

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestJWTManager_GenerateAndAuthenticate(t *testing.T) {
	m, err := NewJWTManager(testSecret, time.Hour, "gomarket-sync")
	require.NoError(t, err)

	token, err := m.Generate("user-1", "acc-1", []string{"seller"})
	require.NoError(t, err)

	id, err := m.Authenticate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, "acc-1", id.AccountID)
	assert.True(t, id.HasRole("seller"))
	assert.False(t, id.HasRole("admin"))
}

func TestJWTManager_Expired(t *testing.T) {
	m, err := NewJWTManager(testSecret, -time.Minute, "gomarket-sync")
	require.NoError(t, err)

	token, err := m.Generate("user-1", "acc-1", nil)
	require.NoError(t, err)

	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_RejectsForeignTokens(t *testing.T) {
	m, err := NewJWTManager(testSecret, time.Hour, "gomarket-sync")
	require.NoError(t, err)

	other, err := NewJWTManager([]byte("ffffffffffffffffffffffffffffffff"), time.Hour, "gomarket-sync")
	require.NoError(t, err)
	foreign, err := other.Generate("user-1", "acc-1", nil)
	require.NoError(t, err)
	_, err = m.Validate(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewJWTManager(testSecret, time.Hour, "someone-else")
	require.NoError(t, err)
	token, err := wrongIssuer.Generate("user-1", "acc-1", nil)
	require.NoError(t, err)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{AccountID: "acc-1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Validate(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Validate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewJWTManager_ShortSecret(t *testing.T) {
	_, err := NewJWTManager([]byte("short"), time.Hour, "x")
	assert.Error(t, err)
}
