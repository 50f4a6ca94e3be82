package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(expiry time.Duration) *JWTManager {
	return NewJWTManager(strings.Repeat("s", 32), expiry)
}

func TestSessionToken_RoundTrip(t *testing.T) {
	m := testManager(time.Hour)
	userID := uuid.New().String()

	token, err := m.GenerateSessionToken(userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), token.ExpiresIn)

	claims, err := m.ValidateSessionToken(token.Token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "nutcracker", claims.Issuer)
}

func TestSessionToken_Expired(t *testing.T) {
	m := testManager(-time.Minute)

	token, err := m.GenerateSessionToken(uuid.New().String())
	require.NoError(t, err)

	_, err = m.ValidateSessionToken(token.Token)
	assert.Error(t, err)
}

func TestSessionToken_WrongSecret(t *testing.T) {
	m := testManager(time.Hour)
	other := NewJWTManager(strings.Repeat("x", 32), time.Hour)

	token, err := m.GenerateSessionToken(uuid.New().String())
	require.NoError(t, err)

	_, err = other.ValidateSessionToken(token.Token)
	assert.Error(t, err)
}

func TestSessionToken_Garbage(t *testing.T) {
	m := testManager(time.Hour)
	_, err := m.ValidateSessionToken("not-a-jwt")
	assert.Error(t, err)
}
