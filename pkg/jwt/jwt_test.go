package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_AccessTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	token, err := m.GenerateAccessToken(7, "renter@example.com", RoleRenter)
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, RoleRenter, claims.Role)
}

func TestManager_RejectsForeignSecret(t *testing.T) {
	token, err := NewManager("secret-a", time.Hour).GenerateAccessToken(1, "a@example.com", RoleLandlord)
	require.NoError(t, err)

	_, err = NewManager("secret-b", time.Hour).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestManager_RejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	m.expiry = -time.Minute

	token, err := m.GenerateAccessToken(1, "a@example.com", RoleAdmin)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}
