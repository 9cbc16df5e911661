package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthenticateAndVerify(t *testing.T) {
	hash, err := HashSecret("scanner-secret")
	require.NoError(t, err)

	svc := NewService("jwt-signing-key", hash, time.Hour)

	token, expiresAt, err := svc.Authenticate("kodi", "scanner-secret")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "kodi", claims.Client)
}

func TestAuthenticateRejectsBadSecret(t *testing.T) {
	hash, err := HashSecret("scanner-secret")
	require.NoError(t, err)
	svc := NewService("jwt-signing-key", hash, time.Hour)

	_, _, err = svc.Authenticate("kodi", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Authenticate("", "scanner-secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateDisabledWithoutHash(t *testing.T) {
	svc := NewService("jwt-signing-key", "", time.Hour)
	_, _, err := svc.Authenticate("kodi", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	hash, err := HashSecret("scanner-secret")
	require.NoError(t, err)

	svc := NewService("jwt-signing-key", hash, time.Hour)
	token, _, err := svc.Authenticate("kodi", "scanner-secret")
	require.NoError(t, err)

	other := NewService("different-key", hash, time.Hour)
	_, err = other.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.VerifyToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyTokenExpired(t *testing.T) {
	hash, err := HashSecret("scanner-secret")
	require.NoError(t, err)

	svc := NewService("jwt-signing-key", hash, time.Hour)
	svc.tokenTTL = -time.Minute
	token, _, err := svc.Authenticate("kodi", "scanner-secret")
	require.NoError(t, err)

	_, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}
