package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	maker := NewMaker("test-secret", time.Hour)

	token, err := maker.GenerateToken("testuser", "premium", "uid-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, "premium", claims.Role)
	assert.Equal(t, "uid-1", claims.UserUID)
}

func TestParseToken_WrongSecret(t *testing.T) {
	maker := NewMaker("test-secret", time.Hour)
	other := NewMaker("other-secret", time.Hour)

	token, err := maker.GenerateToken("testuser", "free", "uid-1")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	maker := NewMaker("test-secret", -time.Minute)

	token, err := maker.GenerateToken("testuser", "free", "uid-1")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	assert.Error(t, err)
}

func TestParseToken_Garbage(t *testing.T) {
	maker := NewMaker("test-secret", time.Hour)

	_, err := maker.ParseToken("not-a-token")
	assert.Error(t, err)
}
