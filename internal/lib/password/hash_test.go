package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHashAndCompare(t *testing.T) {
	hash, err := GetHash("correct-horse-battery")
	require.NoError(t, err)
	require.NotEqual(t, "correct-horse-battery", hash)

	assert.NoError(t, CompareHash(hash, "correct-horse-battery"))
	assert.Error(t, CompareHash(hash, "wrong-password"))
}

func TestGetHash_Unique(t *testing.T) {
	first, err := GetHash("same-password")
	require.NoError(t, err)
	second, err := GetHash("same-password")
	require.NoError(t, err)

	// bcrypt солит каждый хеш, значения не должны совпадать
	assert.NotEqual(t, first, second)
}
