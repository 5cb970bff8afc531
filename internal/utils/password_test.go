package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	hash, err := h.Hash("12345678")
	require.NoError(t, err)

	assert.NotEqual(t, "12345678", hash)
	assert.True(t, h.Verify(hash, "12345678"))
	assert.False(t, h.Verify(hash, "87654321"))
}

func TestPasswordHasher_FreshSaltPerCall(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify(a, "same"))
	assert.True(t, h.Verify(b, "same"))
}

func TestPasswordHasher_MalformedHashFailsClosed(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		assert.False(t, h.Verify("not-a-bcrypt-hash", "whatever"))
		assert.False(t, h.Verify("", ""))
	})
}

func TestNewPasswordHasher_Cost(t *testing.T) {
	h, err := NewPasswordHasher(0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.Cost())

	_, err = NewPasswordHasher(bcrypt.MaxCost + 1)
	assert.Error(t, err)

	_, err = NewPasswordHasher(1)
	assert.Error(t, err)
}
