package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPlainHasherIsExact(t *testing.T) {
	h, err := NewPasswordHasher("plain", 0)
	require.NoError(t, err)

	stored, err := h.Hash("Secret")
	require.NoError(t, err)
	assert.Equal(t, "Secret", stored)
	assert.True(t, h.Verify(stored, "Secret"))
	assert.False(t, h.Verify(stored, "secret"))
	assert.False(t, h.Verify(stored, "Secret "))
}

func TestBcryptHasher(t *testing.T) {
	h, err := NewPasswordHasher("bcrypt", bcrypt.MinCost)
	require.NoError(t, err)

	stored, err := h.Hash("admin")
	require.NoError(t, err)
	assert.NotEqual(t, "admin", stored)
	assert.True(t, h.Verify(stored, "admin"))
	assert.False(t, h.Verify(stored, "Admin"))
}

func TestUnknownHasher(t *testing.T) {
	_, err := NewPasswordHasher("md5", 0)
	assert.Error(t, err)
}
