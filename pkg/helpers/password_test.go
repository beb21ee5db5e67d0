package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCredentialStore_SetAndVerify(t *testing.T) {
	store := NewCredentialStore(bcrypt.MinCost)

	hash, err := store.SetSecret("Str0ng!pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!pass", hash)
	assert.NotContains(t, hash, "Str0ng!pass")

	assert.True(t, store.VerifySecret("Str0ng!pass", hash))
	assert.False(t, store.VerifySecret("Str0ng!pasS", hash))
}

func TestCredentialStore_HashesAreSalted(t *testing.T) {
	store := NewCredentialStore(bcrypt.MinCost)
	a, err := store.SetSecret("same-secret")
	require.NoError(t, err)
	b, err := store.SetSecret("same-secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCredentialStore_MalformedHashIsMismatch(t *testing.T) {
	store := NewCredentialStore(bcrypt.MinCost)
	assert.NotPanics(t, func() {
		assert.False(t, store.VerifySecret("anything", ""))
		assert.False(t, store.VerifySecret("anything", "not-a-bcrypt-hash"))
		assert.False(t, store.VerifySecret("anything", "$2a$04$short"))
	})
}

func TestCredentialStore_InvalidCostFallsBackToDefault(t *testing.T) {
	store := NewCredentialStore(99)
	assert.Equal(t, bcrypt.DefaultCost, store.cost)
	assert.NotPanics(t, func() { store.VerifyDummy("x") })
}
