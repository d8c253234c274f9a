package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasher_HashAndCompare(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash([]byte("correct horse"))
	require.NoError(t, err)
	assert.NotEmpty(t, hash)
	assert.NoError(t, h.Compare(hash, []byte("correct horse")))
	assert.Error(t, h.Compare(hash, []byte("wrong horse")))
}

func TestNewHasher_ClampsCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewHasher(0).Cost)
	assert.Equal(t, bcrypt.MinCost, NewHasher(2).Cost)
	assert.Equal(t, bcrypt.MaxCost, NewHasher(40).Cost)
	assert.Equal(t, 12, NewHasher(12).Cost)
}
