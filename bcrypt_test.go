package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/edutrial/go-auth"
)

func TestBcryptHasher(t *testing.T) {
	hash, err := testHasher.HashPassword(testPassword)
	require.NoError(t, err)
	assert.NotEqual(t, testPassword, hash)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, 4, cost)

	require.NoError(t, testHasher.ComparePasswordAndHash(testPassword, hash))

	err = testHasher.ComparePasswordAndHash("wrong", hash)
	assert.True(t, auth.IsCode(err, auth.CodeInvalidCredentials))
}

func TestBcryptHasher_Errors(t *testing.T) {
	_, err := testHasher.HashPassword("")
	assert.True(t, auth.IsCode(err, auth.CodeValidationFailed))

	err = testHasher.ComparePasswordAndHash(testPassword, "not-a-hash")
	assert.True(t, auth.IsCode(err, auth.CodeInternal))
}

func TestNewBcryptHasher_OutOfRangeCost(t *testing.T) {
	h := auth.NewBcryptHasher(bcrypt.MaxCost + 1)
	assert.GreaterOrEqual(t, h.Cost, bcrypt.MinCost)
	assert.LessOrEqual(t, h.Cost, bcrypt.MaxCost)
}

func TestRandomPasswordHash(t *testing.T) {
	a := auth.RandomPasswordHash(testHasher)
	b := auth.RandomPasswordHash(testHasher)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
