package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/edutrial/go-auth"
)

func TestMultiTokenValidator_KeyRotation(t *testing.T) {
	c := newClock()
	previous := auth.NewTokenService([]byte("previous-signing-key-0123456789ab"), time.Hour, "edutrial", nil).WithClock(c.Now)
	current := newTokenService(c)

	oldToken, _, err := previous.Issue(testIdentity(testEmail, auth.RoleUser))
	require.NoError(t, err)

	v := auth.NewMultiTokenValidator(current, nil, previous)
	claims, err := v.Validate(oldToken)
	require.NoError(t, err)
	assert.Equal(t, testEmail, claims.Subject())

	_, err = current.Validate(oldToken)
	assert.Equal(t, auth.CodeTokenSignatureInvalid, auth.CodeOf(err))
}

func TestMultiTokenValidator_StopsOnNonSignatureError(t *testing.T) {
	c := newClock()
	current := newTokenService(c)
	token, _, err := current.Issue(testIdentity(testEmail, auth.RoleUser))
	require.NoError(t, err)
	c.Advance(2 * time.Hour)

	called := false
	fallback := auth.TokenValidatorFunc(func(string) (auth.AuthClaims, error) {
		called = true
		return nil, nil
	})

	_, err = auth.NewMultiTokenValidator(current, fallback).Validate(token)
	assert.Equal(t, auth.CodeTokenExpired, auth.CodeOf(err))
	assert.False(t, called)
}

func TestMultiTokenValidator_Empty(t *testing.T) {
	_, err := auth.NewMultiTokenValidator().Validate("x")
	assert.Equal(t, auth.CodeTokenInvalid, auth.CodeOf(err))

	var nilFunc auth.TokenValidatorFunc
	_, err = nilFunc.Validate("x")
	assert.Equal(t, auth.CodeTokenInvalid, auth.CodeOf(err))
}
