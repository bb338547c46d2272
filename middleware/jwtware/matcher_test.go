package jwtware_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edutrial/go-auth/middleware/jwtware"
)

func TestPathMatcher(t *testing.T) {
	m, err := jwtware.NewPathMatcher(
		"/api/v1/auth/**",
		"/swagger-ui/**",
		"/api/v1/universities/public/**",
		"/api/v1/*/health",
	)
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"/api/v1/auth/login", true},
		{"/api/v1/auth/register", true},
		{"/api/v1/auth", true},
		{"/api/v1/authx", false},
		{"/swagger-ui/index.html", true},
		{"/api/v1/universities/public/12/images", true},
		{"/api/v1/universities/12", false},
		{"/api/v1/users/health", true},
		{"/api/v1/users/me/health", false},
		{"/api/v1/users/me/profile", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.path))
		})
	}
}

func TestPathMatcher_Empty(t *testing.T) {
	m, err := jwtware.NewPathMatcher()
	require.NoError(t, err)
	assert.False(t, m.Match("/anything"))

	var nilMatcher *jwtware.PathMatcher
	assert.False(t, nilMatcher.Match("/anything"))
}
