package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/edutrial/go-auth"
)

func identityWithRole(role string) *auth.IdentityContext {
	return auth.NewIdentityContext(&auth.Account{Email: testEmail, Role: &auth.Role{Name: role}})
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name     string
		identity *auth.IdentityContext
		req      auth.Requirement
		code     auth.ErrorCode
	}{
		{name: "anonymous authenticated", req: auth.Authenticated(), code: auth.CodeUnauthenticated},
		{name: "anonymous role", req: auth.HasRole(auth.RoleAdmin), code: auth.CodeAccessDenied},
		{name: "anonymous any role", req: auth.AnyRole(auth.RoleStaff, auth.RoleUniversity), code: auth.CodeAccessDenied},
		{name: "user authenticated", identity: identityWithRole(auth.RoleUser), req: auth.Authenticated()},
		{name: "admin has admin", identity: identityWithRole(auth.RoleAdmin), req: auth.HasRole("admin")},
		{name: "user lacks admin", identity: identityWithRole(auth.RoleUser), req: auth.HasRole(auth.RoleAdmin), code: auth.CodeAccessDenied},
		{name: "any role match", identity: identityWithRole(auth.RoleStaff), req: auth.AnyRole(auth.RoleAdmin, "ROLE_STAFF")},
		{name: "any role miss", identity: identityWithRole(auth.RoleUniversity), req: auth.AnyRole(auth.RoleAdmin, auth.RoleStaff), code: auth.CodeAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := auth.Authorize(tt.identity, tt.req)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.code, auth.CodeOf(err))
		})
	}
}

func TestRequirementString(t *testing.T) {
	assert.Equal(t, "authenticated", auth.Authenticated().String())
	assert.False(t, auth.Authenticated().RequiresRole())
	assert.Equal(t, "any of ROLE_ADMIN,ROLE_STAFF", auth.AnyRole("admin", "", "staff").String())
}

func TestIdentityContext(t *testing.T) {
	identity := identityWithRole("staff")
	assert.Equal(t, "ROLE_STAFF", identity.Authority)
	assert.True(t, identity.HasAuthority(auth.RoleStaff))
	assert.False(t, identity.HasAuthority(auth.RoleAdmin))

	var missing *auth.IdentityContext
	assert.False(t, missing.HasAuthority(auth.RoleStaff))
	assert.Nil(t, auth.NewIdentityContext(nil))

	ctx := auth.WithIdentity(context.Background(), identity)
	got, ok := auth.IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, identity, got)

	_, ok = auth.IdentityFromContext(context.Background())
	assert.False(t, ok)
}

func TestRequireAuth(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: auth.NewErrorHandler(nil)})
	app.Use(func(c *fiber.Ctx) error {
		if role := c.Get("X-Test-Role"); role != "" {
			c.Locals(auth.DefaultContextKey, identityWithRole(role))
		}
		return c.Next()
	})
	app.Get("/staff", auth.RequireAuth(auth.HasRole(auth.RoleStaff)), func(c *fiber.Ctx) error {
		identity, err := auth.Guard(c, auth.Authenticated())
		if err != nil {
			return err
		}
		return c.SendString(identity.Authority)
	})

	app.Get("/me", auth.RequireAuth(auth.Authenticated()), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	tests := []struct {
		path   string
		role   string
		status int
	}{
		{"/me", "", http.StatusUnauthorized},
		{"/me", auth.RoleUser, http.StatusOK},
		{"/staff", "", http.StatusForbidden},
		{"/staff", auth.RoleUser, http.StatusForbidden},
		{"/staff", auth.RoleStaff, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		if tt.role != "" {
			req.Header.Set("X-Test-Role", tt.role)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, tt.status, resp.StatusCode, "%s role %q", tt.path, tt.role)
	}
}
