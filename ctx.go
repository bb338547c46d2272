package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// DefaultContextKey is the fiber Locals key holding the identity
const DefaultContextKey = "identity"

var identityCtxKey = &contextKey{"identity"}

type contextKey struct {
	name string
}

// IdentityContext is the authenticated principal of a single request. It is
// rebuilt from the user directory on every request.
type IdentityContext struct {
	AccountID string
	Email     string
	Name      string
	Role      string
	Authority string
}

// NewIdentityContext builds the request principal from an account
func NewIdentityContext(account *Account) *IdentityContext {
	if account == nil {
		return nil
	}
	role := account.RoleName()
	return &IdentityContext{
		AccountID: account.ID.String(),
		Email:     account.Email,
		Name:      account.Name,
		Role:      role,
		Authority: Authority(role),
	}
}

// HasAuthority reports whether the identity holds one of authorities
func (i *IdentityContext) HasAuthority(authorities ...string) bool {
	if i == nil {
		return false
	}
	for _, a := range authorities {
		if Authority(a) == i.Authority {
			return true
		}
	}
	return false
}

// WithIdentity sets the identity in the given context
func WithIdentity(ctx context.Context, identity *IdentityContext) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity in the context
func IdentityFromContext(ctx context.Context) (*IdentityContext, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*IdentityContext)
	return raw, ok && raw != nil
}

// IdentityFromFiber extracts the identity stored by the authentication
// middleware under key, falling back to the request user context.
func IdentityFromFiber(c *fiber.Ctx, key string) (*IdentityContext, bool) {
	if key == "" {
		key = DefaultContextKey
	}
	if raw, ok := c.Locals(key).(*IdentityContext); ok && raw != nil {
		return raw, true
	}
	return IdentityFromContext(c.UserContext())
}
