package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Requirement describes what a protected operation needs from the caller
type Requirement struct {
	authorities []string
}

// Authenticated is satisfied by any authenticated identity
func Authenticated() Requirement {
	return Requirement{}
}

// HasRole requires the given role, e.g. HasRole("ADMIN")
func HasRole(role string) Requirement {
	return AnyRole(role)
}

// AnyRole requires at least one of the given roles
func AnyRole(roles ...string) Requirement {
	req := Requirement{}
	for _, r := range roles {
		if a := Authority(r); a != "" {
			req.authorities = append(req.authorities, a)
		}
	}
	return req
}

// RequiresRole reports whether the requirement names roles
func (r Requirement) RequiresRole() bool {
	return len(r.authorities) > 0
}

func (r Requirement) String() string {
	if !r.RequiresRole() {
		return "authenticated"
	}
	return "any of " + strings.Join(r.authorities, ",")
}

// Authorize decides req for identity. A nil identity fails with
// UNAUTHENTICATED when req only asks for a login and with ACCESS_DENIED
// when it names roles.
func Authorize(identity *IdentityContext, req Requirement) error {
	if identity == nil {
		if req.RequiresRole() {
			return newError(CodeAccessDenied, "requirement", req.String())
		}
		return newError(CodeUnauthenticated, "requirement", req.String())
	}
	if !req.RequiresRole() {
		return nil
	}
	if identity.HasAuthority(req.authorities...) {
		return nil
	}
	return newError(CodeAccessDenied,
		"email", identity.Email,
		"authority", identity.Authority,
		"requirement", req.String(),
	)
}

// Guard checks req for the current request and returns the identity
func Guard(c *fiber.Ctx, req Requirement, contextKey ...string) (*IdentityContext, error) {
	key := DefaultContextKey
	if len(contextKey) > 0 && contextKey[0] != "" {
		key = contextKey[0]
	}
	identity, _ := IdentityFromFiber(c, key)
	if err := Authorize(identity, req); err != nil {
		return nil, err
	}
	return identity, nil
}

// RequireAuth returns a route middleware enforcing req
func RequireAuth(req Requirement, contextKey ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, err := Guard(c, req, contextKey...); err != nil {
			return err
		}
		return c.Next()
	}
}
