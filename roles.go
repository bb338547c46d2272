package auth

import "strings"

// Predefined role names
const (
	RoleUser       = "USER"
	RoleUniversity = "UNIVERSITY"
	RoleStaff      = "STAFF"
	RoleAdmin      = "ADMIN"
)

// DefaultRole is assigned to self registered accounts
const DefaultRole = RoleUser

// AuthorityPrefix is prepended to role names to build authorities
const AuthorityPrefix = "ROLE_"

// PredefinedRoles is the reference data seeded into the role store
func PredefinedRoles() []Role {
	return []Role{
		{Name: RoleUser, Description: "Student or applicant using the platform", Permissions: []string{"profile:read", "profile:write"}},
		{Name: RoleUniversity, Description: "University representative managing its own content", Permissions: []string{"university:write"}},
		{Name: RoleStaff, Description: "Platform staff moderating content", Permissions: []string{"content:moderate"}},
		{Name: RoleAdmin, Description: "Platform administrator", Permissions: []string{"*"}},
	}
}

// IsPredefinedRole checks if the role is one of the predefined roles
func IsPredefinedRole(name string) bool {
	switch strings.ToUpper(name) {
	case RoleUser, RoleUniversity, RoleStaff, RoleAdmin:
		return true
	default:
		return false
	}
}

// Authority converts a role name into its authority, e.g. "admin" -> ROLE_ADMIN.
// Names that already carry the prefix are returned upper cased.
func Authority(role string) string {
	role = strings.ToUpper(strings.TrimSpace(role))
	if role == "" {
		return ""
	}
	if strings.HasPrefix(role, AuthorityPrefix) {
		return role
	}
	return AuthorityPrefix + role
}
