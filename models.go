package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Role is a named authority level. Rows are reference data seeded at start up.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID `bun:"id,pk,nullzero" json:"id,omitempty"`
	Name          string    `bun:"name,notnull,unique" json:"name"`
	Description   string    `bun:"description" json:"description,omitempty"`
	Permissions   []string  `bun:"permissions" json:"permissions,omitempty"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
}

// Authority returns the granted authority for the role, e.g. ROLE_ADMIN
func (r *Role) Authority() string {
	if r == nil {
		return ""
	}
	return Authority(r.Name)
}

// Account is a registered user
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	FirstName     string     `bun:"first_name,notnull" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name,notnull" json:"last_name,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Phone         string     `bun:"phone_number" json:"phone_number,omitempty"`
	RoleID        uuid.UUID  `bun:"role_id,notnull" json:"role_id,omitempty"`
	Role          *Role      `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	Enabled       bool       `bun:"enabled,notnull" json:"enabled"`
	OTP           *string    `bun:"otp" json:"-"`
	OTPExpiry     *time.Time `bun:"otp_expiry" json:"-"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

// SetOTP stores a fresh code and its expiry. Both fields are always set together.
func (a *Account) SetOTP(code string, expiry time.Time) {
	a.OTP = &code
	a.OTPExpiry = &expiry
}

// ClearOTP removes the pending code
func (a *Account) ClearOTP() {
	a.OTP = nil
	a.OTPExpiry = nil
}

// Enable marks the account verified and discards the pending code
func (a *Account) Enable() {
	a.Enabled = true
	a.ClearOTP()
}

// HasPendingOTP reports whether a code is waiting for verification
func (a *Account) HasPendingOTP() bool {
	return a.OTP != nil && a.OTPExpiry != nil
}

// OTPExpired reports whether the pending code is missing an expiry or past it
func (a *Account) OTPExpired(now time.Time) bool {
	return a.OTPExpiry == nil || a.OTPExpiry.Before(now)
}

// RoleName returns the name of the loaded role
func (a *Account) RoleName() string {
	if a.Role == nil {
		return ""
	}
	return a.Role.Name
}

// Profile returns the client safe view of the account
func (a *Account) Profile() AccountProfile {
	return AccountProfile{
		ID:        a.ID.String(),
		Email:     a.Email,
		Name:      a.Name,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Enabled:   a.Enabled,
		Role:      a.RoleName(),
	}
}

// AccountProfile is the redacted account view returned by the API. It never
// carries the password hash or OTP fields.
type AccountProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
	Enabled   bool   `json:"enabled"`
	Role      string `json:"role"`
}

// FullName joins first and last name the way accounts are displayed
func FullName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	}
	return first + " " + last
}
