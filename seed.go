package auth

import (
	"context"
)

// SeedAccount describes an account created enabled at bootstrap
type SeedAccount struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      string
}

// DemoAccounts are bootstrap accounts for local environments
func DemoAccounts() []SeedAccount {
	return []SeedAccount{
		{Email: "staff.local@edutrial.com", Password: "Staff@123", FirstName: "Staff", LastName: "Demo", Role: RoleStaff},
		{Email: "university.local@edutrial.com", Password: "University@123", FirstName: "University", LastName: "Demo", Role: RoleUniversity},
		{Email: "university.local2@edutrial.com", Password: "University2@123", FirstName: "University2", LastName: "Demo2", Role: RoleUniversity},
		{Email: "user.local@edutrial.com", Password: "User@123", FirstName: "User", LastName: "Demo", Role: RoleUser},
	}
}

// Seeder creates reference roles and bootstrap accounts idempotently
type Seeder struct {
	repo   RepositoryManager
	hasher PasswordAuthenticator
	logger Logger
}

func NewSeeder(repo RepositoryManager, hasher PasswordAuthenticator) *Seeder {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &Seeder{repo: repo, hasher: hasher, logger: defLogger()}
}

func (s *Seeder) WithLogger(l Logger) *Seeder {
	s.logger = resolveLogger(l)
	return s
}

// SeedRoles inserts the predefined roles that do not exist yet
func (s *Seeder) SeedRoles(ctx context.Context) error {
	if err := s.repo.Roles().Seed(ctx, PredefinedRoles()...); err != nil {
		return err
	}
	s.logger.Info("roles seeded")
	return nil
}

// EnsureAccounts creates each account that does not exist yet, enabled and
// without a pending code. Existing accounts are left untouched.
func (s *Seeder) EnsureAccounts(ctx context.Context, seeds ...SeedAccount) error {
	accounts := s.repo.Accounts()
	for _, seed := range seeds {
		if _, err := accounts.FindByEmail(ctx, seed.Email); err == nil {
			s.logger.Debug("seed account exists", "email", seed.Email)
			continue
		} else if !IsCode(err, CodeAccountNotFound) {
			return err
		}

		role, err := s.repo.Roles().FindByName(ctx, seed.Role)
		if err != nil {
			return err
		}

		hash, err := s.hasher.HashPassword(seed.Password)
		if err != nil {
			return err
		}

		account := &Account{
			Email:        seed.Email,
			PasswordHash: hash,
			FirstName:    seed.FirstName,
			LastName:     seed.LastName,
			Name:         FullName(seed.FirstName, seed.LastName),
			RoleID:       role.ID,
			Enabled:      true,
		}
		if _, err := accounts.Create(ctx, account); err != nil {
			return err
		}
		s.logger.Info("seed account created", "email", seed.Email, "role", role.Name)
	}
	return nil
}
