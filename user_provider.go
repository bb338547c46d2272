package auth

import (
	"context"
	"sync"
)

// AccountFinder is the part of the user directory the provider needs
type AccountFinder interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
}

// AccountProvider verifies credentials against the user directory
type AccountProvider struct {
	store  AccountFinder
	hasher PasswordAuthenticator
	logger Logger

	dummyOnce sync.Once
	dummyHash string
}

var _ IdentityProvider = (*AccountProvider)(nil)

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountFinder, hasher PasswordAuthenticator) *AccountProvider {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}
	return &AccountProvider{
		store:  store,
		hasher: hasher,
		logger: defLogger(),
	}
}

func (u *AccountProvider) WithLogger(l Logger) *AccountProvider {
	u.logger = resolveLogger(l)
	return u
}

// VerifyIdentity will find the account, compare the password, and return
// the identity. Unknown emails and wrong passwords fail the same way; the
// enabled flag is only looked at once the password matched.
func (u *AccountProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	account, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		if IsCode(err, CodeAccountNotFound) {
			// missing accounts must take as long as wrong passwords
			_ = u.hasher.ComparePasswordAndHash(password, u.dummy())
			return nil, newError(CodeInvalidCredentials)
		}
		return nil, err
	}

	if err := u.hasher.ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if IsCode(err, CodeInvalidCredentials) {
			return nil, newError(CodeInvalidCredentials)
		}
		return nil, err
	}

	if !account.Enabled {
		return nil, newError(CodeAccountDisabled, "email", email)
	}

	return accountIdentity{account: account}, nil
}

// FindIdentityByEmail loads the identity for an email without a password.
// Disabled accounts are returned as is, callers decide what to do with them.
func (u *AccountProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	account, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return accountIdentity{account: account}, nil
}

func (u *AccountProvider) dummy() string {
	u.dummyOnce.Do(func() {
		u.dummyHash = RandomPasswordHash(u.hasher)
	})
	return u.dummyHash
}

type accountIdentity struct {
	account *Account
}

// NewIdentity wraps an account as an Identity
func NewIdentity(account *Account) Identity {
	return accountIdentity{account: account}
}

func (a accountIdentity) ID() string {
	return a.account.ID.String()
}

func (a accountIdentity) Email() string {
	return a.account.Email
}

func (a accountIdentity) Role() string {
	return a.account.RoleName()
}

func (a accountIdentity) Enabled() bool {
	return a.account.Enabled
}

func (a accountIdentity) Profile() AccountProfile {
	return a.account.Profile()
}

var _ Identity = accountIdentity{}
