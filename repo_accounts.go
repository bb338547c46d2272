package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"
)

// Accounts is the user directory. Lookups by email are exact matches on the
// stored value.
type Accounts interface {
	repository.Repository[*Account]

	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	ExistsEnabledByEmail(ctx context.Context, email string) (bool, error)
	ExistsEnabledByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error)
	ExistsDisabledByEmail(ctx context.Context, email string) (bool, error)
	ExistsDisabledByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	Save(ctx context.Context, record *Account) (*Account, error)
	SaveTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error)
	ReplaceOTP(ctx context.Context, id uuid.UUID, otp string, expiry time.Time) (bool, error)
	ConsumeOTP(ctx context.Context, id uuid.UUID, otp string) (bool, error)
	ClearOTP(ctx context.Context, id uuid.UUID, otp string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type accounts struct {
	repository.Repository[*Account]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

// AccountsOption configures the repository
type AccountsOption func(*accounts)

// WithAccountsClock sets the clock used for updated_at stamps
func WithAccountsClock(now func() time.Time) AccountsOption {
	return func(a *accounts) {
		if now != nil {
			a.now = now
		}
	}
}

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	accts := &accounts{Repository: repo, db: db, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(accts)
		}
	}
	return accts
}

func (r *accounts) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return r.FindByEmailTx(ctx, r.db, email)
}

func (r *accounts) FindByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Relation("Role").
		Where("acc.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, newError(CodeAccountNotFound, "email", email)
		}
		return nil, internalError(err, "failed to find account", "email", email)
	}
	return record, nil
}

func (r *accounts) ExistsEnabledByEmail(ctx context.Context, email string) (bool, error) {
	return r.ExistsEnabledByEmailTx(ctx, r.db, email)
}

func (r *accounts) ExistsEnabledByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	return r.existsTx(ctx, tx, email, true)
}

func (r *accounts) ExistsDisabledByEmail(ctx context.Context, email string) (bool, error) {
	return r.ExistsDisabledByEmailTx(ctx, r.db, email)
}

func (r *accounts) ExistsDisabledByEmailTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	return r.existsTx(ctx, tx, email, false)
}

func (r *accounts) existsTx(ctx context.Context, tx bun.IDB, email string, enabled bool) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*Account)(nil)).
		Where("email = ?", email).
		Where("enabled = ?", enabled).
		Exists(ctx)
	if err != nil {
		return false, internalError(err, "failed to check account existence", "email", email)
	}
	return exists, nil
}

func (r *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return r.CreateTx(ctx, r.db, record, criteria...)
}

// CreateTx inserts record. A taken email fails with ACCOUNT_ALREADY_EXISTS.
func (r *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	now := r.now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	created, err := r.Repository.CreateTx(ctx, tx, record, criteria...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, newError(CodeAccountAlreadyExists, "email", record.Email)
		}
		return nil, internalError(err, "failed to create account", "email", record.Email)
	}
	return created, nil
}

// Save creates the record when it has no stored row yet and otherwise
// overwrites the stored row, keeping created_at.
func (r *accounts) Save(ctx context.Context, record *Account) (*Account, error) {
	return r.SaveTx(ctx, r.db, record)
}

func (r *accounts) SaveTx(ctx context.Context, tx bun.IDB, record *Account) (*Account, error) {
	if record.ID == uuid.Nil {
		return r.CreateTx(ctx, tx, record)
	}

	exists, err := tx.NewSelect().
		Model((*Account)(nil)).
		Where("id = ?", record.ID).
		Exists(ctx)
	if err != nil {
		return nil, internalError(err, "failed to save account", "id", record.ID)
	}
	if !exists {
		return r.CreateTx(ctx, tx, record)
	}

	record.UpdatedAt = r.now().UTC()
	saved, err := r.Repository.UpdateTx(ctx, tx, record,
		repository.UpdateByID(record.ID.String()),
		func(q *bun.UpdateQuery) *bun.UpdateQuery {
			return q.ExcludeColumn("created_at")
		},
	)
	if err != nil {
		return nil, internalError(err, "failed to save account", "id", record.ID)
	}
	return saved, nil
}

// ReplaceOTP stores a new code on an account that is still disabled. It
// reports false when the account was verified in the meantime.
func (r *accounts) ReplaceOTP(ctx context.Context, id uuid.UUID, otp string, expiry time.Time) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*Account)(nil)).
		Set("otp = ?", otp).
		Set("otp_expiry = ?", expiry.UTC()).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Where("enabled = ?", false).
		Exec(ctx)
	if err != nil {
		return false, internalError(err, "failed to replace otp", "id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, internalError(err, "failed to replace otp", "id", id)
	}
	return n == 1, nil
}

// ConsumeOTP enables the account and clears the code in a single
// conditional update. Only one caller presenting a given code can win.
func (r *accounts) ConsumeOTP(ctx context.Context, id uuid.UUID, otp string) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*Account)(nil)).
		Set("enabled = ?", true).
		Set("otp = NULL").
		Set("otp_expiry = NULL").
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Where("otp = ?", otp).
		Where("enabled = ?", false).
		Exec(ctx)
	if err != nil {
		return false, internalError(err, "failed to consume otp", "id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, internalError(err, "failed to consume otp", "id", id)
	}
	return n == 1, nil
}

// ClearOTP drops the code if it is still the one given
func (r *accounts) ClearOTP(ctx context.Context, id uuid.UUID, otp string) error {
	_, err := r.db.NewUpdate().
		Model((*Account)(nil)).
		Set("otp = NULL").
		Set("otp_expiry = NULL").
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Where("otp = ?", otp).
		Exec(ctx)
	if err != nil {
		return internalError(err, "failed to clear otp", "id", id)
	}
	return nil
}

func (r *accounts) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := r.db.NewUpdate().
		Model((*Account)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("updated_at = ?", r.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return internalError(err, "failed to update password", "id", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return newError(CodeAccountNotFound, "id", id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
