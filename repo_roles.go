package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Roles is the role store
type Roles interface {
	repository.Repository[*Role]

	FindByName(ctx context.Context, name string) (*Role, error)
	FindByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error)
	All(ctx context.Context) ([]*Role, error)
	Seed(ctx context.Context, roles ...Role) error
}

type roles struct {
	repository.Repository[*Role]
	db *bun.DB
}

var (
	_ Roles                        = (*roles)(nil)
	_ repository.Repository[*Role] = (*roles)(nil)
)

func NewRolesRepository(db *bun.DB) Roles {
	repo := repository.NewRepository[*Role](db, repository.ModelHandlers[*Role]{
		NewRecord: func() *Role { return &Role{} },
		GetID: func(r *Role) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Role, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "name"
		},
	})
	return &roles{Repository: repo, db: db}
}

func (r *roles) FindByName(ctx context.Context, name string) (*Role, error) {
	return r.FindByNameTx(ctx, r.db, name)
}

func (r *roles) FindByNameTx(ctx context.Context, tx bun.IDB, name string) (*Role, error) {
	record, err := r.Repository.GetByIdentifierTx(ctx, tx, strings.ToUpper(name))
	if err != nil {
		if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
			return nil, newError(CodeRoleNotFound, "role", name)
		}
		return nil, internalError(err, "failed to find role", "role", name)
	}
	return record, nil
}

// All returns every role ordered by name
func (r *roles) All(ctx context.Context) ([]*Role, error) {
	var records []*Role
	if err := r.db.NewSelect().Model(&records).Order("name ASC").Scan(ctx); err != nil {
		return nil, internalError(err, "failed to list roles")
	}
	return records, nil
}

// Seed inserts the given roles, leaving existing names untouched
func (r *roles) Seed(ctx context.Context, roles ...Role) error {
	if len(roles) == 0 {
		return nil
	}

	records := make([]Role, 0, len(roles))
	for _, role := range roles {
		if role.ID == uuid.Nil {
			role.ID = uuid.New()
		}
		role.Name = strings.ToUpper(role.Name)
		records = append(records, role)
	}

	_, err := r.db.NewInsert().
		Model(&records).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return internalError(err, "failed to seed roles")
	}
	return nil
}
