package iam

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var SetUserActiveSQL = `UPDATE "users" AS "usr"
SET
	"is_active" = ?,
	"updated_at" = ?
WHERE (
	"usr"."id" = ?
) RETURNING *;`

// Users is the user directory. Callers resolve, list and mutate user
// records through this interface without seeing the storage backend.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)

	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	ListTx(ctx context.Context, tx bun.IDB, limit, offset int) ([]*User, int, error)

	UpdatePartial(ctx context.Context, record *User) (*User, error)
	UpdatePartialTx(ctx context.Context, tx bun.IDB, record *User) (*User, error)

	UpdateActive(ctx context.Context, id uuid.UUID, active bool) (*User, error)
	UpdateActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*User, error)

	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return a.ListTx(ctx, a.db, limit, offset)
}

func (a *users) ListTx(ctx context.Context, tx bun.IDB, limit, offset int) ([]*User, int, error) {
	var records []*User

	q := tx.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.created_at ASC").
		Limit(limit).
		Offset(offset)

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// UpdatePartial persists only the non zero fields of the record,
// leaving everything else untouched.
func (a *users) UpdatePartial(ctx context.Context, record *User) (*User, error) {
	return a.UpdatePartialTx(ctx, a.db, record)
}

func (a *users) UpdatePartialTx(ctx context.Context, tx bun.IDB, record *User) (*User, error) {
	return a.Repository.UpdateTx(ctx, tx, record,
		repository.UpdateByID(record.ID.String()),
	)
}

func (a *users) UpdateActive(ctx context.Context, id uuid.UUID, active bool) (*User, error) {
	return a.UpdateActiveTx(ctx, a.db, id, active)
}

// UpdateActiveTx toggles the active flag with raw SQL so a false value
// is not dropped by zero value skipping.
func (a *users) UpdateActiveTx(ctx context.Context, tx bun.IDB, id uuid.UUID, active bool) (*User, error) {
	res, err := a.Repository.RawTx(ctx, tx, SetUserActiveSQL, active, time.Now(), id.String())
	if err != nil {
		return nil, err
	}

	if len(res) == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return res[0], nil
}

func (a *users) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return a.DeleteByIDTx(ctx, a.db, id)
}

// DeleteByIDTx removes the record permanently, there is no soft delete.
func (a *users) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)

	if err != nil {
		return err
	}

	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.Role == "" {
		record.Role = RoleStandard
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
