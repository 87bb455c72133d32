package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CompleteRegistrationSQL flips a pending registration to completed. The
// status guard in the WHERE clause is the at-most-once enforcement point:
// a second completion matches zero rows.
var CompleteRegistrationSQL = `UPDATE "registrations" AS "reg"
SET
	"status" = 'completed',
	"completed_at" = CURRENT_TIMESTAMP
WHERE
	"reg"."token" = ?
AND
	"reg"."status" = 'pending'
RETURNING *;`

// Registrations is the registration side of the persistent store contract.
// Records are created pending and only ever move to completed; nothing
// deletes them.
type Registrations interface {
	repository.Repository[*Registration]

	GetByToken(ctx context.Context, token string) (*Registration, error)
	GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Registration, error)

	Complete(ctx context.Context, token string) (*Registration, error)
	CompleteTx(ctx context.Context, tx bun.IDB, token string) (*Registration, error)

	Create(ctx context.Context, record *Registration, criteria ...repository.InsertCriteria) (*Registration, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Registration, criteria ...repository.InsertCriteria) (*Registration, error)
}

type registrations struct {
	repository.Repository[*Registration]
	db *bun.DB
}

var (
	_ Registrations                        = (*registrations)(nil)
	_ repository.Repository[*Registration] = (*registrations)(nil)
)

func NewRegistrationsRepository(db *bun.DB) Registrations {
	repo := repository.NewRepository[*Registration](db, repository.ModelHandlers[*Registration]{
		NewRecord: func() *Registration { return &Registration{} },
		GetID: func(r *Registration) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *Registration, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		GetIdentifier: func() string {
			return "token"
		},
	})

	return &registrations{
		Repository: repo,
		db:         db,
	}
}

func (a *registrations) GetByToken(ctx context.Context, token string) (*Registration, error) {
	return a.GetByTokenTx(ctx, a.db, token)
}

func (a *registrations) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*Registration, error) {
	record := &Registration{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.token = ?", token).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, ErrRegistrationNotFound.Category, ErrRegistrationNotFound.Message).
				WithTextCode(ErrRegistrationNotFound.TextCode).
				WithMetadata(map[string]any{"token": token})
		}
		return nil, goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	return record, nil
}

func (a *registrations) Complete(ctx context.Context, token string) (*Registration, error) {
	return a.CompleteTx(ctx, a.db, token)
}

func (a *registrations) CompleteTx(ctx context.Context, tx bun.IDB, token string) (*Registration, error) {
	res, err := a.Repository.RawTx(ctx, tx, CompleteRegistrationSQL, token)
	if err != nil {
		return nil, goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	if len(res) == 0 {
		// either the token is unknown or the registration was completed
		// before; the caller distinguishes via GetByToken
		return nil, ErrRegistrationCompleted
	}

	return res[0], nil
}

func (a *registrations) Create(ctx context.Context, record *Registration, criteria ...repository.InsertCriteria) (*Registration, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *registrations) CreateTx(ctx context.Context, tx bun.IDB, record *Registration, criteria ...repository.InsertCriteria) (*Registration, error) {
	if record != nil {
		record.EnsureStatus()
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
	}
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}
