package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var SetUserPasswordSQL = `UPDATE "users" AS "usr"
SET
	"active" = TRUE,
	"password_hash" = ?
WHERE
	"usr"."deleted_at" IS NULL
AND (
	"usr"."id" = ?
) RETURNING *;`

// MaxLoginAttempts is the maximum number of attempts a user gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the window in which attempts are counted before a user
// has to cool off.
var CoolDownPeriod = 24 * time.Hour

// Users is the account side of the persistent store contract. Credential
// comparison and password hashing stay inside the store; callers never see
// a hash.
type Users interface {
	repository.Repository[*User]

	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*User, error)

	Authenticate(ctx context.Context, email, password string) (bool, error)

	SetPassword(ctx context.Context, id uuid.UUID, password string) error
	SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, password string) error

	SetActive(ctx context.Context, id uuid.UUID, active bool) error

	TrackAttemptedLogin(ctx context.Context, user *User) error
	TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error
	TrackSuccessfulLogin(ctx context.Context, user *User) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error

	Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db  *bun.DB
	now func() time.Time
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
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
		now:        time.Now,
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
				WithMetadata(map[string]any{"email": email})
		}
		return nil, goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	return record, nil
}

// Authenticate compares the given cleartext against the stored hash. A
// missing account and a wrong password are indistinguishable to the caller:
// both come back (false, nil). Attempt tracking and the cooldown window
// live here with the credentials.
func (a *users) Authenticate(ctx context.Context, email, password string) (bool, error) {
	user, err := a.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return false, nil
		}
		return false, err
	}

	if user.LoginAttemptAt != nil && a.now().Sub(*user.LoginAttemptAt) > CoolDownPeriod {
		user.LoginAttempts = 0
	}

	if user.LoginAttempts > MaxLoginAttempts {
		return false, ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := a.TrackAttemptedLogin(ctx, user); err2 != nil {
			return false, goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
		}
		return false, nil
	}

	if err := a.TrackSuccessfulLogin(ctx, user); err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to track successful login")
	}

	return true, nil
}

func (a *users) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	return a.SetPasswordTx(ctx, a.db, id, password)
}

// SetPasswordTx hashes and persists the password and flips the account
// active in the same statement.
func (a *users) SetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	res, err := a.Repository.RawTx(ctx, tx, SetUserPasswordSQL, hash, id.String())
	if err != nil {
		return goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *users) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("active = ?", active).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.deleted_at IS NULL").
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	return nil
}

func (a *users) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, user)
}

func (a *users) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	// NOTE: the ORM update will not reset login_attempt_at and
	// login_attempts to their zero values, use raw SQL.
	loggedInAt := a.now()
	_, err := tx.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?)
			AND "usr"."deleted_at" IS NULL;
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (a *users) TrackAttemptedLogin(ctx context.Context, user *User) error {
	return a.TrackAttemptedLoginTx(ctx, a.db, user)
}

func (a *users) TrackAttemptedLoginTx(ctx context.Context, tx bun.IDB, user *User) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(user.ID.String()),
	}

	record := &User{}
	record.ID = user.ID
	record.LoginAttempts = user.LoginAttempts + 1
	now := a.now()
	record.LoginAttemptAt = &now

	_, err := a.Repository.UpdateTx(ctx, tx, record, criteria...)

	return err
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
