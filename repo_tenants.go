package auth

import (
	"context"
	"database/sql"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SetDefaultTenantSQL clears the default flag across a user's memberships;
// the chosen pair is flagged in a second statement inside the same tx.
var SetDefaultTenantSQL = `UPDATE "user_tenants" AS "utn"
SET
	"is_default" = FALSE
WHERE
	"utn"."user_id" = ?;`

// TenantMemberships is the membership side of the persistent store
// contract: the many-to-many user/tenant relation with per-pair flags.
type TenantMemberships interface {
	ListUserTenants(ctx context.Context, userID uuid.UUID) ([]TenantMembership, error)
	DefaultTenant(ctx context.Context, userID uuid.UUID) (*Tenant, error)
	GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (*TenantMembership, error)

	AddMembership(ctx context.Context, membership *TenantMembership) error
	SetMembershipActive(ctx context.Context, userID, tenantID uuid.UUID, active bool) error
	SetDefaultTenant(ctx context.Context, userID, tenantID uuid.UUID) error
}

type tenantMemberships struct {
	db *bun.DB
}

var _ TenantMemberships = (*tenantMemberships)(nil)

func NewTenantMembershipsRepository(db *bun.DB) TenantMemberships {
	return &tenantMemberships{db: db}
}

// ListUserTenants returns active and inactive memberships, tenants included.
func (a *tenantMemberships) ListUserTenants(ctx context.Context, userID uuid.UUID) ([]TenantMembership, error) {
	var records []TenantMembership
	err := a.db.NewSelect().
		Model(&records).
		Relation("Tenant").
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	return records, nil
}

// DefaultTenant resolves the store-defined single default membership.
func (a *tenantMemberships) DefaultTenant(ctx context.Context, userID uuid.UUID) (*Tenant, error) {
	record := &TenantMembership{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Tenant").
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.is_default = TRUE").
		Where("?TableAlias.active = TRUE").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, ErrNoDefaultTenant.Category, ErrNoDefaultTenant.Message).
				WithTextCode(ErrNoDefaultTenant.TextCode).
				WithMetadata(map[string]any{"user_id": userID.String()})
		}
		return nil, goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	if record.Tenant == nil {
		return nil, goerrors.New("default membership has no tenant", goerrors.CategoryInternal).
			WithMetadata(map[string]any{"user_id": userID.String()})
	}

	return record.Tenant, nil
}

func (a *tenantMemberships) GetMembership(ctx context.Context, userID, tenantID uuid.UUID) (*TenantMembership, error) {
	record := &TenantMembership{}
	err := a.db.NewSelect().
		Model(record).
		Relation("Tenant").
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id":   userID.String(),
					"tenant_id": tenantID.String(),
				})
		}
		return nil, goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	return record, nil
}

func (a *tenantMemberships) AddMembership(ctx context.Context, membership *TenantMembership) error {
	if membership == nil {
		return goerrors.New("membership must not be nil", goerrors.CategoryBadInput)
	}

	_, err := a.db.NewInsert().
		Model(membership).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	return nil
}

func (a *tenantMemberships) SetMembershipActive(ctx context.Context, userID, tenantID uuid.UUID, active bool) error {
	_, err := a.db.NewUpdate().
		Model((*TenantMembership)(nil)).
		Set("active = ?", active).
		Where("?TableAlias.user_id = ?", userID).
		Where("?TableAlias.tenant_id = ?", tenantID).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	return nil
}

// SetDefaultTenant moves the default flag to the given pair. Unset and set
// run in one transaction so there is never more than one default.
func (a *tenantMemberships) SetDefaultTenant(ctx context.Context, userID, tenantID uuid.UUID) error {
	err := a.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw(SetDefaultTenantSQL, userID).Exec(ctx); err != nil {
			return err
		}

		res, err := tx.NewUpdate().
			Model((*TenantMembership)(nil)).
			Set("is_default = TRUE").
			Where("?TableAlias.user_id = ?", userID).
			Where("?TableAlias.tenant_id = ?", tenantID).
			Exec(ctx)
		if err != nil {
			return err
		}

		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"user_id":   userID.String(),
					"tenant_id": tenantID.String(),
				})
		}

		return nil
	})

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return err
		}
		return goerrors.Wrap(err, ErrDatabase.Category, ErrDatabase.Message).
			WithTextCode(ErrDatabase.TextCode)
	}

	return nil
}
