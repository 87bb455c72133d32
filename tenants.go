package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// TenantResolver answers tenant context questions for a user: which tenants
// they belong to, which one is the default, and switching the session to a
// different one. Switching re-signs a fresh token; existing tokens are
// never mutated.
type TenantResolver struct {
	repo      RepositoryManager
	tokenizer *Tokenizer
	logger    Logger
}

var _ TenantContextResolver = (*TenantResolver)(nil)

func NewTenantResolver(repo RepositoryManager, tokenizer *Tokenizer) *TenantResolver {
	return &TenantResolver{
		repo:      repo,
		tokenizer: tokenizer,
		logger:    defLogger{},
	}
}

func (s *TenantResolver) WithLogger(logger Logger) *TenantResolver {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// ListTenantMemberships returns every membership of the user, active or not.
// Callers filter; the list view shows inactive memberships greyed out.
func (s *TenantResolver) ListTenantMemberships(ctx context.Context, userID uuid.UUID) ([]TenantMembership, error) {
	return s.repo.TenantMemberships().ListUserTenants(ctx, userID)
}

// DefaultTenant resolves the user's default membership tenant.
func (s *TenantResolver) DefaultTenant(ctx context.Context, userID uuid.UUID) (*Tenant, error) {
	return s.repo.TenantMemberships().DefaultTenant(ctx, userID)
}

// SelectTenant switches the session to the given tenant and returns a fresh
// token bound to it. The user must hold an active membership in an active
// tenant; anything else is ErrTenantNotAllowed.
func (s *TenantResolver) SelectTenant(ctx context.Context, userID, tenantID uuid.UUID) (string, error) {
	membership, err := s.repo.TenantMemberships().GetMembership(ctx, userID, tenantID)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", goerrors.Wrap(err, ErrTenantNotAllowed.Category, ErrTenantNotAllowed.Message).
				WithTextCode(ErrTenantNotAllowed.TextCode).
				WithCode(ErrTenantNotAllowed.Code).
				WithMetadata(map[string]any{
					"user_id":   userID.String(),
					"tenant_id": tenantID.String(),
				})
		}
		s.logger.Error("SelectTenant membership lookup error", "error", err)
		return "", err
	}

	if !membership.Active || membership.Tenant == nil || !membership.Tenant.Active {
		return "", ErrTenantNotAllowed
	}

	user, err := s.repo.Users().GetByID(ctx, userID.String())
	if err != nil {
		s.logger.Error("SelectTenant user lookup error", "error", err)
		return "", err
	}

	token, err := s.tokenizer.Generate(user.Email, tenantID)
	if err != nil {
		s.logger.Error("SelectTenant token generation error", "error", err)
		return "", goerrors.Wrap(err, ErrTokenGeneration.Category, ErrTokenGeneration.Message).
			WithTextCode(ErrTokenGeneration.TextCode)
	}

	return token, nil
}
