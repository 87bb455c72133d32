package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Authenticator verifies credentials against the persistent store and mints
// tenant-bound session tokens. The credential comparison itself stays inside
// the store; the Authenticator only orchestrates.
type Authenticator struct {
	repo      RepositoryManager
	tokenizer *Tokenizer
	logger    Logger
}

var _ SessionIssuer = (*Authenticator)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(repo RepositoryManager, tokenizer *Tokenizer) *Authenticator {
	return &Authenticator{
		repo:      repo,
		tokenizer: tokenizer,
		logger:    defLogger{},
	}
}

func (s *Authenticator) WithLogger(logger Logger) *Authenticator {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Authenticate answers whether the credentials match. Unknown account and
// wrong password are the same answer: (false, nil). Only operational
// failures surface as errors.
func (s *Authenticator) Authenticate(ctx context.Context, email, password string) (bool, error) {
	ok, err := s.repo.Users().Authenticate(ctx, email, password)
	if err != nil {
		if goerrors.Is(err, ErrTooManyLoginAttempts) {
			return false, err
		}
		s.logger.Error("Authenticate store error", "error", err)
		return false, err
	}

	return ok, nil
}

// UserAuthenticate verifies the credentials and, on success, issues a
// session token bound to the user's default tenant. A user with no default
// membership still gets a session; the token just carries no tenant.
// Every credential failure maps to the same error so callers cannot probe
// which accounts exist; store failures stay operational errors.
func (s *Authenticator) UserAuthenticate(ctx context.Context, email, password string) (string, error) {
	ok, err := s.Authenticate(ctx, email, password)
	if err != nil {
		if goerrors.Is(err, ErrTooManyLoginAttempts) {
			return "", err
		}
		// a store error during the check is not a credential outcome; the
		// uniform answer covers only ok=false
		s.logger.Error("UserAuthenticate credential check error", "error", err)
		return "", goerrors.Wrap(err, ErrTokenGeneration.Category, ErrTokenGeneration.Message).
			WithTextCode(ErrTokenGeneration.TextCode)
	}

	if !ok {
		return "", ErrIncorrectUsernameOrPassword
	}

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		// the account authenticated a moment ago; treat a failed reload as
		// an operational failure, not a credential one
		s.logger.Error("UserAuthenticate user load error", "error", err)
		return "", goerrors.Wrap(err, ErrTokenGeneration.Category, ErrTokenGeneration.Message).
			WithTextCode(ErrTokenGeneration.TextCode)
	}

	tenantID := uuid.Nil
	tenant, err := s.repo.TenantMemberships().DefaultTenant(ctx, user.ID)
	if err != nil {
		if !IsNoDefaultTenantError(err) {
			s.logger.Error("UserAuthenticate default tenant error", "error", err)
			return "", goerrors.Wrap(err, ErrTokenGeneration.Category, ErrTokenGeneration.Message).
				WithTextCode(ErrTokenGeneration.TextCode)
		}
	} else if tenant != nil {
		tenantID = tenant.ID
	}

	token, err := s.tokenizer.Generate(user.Email, tenantID)
	if err != nil {
		s.logger.Error("UserAuthenticate token generation error", "error", err)
		return "", goerrors.Wrap(err, ErrTokenGeneration.Category, ErrTokenGeneration.Message).
			WithTextCode(ErrTokenGeneration.TextCode)
	}

	return token, nil
}
