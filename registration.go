package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// registrationTokenBytes sizes the one-time token; 32 bytes encode to a
// 43 character URL-safe string.
const registrationTokenBytes = 32

// RegistrationService drives the pending to completed account activation
// lifecycle. The one-time token it hands out is an opaque random
// capability, independent of session tokens.
type RegistrationService struct {
	repo   RepositoryManager
	logger Logger
	now    func() time.Time
}

var _ Registrar = (*RegistrationService)(nil)

type RegistrationOption func(*RegistrationService)

// WithRegistrationLogger overrides the logger.
func WithRegistrationLogger(logger Logger) RegistrationOption {
	return func(s *RegistrationService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRegistrationClock injects a custom clock (useful for tests).
func WithRegistrationClock(clock func() time.Time) RegistrationOption {
	return func(s *RegistrationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewRegistrationService creates the registration state machine over the
// persistent store.
func NewRegistrationService(repo RepositoryManager, opts ...RegistrationOption) *RegistrationService {
	s := &RegistrationService{
		repo:   repo,
		logger: defLogger{},
		now:    time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Register opens a pending registration for the user and returns the
// one-time token. Delivering the token, typically inside an emailed
// activation link, is the caller's job.
func (s *RegistrationService) Register(ctx context.Context, userID uuid.UUID, email string) (string, error) {
	token, err := newRegistrationToken()
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "unable to generate registration token")
	}

	now := s.now()
	record := &Registration{
		Token:     token,
		UserID:    userID,
		Email:     email,
		Status:    RegistrationPending,
		CreatedAt: &now,
	}

	if _, err := s.repo.Registrations().Create(ctx, record); err != nil {
		s.logger.Error("Register unable to persist registration", "error", err)
		return "", err
	}

	return token, nil
}

// GetRegistrationInfo is a read-only lookup by one-time token.
func (s *RegistrationService) GetRegistrationInfo(ctx context.Context, token string) (*Registration, error) {
	record, err := s.repo.Registrations().GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return record, nil
}

// CompleteRegistration validates the password against the policy, then in
// one transaction marks the registration completed and sets the password
// on the account (activating it). Completing an already completed token
// fails with ErrRegistrationCompleted; the guarded UPDATE makes the
// transition happen at most once even under concurrent completion.
func (s *RegistrationService) CompleteRegistration(ctx context.Context, token, password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := s.repo.Registrations().GetByTokenTx(ctx, tx, token)
		if err != nil {
			return err
		}

		if !CanTransitionRegistration(record.Status, RegistrationCompleted) {
			return ErrRegistrationCompleted
		}

		if _, err := s.repo.Registrations().CompleteTx(ctx, tx, token); err != nil {
			return err
		}

		return s.repo.Users().SetPasswordTx(ctx, tx, record.UserID, password)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "registration completion transaction failed")
	}

	return nil
}

// newRegistrationToken returns a fixed-length URL-safe opaque token.
func newRegistrationToken() (string, error) {
	buf := make([]byte, registrationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
