package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Config holds the options every component of the subsystem reads at
// construction. The signing secret is read once here and never mutated.
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() int
	GetAuthScheme() string
	GetContextKey() string
	GetBaseURL() string
}

// Mailer delivers the activation link for a pending registration. Mail
// transport is an external collaborator; this subsystem only needs send.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, htmlBody string) error
}

// SessionIssuer authenticates credentials and mints tenant-bound tokens.
type SessionIssuer interface {
	Authenticate(ctx context.Context, email, password string) (bool, error)
	UserAuthenticate(ctx context.Context, email, password string) (string, error)
}

// TenantContextResolver determines the active tenant for a user, either an
// explicit selection or the default membership.
type TenantContextResolver interface {
	ListTenantMemberships(ctx context.Context, userID uuid.UUID) ([]TenantMembership, error)
	DefaultTenant(ctx context.Context, userID uuid.UUID) (*Tenant, error)
	SelectTenant(ctx context.Context, userID, tenantID uuid.UUID) (string, error)
}

// Registrar drives the registration lifecycle: pending until the password is
// set, completed afterwards.
type Registrar interface {
	Register(ctx context.Context, userID uuid.UUID, email string) (string, error)
	GetRegistrationInfo(ctx context.Context, token string) (*Registration, error)
	CompleteRegistration(ctx context.Context, token, password string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
