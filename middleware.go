package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// DefaultAuthScheme is the expected Authorization header scheme.
const DefaultAuthScheme = "Bearer"

// DefaultContextKey is the Locals key the middleware stores the resolved
// identity under.
const DefaultContextKey = "user"

// stateChangingMethods are the only verbs the middleware resolves identity
// for. Reads go through untouched and see the anonymous identity.
var stateChangingMethods = map[string]bool{
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

// RequestAuthenticator resolves the per-request identity from the session
// token. It never rejects a request: any failure along the way degrades to
// the anonymous identity and the guards downstream decide what that means
// for the route.
type RequestAuthenticator struct {
	repo       RepositoryManager
	tokenizer  *Tokenizer
	scheme     string
	contextKey string
	logger     Logger
	now        func() time.Time
}

type RequestAuthenticatorOption func(*RequestAuthenticator)

func WithAuthScheme(scheme string) RequestAuthenticatorOption {
	return func(a *RequestAuthenticator) {
		if scheme != "" {
			a.scheme = scheme
		}
	}
}

func WithContextKey(key string) RequestAuthenticatorOption {
	return func(a *RequestAuthenticator) {
		if key != "" {
			a.contextKey = key
		}
	}
}

func WithRequestLogger(logger Logger) RequestAuthenticatorOption {
	return func(a *RequestAuthenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithRequestClock(clock func() time.Time) RequestAuthenticatorOption {
	return func(a *RequestAuthenticator) {
		if clock != nil {
			a.now = clock
		}
	}
}

func NewRequestAuthenticator(repo RepositoryManager, tokenizer *Tokenizer, opts ...RequestAuthenticatorOption) *RequestAuthenticator {
	a := &RequestAuthenticator{
		repo:       repo,
		tokenizer:  tokenizer,
		scheme:     DefaultAuthScheme,
		contextKey: DefaultContextKey,
		logger:     defLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// Middleware attaches the resolved identity to the request context and to
// Locals under the configured key, then always calls the next handler.
func (a *RequestAuthenticator) Middleware() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			user := AnonymousUser()

			if stateChangingMethods[c.Method()] {
				raw := a.ExtractToken(c.Header(router.HeaderAuthorization))
				user = a.ResolveUser(c.Context(), raw)
			}

			c.SetContext(WithCurrentUser(c.Context(), user))
			c.Locals(a.contextKey, user)

			return hf(c)
		}
	}
}

// ExtractToken strips the auth scheme prefix from an Authorization header
// value. A missing or differently shaped header yields the empty string.
func (a *RequestAuthenticator) ExtractToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	prefix := a.scheme + " "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}

	// tolerate a bare token with no scheme
	if !strings.ContainsRune(header, ' ') {
		return header
	}

	return ""
}

// ResolveUser turns a raw session token into an identity snapshot. It
// returns the anonymous identity for every failure: empty token, bad
// signature, expired claims, unknown or inactive account, store errors.
func (a *RequestAuthenticator) ResolveUser(ctx context.Context, raw string) *CurrentUser {
	if raw == "" {
		return AnonymousUser()
	}

	if !a.tokenizer.IsValid(raw) {
		a.logger.Debug("ResolveUser token failed signature check")
		return AnonymousUser()
	}

	claims, err := a.tokenizer.GetClaims(raw)
	if err != nil {
		a.logger.Debug("ResolveUser claims decode error", "error", err)
		return AnonymousUser()
	}

	if !claims.ValidAt(a.now()) {
		a.logger.Debug("ResolveUser token outside validity window", "email", claims.Email)
		return AnonymousUser()
	}

	user, err := a.repo.Users().GetByEmail(ctx, claims.Email)
	if err != nil {
		a.logResolveError("ResolveUser user load error", err)
		return AnonymousUser()
	}

	if !user.Active {
		a.logger.Debug("ResolveUser account inactive", "email", claims.Email)
		return AnonymousUser()
	}

	memberships, err := a.repo.TenantMemberships().ListUserTenants(ctx, user.ID)
	if err != nil {
		a.logResolveError("ResolveUser membership load error", err)
		return AnonymousUser()
	}

	tenantID := claims.TenantID()
	if tenantID == uuid.Nil {
		if tenant, err := a.repo.TenantMemberships().DefaultTenant(ctx, user.ID); err == nil && tenant != nil {
			tenantID = tenant.ID
		} else if err != nil && !IsNoDefaultTenantError(err) {
			a.logResolveError("ResolveUser default tenant error", err)
			return AnonymousUser()
		}
	}

	return &CurrentUser{
		ID:          user.ID,
		Email:       user.Email,
		TenantID:    tenantID,
		Memberships: memberships,
	}
}

func (a *RequestAuthenticator) logResolveError(msg string, err error) {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		a.logger.Error(msg,
			"error", richErr.Message,
			"category", richErr.Category,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
		return
	}
	a.logger.Error(msg, "error", err)
}
