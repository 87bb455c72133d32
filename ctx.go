package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey struct {
	name string
}

var currentUserCtxKey = &contextKey{"current-user"}

// CurrentUser is the per-request identity snapshot the middleware attaches
// to the context. It is a value object assembled from the session token and
// the store; handlers read it, nothing writes it back.
type CurrentUser struct {
	ID          uuid.UUID
	Email       string
	TenantID    uuid.UUID
	Memberships []TenantMembership
	Permissions []string
}

// AnonymousUser is the explicit unauthenticated identity. Resolution
// failures degrade to this value rather than to a missing context entry, so
// handlers always find a CurrentUser.
func AnonymousUser() *CurrentUser {
	return &CurrentUser{}
}

// IsAuthenticated reports whether this snapshot carries a real identity:
// a non-nil user id and a non-empty email.
func (u *CurrentUser) IsAuthenticated() bool {
	return u != nil && u.ID != uuid.Nil && u.Email != ""
}

// HasTenant reports whether the session is bound to a tenant.
func (u *CurrentUser) HasTenant() bool {
	return u != nil && u.TenantID != uuid.Nil
}

// HasPermission reports whether the named permission was granted. An
// identity with no permission set has no permissions.
func (u *CurrentUser) HasPermission(name string) bool {
	if u == nil || !u.IsAuthenticated() {
		return false
	}

	for _, p := range u.Permissions {
		if p == name {
			return true
		}
	}

	return false
}

// WithCurrentUser returns a context carrying the given identity snapshot.
// A nil user is stored as the anonymous identity.
func WithCurrentUser(ctx context.Context, user *CurrentUser) context.Context {
	if user == nil {
		user = AnonymousUser()
	}
	return context.WithValue(ctx, currentUserCtxKey, user)
}

// CurrentUserFromContext retrieves the identity snapshot. Contexts the
// middleware never touched yield the anonymous identity.
func CurrentUserFromContext(ctx context.Context) *CurrentUser {
	if user, ok := ctx.Value(currentUserCtxKey).(*CurrentUser); ok && user != nil {
		return user
	}
	return AnonymousUser()
}
