package auth

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// Guard is a route-level authorization predicate over the resolved request
// identity. Guards run after the middleware attached the identity; they are
// the only place a request gets rejected for who the caller is.
type Guard func(user *CurrentUser) error

// Authenticated requires a real, non-anonymous identity.
func Authenticated() Guard {
	return func(user *CurrentUser) error {
		if !user.IsAuthenticated() {
			return errors.New("authentication required", errors.CategoryAuth).
				WithTextCode("AUTHENTICATION_REQUIRED").
				WithCode(errors.CodeUnauthorized)
		}
		return nil
	}
}

// TenantBound requires the session to carry a tenant context.
func TenantBound() Guard {
	return func(user *CurrentUser) error {
		if err := Authenticated()(user); err != nil {
			return err
		}
		if !user.HasTenant() {
			return errors.New("tenant context required", errors.CategoryAuthz).
				WithTextCode("TENANT_REQUIRED").
				WithCode(errors.CodeForbidden)
		}
		return nil
	}
}

// HasPermission requires the named permission on the identity. An identity
// that does not carry the permission is denied; there is no implicit grant.
func HasPermission(name string) Guard {
	return func(user *CurrentUser) error {
		if err := Authenticated()(user); err != nil {
			return err
		}
		if !user.HasPermission(name) {
			return errors.New("permission denied", errors.CategoryAuthz).
				WithTextCode("PERMISSION_DENIED").
				WithCode(errors.CodeForbidden).
				WithMetadata(map[string]any{"permission": name})
		}
		return nil
	}
}

// RequireGuards wraps a route with the given guards, evaluated in order
// against the identity the middleware resolved. The first failing guard
// short-circuits with its error; routes behind it never run unauthorized.
func RequireGuards(guards ...Guard) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			user := CurrentUserFromContext(c.Context())

			for _, guard := range guards {
				if guard == nil {
					continue
				}
				if err := guard(user); err != nil {
					var richErr *errors.Error
					if !errors.As(err, &richErr) {
						richErr = errors.Wrap(err, errors.CategoryAuthz, "authorization failed").
							WithCode(errors.CodeForbidden)
					}
					return c.JSON(richErr.Code, map[string]any{
						"error": richErr.Message,
						"code":  richErr.TextCode,
					})
				}
			}

			return hf(c)
		}
	}
}
