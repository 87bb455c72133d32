package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// ErrIncorrectUsernameOrPassword is returned for every credential failure,
// whether or not the email exists, to avoid account enumeration.
var ErrIncorrectUsernameOrPassword = errors.New("incorrect username and password combination", errors.CategoryAuth).
	WithTextCode("INCORRECT_USERNAME_AND_PASSWORD").
	WithCode(errors.CodeUnauthorized)

// ErrTokenGeneration is a server side failure after a successful credential
// check: tenant resolution or signing failed.
var ErrTokenGeneration = errors.New("unable to generate session token", errors.CategoryInternal).
	WithTextCode("TOKEN_GENERATION_ERROR").
	WithCode(errors.CodeInternal)

// ErrHashKey is returned when the signing secret cannot initialize a MAC key.
var ErrHashKey = errors.New("unable to initialize signing key", errors.CategoryInternal).
	WithTextCode("HASH_ERROR").
	WithCode(errors.CodeInternal)

// ErrSigning is returned when claims cannot be encoded and signed.
var ErrSigning = errors.New("unable to sign claims", errors.CategoryInternal).
	WithTextCode("SIGNING_ERROR").
	WithCode(errors.CodeInternal)

// ErrTokenExpired is used when a session token is past its expiry.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is used when a token fails structural or signature checks.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode("TOKEN_MALFORMED").
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode claims from a session token.
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode("SESSION_DECODE").
	WithCode(errors.CodeUnauthorized)

// ErrRegistrationNotFound is returned for unknown one-time registration tokens.
var ErrRegistrationNotFound = errors.New("registration token not found", errors.CategoryNotFound).
	WithTextCode("REGISTRATION_NOT_FOUND").
	WithCode(errors.CodeNotFound)

// ErrRegistrationCompleted is returned when completing a registration that
// already reached its terminal state. Completion happens at most once.
var ErrRegistrationCompleted = errors.New("registration is already completed", errors.CategoryConflict).
	WithTextCode("REGISTRATION_COMPLETED").
	WithCode(errors.CodeConflict)

// ErrPasswordPolicy is returned when a password fails the complexity policy.
var ErrPasswordPolicy = errors.New("password does not meet the minimum policy", errors.CategoryValidation).
	WithTextCode("PASSWORD_POLICY").
	WithCode(errors.CodeBadRequest)

// ErrTenantNotAllowed is returned when selecting a tenant the user has no
// active membership in.
var ErrTenantNotAllowed = errors.New("user is not a member of the requested tenant", errors.CategoryAuthz).
	WithTextCode("TENANT_NOT_ALLOWED").
	WithCode(errors.CodeForbidden)

// ErrNoDefaultTenant is returned when a user has no default-flagged membership.
var ErrNoDefaultTenant = errors.New("user has no default tenant", errors.CategoryNotFound).
	WithTextCode("NO_DEFAULT_TENANT").
	WithCode(errors.CodeNotFound)

// ErrDatabase is the generic transient store failure. It is surfaced as-is
// and not retried by this subsystem.
var ErrDatabase = errors.New("database operation failed", errors.CategoryInternal).
	WithTextCode("DATABASE_ERROR").
	WithCode(errors.CodeInternal)

// ErrConfiguration is a startup-time misconfiguration and should fail
// service start.
var ErrConfiguration = errors.New("invalid configuration", errors.CategoryInternal).
	WithTextCode("CONFIGURATION_ERROR").
	WithCode(errors.CodeInternal)

// ErrMismatchedHashAndPassword is the internal bcrypt mismatch marker. The
// issuer folds it into ErrIncorrectUsernameOrPassword before it reaches a
// caller.
var ErrMismatchedHashAndPassword = errors.New("hashed password is not the hash of the given password", errors.CategoryAuth).
	WithTextCode("CREDENTIAL_MISMATCH").
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode("EMPTY_PASSWORD").
	WithCode(errors.CodeBadRequest)

// ErrTooManyLoginAttempts is returned when a user exceeds the attempt
// threshold inside the cooldown window.
var ErrTooManyLoginAttempts = errors.New("too many login attempts", errors.CategoryRateLimit).
	WithTextCode("TOO_MANY_LOGIN_ATTEMPTS")

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsNoDefaultTenantError checks for the missing default membership case,
// which the store reports as a wrapped lookup failure.
func IsNoDefaultTenantError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoDefaultTenant) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.TextCode == ErrNoDefaultTenant.TextCode
	}
	return false
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
