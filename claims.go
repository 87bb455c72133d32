package auth

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims is the assertion set embedded in a signed session token:
// subject email, optional tenant binding, and the issue/expiry window. The
// timestamps travel as unix seconds rendered as strings; a tenant id is
// omitted entirely when no tenant is selected.
type SessionClaims struct {
	Email        string `json:"email"`
	TenantClaim  string `json:"tid,omitempty"`
	IssuedClaim  string `json:"iat,omitempty"`
	ExpiresClaim string `json:"exp,omitempty"`
}

// Verify interface compliance
var _ jwt.Claims = (*SessionClaims)(nil)

// TenantID returns the bound tenant, or uuid.Nil when the token carries no
// tenant selection or the claim cannot be parsed.
func (c *SessionClaims) TenantID() uuid.UUID {
	if c.TenantClaim == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(c.TenantClaim)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// HasTenant reports whether the token is bound to a tenant.
func (c *SessionClaims) HasTenant() bool {
	return c.TenantID() != uuid.Nil
}

// IssuedAtTime returns the issue timestamp, zero when missing or unparseable.
func (c *SessionClaims) IssuedAtTime() time.Time {
	return parseClaimTime(c.IssuedClaim)
}

// ExpiresAtTime returns the expiry timestamp, zero when missing or unparseable.
func (c *SessionClaims) ExpiresAtTime() time.Time {
	return parseClaimTime(c.ExpiresClaim)
}

// ValidAt reports whether now falls inside the token's validity window.
// The codec itself never calls this; expiry is the caller's concern.
func (c *SessionClaims) ValidAt(now time.Time) bool {
	iat := c.IssuedAtTime()
	exp := c.ExpiresAtTime()
	if iat.IsZero() || exp.IsZero() {
		return false
	}
	return iat.Before(now) && now.Before(exp)
}

// GetExpirationTime implements jwt.Claims.
func (c *SessionClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return claimNumericDate(c.ExpiresClaim), nil
}

// GetIssuedAt implements jwt.Claims.
func (c *SessionClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return claimNumericDate(c.IssuedClaim), nil
}

// GetNotBefore implements jwt.Claims.
func (c *SessionClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims.
func (c *SessionClaims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims. The subject of a session token is the
// account email.
func (c *SessionClaims) GetSubject() (string, error) {
	return c.Email, nil
}

// GetAudience implements jwt.Claims.
func (c *SessionClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

func parseClaimTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	secs, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}

func claimNumericDate(value string) *jwt.NumericDate {
	at := parseClaimTime(value)
	if at.IsZero() {
		return nil
	}
	return jwt.NewNumericDate(at)
}

func formatClaimTime(at time.Time) string {
	return strconv.FormatInt(at.Unix(), 10)
}
