package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the fixed lifetime of a session token.
const DefaultTokenTTL = time.Hour

// Tokenizer produces and verifies self-contained tamper-evident session
// tokens. There is no server side session store: any handler holding the
// shared secret can validate a token, and a leaked token stays valid until
// natural expiry. The secret is set once at construction and never mutated.
type Tokenizer struct {
	signingKey []byte
	ttl        time.Duration
	logger     Logger
	now        func() time.Time
}

type TokenizerOption func(*Tokenizer)

// WithTokenTTL overrides the default token lifetime.
func WithTokenTTL(ttl time.Duration) TokenizerOption {
	return func(t *Tokenizer) {
		if ttl > 0 {
			t.ttl = ttl
		}
	}
}

// WithTokenizerLogger overrides the logger.
func WithTokenizerLogger(logger Logger) TokenizerOption {
	return func(t *Tokenizer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithTokenizerClock injects a custom clock (useful for tests).
func WithTokenizerClock(clock func() time.Time) TokenizerOption {
	return func(t *Tokenizer) {
		if clock != nil {
			t.now = clock
		}
	}
}

// NewTokenizer creates a codec bound to the process-wide signing secret.
func NewTokenizer(signingKey []byte, opts ...TokenizerOption) *Tokenizer {
	t := &Tokenizer{
		signingKey: signingKey,
		ttl:        DefaultTokenTTL,
		logger:     defLogger{},
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}

	return t
}

// Generate assembles the claim set {email, tid, iat, exp} and signs its
// canonical encoding with HMAC-SHA256. A uuid.Nil tenant id means "none
// selected" and is omitted from the claims.
func (t *Tokenizer) Generate(email string, tenantID uuid.UUID) (string, error) {
	if len(t.signingKey) == 0 {
		return "", ErrHashKey
	}

	now := t.now()
	claims := &SessionClaims{
		Email:        email,
		IssuedClaim:  formatClaimTime(now),
		ExpiresClaim: formatClaimTime(now.Add(t.ttl)),
	}

	if tenantID != uuid.Nil {
		claims.TenantClaim = tenantID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(t.signingKey)
	if err != nil {
		t.logger.Error("Tokenizer unable to sign claims", "error", err)
		return "", errors.Wrap(err, ErrSigning.Category, ErrSigning.Message).
			WithTextCode(ErrSigning.TextCode)
	}

	return signed, nil
}

// IsValid recomputes the signature over the decoded body and compares it
// against the embedded one. Any structural or cryptographic mismatch yields
// false. It deliberately does NOT check expiry; expiry is a timestamp
// comparison owned by callers of GetClaims.
func (t *Tokenizer) IsValid(raw string) bool {
	if raw == "" {
		return false
	}

	_, err := jwt.ParseWithClaims(raw, &SessionClaims{}, t.keyFunc, jwt.WithoutClaimsValidation())
	if err != nil {
		t.logger.Debug("Tokenizer unable to verify token", "error", err)
		return false
	}

	return true
}

// GetClaims re-verifies the signature and decodes the claim set. A missing
// or unparseable tenant id decodes to the uuid.Nil sentinel; missing or
// unparseable timestamps fall back to now rather than hard-failing. Only
// signature verification itself produces an error.
func (t *Tokenizer) GetClaims(raw string) (*SessionClaims, error) {
	if raw == "" {
		return nil, ErrUnableToDecodeSession
	}

	claims := &SessionClaims{}
	if _, err := jwt.ParseWithClaims(raw, claims, t.keyFunc, jwt.WithoutClaimsValidation()); err != nil {
		t.logger.Debug("Tokenizer unable to decode token", "error", err)
		return nil, errors.Wrap(err, ErrUnableToDecodeSession.Category, ErrUnableToDecodeSession.Message).
			WithTextCode(ErrUnableToDecodeSession.TextCode)
	}

	t.normalize(claims)

	return claims, nil
}

func (t *Tokenizer) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		t.logger.Error("Tokenizer encountered unexpected signing method", "alg", token.Header["alg"])
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return t.signingKey, nil
}

func (t *Tokenizer) normalize(claims *SessionClaims) {
	if claims.TenantClaim != "" && claims.TenantID() == uuid.Nil {
		claims.TenantClaim = ""
	}

	now := formatClaimTime(t.now())
	if claims.IssuedAtTime().IsZero() {
		claims.IssuedClaim = now
	}
	if claims.ExpiresAtTime().IsZero() {
		claims.ExpiresClaim = now
	}
}
