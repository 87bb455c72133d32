package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the account model
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	GivenName      string     `bun:"given_name" json:"given_name,omitempty"`
	MiddleName     string     `bun:"middle_name" json:"middle_name,omitempty"`
	FamilyName     string     `bun:"family_name" json:"family_name,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Active         bool       `bun:"active" json:"active,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// Tenant is an isolated organizational scope an account can operate within.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:tnt"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name          string     `bun:"name,notnull,unique" json:"name,omitempty"`
	Active        bool       `bun:"active" json:"active,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// TenantMembership is the user/tenant relation with per-pair attributes.
// At most one membership per user carries the default flag; the default
// tenant is the one a session binds to when no explicit selection was made.
type TenantMembership struct {
	bun.BaseModel `bun:"table:user_tenants,alias:utn"`
	UserID        uuid.UUID  `bun:"user_id,pk,type:uuid" json:"user_id,omitempty"`
	TenantID      uuid.UUID  `bun:"tenant_id,pk,type:uuid" json:"tenant_id,omitempty"`
	Tenant        *Tenant    `bun:"rel:belongs-to,join:tenant_id=id" json:"tenant,omitempty"`
	Active        bool       `bun:"active" json:"active,omitempty"`
	Default       bool       `bun:"is_default" json:"is_default,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// RegistrationStatus is the lifecycle state of a sign-up.
type RegistrationStatus = string

const (
	// RegistrationPending token and email stored, no password yet
	RegistrationPending RegistrationStatus = "pending"
	// RegistrationCompleted password set; terminal
	RegistrationCompleted RegistrationStatus = "completed"
)

// registrationTransitions is the allowed lifecycle graph. Completed is
// terminal: nothing transitions out of it.
var registrationTransitions = map[RegistrationStatus]map[RegistrationStatus]struct{}{
	RegistrationPending: {
		RegistrationCompleted: {},
	},
}

// CanTransitionRegistration reports whether a registration may move between
// the two states.
func CanTransitionRegistration(from, to RegistrationStatus) bool {
	if allowed, ok := registrationTransitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// Registration is a pending account activation. The token is a one-time-use
// opaque capability, unrelated to session tokens, delivered inside the
// activation link. Rows are never deleted by this subsystem.
type Registration struct {
	bun.BaseModel `bun:"table:registrations,alias:reg"`
	ID            uuid.UUID          `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Token         string             `bun:"token,notnull,unique" json:"token,omitempty"`
	UserID        uuid.UUID          `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Email         string             `bun:"email,notnull" json:"email,omitempty"`
	Status        RegistrationStatus `bun:"status,notnull" json:"status,omitempty"`
	CompletedAt   *time.Time         `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
	CreatedAt     *time.Time         `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// EnsureStatus defaults a zero-value status to pending.
func (r *Registration) EnsureStatus() {
	if r.Status == "" {
		r.Status = RegistrationPending
	}
}

// IsCompleted reports whether the registration reached its terminal state.
func (r *Registration) IsCompleted() bool {
	return r.Status == RegistrationCompleted
}
