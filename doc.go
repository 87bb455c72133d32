// Package auth provides identity, session, and multi-tenant context
// primitives: HMAC signed session tokens, account registration, credential
// verification, tenant resolution, and request middleware.
//
// Session tokens:
//   - Tokenizer signs and verifies session claims (email, tenant, issued
//     and expiry timestamps) with HMAC-SHA256. Signature checks and expiry
//     checks are separate: IsValid answers only "was this minted by us",
//     while SessionClaims.ValidAt answers "is it still good now".
//
// Registration lifecycle:
//   - Accounts are created inactive with no password. RegistrationService
//     hands out a one-time token; completing it sets the password and
//     activates the account in one transaction, and can only happen once.
//
// Tenancy:
//   - A session is bound to at most one tenant at a time. TenantResolver
//     lists memberships, resolves the default, and re-signs a fresh token
//     when the user switches tenant.
//
// Request flow:
//   - RequestAuthenticator resolves the caller's identity for state
//     changing requests and always degrades to the anonymous identity on
//     failure. Guards (Authenticated, TenantBound, HasPermission) are the
//     rejection points, applied per route with RequireGuards.
package auth
