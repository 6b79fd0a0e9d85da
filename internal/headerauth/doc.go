// Package headerauth implements trusted-header authentication.
//
// An upstream reverse proxy or SSO gateway authenticates the user and injects
// identity and role claims into HTTP request headers. This package decides
// whether the request origin is allowed to assert identity at all, extracts
// and normalizes the claims, and reconciles them against the local user and
// role store, auto-provisioning external user records when configured.
//
// # Trust model
//
// Claims are not verified cryptographically. Trust is purely network-origin
// based: when RequireTrustedProxies is enabled, only requests arriving from
// one of the configured CIDR prefixes may assert identity. Everything else
// fails closed to "not authenticated".
//
// # Components
//
//   - HeaderValue / HeaderValues / NormalizeCSV: pure claim extraction
//   - ParseSubnets / IsTrusted: the trusted-proxy validator
//   - Config / ConfigService: the versioned authenticator configuration,
//     stored as a JSON blob in the settings table
//   - Resolver: the login-time identity resolution state machine
//   - SyncUserRoles / RoleIDsForNames: role-claim reconciliation, shared by
//     the resolver and the per-request session continuity check
//
// The per-request session continuity guard lives with the web middleware; it
// reuses the claim extraction and role resolution from this package.
package headerauth
