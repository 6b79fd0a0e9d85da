// Package sso provides the Fiber middleware implementing trusted-header
// authentication for the REST surface.
//
// The middleware runs on every request to a protected route and has two
// modes. Without a valid session it performs the single-shot identity
// resolution (headerauth.Resolver) and, on success, establishes the session.
// With an existing session it runs the continuity guard instead: the trust
// decision was only made once at session creation, so the identity and role
// claims are re-checked against the latest header values on every request,
// and the session is terminated on any drift.
//
// The guard deliberately does not re-check the trusted proxy subnets.
// Re-validating the network origin per request would duplicate the
// login-time check with the danger of enforcing it differently.
package sso
