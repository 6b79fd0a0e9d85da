// Package auth provides authorization checks and the optional LDAP
// directory-sync hook.
//
// Authentication itself is delegated to the upstream SSO proxy; this package
// never verifies credentials. It contributes two things:
//
//   - Service: role membership checks against the local database, used by the
//     Fiber middleware to guard administrative REST resources.
//   - LDAPProvider: an optional directory hook consulted by the trusted-header
//     resolver before the local user store. When enabled, it looks up the
//     asserted username in LDAP and upserts the local user record with the
//     directory's profile attributes. It binds with a service account only;
//     no user credentials are ever checked.
//
// # Middleware
//
//	app.Get("/api/admin/users",
//	    auth.RequireRole(authService, models.RoleAdmin),
//	    handler,
//	)
package auth
