package auth

import "errors"

// ErrMultipleUsersFound is returned when a query expected one user but found multiple.
// This typically indicates a misconfigured LDAP filter or duplicate entries.
var ErrMultipleUsersFound = errors.New("multiple users found")
