package headerauth

import (
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
)

// UserStore is the persistence interface the authenticator needs for user
// records. Implementations must enforce username uniqueness; a concurrent
// first login for the same new username surfaces as a Save error on the
// losing request.
type UserStore interface {
	// LoadByName returns the user with the given username with roles
	// preloaded, or nil when no such user exists.
	LoadByName(username string) (*models.User, error)
	// Save persists a new or updated user including its role set.
	Save(user *models.User) error
	// ReplaceRoles rewrites the user's role set to exactly the given IDs.
	ReplaceRoles(user *models.User, roleIDs map[uint]struct{}) error
}

// RoleStore is the read-only role lookup interface. Role names are matched
// case-insensitively.
type RoleStore interface {
	// ExistsByName reports whether a role with the given name exists.
	ExistsByName(name string) (bool, error)
	// LoadByName returns the role with the given name, or ErrRoleNotFound.
	LoadByName(name string) (*models.Role, error)
	// LoadAllLowercaseNameMap returns all roles keyed by lowercased name.
	LoadAllLowercaseNameMap() (map[string]models.Role, error)
	// ReaderRole returns the built-in reader role.
	ReaderRole() (*models.Role, error)
	// AdminRole returns the built-in admin role.
	AdminRole() (*models.Role, error)
}

// DirectorySyncer is an optional upstream directory hook (e.g. LDAP) that may
// supply an already provisioned user before the local store is consulted.
type DirectorySyncer interface {
	// Enabled reports whether the hook should be consulted at all.
	Enabled() bool
	// SyncUser fetches the user from the directory and upserts the local
	// record. It returns nil when the directory does not know the username.
	SyncUser(username string) (*models.User, error)
}
