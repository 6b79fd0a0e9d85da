package models

import (
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
)

// User represents a user account in the system.
// Accounts are normally auto-provisioned from trusted proxy headers and are
// therefore external: the stored password is a random placeholder that is
// never checked against anything.
type User struct {
	// ID is the unique identifier for the user.
	ID uint64 `gorm:"primaryKey"`
	// Active indicates whether the user account is active.
	Active bool
	// Username is the unique username asserted by the identity header.
	Username string `gorm:"unique;size:100;not null"`
	// Email is the user's email address, either taken from the email header
	// or synthesized as username@<default email domain>.
	Email string `gorm:"size:255;not null"`
	// Password is an Argon2id hash. For external users this is a placeholder
	// generated at provisioning time; no code path verifies it.
	Password string `gorm:"size:255"`
	// FullName is the user's display name, taken from the fullname header or
	// falling back to the username.
	FullName string `gorm:"size:200"`
	// External marks accounts owned by the upstream SSO system. All users
	// created by the gateway have this set.
	External bool `gorm:"not null;default:false"`
	// Roles are the roles currently assigned to this user. For external users
	// the set is reconciled against the roles header when role sync is on.
	Roles []Role `gorm:"many2many:user_roles;constraint:OnDelete:CASCADE"`
	// CreatedAt is the timestamp when the user was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the user was last updated (managed by GORM).
	UpdatedAt time.Time
	// DeletedAt is the soft delete timestamp (nil if not deleted, managed by GORM).
	DeletedAt *time.Time
}

// RoleIDs returns the IDs of the user's assigned roles as a set.
// Roles must have been preloaded.
func (u *User) RoleIDs() map[uint]struct{} {
	ids := make(map[uint]struct{}, len(u.Roles))
	for _, r := range u.Roles {
		ids[r.ID] = struct{}{}
	}

	return ids
}

// RoleNames returns the names of the user's assigned roles.
// Roles must have been preloaded.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}

	return names
}

// HashPassword hashes a plaintext password using the Argon2id algorithm.
// It is used to hash the placeholder password of auto-provisioned users.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}
