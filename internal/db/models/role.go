package models

import "time"

const (
	// RoleReader is the name of the built-in role assigned to auto-provisioned
	// users when no configured default group resolves.
	RoleReader = "reader"
	// RoleAdmin is the name of the built-in administrator role.
	RoleAdmin = "admin"
)

// Role represents a role that can be assigned to users.
// The two system roles "admin" and "reader" are seeded at startup; further
// roles are created by operators and referenced by name in the roles header.
type Role struct {
	// ID is the unique identifier for the role.
	ID uint `gorm:"primaryKey"`
	// Name is the unique name of the role (e.g., "admin", "reader").
	Name string `gorm:"unique;size:100;not null"`
	// Description provides a human-readable description of the role's purpose.
	Description string `gorm:"size:255"`
	// IsSystem indicates if this is a system role that cannot be deleted.
	IsSystem bool `gorm:"default:false"`
	// CreatedAt is the timestamp when the role was created (managed by GORM).
	CreatedAt time.Time
	// UpdatedAt is the timestamp when the role was last updated (managed by GORM).
	UpdatedAt time.Time
}

// TableName specifies the database table name for the Role model.
// This overrides GORM's default pluralized table naming.
func (Role) TableName() string {
	return "roles"
}
