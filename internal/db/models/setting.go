// Package models contains database model definitions.
package models

// Setting is a named configuration blob stored in the database. The
// authenticator configuration lives here so that all gateway instances
// sharing the database see the same settings.
type Setting struct {
	ID    uint64 `gorm:"primaryKey"`
	Name  string `gorm:"unique"`
	Value []byte `gorm:"type:blob"`
}
