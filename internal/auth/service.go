package auth

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
)

// Service provides role-based authorization checks.
type Service struct {
	db *gorm.DB
}

// NewService creates a new auth service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// UserHasRole checks if a user has a role with the given name assigned.
// The name match is case-insensitive.
func (s *Service) UserHasRole(userID uint64, roleName string) (bool, error) {
	var count int64

	err := s.db.Table("roles").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ? AND LOWER(roles.name) = ?", userID, strings.ToLower(roleName)).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role membership: %w", err)
	}

	return count > 0, nil
}

// IsAdmin checks if a user holds the built-in admin role.
func (s *Service) IsAdmin(userID uint64) (bool, error) {
	return s.UserHasRole(userID, models.RoleAdmin)
}

// GetUserRoles retrieves the names of all roles assigned to a user.
func (s *Service) GetUserRoles(userID uint64) ([]string, error) {
	var names []string

	err := s.db.Table("roles").
		Select("roles.name").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	return names, nil
}
