// Package role provides the lookup service for roles.
package role

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
)

const whereLowerName = "LOWER(name) = ?"

// ErrRoleNotFound is returned when a role cannot be found by name.
var ErrRoleNotFound = errors.New("role not found")

// Service implements role lookups on top of GORM. It satisfies the
// headerauth.RoleStore interface. All name matches are case-insensitive.
type Service struct {
	db *gorm.DB
}

// NewService creates a new role service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// ExistsByName reports whether a role with the given name exists.
func (s *Service) ExistsByName(name string) (bool, error) {
	var count int64

	err := s.db.Model(&models.Role{}).Where(whereLowerName, strings.ToLower(name)).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role existence: %w", err)
	}

	return count > 0, nil
}

// LoadByName returns the role with the given name, or ErrRoleNotFound.
func (s *Service) LoadByName(name string) (*models.Role, error) {
	var role models.Role

	err := s.db.Where(whereLowerName, strings.ToLower(name)).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRoleNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query role: %w", err)
	}

	return &role, nil
}

// LoadAllLowercaseNameMap returns all roles keyed by lowercased name.
func (s *Service) LoadAllLowercaseNameMap() (map[string]models.Role, error) {
	var roles []models.Role

	if err := s.db.Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	roleMap := make(map[string]models.Role, len(roles))
	for _, role := range roles {
		roleMap[strings.ToLower(role.Name)] = role
	}

	return roleMap, nil
}

// ReaderRole returns the built-in reader role.
func (s *Service) ReaderRole() (*models.Role, error) {
	return s.LoadByName(models.RoleReader)
}

// AdminRole returns the built-in admin role.
func (s *Service) AdminRole() (*models.Role, error) {
	return s.LoadByName(models.RoleAdmin)
}
