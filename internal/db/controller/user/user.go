// Package user provides the persistence service for user accounts.
package user

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
)

const whereUsername = "username = ?"

// Service implements user persistence on top of GORM. It satisfies the
// headerauth.UserStore interface.
type Service struct {
	db *gorm.DB
}

// NewService creates a new user service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// LoadByName returns the user with the given username, with roles preloaded.
// Returns nil without an error when the user does not exist.
func (s *Service) LoadByName(username string) (*models.User, error) {
	var user models.User

	err := s.db.Preload("Roles").Where(whereUsername, username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}

// Save persists a new or updated user. The unique constraint on the username
// column makes the losing side of a concurrent auto-create race fail here.
func (s *Service) Save(user *models.User) error {
	if user.ID == 0 {
		// Omit("Roles.*") associates the referenced role rows without
		// rewriting them.
		if err := s.db.Omit("Roles.*").Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		return nil
	}

	if err := s.db.Omit("Roles").Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	return s.ReplaceRoles(user, user.RoleIDs())
}

// ReplaceRoles rewrites the user's role set to exactly the given IDs.
func (s *Service) ReplaceRoles(user *models.User, roleIDs map[uint]struct{}) error {
	roles := make([]models.Role, 0, len(roleIDs))
	for id := range roleIDs {
		roles = append(roles, models.Role{ID: id})
	}

	if err := s.db.Model(user).Omit("Roles.*").Association("Roles").Replace(roles); err != nil {
		return fmt.Errorf("failed to replace user roles: %w", err)
	}

	// Reload the association so callers see full role rows, not ID stubs.
	if err := s.db.Preload("Roles").First(user, user.ID).Error; err != nil {
		return fmt.Errorf("failed to reload user roles: %w", err)
	}

	return nil
}

// List returns users ordered by username with a total count, for the admin
// listing resource.
func (s *Service) List(limit, offset int) ([]models.User, int64, error) {
	var (
		users []models.User
		total int64
	)

	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	err := s.db.Preload("Roles").Order("username").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}

// LoadByID returns the user with the given ID, with roles preloaded.
// Returns nil without an error when the user does not exist.
func (s *Service) LoadByID(id uint64) (*models.User, error) {
	var user models.User

	err := s.db.Preload("Roles").First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}
