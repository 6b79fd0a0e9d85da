package daemon

import (
	"gorm.io/gorm"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
	"github.com/go-sso-gateway/go-sso-gateway/internal/uniuri"
)

const bootstrapPasswordLen = 32

// seed makes sure the built-in roles exist and bootstraps a local admin user
// on a fresh database. The admin password is random; access is expected to go
// through the trusted-header login, the local record only anchors the admin
// role.
func seed(db *gorm.DB) error {
	roles := []models.Role{
		{Name: models.RoleAdmin, Description: "Full administrative access", IsSystem: true},
		{Name: models.RoleReader, Description: "Read-only access", IsSystem: true},
	}

	for i := range roles {
		err := db.Where(models.Role{Name: roles[i].Name}).
			Attrs(roles[i]).
			FirstOrCreate(&roles[i]).Error
		if err != nil {
			return err
		}
	}

	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	admin := models.User{
		Active:   true,
		Username: "admin",
		FullName: "Administrator",
		Email:    "admin@localhost",
		Password: models.HashPassword(uniuri.NewLen(bootstrapPasswordLen)),
		Roles:    []models.Role{roles[0]},
	}

	return db.Omit("Roles.*").Create(&admin).Error
}
