package auth

import (
	"sort"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
)

func setupTestDB(t *testing.T) (*gorm.DB, *models.User) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	require.NoError(t, db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}))
	require.NoError(t, db.AutoMigrate(&models.Role{}, &models.User{}))

	reader := models.Role{Name: models.RoleReader, IsSystem: true}
	admin := models.Role{Name: models.RoleAdmin, IsSystem: true}
	require.NoError(t, db.Create(&reader).Error)
	require.NoError(t, db.Create(&admin).Error)

	user := models.User{
		Active:   true,
		Username: "horst",
		Email:    "horst@localhost",
		Roles:    []models.Role{reader, admin},
	}
	require.NoError(t, db.Omit("Roles.*").Create(&user).Error)

	return db, &user
}

func TestUserHasRole(t *testing.T) {
	db, user := setupTestDB(t)
	svc := NewService(db)

	tests := []struct {
		role string
		want bool
	}{
		{models.RoleReader, true},
		{"READER", true},
		{models.RoleAdmin, true},
		{"editors", false},
		{"", false},
	}

	for _, tt := range tests {
		got, err := svc.UserHasRole(user.ID, tt.role)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "role %q", tt.role)
	}

	// unknown user has no roles
	got, err := svc.UserHasRole(4711, models.RoleReader)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestIsAdmin(t *testing.T) {
	db, user := setupTestDB(t)
	svc := NewService(db)

	isAdmin, err := svc.IsAdmin(user.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = svc.IsAdmin(4711)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestGetUserRoles(t *testing.T) {
	db, user := setupTestDB(t)
	svc := NewService(db)

	names, err := svc.GetUserRoles(user.ID)
	require.NoError(t, err)

	sort.Strings(names)
	assert.Equal(t, []string{models.RoleAdmin, models.RoleReader}, names)

	names, err = svc.GetUserRoles(4711)
	require.NoError(t, err)
	assert.Empty(t, names)
}
