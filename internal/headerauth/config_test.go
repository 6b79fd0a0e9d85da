package headerauth

import (
	"encoding/json"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/controller/setting"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
)

func setupConfigDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to create test database")

	require.NoError(t, db.AutoMigrate(&models.Setting{}), "failed to migrate test database")

	return db
}

func TestConfigServiceLoadDefault(t *testing.T) {
	db := setupConfigDB(t)
	svc := NewConfigService(db, "192.168.0.0/24")

	cfg, err := svc.Load()
	require.NoError(t, err)

	assert.Equal(t, "Remote-User", cfg.UsernameHeader)
	assert.True(t, cfg.AutoCreateUser)
	assert.True(t, cfg.RequireTrustedProxies)
	assert.False(t, cfg.SyncRoles)
	assert.Equal(t, "Roles", cfg.RolesHeader)
	assert.Equal(t, "192.168.0.0/24", cfg.TrustedProxies)
}

func TestConfigServiceStoreAndLoad(t *testing.T) {
	db := setupConfigDB(t)
	svc := NewConfigService(db, "10.0.0.0/8")

	in := DefaultConfig("")
	in.UsernameHeader = "X-Forwarded-User"
	in.SyncRoles = true
	in.TrustedProxies = "192.168.0.0/24" // must be stripped on write

	require.NoError(t, svc.Store(in))

	cfg, err := svc.Load()
	require.NoError(t, err)

	assert.Equal(t, "X-Forwarded-User", cfg.UsernameHeader)
	assert.True(t, cfg.SyncRoles)
	// the server owned subnet list always wins
	assert.Equal(t, "10.0.0.0/8", cfg.TrustedProxies)

	// the persisted blob must not contain the submitted subnet list
	stored, err := setting.Get(db, SettingName)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(stored.Value, &raw))
	assert.NotContains(t, raw, "trusted_proxies")
}

func TestConfigServiceStoreInvalid(t *testing.T) {
	db := setupConfigDB(t)
	svc := NewConfigService(db, "")

	in := DefaultConfig("")
	in.UsernameHeader = ""

	err := svc.Store(in)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	// nothing was written
	_, err = setting.Get(db, SettingName)
	assert.ErrorIs(t, err, setting.ErrSettingNotFound)
}

func TestConfigServiceStoreOverwrites(t *testing.T) {
	db := setupConfigDB(t)
	svc := NewConfigService(db, "")

	first := DefaultConfig("")
	require.NoError(t, svc.Store(first))

	second := DefaultConfig("")
	second.DefaultGroup = "editors"
	require.NoError(t, svc.Store(second))

	cfg, err := svc.Load()
	require.NoError(t, err)
	assert.Equal(t, "editors", cfg.DefaultGroup)
}

func TestRoleSyncEnabled(t *testing.T) {
	cfg := DefaultConfig("")
	assert.False(t, cfg.RoleSyncEnabled(), "sync is off by default")

	cfg.SyncRoles = true
	assert.True(t, cfg.RoleSyncEnabled())

	cfg.RolesHeader = ""
	assert.False(t, cfg.RoleSyncEnabled(), "sync without a roles header is a no-op")
}
