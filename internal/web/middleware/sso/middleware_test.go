package sso

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage"
	"gorm.io/gorm"

	"github.com/go-sso-gateway/go-sso-gateway/internal/config"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/controller/role"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/controller/user"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
	"github.com/go-sso-gateway/go-sso-gateway/internal/headerauth"
	websess "github.com/go-sso-gateway/go-sso-gateway/internal/web/session"
)

// testStorage is a minimal in-memory implementation of storage.Storage for tests.
type testStorage struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ storage.Storage = (*testStorage)(nil)

func (s *testStorage) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := s.data[key]
	out := make([]byte, len(v))
	copy(out, v)

	return out, nil
}

func (s *testStorage) Set(key string, val []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string][]byte)
	}

	buf := make([]byte, len(val))
	copy(buf, val)
	s.data[key] = buf

	return nil
}

func (s *testStorage) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)

	return nil
}

func (s *testStorage) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string][]byte)

	return nil
}

func (s *testStorage) Close() error { return nil }

func (s *testStorage) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite in-memory db: %v", err)
	}

	if err := db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}); err != nil {
		t.Fatalf("failed to set up join table: %v", err)
	}

	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Setting{}); err != nil {
		t.Fatalf("failed to migrate models: %v", err)
	}

	roles := []models.Role{
		{Name: models.RoleReader, IsSystem: true},
		{Name: models.RoleAdmin, IsSystem: true},
	}
	if err := db.Create(&roles).Error; err != nil {
		t.Fatalf("failed to seed roles: %v", err)
	}

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		DevMode: true,
		Webserver: config.Webserver{
			URL:  "http://localhost",
			Port: 3000,
			// fiber's test connection reports 0.0.0.0 as the remote address
			TrustedProxies: []string{"0.0.0.0/32"},
			Session:        config.Session{ExpiryTime: time.Minute},
		},
	}
}

// newTestApp builds a Fiber app with the middleware protecting /api and a
// probe route answering with the authenticated username.
func newTestApp(t *testing.T, cfg *config.Config, db *gorm.DB) (*fiber.App, *headerauth.ConfigService, *testStorage) {
	t.Helper()

	store := &testStorage{data: make(map[string][]byte)}
	websess.Init(store)

	users := user.NewService(db)
	roles := role.NewService(db)
	cfgs := headerauth.NewConfigService(db, "0.0.0.0/32")
	resolver := headerauth.NewResolver(cfgs, users, roles, nil, headerauth.ParseSubnets(cfg.Webserver.TrustedProxies))

	m := New(cfg, cfgs, resolver, roles)

	app := fiber.New()
	api := app.Group("/api", m.Handler)
	api.Get("/ping", func(c *fiber.Ctx) error {
		u, ok := c.Locals(CurrentUserKey).(models.User)
		if !ok {
			return c.Status(fiber.StatusInternalServerError).SendString("no user in locals")
		}

		return c.SendString(u.Username)
	})

	return app, cfgs, store
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == websess.CookieName {
			return c
		}
	}

	return nil
}

func doRequest(t *testing.T, app *fiber.App, cookie *http.Cookie, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	if cookie != nil {
		req.AddCookie(cookie)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}

	return resp
}

func TestLoginEstablishesSession(t *testing.T) {
	cfg := newTestConfig()
	db := newTestDB(t)
	app, _, store := newTestApp(t, cfg, db)

	resp := doRequest(t, app, nil, map[string]string{"Remote-User": "horst"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	cookie := sessionCookie(resp)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected a session cookie after header login")
	}

	if store.len() != 1 {
		t.Errorf("session store holds %d entries, want 1", store.len())
	}

	// the user was provisioned
	var provisioned models.User
	if err := db.Where("username = ?", "horst").First(&provisioned).Error; err != nil {
		t.Fatalf("provisioned user not found: %v", err)
	}

	if !provisioned.External {
		t.Error("auto-provisioned user must be external")
	}
}

func TestRequestWithoutHeaderIsRejected(t *testing.T) {
	cfg := newTestConfig()
	db := newTestDB(t)
	app, _, _ := newTestApp(t, cfg, db)

	resp := doRequest(t, app, nil, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSessionContinuity(t *testing.T) {
	cfg := newTestConfig()
	db := newTestDB(t)
	app, _, _ := newTestApp(t, cfg, db)

	resp := doRequest(t, app, nil, map[string]string{"Remote-User": "horst"})
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}

	// same user keeps the session
	resp = doRequest(t, app, cookie, map[string]string{"Remote-User": "horst"})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d for continued session, want 200", resp.StatusCode)
	}

	// absent header keeps the session as well
	resp = doRequest(t, app, cookie, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d without identity header, want 200", resp.StatusCode)
	}
}

func TestSessionTerminatedOnUserChange(t *testing.T) {
	cfg := newTestConfig()
	db := newTestDB(t)
	app, _, store := newTestApp(t, cfg, db)

	resp := doRequest(t, app, nil, map[string]string{"Remote-User": "horst"})
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}

	// a different user appears behind the same session
	resp = doRequest(t, app, cookie, map[string]string{"Remote-User": "nothorst"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d for changed user, want 401", resp.StatusCode)
	}

	if store.len() != 0 {
		t.Errorf("session store holds %d entries after termination, want 0", store.len())
	}

	cleared := sessionCookie(resp)
	if cleared == nil || cleared.Value != "" {
		t.Error("expected the session cookie to be cleared")
	}
}

func enableRoleSync(t *testing.T, cfgs *headerauth.ConfigService) {
	t.Helper()

	cfg := headerauth.DefaultConfig("")
	cfg.SyncRoles = true

	if err := cfgs.Store(cfg); err != nil {
		t.Fatalf("failed to store config: %v", err)
	}
}

func TestSessionTerminatedOnRoleDrift(t *testing.T) {
	cfg := newTestConfig()
	db := newTestDB(t)
	app, cfgs, store := newTestApp(t, cfg, db)

	enableRoleSync(t, cfgs)

	resp := doRequest(t, app, nil, map[string]string{
		"Remote-User": "horst",
		"Roles":       "reader",
	})

	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}

	// the proxy now claims a role set that differs from the stored one;
	// the guard never writes roles, it forces a fresh login instead
	resp = doRequest(t, app, cookie, map[string]string{
		"Remote-User": "horst",
		"Roles":       "admin",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d for drifted roles, want 401", resp.StatusCode)
	}

	if store.len() != 0 {
		t.Errorf("session store holds %d entries after termination, want 0", store.len())
	}

	// the stored role set is untouched
	users := user.NewService(db)

	stored, err := users.LoadByName("horst")
	if err != nil || stored == nil {
		t.Fatalf("failed to load user: %v", err)
	}

	if names := stored.RoleNames(); len(names) != 1 || names[0] != models.RoleReader {
		t.Errorf("stored roles = %v, want only reader", names)
	}
}

func TestChangedClaimWithSameRolesKeepsSession(t *testing.T) {
	cfg := newTestConfig()
	db := newTestDB(t)
	app, cfgs, _ := newTestApp(t, cfg, db)

	enableRoleSync(t, cfgs)

	resp := doRequest(t, app, nil, map[string]string{
		"Remote-User": "horst",
		"Roles":       "reader",
	})

	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("expected a session cookie")
	}

	// unknown role names are dropped during verification, so the resolved ID
	// set still matches the stored roles and the session survives
	resp = doRequest(t, app, cookie, map[string]string{
		"Remote-User": "horst",
		"Roles":       "reader, unknown-role",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d for equivalent role claim, want 200", resp.StatusCode)
	}

	// the verified claim was cached; repeating it keeps the session too
	resp = doRequest(t, app, cookie, map[string]string{
		"Remote-User": "horst",
		"Roles":       "reader, unknown-role",
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d for cached role claim, want 200", resp.StatusCode)
	}
}

func TestStaleCookieFallsBackToHeaderLogin(t *testing.T) {
	cfg := newTestConfig()
	db := newTestDB(t)
	app, _, _ := newTestApp(t, cfg, db)

	stale := &http.Cookie{Name: websess.CookieName, Value: "0badc0ffee"}

	resp := doRequest(t, app, stale, map[string]string{"Remote-User": "horst"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d with stale cookie and valid header, want 200", resp.StatusCode)
	}

	if cookie := sessionCookie(resp); cookie == nil || cookie.Value == "" {
		t.Error("expected a fresh session cookie")
	}
}
