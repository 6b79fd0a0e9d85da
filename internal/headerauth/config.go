package headerauth

import (
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/controller/setting"
)

// SettingName is the settings-table key the authenticator configuration is
// stored under.
const SettingName = "sso_auth_config"

// ErrInvalidConfig is returned when an authenticator configuration fails
// validation on write.
var ErrInvalidConfig = errors.New("invalid sso authenticator configuration")

// Config describes which headers to trust and how to behave. It is stored as
// a JSON blob in the settings table and read on every request; the zero value
// is not usable, use DefaultConfig.
type Config struct {
	// UsernameHeader is the name of the header carrying the identity claim.
	UsernameHeader string `json:"username_header" validate:"required"`
	// FullnameHeader optionally carries the user's display name.
	FullnameHeader string `json:"fullname_header,omitempty"`
	// EmailHeader optionally carries the user's email address.
	EmailHeader string `json:"email_header,omitempty"`
	// DefaultGroup is the role assigned to newly provisioned users. When it
	// does not resolve, the built-in reader role is used instead.
	DefaultGroup string `json:"default_group,omitempty"`
	// AutoCreateUser provisions unknown usernames on first login. When false,
	// unknown usernames are rejected.
	AutoCreateUser bool `json:"auto_create_user"`
	// RequireTrustedProxies restricts identity assertion to requests arriving
	// from the configured trusted subnets.
	RequireTrustedProxies bool `json:"require_trusted_proxies"`
	// TrustedProxies is the comma separated subnet list, shown read-only in
	// the configuration resource. The authoritative value comes from the
	// server configuration and is never persisted with this blob.
	TrustedProxies string `json:"trusted_proxies,omitempty"`
	// DefaultEmailDomain is the suffix used to synthesize an email address
	// when the email header is absent. Defaults to "localhost".
	DefaultEmailDomain string `json:"default_email_domain,omitempty"`
	// SyncRoles re-applies the roles header to the user's stored role set.
	SyncRoles bool `json:"sync_roles"`
	// RolesHeader is the header name prefix carrying comma separated role
	// names. All headers sharing the prefix contribute to the claim.
	RolesHeader string `json:"roles_header,omitempty"`
}

// DefaultConfig returns the configuration used until an operator stores one.
func DefaultConfig(trustedProxies string) Config {
	return Config{
		UsernameHeader:        "Remote-User",
		AutoCreateUser:        true,
		RequireTrustedProxies: true,
		TrustedProxies:        trustedProxies,
		RolesHeader:           "Roles",
		SyncRoles:             false,
	}
}

// RoleSyncEnabled reports whether role syncing is both requested and usable.
// SyncRoles without a roles header degrades to a no-op.
func (c Config) RoleSyncEnabled() bool {
	if c.SyncRoles && c.RolesHeader == "" {
		log.Warn().Msg("sync_roles is enabled but roles_header is empty, role sync is a no-op")
		return false
	}

	return c.SyncRoles
}

// ConfigProvider supplies the current authenticator configuration. Reads are
// expected to be cheap; the store may cache.
type ConfigProvider interface {
	Load() (Config, error)
}

// ConfigService loads and stores the authenticator configuration in the
// settings table.
type ConfigService struct {
	db             *gorm.DB
	validate       *validator.Validate
	trustedProxies string
}

// NewConfigService creates a ConfigService. trustedProxies is the server
// owned subnet list merged into loaded configurations for display.
func NewConfigService(db *gorm.DB, trustedProxies string) *ConfigService {
	return &ConfigService{
		db:             db,
		validate:       validator.New(),
		trustedProxies: trustedProxies,
	}
}

// Load returns the stored configuration, or the default configuration when
// none has been stored yet.
func (s *ConfigService) Load() (Config, error) {
	stored, err := setting.Get(s.db, SettingName)
	if errors.Is(err, setting.ErrSettingNotFound) {
		return DefaultConfig(s.trustedProxies), nil
	}

	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := json.Unmarshal(stored.Value, &cfg); err != nil {
		return Config{}, err
	}

	cfg.TrustedProxies = s.trustedProxies

	return cfg, nil
}

// Store validates and persists the configuration. The trusted proxy list is
// stripped before writing because it is owned by the server configuration.
func (s *ConfigService) Store(cfg Config) error {
	if err := s.validate.Struct(cfg); err != nil {
		return ErrInvalidConfig
	}

	cfg.TrustedProxies = ""

	value, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	_, err = setting.Set(s.db, SettingName, value)

	return err
}
