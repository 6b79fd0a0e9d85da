package auth

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/controller/role"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/controller/user"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
	"github.com/go-sso-gateway/go-sso-gateway/internal/uniuri"
)

// ErrLDAPDisabled is returned when the LDAP directory sync is disabled via
// configuration.
var ErrLDAPDisabled = errors.New("ldap directory sync is disabled")

// LDAPConfig holds LDAP/Active Directory configuration for the directory
// sync hook. Only a service-account bind is performed; user credentials are
// never checked here.
type LDAPConfig struct {
	// Enabled indicates if the directory sync hook is enabled.
	Enabled bool
	// Host is the LDAP server hostname or IP address.
	Host string
	// Port is the LDAP server port (typically 389 for LDAP, 636 for LDAPS).
	Port int
	// UseSSL enables LDAPS (LDAP over SSL/TLS) on port 636.
	UseSSL bool
	// UseTLS enables StartTLS to upgrade an LDAP connection to TLS.
	UseTLS bool
	// SkipVerify skips TLS certificate verification (insecure, for testing only).
	SkipVerify bool
	// BindDN is the distinguished name to bind with for performing searches.
	BindDN string
	// BindPassword is the password for the bind DN.
	BindPassword string
	// BaseDN is the base distinguished name for user searches.
	BaseDN string
	// UserFilter is the LDAP filter for finding users (e.g., "(uid={username})").
	// The {username} placeholder is replaced with the actual username.
	UserFilter string
	// UsernameAttr is the LDAP attribute containing the username (e.g., "uid", "sAMAccountName").
	UsernameAttr string
	// EmailAttr is the LDAP attribute containing the email address (e.g., "mail").
	EmailAttr string
	// FullNameAttr is the LDAP attribute containing the display name (e.g., "cn", "displayName").
	FullNameAttr string
	// Timeout is the connection timeout in seconds.
	Timeout int
}

// LDAPProvider syncs user records from an LDAP directory. It satisfies the
// headerauth.DirectorySyncer interface.
type LDAPProvider struct {
	config *LDAPConfig
	users  *user.Service
	roles  *role.Service
}

// NewLDAPProvider creates a new LDAP directory sync provider.
func NewLDAPProvider(config *LDAPConfig, users *user.Service, roles *role.Service) (*LDAPProvider, error) {
	if !config.Enabled {
		return nil, ErrLDAPDisabled
	}

	// Set defaults
	if config.UsernameAttr == "" {
		config.UsernameAttr = "uid"
	}

	if config.EmailAttr == "" {
		config.EmailAttr = "mail"
	}

	if config.FullNameAttr == "" {
		config.FullNameAttr = "cn"
	}

	if config.Timeout == 0 {
		config.Timeout = 10
	}

	return &LDAPProvider{
		config: config,
		users:  users,
		roles:  roles,
	}, nil
}

// Enabled reports whether the directory sync hook should be consulted.
func (p *LDAPProvider) Enabled() bool {
	return p != nil && p.config.Enabled
}

// SyncUser looks up the given username in the directory and upserts the
// local user record with the directory's profile attributes. Returns nil
// without an error when the directory does not know the username.
func (p *LDAPProvider) SyncUser(username string) (*models.User, error) {
	conn, err := p.connect()
	if err != nil {
		return nil, err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if p.config.BindDN != "" {
		if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
			return nil, fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	entry, err := p.searchUserEntry(conn, username)
	if err != nil {
		return nil, err
	}

	if entry == nil {
		return nil, nil
	}

	email := entry.GetAttributeValue(p.config.EmailAttr)
	fullName := entry.GetAttributeValue(p.config.FullNameAttr)

	return p.upsertUser(username, email, fullName)
}

// connect establishes a connection to the LDAP server.
func (p *LDAPProvider) connect() (*ldap.Conn, error) {
	hostPort := net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))

	var ldapURL string
	if p.config.UseSSL {
		ldapURL = "ldaps://" + hostPort
	} else {
		ldapURL = "ldap://" + hostPort
	}

	var tlsConfig *tls.Config
	if p.config.UseSSL || p.config.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: p.config.SkipVerify, //nolint:gosec // skipping verifying tls is ok
			ServerName:         p.config.Host,
		}
	}

	conn, err := ldap.DialURL(ldapURL, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if !p.config.UseSSL && p.config.UseTLS {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close LDAP connection")
			}

			return nil, fmt.Errorf("failed to start TLS: %w", errStartTLS)
		}
	}

	if p.config.Timeout > 0 {
		conn.SetTimeout(time.Duration(p.config.Timeout) * time.Second)
	}

	return conn, nil
}

// searchUserEntry searches LDAP for the given username. Returns nil when no
// entry matches.
func (p *LDAPProvider) searchUserEntry(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	userFilter := strings.ReplaceAll(p.config.UserFilter, "{username}", ldap.EscapeFilter(username))
	searchRequest := ldap.NewSearchRequest(
		p.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0, // Size limit
		p.config.Timeout,
		false,
		userFilter,
		[]string{
			p.config.UsernameAttr,
			p.config.EmailAttr,
			p.config.FullNameAttr,
			"dn",
		},
		nil,
	)

	searchResult, err := conn.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	switch len(searchResult.Entries) {
	case 0:
		return nil, nil
	case 1:
		return searchResult.Entries[0], nil
	default:
		return nil, ErrMultipleUsersFound
	}
}

// upsertUser creates or updates the local user record from directory
// attributes. New records get the built-in reader role; role sync may rewrite
// the set afterwards.
func (p *LDAPProvider) upsertUser(username, email, fullName string) (*models.User, error) {
	existing, err := p.users.LoadByName(username)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		changed := false

		if email != "" && existing.Email != email {
			existing.Email = email
			changed = true
		}

		if fullName != "" && existing.FullName != fullName {
			existing.FullName = fullName
			changed = true
		}

		if changed {
			if err := p.users.Save(existing); err != nil {
				return nil, err
			}
		}

		return existing, nil
	}

	reader, err := p.roles.ReaderRole()
	if err != nil {
		return nil, err
	}

	if fullName == "" {
		fullName = username
	}

	if email == "" {
		email = username + "@localhost"
	}

	newUser := &models.User{
		Active:   true,
		Username: username,
		Email:    email,
		FullName: fullName,
		External: true,
		Password: models.HashPassword(uniuri.NewLen(32)), //nolint:mnd
		Roles:    []models.Role{*reader},
	}

	if err := p.users.Save(newUser); err != nil {
		return nil, err
	}

	return newUser, nil
}

// TestConnection tests the LDAP server connection and bind credentials.
func (p *LDAPProvider) TestConnection() error {
	conn, err := p.connect()
	if err != nil {
		return err
	}

	defer func() {
		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if p.config.BindDN != "" {
		if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
			return fmt.Errorf("bind failed: %w", err)
		}
	}

	return nil
}
