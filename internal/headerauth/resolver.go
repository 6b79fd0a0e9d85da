package headerauth

import (
	"net/netip"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
	"github.com/go-sso-gateway/go-sso-gateway/internal/uniuri"
)

// placeholderPasswordLen is the length of the random placeholder password
// hashed into auto-provisioned accounts.
const placeholderPasswordLen = 32

// Resolver runs the login-time identity resolution: validate the request
// origin, extract the username claim, load or provision the local user and
// reconcile roles. It is invoked once per unauthenticated request; requests
// on an established session go through the session continuity guard instead.
type Resolver struct {
	cfgs           ConfigProvider
	users          UserStore
	roles          RoleStore
	dir            DirectorySyncer
	trustedSubnets []netip.Prefix
}

// NewResolver creates a Resolver. dir may be nil when no directory sync hook
// is configured.
func NewResolver(
	cfgs ConfigProvider,
	users UserStore,
	roles RoleStore,
	dir DirectorySyncer,
	trustedSubnets []netip.Prefix,
) *Resolver {
	return &Resolver{
		cfgs:           cfgs,
		users:          users,
		roles:          roles,
		dir:            dir,
		trustedSubnets: trustedSubnets,
	}
}

// Resolve authenticates a request from its headers and remote address. A nil
// return means "not authenticated": either the identity header is absent and
// other mechanisms may run, or the request was rejected. All rejection paths
// are logged; none of them are fatal beyond the single request.
func (r *Resolver) Resolve(headers map[string][]string, remoteAddr string) *models.User {
	cfg, err := r.cfgs.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load sso authenticator configuration")
		return nil
	}

	username, ok := HeaderValue(headers, cfg.UsernameHeader)
	if !ok {
		log.Debug().Str("header", cfg.UsernameHeader).Msg("trusted header is not set")
		return nil
	}

	if cfg.RequireTrustedProxies && !IsTrusted(remoteAddr, r.trustedSubnets) {
		log.Info().
			Str("header", cfg.UsernameHeader).
			Str("remote_addr", remoteAddr).
			Str("trusted_proxies", SubnetsString(r.trustedSubnets)).
			Msg("request with trusted header received from address outside the trusted subnets")

		return nil
	}

	user, err := r.LookupUser(username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to load user")
		return nil
	}

	if user == nil {
		if !cfg.AutoCreateUser {
			log.Trace().
				Str("username", username).
				Str("header", cfg.UsernameHeader).
				Msg("no such user and automatic user creation is disabled, ignoring trusted header")

			return nil
		}

		if user = r.provision(cfg, headers, username); user == nil {
			return nil
		}
	}

	log.Trace().Str("header", cfg.UsernameHeader).Str("username", user.Username).
		Msg("trusted header set, continuing with user")

	if cfg.RoleSyncEnabled() {
		if rolesClaim, present := HeaderValues(headers, cfg.RolesHeader); present {
			if err := SyncUserRoles(r.users, r.roles, user, rolesClaim); err != nil {
				log.Error().Err(err).
					Strs("roles", rolesClaim).
					Str("username", user.Username).
					Msg("unable to sync roles from http header, not logging in")

				return nil
			}
		}
	}

	return user
}

// LookupUser resolves a username to a local user record, consulting the
// directory sync hook first when one is enabled. Returns nil when the user
// does not exist anywhere.
func (r *Resolver) LookupUser(username string) (*models.User, error) {
	if r.dir != nil && r.dir.Enabled() {
		user, err := r.dir.SyncUser(username)
		if err != nil {
			log.Warn().Err(err).Str("username", username).Msg("directory sync failed, falling back to local user store")
		} else if user != nil {
			return user, nil
		}
	}

	return r.users.LoadByName(username)
}

// provision creates a new external user record from the request's claims.
// Returns nil when the record could not be persisted, e.g. because a
// concurrent request won the creation race.
func (r *Resolver) provision(cfg Config, headers map[string][]string, username string) *models.User {
	user := &models.User{
		Active:   true,
		Username: username,
		External: true,
		Password: models.HashPassword(uniuri.NewLen(placeholderPasswordLen)),
	}

	if fullname, ok := HeaderValue(headers, cfg.FullnameHeader); ok {
		user.FullName = fullname
	} else {
		user.FullName = username
	}

	if email, ok := HeaderValue(headers, cfg.EmailHeader); ok {
		user.Email = email
	} else {
		domain := cfg.DefaultEmailDomain
		if domain == "" {
			domain = "localhost"
		}

		user.Email = username + "@" + domain
	}

	role, err := r.initialRole(cfg)
	if err != nil {
		log.Error().Err(err).Str("username", username).
			Msg("unable to resolve an initial role, not logging in with http header")

		return nil
	}

	user.Roles = []models.Role{role}

	if err := r.users.Save(user); err != nil {
		log.Error().Err(err).Str("username", username).
			Msg("unable to save auto created user, not logging in with http header")

		return nil
	}

	return user
}

// initialRole picks the role assigned at provisioning time: the configured
// default group when it resolves, the built-in reader role otherwise. The
// reader role is seeded at startup; failing to load it fails the login.
func (r *Resolver) initialRole(cfg Config) (models.Role, error) {
	if cfg.DefaultGroup != "" {
		roleMap, err := r.roles.LoadAllLowercaseNameMap()
		if err != nil {
			log.Info().Err(err).Msg("unable to retrieve roles, giving user reader role")
			return r.readerRole()
		}

		if role, found := roleMap[strings.ToLower(cfg.DefaultGroup)]; found {
			return role, nil
		}

		log.Warn().Str("default_group", cfg.DefaultGroup).
			Msg("could not find configured default group, giving user reader role instead")
	}

	return r.readerRole()
}

func (r *Resolver) readerRole() (models.Role, error) {
	role, err := r.roles.ReaderRole()
	if err != nil {
		return models.Role{}, err
	}

	return *role, nil
}
