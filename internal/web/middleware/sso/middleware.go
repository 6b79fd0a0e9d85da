package sso

import (
	"slices"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-sso-gateway/go-sso-gateway/internal/config"
	"github.com/go-sso-gateway/go-sso-gateway/internal/headerauth"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web/session"
)

// CurrentUserKey is the fiber.Locals key the authenticated user is stored
// under for downstream handlers.
const CurrentUserKey = "CurrentUser"

// Middleware authenticates requests from trusted proxy headers.
type Middleware struct {
	cfg      *config.Config
	cfgs     headerauth.ConfigProvider
	resolver *headerauth.Resolver
	roles    headerauth.RoleStore
}

// New creates the trusted-header middleware.
func New(
	cfg *config.Config,
	cfgs headerauth.ConfigProvider,
	resolver *headerauth.Resolver,
	roles headerauth.RoleStore,
) *Middleware {
	return &Middleware{
		cfg:      cfg,
		cfgs:     cfgs,
		resolver: resolver,
		roles:    roles,
	}
}

// Handler is the Fiber handler evaluated on every protected request. It
// dispatches to the continuity guard when the request carries a valid
// session, and to the identity resolver otherwise.
func (m *Middleware) Handler(c *fiber.Ctx) error {
	if sessionID := c.Cookies(session.CookieName); sessionID != "" {
		sessData := new(session.Data)
		if err := sessData.Read(sessionID); err == nil && sessData.User.ID > 0 {
			return m.guard(c, sessionID, sessData)
		}
		// Stale or unknown cookie, treat the request as unauthenticated.
	}

	return m.authenticate(c)
}

// authenticate runs the single-shot identity resolution and establishes a
// session on success. This is the only place a session is created.
func (m *Middleware) authenticate(c *fiber.Ctx) error {
	user := m.resolver.Resolve(c.GetReqHeaders(), c.IP())
	if user == nil {
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}

	sessionID, err := session.GenerateSessionID()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate session ID")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	sessData := &session.Data{User: *user}
	if err := sessData.Write(sessionID, m.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to write session")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	m.setSessionCookie(c, sessionID)
	c.Locals(CurrentUserKey, *user)

	return c.Next()
}

// guard re-validates an established session against the live header claims.
func (m *Middleware) guard(c *fiber.Ctx, sessionID string, sessData *session.Data) error {
	cfg, err := m.cfgs.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load sso authenticator configuration")
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}

	headers := c.GetReqHeaders()

	username, ok := headerauth.HeaderValue(headers, cfg.UsernameHeader)
	if !ok {
		// An absent header never tears down an existing session; only a
		// mismatching present header does. Revocation happens when the proxy
		// stops sending the header on the next login attempt.
		c.Locals(CurrentUserKey, sessData.User)
		return c.Next()
	}

	if username != sessData.User.Username {
		log.Warn().
			Str("session_user", sessData.User.Username).
			Str("header_user", username).
			Msg("terminating session as a new user appears in the trusted header")

		return m.terminate(c, sessionID)
	}

	if cfg.RoleSyncEnabled() {
		rolesClaim, present := headerauth.HeaderValues(headers, cfg.RolesHeader)
		if present && !slices.Equal(rolesClaim, sessData.VerifiedRoleClaim) {
			if done, err := m.verifyRoles(c, sessionID, sessData, username, rolesClaim); done {
				return err
			}
		}
	}

	c.Locals(CurrentUserKey, sessData.User)

	return c.Next()
}

// verifyRoles reconciles a changed role claim against the user store. It
// returns done=true when the request has been answered (session terminated
// or rejected); otherwise the cached claim has been refreshed and the
// request may proceed.
func (m *Middleware) verifyRoles(
	c *fiber.Ctx,
	sessionID string,
	sessData *session.Data,
	username string,
	rolesClaim []string,
) (bool, error) {
	user, err := m.resolver.LookupUser(username)
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("failed to load user for role verification")
		return true, c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}

	if user == nil {
		log.Error().Str("username", username).Msg("user of active session no longer exists")
		return true, m.terminate(c, sessionID)
	}

	roleNames := headerauth.NormalizeCSV(rolesClaim)
	claimedRoleIDs := headerauth.RoleIDsForNames(m.roles, roleNames)

	// The stored role set is authoritative here. The guard only verifies and
	// revokes; role changes are written by the login path, so a drift forces
	// a fresh login to resync.
	if !headerauth.RoleIDSetsEqual(user.RoleIDs(), claimedRoleIDs) {
		log.Warn().
			Str("username", username).
			Strs("claimed_roles", rolesClaim).
			Msg("terminating session as roles in the header differ from the user's stored roles")

		return true, m.terminate(c, sessionID)
	}

	sessData.User = *user
	sessData.VerifiedRoleClaim = rolesClaim

	if err := sessData.Write(sessionID, m.cfg.Webserver.Session.ExpiryTime); err != nil {
		log.Error().Err(err).Msg("failed to update session")
		return true, c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	return false, nil
}

// terminate destroys the session, clears the cookie and rejects the request.
func (m *Middleware) terminate(c *fiber.Ctx, sessionID string) error {
	if err := session.Destroy(sessionID); err != nil {
		log.Error().Err(err).Msg("failed to delete session")
	}

	m.clearSessionCookie(c)

	return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
}

func (m *Middleware) setSessionCookie(c *fiber.Ctx, sessionID string) {
	cookie := &fiber.Cookie{
		Name:     session.CookieName,
		Value:    sessionID,
		MaxAge:   int(m.cfg.Webserver.Session.ExpiryTime.Seconds()),
		Secure:   !m.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	}

	c.Cookie(cookie)
}

func (m *Middleware) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     session.CookieName,
		Value:    "",
		MaxAge:   -1,
		Secure:   !m.cfg.DevMode,
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
