package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-sso-gateway/go-sso-gateway/internal/web/session"
)

// RequireRole creates Fiber middleware that requires the session's user to
// hold the named role. It runs after the session has been established and
// re-validated by the trusted-header middlewares.
func RequireRole(authService *Service, roleName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID := c.Cookies(session.CookieName)
		if sessionID == "" {
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}

		sessionData := new(session.Data)
		if err := sessionData.Read(sessionID); err != nil {
			log.Error().Err(err).Msg("failed to read session")
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}

		if sessionData.User.ID == 0 {
			return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
		}

		hasRole, err := authService.UserHasRole(sessionData.User.ID, roleName)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", sessionData.User.ID).Str("role", roleName).
				Msg("failed to check role membership")

			return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
		}

		if !hasRole {
			log.Warn().Uint64("user_id", sessionData.User.ID).Str("role", roleName).
				Msg("user lacks required role")

			return c.Status(fiber.StatusForbidden).SendString("Forbidden: You don't have permission to access this resource")
		}

		return c.Next()
	}
}
