// Package whoami exposes the identity of the authenticated caller.
package whoami

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-sso-gateway/go-sso-gateway/internal/config"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web/handler"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web/middleware/sso"
)

// Path is the whoami route path.
const Path = handler.APIPath + "/whoami"

// Service is the whoami handler service.
type Service struct {
	cfg *config.Config
}

// Handler is the exported instance.
var Handler = Service{}

// response is the wire format of the whoami answer.
type response struct {
	Username string   `json:"username"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
	External bool     `json:"external"`
	Roles    []string `json:"roles"`
}

// Init registers the whoami route on the authenticated router.
func (s *Service) Init(router fiber.Router, cfg *config.Config) {
	if router == nil || cfg == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg

	router.Get("/whoami", s.Get)
}

// Get answers with the user the current session is bound to.
func (s *Service) Get(c *fiber.Ctx) error {
	user, ok := c.Locals(sso.CurrentUserKey).(models.User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).SendString("Unauthorized")
	}

	return c.JSON(response{
		Username: user.Username,
		FullName: user.FullName,
		Email:    user.Email,
		External: user.External,
		Roles:    user.RoleNames(),
	})
}
