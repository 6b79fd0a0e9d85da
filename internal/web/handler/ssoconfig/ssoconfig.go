// Package ssoconfig provides the admin API for the trusted-header
// authenticator configuration.
package ssoconfig

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/go-sso-gateway/go-sso-gateway/internal/config"
	"github.com/go-sso-gateway/go-sso-gateway/internal/headerauth"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web/handler"
)

// Path is the configuration route path.
const Path = handler.APIPath + "/system/sso/config"

// Service is the sso configuration handler service.
type Service struct {
	cfg  *config.Config
	cfgs *headerauth.ConfigService
}

// Handler is the exported instance.
var Handler = Service{}

// Init registers the configuration routes on the admin router.
func (s *Service) Init(router fiber.Router, cfg *config.Config, cfgs *headerauth.ConfigService) {
	if router == nil || cfg == nil || cfgs == nil {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.cfg = cfg
	s.cfgs = cfgs

	router.Get("/system/sso/config", s.Get)
	router.Put("/system/sso/config", s.Update)
}

// Get returns the stored authenticator configuration. The trusted proxy
// subnets are merged in from the server configuration so admins can see the
// effective trust boundary.
func (s *Service) Get(c *fiber.Ctx) error {
	cfg, err := s.cfgs.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load sso authenticator configuration")
		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	return c.JSON(cfg)
}

// Update replaces the stored authenticator configuration. The trusted proxy
// subnets are owned by the server configuration and are dropped from the
// request before the configuration is persisted.
func (s *Service) Update(c *fiber.Ctx) error {
	var cfg headerauth.Config

	if err := c.BodyParser(&cfg); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString("Bad Request")
	}

	if err := s.cfgs.Store(cfg); err != nil {
		if errors.Is(err, headerauth.ErrInvalidConfig) {
			return c.Status(fiber.StatusBadRequest).SendString(err.Error())
		}

		log.Error().Err(err).Msg("failed to store sso authenticator configuration")

		return c.Status(fiber.StatusInternalServerError).SendString("Internal Server Error")
	}

	// Echo the effective configuration back, trusted proxies included.
	return s.Get(c)
}
