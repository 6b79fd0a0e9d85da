// Package web wires the Fiber application serving the gateway's REST surface.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/go-sso-gateway/go-sso-gateway/internal/auth"
	"github.com/go-sso-gateway/go-sso-gateway/internal/config"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/controller/role"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/controller/user"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
	"github.com/go-sso-gateway/go-sso-gateway/internal/headerauth"
	accesslog "github.com/go-sso-gateway/go-sso-gateway/internal/logger/adapter/fiber"
	adminuser "github.com/go-sso-gateway/go-sso-gateway/internal/web/handler/admin/user"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web/handler/logout"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web/handler/ssoconfig"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web/handler/whoami"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web/middleware/sso"
)

// CheckAlivePath answers load balancer health checks without authentication.
const CheckAlivePath = "/checkalive"

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	db           *gorm.DB
	authService  *auth.Service
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	s.alive.Store(true)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for graceful shutdown of the gateway.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	// Wait interrupt or shutdown request through /shutdown
	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	// stop fiber http server
	serverShutdown := make(chan struct{})

	go func() {
		log.Info().Msg("stopping http server ...")

		err := s.App.Shutdown()
		if err != nil {
			log.Error().Err(err).Msg("")
		}

		serverShutdown <- struct{}{}
	}()

	<-serverShutdown
	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service with the given configuration.
func New(cfg *config.Config, db *gorm.DB) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if db == nil {
		panic("db cannot be nil")
	}

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        "go-sso-gateway",
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(accesslog.New(accesslog.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	// stores and domain services
	users := user.NewService(db)
	roles := role.NewService(db)
	authService := auth.NewService(db)

	cfgs := headerauth.NewConfigService(db, strings.Join(cfg.Webserver.TrustedProxies, ","))
	trustedSubnets := headerauth.ParseSubnets(cfg.Webserver.TrustedProxies)

	var dir headerauth.DirectorySyncer

	if cfg.LDAP.Enabled {
		provider, err := auth.NewLDAPProvider(ldapConfig(cfg), users, roles)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize directory sync")
		}

		dir = provider
	}

	resolver := headerauth.NewResolver(cfgs, users, roles, dir, trustedSubnets)
	ssoMiddleware := sso.New(cfg, cfgs, resolver, roles)

	// init web service
	service := &Service{
		cfg:         cfg,
		App:         app,
		db:          db,
		authService: authService,
	}

	// unauthenticated surface
	app.Get(CheckAlivePath, service.checkAlive)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	logout.Handler.Init(app, cfg)

	// everything below /api requires an asserted identity or a live session
	api := app.Group("/api", ssoMiddleware.Handler)
	whoami.Handler.Init(api, cfg)

	// admin-only surface
	admin := api.Group("/", auth.RequireRole(authService, models.RoleAdmin))
	adminuser.Handler.Init(admin, cfg, users)
	ssoconfig.Handler.Init(admin, cfg, cfgs)

	return service
}

// checkAlive reports 200 while the service accepts traffic and 503 once a
// graceful shutdown has started.
func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("alive")
}

// ldapConfig maps the server configuration onto the directory sync settings.
func ldapConfig(cfg *config.Config) *auth.LDAPConfig {
	return &auth.LDAPConfig{
		Enabled:      cfg.LDAP.Enabled,
		Host:         cfg.LDAP.Host,
		Port:         cfg.LDAP.Port,
		UseSSL:       cfg.LDAP.UseSSL,
		UseTLS:       cfg.LDAP.UseTLS,
		SkipVerify:   cfg.LDAP.SkipVerify,
		BindDN:       cfg.LDAP.BindDN,
		BindPassword: cfg.LDAP.BindPassword,
		BaseDN:       cfg.LDAP.BaseDN,
		UserFilter:   cfg.LDAP.UserFilter,
		UsernameAttr: cfg.LDAP.UsernameAttr,
		EmailAttr:    cfg.LDAP.EmailAttr,
		FullNameAttr: cfg.LDAP.FullNameAttr,
		Timeout:      cfg.LDAP.Timeout,
	}
}
