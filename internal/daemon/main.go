// Package daemon boots the gateway: database, migrations, seed data, session
// storage and the web service.
package daemon

import (
	"fmt"

	sessionmysql "github.com/gofiber/storage/mysql/v2"
	"github.com/rs/zerolog/log"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/go-sso-gateway/go-sso-gateway/internal/config"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/dsn"
	"github.com/go-sso-gateway/go-sso-gateway/internal/db/models"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web"
	"github.com/go-sso-gateway/go-sso-gateway/internal/web/session"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	webService web.Service
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
}

// WaitShutdown blocks until the web service has shut down gracefully.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) *Daemon {
	if cfg == nil {
		log.Fatal().Msg("config is nil")
		return nil
	}

	dbDriver := gormmysql.Open(dsn.Create(cfg)) // open db with gorm mysql driver

	db, err := gorm.Open(dbDriver, &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
		return nil
	}

	if err = db.SetupJoinTable(&models.User{}, "Roles", &models.UserRole{}); err != nil {
		log.Fatal().Err(err).Msg("failed to set up user role join table")
		return nil
	}

	if err = db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Setting{},
	); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
		return nil
	}

	if err = seed(db); err != nil {
		log.Fatal().Err(err).Msg("failed to seed database")
		return nil
	}

	// Initialize fiber session store
	sessionStorage := sessionmysql.New(sessionmysql.Config{
		ConnectionURI: dsn.Create(cfg),
		Table:         "sessions",
	})

	session.Init(sessionStorage)

	return &Daemon{
		cfg:        cfg,
		webService: *web.New(cfg, db),
	}
}
