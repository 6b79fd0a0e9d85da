package config

import (
	"time"

	"github.com/go-sso-gateway/go-sso-gateway/internal/logger"
)

// Session settings.
type Session struct {
	ExpiryTime time.Duration
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	LDAP      LDAP
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool     // disable recover middleware
	Domain         string   // domain name for the webserver
	Port           int      // listening port for the webserver
	ShutDownTime   int      // wait time for shutdown
	URL            string   // base url for the webserver
	TrustedProxies []string // CIDR subnets allowed to assert identity headers
	Session        Session  // session settings
}

// LDAP implements the optional directory sync settings. When enabled, the
// asserted username is looked up in the directory before the local user
// store is consulted.
type LDAP struct {
	Enabled      bool
	Host         string
	Port         int
	UseSSL       bool
	UseTLS       bool
	SkipVerify   bool
	BindDN       string
	BindPassword string
	BaseDN       string
	UserFilter   string
	UsernameAttr string
	EmailAttr    string
	FullNameAttr string
	Timeout      int
}
