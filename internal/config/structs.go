package config

import (
	"time"

	"github.com/GoAssetDesk/GoAssetDesk/internal/logger"
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
	Auth      Auth
	Webserver Webserver
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic        bool    // enable static file browsing (for development purposes only)
	CacheEnabled        bool    // true = enable cache, false = disable cache
	CleanPath           bool    // use clean path middleware to allow multi slash requests
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  // base url for the webserver
	CookieEncryptionKey string  // encryption key for cookies
	Argon2Salt          string  // salt for argon2 hashing
	Session             Session // session settings
}

// Auth groups the authentication backends and the MFA policy.
type Auth struct {
	Local LocalAuth
	LDAP  LDAPAuth
	OIDC  OIDCAuth
	MFA   MFA
}

// LocalAuth settings for database-backed password logins.
type LocalAuth struct {
	Enabled bool
}

// LDAPAuth settings for LDAP / Active Directory logins.
type LDAPAuth struct {
	Enabled       bool
	Host          string
	Port          int
	UseTLS        bool
	SkipVerify    bool
	BindDN        string
	BindPassword  string
	BaseDN        string
	UserFilter    string
	DefaultRoleID uint // role assigned to first-time LDAP users, 0 = none
}

// OIDCAuth settings for OpenID Connect logins.
type OIDCAuth struct {
	Enabled       bool
	IssuerURL     string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	Scopes        []string
	DefaultRoleID uint // role assigned to first-time OIDC users, 0 = none
}

// MFA settings for the TOTP enrollment gate.
type MFA struct {
	Issuer string // issuer name shown in authenticator apps, defaults to Title
}
