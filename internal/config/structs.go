package config

import (
	"time"

	"github.com/datacentricdesign/profile-api/internal/logger"
)

const (
	// DBEnginePostgres selects gorm's postgres driver.
	DBEnginePostgres = "postgres"
	// DBEngineMySQL selects gorm's mysql driver.
	DBEngineMySQL = "mysql"
	// DBEngineSQLite selects the pure go sqlite driver (development and tests).
	DBEngineSQLite = "sqlite"

	// CSRFStorageMemory keeps csrf tokens in process memory.
	CSRFStorageMemory = "memory"
	// CSRFStoragePostgres keeps csrf tokens in a postgres table.
	CSRFStoragePostgres = "postgres"
	// CSRFStorageMySQL keeps csrf tokens in a mysql table.
	CSRFStorageMySQL = "mysql"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	OAuth2    OAuth2
	Policy    Policy
	Crypto    Crypto
	Admin     Admin
	Scopes    []Scope
}

// DB holds the database configuration settings.
type DB struct {
	Engine   string
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	Path     string // sqlite file, ":memory:" is allowed
}

// Webserver implement webserver settings.
type Webserver struct {
	Port         int      // listening port for the webserver
	URL          string   // public base url for the webserver
	BasePath     string   // path prefix of every route, e.g. /api/v1
	Secured      bool     // running behind TLS, forwarded to hydra and keto as X-Forwarded-Proto
	ShutDownTime int      // wait time for shutdown
	AllowOrigins string   // cors allowed origins, comma separated
	CSRF         CSRF     // csrf token settings
	Throttle     Throttle // sign in / sign up throttling

	// ProxyHeader carries the client ip behind a load balancer, e.g. X-Forwarded-For.
	ProxyHeader    string
	// TrustedProxies limits ProxyHeader to requests coming from these ips or cidrs.
	// Empty trusts every peer.
	TrustedProxies []string
}

// CSRF settings of the auth endpoints.
type CSRF struct {
	Storage      string // memory, postgres or mysql
	Expiration   time.Duration
	CookieSecure bool
}

// Throttle settings for the credential endpoints.
type Throttle struct {
	Enabled bool
	Rate    float64       // requests per second per client
	Burst   int           // bucket size
	Size    int           // number of tracked clients
	TTL     time.Duration // time a client bucket is kept without traffic
}

// OAuth2 settings to talk to the hydra admin API.
type OAuth2 struct {
	HydraAdminURL     string
	IssuerURL         string // used to discover the token endpoint when TokenURL is empty
	TokenURL          string
	ClientID          string
	ClientSecret      string
	Scope             []string
	FirstPartyApps    []string // client ids for which consent is never asked
	LogoutFallbackURL string   // redirect target when the user declines to sign out
	RequestTimeout    time.Duration
}

// Policy settings to talk to the keto ACP engine.
type Policy struct {
	KetoURL       string
	CheckFlavor   string   // regex, exact or glob
	DefaultGroups []string // groups every new person joins
}

// Crypto settings for the password digest.
type Crypto struct {
	Algorithm string // sha256, sha512, sha3-256, sha3-512, blake2b-256 or argon2id
	Key       string
}

// Admin is the bootstrap account created at first start.
type Admin struct {
	ID       string
	Email    string
	Name     string
	Password string
}

// Scope is a human readable description of an oauth2 scope shown on the consent screen.
type Scope struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}
