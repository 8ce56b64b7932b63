package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Client is the configuration of the gatehouse client process.
type Client struct {
	BackendURL  string        `env:"BACKEND_URL" envDefault:"http://localhost:8080"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
	SessionFile string        `env:"SESSION_FILE"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"LOG_FORMAT" envDefault:"text"`

	Redis     RedisConfig    `envPrefix:"REDIS_"`
	Providers ProviderConfig
	Routes    RouteConfig
	Reset     ResetConfig    `envPrefix:"RESET_"`
}

// RedisConfig enables shared session persistence when URL is set.
type RedisConfig struct {
	URL          string        `env:"URL"`
	Key          string        `env:"KEY" envDefault:"gatehouse:session:default"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"4"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"0"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"2s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"1s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"1s"`
}

// ProviderConfig carries pre-supplied identity provider identifiers.
type ProviderConfig struct {
	GoogleClientID     string        `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"GOOGLE_CLIENT_SECRET"`
	GoogleIssuer       string        `env:"GOOGLE_ISSUER" envDefault:"https://accounts.google.com"`
	FacebookAppID      string        `env:"FACEBOOK_APP_ID"`
	FacebookAppSecret  string        `env:"FACEBOOK_APP_SECRET"`
	FacebookSDKURL     string        `env:"FACEBOOK_SDK_URL" envDefault:"https://connect.facebook.net/en_US/sdk.js"`
	RedirectURL        string        `env:"PROVIDER_REDIRECT_URL" envDefault:"urn:ietf:wg:oauth:2.0:oob"`
	LoadTimeout        time.Duration `env:"PROVIDER_LOAD_TIMEOUT" envDefault:"10s"`
}

// RouteConfig names the redirect targets of the route gates.
type RouteConfig struct {
	AnonymousEntry     string `env:"ANONYMOUS_ENTRY" envDefault:"/login"`
	AuthenticatedEntry string `env:"AUTHENTICATED_ENTRY" envDefault:"/home"`
	ResetEntry         string `env:"RESET_ENTRY" envDefault:"/forgot-password"`
}

// ResetConfig tunes the password reset flow.
type ResetConfig struct {
	RedirectDelay time.Duration `env:"REDIRECT_DELAY" envDefault:"3s"`
}

// StubBackend configures the development backend.
type StubBackend struct {
	Addr           string        `env:"ADDR" envDefault:":8080"`
	JWTSigningKey  string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
	ResetTokenTTL  time.Duration `env:"RESET_TOKEN_TTL" envDefault:"30m"`
	AdminEmail     string        `env:"ADMIN_EMAIL" envDefault:"admin@gatehouse.local"`
	AdminPassword  string        `env:"ADMIN_PASSWORD" envDefault:"adminpass1"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string        `env:"LOG_FORMAT" envDefault:"text"`
	PublicResetURL string        `env:"PUBLIC_RESET_URL" envDefault:"http://localhost:3000/reset-password"`

	// AdminToken guards /admin/outbox; empty disables it.
	AdminToken string `env:"ADMIN_TOKEN"`

	// With VerifyProviders unset every non-empty provider credential is accepted.
	VerifyProviders  bool   `env:"VERIFY_PROVIDERS"`
	GoogleClientID   string `env:"GOOGLE_CLIENT_ID"`
	GoogleIssuer     string `env:"GOOGLE_ISSUER" envDefault:"https://accounts.google.com"`
	FacebookGraphURL string `env:"FACEBOOK_GRAPH_URL" envDefault:"https://graph.facebook.com"`
}

// ClientFromEnv builds the client config from GATEHOUSE_* variables so main stays lean.
func ClientFromEnv() (Client, error) {
	var cfg Client
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "GATEHOUSE_"}); err != nil {
		return Client{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = defaultSessionFile()
	}
	return cfg, nil
}

// StubFromEnv builds the stub backend config from STUB_* variables.
func StubFromEnv() (StubBackend, error) {
	var cfg StubBackend
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "STUB_"}); err != nil {
		return StubBackend{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "gatehouse", "session.json")
}
