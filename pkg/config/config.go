package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Upstream      UpstreamConfig
	Redis         RedisConfig
	Session       SessionConfig
	AuthRateLimit AuthRateLimitConfig
	Orders        OrdersConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Upstream.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"GROCERYSCOUT_APP_ENV" required:"true"`
	Port         string `envconfig:"GROCERYSCOUT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GROCERYSCOUT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GROCERYSCOUT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// UpstreamConfig points the gateway at the GroceryScout backend API.
type UpstreamConfig struct {
	BaseURL        string        `envconfig:"GROCERYSCOUT_UPSTREAM_BASE_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"GROCERYSCOUT_UPSTREAM_TIMEOUT" default:"15s"`
	RetryAttempts  uint64        `envconfig:"GROCERYSCOUT_UPSTREAM_RETRY_ATTEMPTS" default:"2"`
	RetryBaseDelay time.Duration `envconfig:"GROCERYSCOUT_UPSTREAM_RETRY_BASE_DELAY" default:"150ms"`
}

func (u UpstreamConfig) validate() error {
	parsed, err := url.Parse(u.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid upstream base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("upstream base url must be http or https, got %q", u.BaseURL)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"GROCERYSCOUT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GROCERYSCOUT_REDIS_ADDR"`
	Password     string        `envconfig:"GROCERYSCOUT_REDIS_PASSWORD"`
	DB           int           `envconfig:"GROCERYSCOUT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GROCERYSCOUT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GROCERYSCOUT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GROCERYSCOUT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GROCERYSCOUT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GROCERYSCOUT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig governs the browser-facing session cookie and its backing
// state in Redis.
type SessionConfig struct {
	Secret        string        `envconfig:"GROCERYSCOUT_SESSION_SECRET" required:"true"`
	Issuer        string        `envconfig:"GROCERYSCOUT_SESSION_ISSUER" default:"groceryscout-storefront"`
	CookieName    string        `envconfig:"GROCERYSCOUT_SESSION_COOKIE" default:"gs_session"`
	CookieSecure  bool          `envconfig:"GROCERYSCOUT_SESSION_COOKIE_SECURE" default:"true"`
	TTL           time.Duration `envconfig:"GROCERYSCOUT_SESSION_TTL" default:"720h"`
	IdleEviction  time.Duration `envconfig:"GROCERYSCOUT_SESSION_IDLE_EVICTION" default:"1h"`
	SweepInterval time.Duration `envconfig:"GROCERYSCOUT_SESSION_SWEEP_INTERVAL" default:"5m"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GROCERYSCOUT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GROCERYSCOUT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GROCERYSCOUT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GROCERYSCOUT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GROCERYSCOUT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GROCERYSCOUT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// OrdersConfig controls the order-history watcher.
type OrdersConfig struct {
	PollInterval time.Duration `envconfig:"GROCERYSCOUT_ORDERS_POLL_INTERVAL" default:"10s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"GROCERYSCOUT_CORS_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}
