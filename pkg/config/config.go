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
	Dashboard     DashboardConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Operator      OperatorConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Upstream.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Dashboard.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ReportConfig is the subset needed by tools that only read from the traffic API.
type ReportConfig struct {
	App       AppConfig
	Upstream  UpstreamConfig
	Dashboard DashboardConfig
}

func LoadReport() (*ReportConfig, error) {
	var cfg ReportConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Upstream.validate(); err != nil {
		return nil, err
	}
	if _, err := cfg.Dashboard.Location(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"FOOTFALL_APP_ENV" required:"true"`
	Port         string   `envconfig:"FOOTFALL_APP_PORT" default:"8080"`
	LogLevel     string   `envconfig:"FOOTFALL_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"FOOTFALL_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"FOOTFALL_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// UpstreamConfig points at the aggregation API serving location listings and traffic stats.
type UpstreamConfig struct {
	BaseURL string        `envconfig:"FOOTFALL_UPSTREAM_BASE_URL" required:"true"`
	Token   string        `envconfig:"FOOTFALL_UPSTREAM_TOKEN"`
	Timeout time.Duration `envconfig:"FOOTFALL_UPSTREAM_TIMEOUT" default:"10s"`
}

func (u UpstreamConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(u.BaseURL))
	if err != nil {
		return fmt.Errorf("parsing %s: %w", EnvUpstreamBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url", EnvUpstreamBaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", EnvUpstreamBaseURL)
	}
	return nil
}

type DashboardConfig struct {
	Timezone       string        `envconfig:"FOOTFALL_DASHBOARD_TIMEZONE" default:"UTC"`
	DefaultPreset  string        `envconfig:"FOOTFALL_DASHBOARD_DEFAULT_PRESET" default:"today"`
	CatalogTTL     time.Duration `envconfig:"FOOTFALL_DASHBOARD_CATALOG_TTL" default:"5m"`
	RefreshTimeout time.Duration `envconfig:"FOOTFALL_DASHBOARD_REFRESH_TIMEOUT" default:"15s"`
	RefreshLimit   int           `envconfig:"FOOTFALL_DASHBOARD_REFRESH_LIMIT" default:"60"`
	RefreshWindow  time.Duration `envconfig:"FOOTFALL_DASHBOARD_REFRESH_WINDOW" default:"1m"`
	SessionIdleTTL time.Duration `envconfig:"FOOTFALL_DASHBOARD_SESSION_IDLE_TTL" default:"2h"`
}

// Location resolves the configured IANA time zone used for presets and calendar dates.
func (d DashboardConfig) Location() (*time.Location, error) {
	name := strings.TrimSpace(d.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("loading %s %q: %w", EnvDashboardTimezone, name, err)
	}
	return loc, nil
}

type RedisConfig struct {
	URL          string        `envconfig:"FOOTFALL_REDIS_URL"`
	Address      string        `envconfig:"FOOTFALL_REDIS_ADDR"`
	Password     string        `envconfig:"FOOTFALL_REDIS_PASSWORD"`
	DB           int           `envconfig:"FOOTFALL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FOOTFALL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FOOTFALL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FOOTFALL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FOOTFALL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FOOTFALL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FOOTFALL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FOOTFALL_JWT_ISSUER" default:"footfall-dashboard"`
	ExpirationMinutes int    `envconfig:"FOOTFALL_JWT_EXPIRATION_MINUTES" default:"720"`
}

// SessionTTL mirrors the access token lifetime so the Redis record expires with the token.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// OperatorConfig holds the single dashboard operator allowed to sign in.
type OperatorConfig struct {
	Email        string `envconfig:"FOOTFALL_OPERATOR_EMAIL" required:"true"`
	PasswordHash string `envconfig:"FOOTFALL_OPERATOR_PASSWORD_HASH" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FOOTFALL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FOOTFALL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FOOTFALL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FOOTFALL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FOOTFALL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"FOOTFALL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"FOOTFALL_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"FOOTFALL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}
