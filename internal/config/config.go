package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Addr       string `env:"APP_ADDR" envDefault:":3000"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"json"`
	EnableHSTS bool   `env:"ENABLE_HSTS" envDefault:"false"`

	API       API
	Session   Session
	Postgres  Postgres
	Redis     Redis
	SQLite    SQLite
	RateLimit RateLimit
	Mail      Mail
	Tracing   Tracing

	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

type API struct {
	BaseURL    string        `env:"API_BASE_URL,required"`
	Timeout    time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	RPS        float64       `env:"API_RPS" envDefault:"0"`
	MaxRetries int           `env:"API_MAX_RETRIES" envDefault:"1"`
	UserAgent  string        `env:"API_USER_AGENT" envDefault:"bookworm-web"`
}

type Session struct {
	Store           string        `env:"SESSION_STORE" envDefault:"sqlite"`
	TTL             time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	RefreshInterval time.Duration `env:"SESSION_REFRESH_INTERVAL" envDefault:"5m"`
	CookieSecure    bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// Tracing exports spans over OTLP/HTTP when Endpoint is set.
type Tracing struct {
	Endpoint    string  `env:"OTEL_ENDPOINT"`
	ServiceName string  `env:"OTEL_SERVICE_NAME" envDefault:"bookworm-web"`
	SampleRatio float64 `env:"OTEL_SAMPLE_RATIO" envDefault:"1"`
}

type Postgres struct {
	DSN string `env:"DB_DSN"`
}

type Redis struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type SQLite struct {
	Path string `env:"SQLITE_PATH" envDefault:"data/sessions.db"`
}

type RateLimit struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
}

type Mail struct {
	Host     string `env:"MAIL_HOST"`
	Port     int    `env:"MAIL_PORT" envDefault:"587"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	From     string `env:"MAIL_FROM" envDefault:"Bookworm <no-reply@bookworm.local>"`
}

func (m Mail) Enabled() bool {
	return m.Host != ""
}

// LoadEnvFiles loads .env and .env.local. Variables already present in the
// environment (e.g. set by Docker) win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load reads the env files and parses the configuration.
func Load() (*Config, error) {
	LoadEnvFiles()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var (
	ErrUnknownStore = errors.New("unknown session store")
	ErrMissingDSN   = errors.New("DB_DSN is required for the postgres session store")
	ErrBadBaseURL   = errors.New("API_BASE_URL must be an absolute http(s) url")
)

func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrBadBaseURL, c.API.BaseURL)
	}

	switch c.Session.Store {
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return ErrMissingDSN
		}
	case StoreRedis, StoreSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.Session.Store)
	}
	return nil
}
