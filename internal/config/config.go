// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// RequestTimeout bounds every handler via context.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type BillingConfig struct {
	BaseURL string        `yaml:"base_url"` // e.g. http://backend:8000/api
	Timeout time.Duration `yaml:"timeout"`
}

type PortalConfig struct {
	DefaultLoginURL string `yaml:"default_login_url"`
	DefaultDst      string `yaml:"default_dst"`
	// UseDefaultLogin posts to DefaultLoginURL when the redirect carried no link-login.
	UseDefaultLogin bool   `yaml:"use_default_login"`
	Language        string `yaml:"language"` // en|sw
	LoginPath       string `yaml:"login_path"`
	DashboardPath   string `yaml:"dashboard_path"`
	// RedeemLimit is the number of redemption attempts per device per window. 0 disables.
	RedeemLimit  int           `yaml:"redeem_limit"`
	RedeemWindow time.Duration `yaml:"redeem_window"`
}

type PaymentConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	MaxAttempts    int           `yaml:"max_attempts"`
	MaxWait        time.Duration `yaml:"max_wait"` // wall-clock cap, 0 = attempts only
	SuccessDelay   time.Duration `yaml:"success_delay"`
	Workers        int           `yaml:"workers"`
	WatchRetention time.Duration `yaml:"watch_retention"`
}

type SessionConfig struct {
	Secret       string        `yaml:"secret"`
	CookieDomain string        `yaml:"cookie_domain"`
	SecureCookie bool          `yaml:"secure_cookie"`
	TTL          time.Duration `yaml:"ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"` // optional; enables the activation audit log
	MaxConns int32  `yaml:"max_conns"`
	// Retention is how long activation events are kept.
	Retention     time.Duration `yaml:"retention"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type SecurityConfig struct {
	EncryptionKey string `yaml:"encryption_key"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Billing  BillingConfig  `yaml:"billing"`
	Portal   PortalConfig   `yaml:"portal"`
	Payment  PaymentConfig  `yaml:"payment"`
	Session  SessionConfig  `yaml:"session"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Security SecurityConfig `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Billing.BaseURL == "" {
		return nil, errors.New("billing.base_url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Session.Secret == "" && !dev {
		return nil, errors.New("session.secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	cfg.HTTP.ReadTimeout = orDuration(cfg.HTTP.ReadTimeout, 10*time.Second)
	cfg.HTTP.WriteTimeout = orDuration(cfg.HTTP.WriteTimeout, 30*time.Second)
	cfg.HTTP.RequestTimeout = orDuration(cfg.HTTP.RequestTimeout, 20*time.Second)

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}

	cfg.Billing.Timeout = orDuration(cfg.Billing.Timeout, 15*time.Second)

	if cfg.Portal.DefaultLoginURL == "" {
		cfg.Portal.DefaultLoginURL = "http://10.5.50.1/login"
	}
	if cfg.Portal.DefaultDst == "" {
		cfg.Portal.DefaultDst = "http://google.com"
	}
	if cfg.Portal.Language == "" {
		cfg.Portal.Language = "en"
	}
	if cfg.Portal.LoginPath == "" {
		cfg.Portal.LoginPath = "/login"
	}
	if cfg.Portal.DashboardPath == "" {
		cfg.Portal.DashboardPath = "/dashboard"
	}
	if cfg.Portal.RedeemLimit < 0 {
		cfg.Portal.RedeemLimit = 0
	}
	cfg.Portal.RedeemWindow = orDuration(cfg.Portal.RedeemWindow, 10*time.Minute)

	cfg.Payment.PollInterval = orDuration(cfg.Payment.PollInterval, 3*time.Second)
	if cfg.Payment.MaxAttempts <= 0 {
		cfg.Payment.MaxAttempts = 100
	}
	cfg.Payment.SuccessDelay = orDuration(cfg.Payment.SuccessDelay, 3*time.Second)
	if cfg.Payment.Workers <= 0 {
		cfg.Payment.Workers = 8
	}
	cfg.Payment.WatchRetention = orDuration(cfg.Payment.WatchRetention, time.Hour)

	cfg.Session.TTL = orDuration(cfg.Session.TTL, 24*time.Hour)
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Database.Retention = orDuration(cfg.Database.Retention, 30*24*time.Hour)
	cfg.Database.PruneInterval = orDuration(cfg.Database.PruneInterval, time.Hour)
}

func orDuration(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
