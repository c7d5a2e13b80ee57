package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config contains every runtime knob for the portal. All values come from
// the environment; defaults suit local development against docker-compose.
type Config struct {
	Addr          string `env:"PORTAL_ADDR" envDefault:":8080"`
	SessionSecret string `env:"PORTAL_SESSION_SECRET"`
	DatabaseURL   string `env:"DATABASE_URL"`

	UploadDir      string `env:"PORTAL_UPLOAD_DIR" envDefault:"./uploads"`
	MaxUploadBytes int64  `env:"PORTAL_MAX_UPLOAD_BYTES" envDefault:"10485760"`

	ShowStartupBanner bool `env:"PORTAL_SHOW_BANNER" envDefault:"true"`

	Log     Log     `envPrefix:"PORTAL_LOG_"`
	Storage Storage `envPrefix:"PORTAL_MINIO_"`
	Alerts  Alerts  `envPrefix:"PORTAL_ALERT_"`
}

// Log contains logger parameters.
type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"` // json or console
}

// Storage contains object storage parameters. The portal stores file bytes
// on local disk by default; setting Backend to "minio" switches to a bucket.
type Storage struct {
	Backend   string `env:"BACKEND" envDefault:"local"` // local or minio
	Endpoint  string `env:"ENDPOINT" envDefault:"localhost:9000"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"portal-files"`
	UseSSL    bool   `env:"USE_SSL" envDefault:"false"`
}

// Alerts contains the login-failure notifier parameters. The notifier is a
// no-op unless Enabled is true and all three GitHub fields are set.
type Alerts struct {
	Enabled         bool   `env:"ENABLED" envDefault:"false"`
	GitHubOwner     string `env:"GITHUB_OWNER"`
	GitHubRepo      string `env:"GITHUB_REPO"`
	GitHubToken     string `env:"GITHUB_TOKEN"`
	CooldownSeconds int    `env:"COOLDOWN_SECONDS" envDefault:"30"`
}

// Load parses configuration from environment variables.
func Load() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
