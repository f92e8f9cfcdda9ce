// config/config.go
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the process-wide configuration, loaded once at startup.
type Config struct {
	Port        string `env:"PORT" envDefault:"5200"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	// Gateway -> service bearer token
	ServiceToken   string   `env:"GAME_SERVICE_TOKEN,required,notEmpty"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Client IP as forwarded by the gateway; only honored from TRUSTED_PROXIES when that is set
	ProxyHeader    string   `env:"PROXY_HEADER" envDefault:"X-Forwarded-For"`
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// 🔐 Server-only signing secret for session results
	SessionHMACSecret string `env:"SESSION_HMAC_SECRET,required,notEmpty"`

	RedisURL      string `env:"REDIS_URL"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	StartRateLimit  int           `env:"START_RATE_LIMIT" envDefault:"20"`
	StartRateWindow time.Duration `env:"START_RATE_WINDOW" envDefault:"1m"`
	SignRateLimit   int           `env:"SIGN_RATE_LIMIT" envDefault:"30"`
	SignRateWindow  time.Duration `env:"SIGN_RATE_WINDOW" envDefault:"1m"`

	DefaultCaps CapsDefaults `envPrefix:"DEFAULT_"`

	FallbackSessionTTL time.Duration `env:"FALLBACK_SESSION_TTL" envDefault:"6h"`

	LedgerURL   string `env:"LEDGER_SERVICE_URL"`
	LedgerToken string `env:"LEDGER_SERVICE_TOKEN"`

	// R2 bucket receiving anomaly batches for moderation review (optional)
	CloudflareAccountID   string        `env:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID         string        `env:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret     string        `env:"R2_ACCESS_KEY_SECRET"`
	R2AnomalyBucket       string        `env:"R2_ANOMALY_BUCKET"`
	AnomalyExportInterval time.Duration `env:"ANOMALY_EXPORT_INTERVAL" envDefault:"15m"`
}

// CapsDefaults apply to any game without a game_configs override row.
type CapsDefaults struct {
	MaxDurationMs    int64  `env:"MAX_DURATION_MS" envDefault:"600000"`
	MinDurationMs    int64  `env:"MIN_DURATION_MS" envDefault:"10000"`
	MaxScorePerMin   int64  `env:"MAX_SCORE_PER_MIN" envDefault:"8000"`
	MinClientVersion string `env:"MIN_CLIENT_VERSION" envDefault:"1.0.0"`
}

const minSecretBytes = 32

// Load reads .env (if present) and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	if len(c.SessionHMACSecret) < minSecretBytes {
		return fmt.Errorf("SESSION_HMAC_SECRET must be at least %d bytes", minSecretBytes)
	}
	if c.DefaultCaps.MinDurationMs <= 0 || c.DefaultCaps.MaxDurationMs < c.DefaultCaps.MinDurationMs {
		return fmt.Errorf("default duration caps are inconsistent: min=%d max=%d",
			c.DefaultCaps.MinDurationMs, c.DefaultCaps.MaxDurationMs)
	}
	if c.DefaultCaps.MaxScorePerMin <= 0 {
		return fmt.Errorf("DEFAULT_MAX_SCORE_PER_MIN must be positive")
	}
	if c.StartRateLimit <= 0 || c.SignRateLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	return nil
}

// R2Enabled reports whether anomaly export to R2 is configured.
func (c *Config) R2Enabled() bool {
	return c.CloudflareAccountID != "" && c.R2AnomalyBucket != "" &&
		c.R2AccessKeyID != "" && c.R2AccessKeySecret != ""
}
