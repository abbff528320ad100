// Package config loads application configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-to-a-long-random-secret"

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env                string `mapstructure:"APP_ENV"`
	Port               string `mapstructure:"APP_PORT"`
	DBUser             string `mapstructure:"DB_USER"`
	DBPass             string `mapstructure:"DB_PASS"`
	DBHost             string `mapstructure:"DB_HOST"`
	DBPort             string `mapstructure:"DB_PORT"`
	DBName             string `mapstructure:"DB_NAME"`
	DBMigrate          bool   `mapstructure:"DB_MIGRATE"`
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpiresIn       string `mapstructure:"JWT_EXPIRES_IN"`
	JWTCookieDays      int    `mapstructure:"JWT_COOKIE_EXPIRES_IN"`
	BcryptCost         int    `mapstructure:"BCRYPT_COST"`
	PaginationMaxLimit int    `mapstructure:"PAGINATION_MAX_LIMIT"`
	RabbitURL          string `mapstructure:"RABBITMQ_URL"`
	MailFrom           string `mapstructure:"MAIL_FROM"`
	MailLogDir         string `mapstructure:"MAIL_LOG_DIR"`
	PublicURL          string `mapstructure:"PUBLIC_URL"`
	CORSOrigin         string `mapstructure:"CORS_ORIGIN"`
	BodyLimit          string `mapstructure:"BODY_LIMIT"`

	// JWTTTL is JWTExpiresIn parsed by Validate.
	JWTTTL time.Duration `mapstructure:"-"`
}

// Load reads configuration from the environment (and a .env already loaded
// by main), applies defaults and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "3000")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_PASS", "")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_NAME", "natours")
	v.SetDefault("DB_MIGRATE", false)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRES_IN", "90d")
	v.SetDefault("JWT_COOKIE_EXPIRES_IN", 90)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("PAGINATION_MAX_LIMIT", 0)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("MAIL_FROM", "Natours <hello@natours.io>")
	v.SetDefault("MAIL_LOG_DIR", ".")
	v.SetDefault("PUBLIC_URL", "http://localhost:3000")
	v.SetDefault("CORS_ORIGIN", "http://localhost:3000")
	v.SetDefault("BODY_LIMIT", "10K")
}

// IsProduction reports whether errors should hide their internals.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate ensures required values are present and parses derived ones.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("APP_PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DBHost == "" || c.DBName == "" || c.DBUser == "" {
		return errors.New("DB_HOST, DB_NAME and DB_USER are required")
	}
	ttl, err := ParseExpiry(c.JWTExpiresIn)
	if err != nil {
		return fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	c.JWTTTL = ttl
	if c.JWTCookieDays <= 0 {
		return errors.New("JWT_COOKIE_EXPIRES_IN must be a positive number of days")
	}
	if c.PaginationMaxLimit < 0 {
		return errors.New("PAGINATION_MAX_LIMIT must not be negative")
	}

	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}
	return nil
}

// DSN builds the go-sql-driver DSN.  DATETIME columns are parsed into
// time.Time and kept in UTC.
func (c *Config) DSN() string {
	m := mysql.NewConfig()
	m.User = c.DBUser
	m.Passwd = c.DBPass
	m.Net = "tcp"
	m.Addr = net.JoinHostPort(c.DBHost, c.DBPort)
	m.DBName = c.DBName
	m.ParseTime = true
	m.Loc = time.UTC
	m.Params = map[string]string{"charset": "utf8mb4"}
	return m.FormatDSN()
}

// CookieTTL is the lifetime of the jwt cookie.
func (c *Config) CookieTTL() time.Duration {
	return time.Duration(c.JWTCookieDays) * 24 * time.Hour
}

// ParseExpiry accepts Go durations ("12h") plus a day suffix ("90d").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid expiry %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid expiry %q", s)
	}
	return d, nil
}
