package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// ErrMissingDBPassword blocks every storage-dependent operation. The page
// still renders; it just reports the configuration problem instead of
// crashing.
var ErrMissingDBPassword = errors.New("DB_PASSWORD is not set")

type Config struct {
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     int    `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"portal_user"`
	DBName     string `env:"DB_NAME" envDefault:"learnportal"`
	DBPassword string `env:"DB_PASSWORD"`

	// Optional path to a TLS root certificate bundle. When set, the
	// connection requires full certificate verification.
	DBSSLRootCert string `env:"DB_SSL_ROOT_CERT"`

	ListenAddr string        `env:"LISTEN_ADDR" envDefault:":8080"`
	DemoMode   bool          `env:"DEMO_MODE" envDefault:"false"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	BcryptCost int           `env:"BCRYPT_COST"`
}

// Load reads configuration from the environment, after loading a local
// .env file if one exists.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return cfg, nil
}

// Validate reports whether storage can be used at all.
func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return ErrMissingDBPassword
	}
	return nil
}

// DSN builds the lib/pq keyword DSN.
func (c *Config) DSN() string {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		dsnValue(c.DBHost), c.DBPort, dsnValue(c.DBUser), dsnValue(c.DBPassword), dsnValue(c.DBName))
	if c.DBSSLRootCert != "" {
		dsn += " sslmode=verify-full sslrootcert=" + dsnValue(c.DBSSLRootCert)
	} else {
		dsn += " sslmode=disable"
	}
	return dsn
}

// dsnValue single-quotes a keyword value when it contains characters the
// lib/pq DSN parser would otherwise misread (spaces, quotes, backslashes).
func dsnValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
