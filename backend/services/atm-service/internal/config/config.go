package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	libconfig "smartatm/backend/libs/config"
	"smartatm/backend/services/atm-service/internal/bank"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP     HTTPConfig    `yaml:"http"`
	Store    StoreConfig   `yaml:"store"`
	Redis    RedisConfig   `yaml:"redis"`
	Breaker  BreakerConfig `yaml:"breaker"`
	Admin    AdminConfig   `yaml:"admin"`
	Log      LogConfig     `yaml:"log"`
	Accounts []SeedAccount `yaml:"accounts" env:"-"`
}

// HTTPConfig controls the ops/admin server.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" env:"ATM_HTTP_ENABLED"`
	Port    string `yaml:"port" env:"ATM_HTTP_PORT"`
}

// StoreConfig selects the account store.
type StoreConfig struct {
	Driver     string `yaml:"driver" env:"ATM_STORE_DRIVER"`
	DSN        string `yaml:"dsn" env:"ATM_STORE_DSN"`
	BcryptCost int    `yaml:"bcryptCost" env:"ATM_BCRYPT_COST"`
}

// RedisConfig enables the session mirror when Addr is set.
type RedisConfig struct {
	Addr       string        `yaml:"addr" env:"ATM_REDIS_ADDR"`
	Password   string        `yaml:"password" env:"ATM_REDIS_PASSWORD"`
	DB         int           `yaml:"db" env:"ATM_REDIS_DB"`
	SessionTTL time.Duration `yaml:"sessionTTL" env:"ATM_REDIS_SESSION_TTL"`
}

// BreakerConfig tunes the account store circuit breaker.
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"maxRequests" env:"ATM_BREAKER_MAX_REQUESTS"`
	Interval         time.Duration `yaml:"interval" env:"ATM_BREAKER_INTERVAL"`
	Timeout          time.Duration `yaml:"timeout" env:"ATM_BREAKER_TIMEOUT"`
	FailureThreshold uint32        `yaml:"failureThreshold" env:"ATM_BREAKER_FAILURE_THRESHOLD"`
}

// AdminConfig guards the admin API. An empty secret disables it.
type AdminConfig struct {
	JWTSecret string        `yaml:"jwtSecret" env:"ATM_ADMIN_JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"tokenTTL" env:"ATM_ADMIN_TOKEN_TTL"`
}

// LogConfig is passed to the shared logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"ATM_LOG_LEVEL"`
	Format string `yaml:"format" env:"ATM_LOG_FORMAT"`
}

// SeedAccount is an account opened at startup when missing. Balance is a decimal string.
type SeedAccount struct {
	CardNumber string `yaml:"cardNumber"`
	HolderName string `yaml:"holderName"`
	PIN        string `yaml:"pin"`
	Biometric  string `yaml:"biometric"`
	Balance    string `yaml:"balance"`
}

// Default returns the configuration used when nothing overrides it: in-memory store with the
// demo account, ops server on 8080, no redis, admin API disabled.
func Default() *Config {
	return &Config{
		HTTP:    HTTPConfig{Enabled: true, Port: "8080"},
		Store:   StoreConfig{Driver: DriverMemory},
		Redis:   RedisConfig{SessionTTL: 15 * time.Minute},
		Breaker: BreakerConfig{MaxRequests: 1, Timeout: 30 * time.Second, FailureThreshold: 5},
		Admin:   AdminConfig{TokenTTL: time.Hour},
		Log:     LogConfig{Level: "info", Format: "json"},
		Accounts: []SeedAccount{
			{CardNumber: "1234", HolderName: "Demo Holder", PIN: "4321", Biometric: "B1", Balance: "100"},
		},
	}
}

// Load reads configuration from path (or CONFIG_FILE when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		if err := libconfig.LoadConfig(cfg); err != nil {
			return nil, err
		}
	} else if err := libconfig.LoadConfigFrom(path, cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field rules.
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("config: store dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	if c.Admin.TokenTTL <= 0 {
		c.Admin.TokenTTL = time.Hour
	}
	if _, err := c.SeedAccounts(); err != nil {
		return err
	}
	return nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.Contains(port, ":") {
		return port
	}
	return ":" + port
}

// AdminEnabled reports whether the admin API is mounted.
func (c *Config) AdminEnabled() bool {
	return c.Admin.JWTSecret != ""
}

// BreakerSettings converts the breaker section.
func (c *Config) BreakerSettings() bank.BreakerSettings {
	return bank.BreakerSettings{
		MaxRequests:      c.Breaker.MaxRequests,
		Interval:         c.Breaker.Interval,
		Timeout:          c.Breaker.Timeout,
		FailureThreshold: c.Breaker.FailureThreshold,
	}
}

// SeedAccounts parses the configured seed accounts.
func (c *Config) SeedAccounts() ([]bank.NewAccount, error) {
	out := make([]bank.NewAccount, 0, len(c.Accounts))
	for i, acc := range c.Accounts {
		if strings.TrimSpace(acc.CardNumber) == "" {
			return nil, fmt.Errorf("config: accounts[%d]: card number is required", i)
		}
		balance := decimal.Zero
		if raw := strings.TrimSpace(acc.Balance); raw != "" {
			parsed, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("config: accounts[%d]: balance: %w", i, err)
			}
			balance = parsed
		}
		if balance.IsNegative() {
			return nil, errors.New("config: seed balance cannot be negative")
		}
		out = append(out, bank.NewAccount{
			CardNumber: strings.TrimSpace(acc.CardNumber),
			HolderName: acc.HolderName,
			PIN:        acc.PIN,
			Biometric:  acc.Biometric,
			Balance:    balance,
		})
	}
	return out, nil
}
