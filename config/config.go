package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"fmeca-service/charts"
	"fmeca-service/db"
	"fmeca-service/session"
)

// EnvPrefix prefixes every environment override, e.g. FMECA_DATABASE_DSN.
const EnvPrefix = "FMECA"

// Config represents the complete service configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Session  SessionConfig  `mapstructure:"session"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Charts   ChartsConfig   `mapstructure:"charts"`
}

// DatabaseConfig selects the store. For sqlite DSN is a file path; for
// postgres either DSN or the discrete fields are used.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" validate:"oneof=sqlite3 postgres"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port" validate:"omitempty,numeric"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
}

// ServerConfig controls the HTTP API
type ServerConfig struct {
	Addr string `mapstructure:"addr" validate:"required"`
}

// SessionConfig controls the editing session
type SessionConfig struct {
	// PageSize is the number of failure modes shown per page
	PageSize int `mapstructure:"page_size" validate:"min=1,max=100"`
	// RiskThreshold is the initial RPN threshold (1-1000)
	RiskThreshold float64 `mapstructure:"risk_threshold" validate:"gte=1,lte=1000"`
}

// LoggingConfig controls logging
type LoggingConfig struct {
	// Mode is "dev" for readable debug output or "prod" for JSON
	Mode string `mapstructure:"mode" validate:"oneof=dev development prod production"`
	// File receives the log while the terminal grid owns the screen
	File string `mapstructure:"file" validate:"required"`
}

// ChartsConfig sizes exported chart images
type ChartsConfig struct {
	Width  int `mapstructure:"width" validate:"min=200,max=4000"`
	Height int `mapstructure:"height" validate:"min=200,max=4000"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	opts := charts.DefaultOptions()
	return &Config{
		Database: DatabaseConfig{
			Driver:  db.DriverSQLite,
			DSN:     "fmeca.db",
			Port:    "5432",
			SSLMode: "disable",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Session: SessionConfig{
			PageSize:      session.DefaultPageSize,
			RiskThreshold: session.DefaultRiskThreshold,
		},
		Logging: LoggingConfig{
			Mode: "dev",
			File: "fmeca.log",
		},
		Charts: ChartsConfig{
			Width:  opts.Width,
			Height: opts.Height,
		},
	}
}

// SetDefaults registers every key with v so environment overrides apply.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	// Database defaults
	v.SetDefault("database.driver", defaults.Database.Driver)
	v.SetDefault("database.dsn", defaults.Database.DSN)
	v.SetDefault("database.host", defaults.Database.Host)
	v.SetDefault("database.port", defaults.Database.Port)
	v.SetDefault("database.user", defaults.Database.User)
	v.SetDefault("database.password", defaults.Database.Password)
	v.SetDefault("database.name", defaults.Database.Name)
	v.SetDefault("database.sslmode", defaults.Database.SSLMode)

	// Server defaults
	v.SetDefault("server.addr", defaults.Server.Addr)

	// Session defaults
	v.SetDefault("session.page_size", defaults.Session.PageSize)
	v.SetDefault("session.risk_threshold", defaults.Session.RiskThreshold)

	// Logging defaults
	v.SetDefault("logging.mode", defaults.Logging.Mode)
	v.SetDefault("logging.file", defaults.Logging.File)

	// Charts defaults
	v.SetDefault("charts.width", defaults.Charts.Width)
	v.SetDefault("charts.height", defaults.Charts.Height)
}

// Load reads the configuration into a Config struct and validates it.
// An explicit path must exist; otherwise ./fmeca.yaml is read when present.
func Load(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("fmeca")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// DBOptions converts the database section for db.Open.
func (c *DatabaseConfig) DBOptions() db.Options {
	return db.Options{
		Driver:   c.Driver,
		DSN:      c.DSN,
		Host:     c.Host,
		Port:     c.Port,
		User:     c.User,
		Password: c.Password,
		Name:     c.Name,
		SSLMode:  c.SSLMode,
	}
}

// SessionOptions converts the session section for session.New.
func (c *SessionConfig) SessionOptions() session.Options {
	return session.Options{PageSize: c.PageSize, RiskThreshold: c.RiskThreshold}
}

// ChartOptions converts the charts section for charts.Render.
func (c *ChartsConfig) ChartOptions() charts.Options {
	return charts.Options{Width: c.Width, Height: c.Height}
}
