package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "fmeca.db", cfg.Database.DSN)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Session.PageSize)
	assert.Equal(t, 1.0, cfg.Session.RiskThreshold)
	assert.Equal(t, 800, cfg.Charts.Width)
	assert.Equal(t, 600, cfg.Charts.Height)
	assert.Empty(t, cfg.Validate())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FMECA_SESSION_RISK_THRESHOLD", "125.5")
	t.Setenv("FMECA_DATABASE_DRIVER", "postgres")
	t.Setenv("FMECA_DATABASE_DSN", "postgres://fmeca@localhost/fmeca?sslmode=disable")
	t.Setenv("FMECA_SERVER_ADDR", "127.0.0.1:9090")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 125.5, cfg.Session.RiskThreshold)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr)

	opts := cfg.Database.DBOptions()
	assert.Equal(t, "postgres", opts.Driver)
	assert.Equal(t, "postgres://fmeca@localhost/fmeca?sslmode=disable", opts.DSN)
	assert.Equal(t, 125.5, cfg.Session.SessionOptions().RiskThreshold)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fmeca.yaml")
	content := `
database:
  dsn: /var/lib/fmeca/plant.db
session:
  page_size: 20
  risk_threshold: 80
charts:
  width: 1024
logging:
  mode: prod
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/fmeca/plant.db", cfg.Database.DSN)
	assert.Equal(t, 20, cfg.Session.PageSize)
	assert.Equal(t, 80.0, cfg.Session.RiskThreshold)
	assert.Equal(t, "prod", cfg.Logging.Mode)
	assert.Equal(t, 1024, cfg.Charts.ChartOptions().Width)
	assert.Equal(t, 600, cfg.Charts.ChartOptions().Height)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"threshold below range", func(c *Config) { c.Session.RiskThreshold = 0.5 }, "session.risk_threshold"},
		{"threshold above range", func(c *Config) { c.Session.RiskThreshold = 1001 }, "session.risk_threshold"},
		{"zero page size", func(c *Config) { c.Session.PageSize = 0 }, "session.page_size"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"bad port", func(c *Config) { c.Database.Port = "pg" }, "database.port"},
		{"bad log mode", func(c *Config) { c.Logging.Mode = "verbose" }, "logging.mode"},
		{"tiny chart", func(c *Config) { c.Charts.Height = 10 }, "charts.height"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"sqlite without file", func(c *Config) { c.Database.DSN = "" }, "database.dsn"},
		{"postgres without host", func(c *Config) {
			c.Database.Driver = "postgres"
			c.Database.DSN = ""
		}, "database.host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Contains(t, errs[0].Error(), tt.field)
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("FMECA_SESSION_RISK_THRESHOLD", "5000")
	t.Setenv("FMECA_SESSION_PAGE_SIZE", "0")

	_, err := Load(viper.New(), "")
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "2 validation errors")
}
