package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad_DefaultsAndOverrides(t *testing.T) {
	p := writeConfig(t, `
server:
  port: 9090
database:
  driver: mysql
  host: db.internal
  user: gate
  password: from-file
  name: newsgate
inference:
  timeout: 5s
  model:
    name: roberta-fake
    version: v3
auth:
  jwtSecret: file-secret
`)
	t.Setenv(EnvDBPassword, "from-env")
	t.Setenv(EnvJWTSecret, "")

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, 5*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, "roberta-fake", cfg.Inference.Model.Name)
	// untouched sections keep their defaults
	assert.Equal(t, "mlservice", cfg.Inference.Provider)
	assert.Equal(t, "http://localhost:8000/predict_explain", cfg.Inference.URL)
	assert.Equal(t, 20000, cfg.Limits.MaxTextBytes)
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "from-env", cfg.Database.Password)

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "gate:from-env@tcp(db.internal:3306)/newsgate")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestLoad_EnvSecret(t *testing.T) {
	p := writeConfig(t, "log:\n  level: debug\n")
	t.Setenv(EnvJWTSecret, "env-secret")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Contains(t, cfg.DSN(), "file:newsgate.db?")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"no secret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwtSecret"},
		{"bad driver", func(c *Config) { c.Database.Driver = "oracle" }, "database.driver"},
		{"postgres without host", func(c *Config) { c.Database.Driver = "postgres" }, "database.host"},
		{"openai without key", func(c *Config) { c.Inference.Provider = "openai" }, "apiKey"},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"archive without endpoint", func(c *Config) { c.Archive.Enabled = true }, "archive.endpoint"},
		{"zero ip rate", func(c *Config) { c.RateLimit.IPRPS = 0 }, "rateLimit.ipRps"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Auth.JWTSecret = "s"
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	c := Default()
	c.Auth.JWTSecret = "s"
	assert.NoError(t, c.Validate())
}

func TestDSN_Postgres(t *testing.T) {
	c := Default()
	c.Database.Driver = "postgres"
	c.Database.Host = "pg"
	c.Database.User = "u"
	c.Database.Password = "p@ss"
	c.Database.Name = "newsgate"
	assert.Equal(t, "postgres://u:p%40ss@pg:5432/newsgate?sslmode=disable&timezone=UTC", c.DSN())
}
