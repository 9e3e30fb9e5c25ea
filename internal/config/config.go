package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/newsgate/internal/infra/db/mysql"
	"github.com/bryanwahyu/newsgate/internal/infra/db/postgres"
	"github.com/bryanwahyu/newsgate/internal/infra/db/sqlite"
)

// Env overrides for secrets that should not live in the YAML file.
const (
	EnvConfigPath  = "CONFIG_PATH"
	EnvJWTSecret   = "NEWSGATE_JWT_SECRET"
	EnvDBPassword  = "NEWSGATE_DB_PASSWORD"
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvMinioSecret = "MINIO_SECRET_KEY"
)

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | sqlite
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		// Path is the database file for the sqlite driver.
		Path string `yaml:"path"`
	} `yaml:"database"`

	Inference struct {
		Provider string        `yaml:"provider"` // mlservice | openai
		URL      string        `yaml:"url"`
		Timeout  time.Duration `yaml:"timeout"`
		Model    struct {
			Name    string `yaml:"name"`
			Version string `yaml:"version"`
		} `yaml:"model"`
		Breaker struct {
			Enabled          bool          `yaml:"enabled"`
			MaxFailures      uint32        `yaml:"maxFailures"`
			OpenTimeout      time.Duration `yaml:"openTimeout"`
			HalfOpenRequests uint32        `yaml:"halfOpenRequests"`
		} `yaml:"breaker"`
		OpenAI struct {
			APIKey  string   `yaml:"apiKey"`
			Model   string   `yaml:"model"`
			BaseURL string   `yaml:"baseURL"`
			Labels  []string `yaml:"labels"`
		} `yaml:"openai"`
	} `yaml:"inference"`

	Auth struct {
		JWTSecret  string        `yaml:"jwtSecret"`
		Issuer     string        `yaml:"issuer"`
		TokenTTL   time.Duration `yaml:"tokenTTL"`
		BcryptCost int           `yaml:"bcryptCost"`
	} `yaml:"auth"`

	Archive struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"archive"`

	RateLimit struct {
		Enabled bool    `yaml:"enabled"`
		RPS     float64 `yaml:"rps"`
		Burst   int     `yaml:"burst"`
		// per client address, checked before the bearer token
		IPRPS   float64 `yaml:"ipRps"`
		IPBurst int     `yaml:"ipBurst"`
	} `yaml:"rateLimit"`

	CORS struct {
		AllowedOrigins []string `yaml:"allowedOrigins"`
	} `yaml:"cors"`

	Log struct {
		Level       string `yaml:"level"`
		Environment string `yaml:"environment"`
	} `yaml:"log"`

	Limits struct {
		MaxTextBytes int   `yaml:"maxTextBytes"`
		MaxBodyBytes int64 `yaml:"maxBodyBytes"`
	} `yaml:"limits"`
}

// Default returns a config that runs locally against sqlite and the ML service
// on localhost.
func Default() *Config {
	var c Config
	c.Server.Port = 8080
	c.Server.ReadTimeout = 15 * time.Second
	c.Server.WriteTimeout = 60 * time.Second
	c.Server.ShutdownTimeout = 15 * time.Second

	c.Database.Driver = "sqlite"
	c.Database.Path = "newsgate.db"

	c.Inference.Provider = "mlservice"
	c.Inference.URL = "http://localhost:8000/predict_explain"
	c.Inference.Timeout = 30 * time.Second
	c.Inference.Model.Name = "distilbert-fakenews"
	c.Inference.Model.Version = "v1"
	c.Inference.Breaker.Enabled = true
	c.Inference.Breaker.MaxFailures = 5
	c.Inference.Breaker.OpenTimeout = 30 * time.Second
	c.Inference.Breaker.HalfOpenRequests = 1

	c.Auth.Issuer = "newsgate"
	c.Auth.TokenTTL = 24 * time.Hour

	c.Archive.BucketName = "newsgate-archive"

	c.RateLimit.Enabled = true
	c.RateLimit.RPS = 5
	c.RateLimit.Burst = 10
	c.RateLimit.IPRPS = 20
	c.RateLimit.IPBurst = 40

	c.CORS.AllowedOrigins = []string{"*"}

	c.Log.Level = "info"
	c.Log.Environment = "production"

	c.Limits.MaxTextBytes = 20000
	c.Limits.MaxBodyBytes = 1 << 20
	return &c
}

// Load baca file config.yaml di atas nilai default, lalu env override
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvDBPassword); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.Inference.OpenAI.APIKey = v
	}
	if v := os.Getenv(EnvMinioSecret); v != "" {
		c.Archive.SecretKey = v
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database.host and database.name are required for %s", c.Database.Driver))
		}
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	switch c.Inference.Provider {
	case "mlservice":
		if c.Inference.URL == "" {
			errs = append(errs, errors.New("inference.url is required"))
		}
	case "openai":
		if c.Inference.OpenAI.APIKey == "" {
			errs = append(errs, fmt.Errorf("inference.openai.apiKey or %s is required", EnvOpenAIKey))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown inference.provider %q", c.Inference.Provider))
	}
	if c.Inference.Timeout <= 0 {
		errs = append(errs, errors.New("inference.timeout must be positive"))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, fmt.Errorf("auth.jwtSecret or %s is required", EnvJWTSecret))
	}
	if c.Archive.Enabled && (c.Archive.Endpoint == "" || c.Archive.BucketName == "") {
		errs = append(errs, errors.New("archive.endpoint and archive.bucketName are required when the archive is enabled"))
	}
	if c.RateLimit.Enabled && c.RateLimit.RPS <= 0 {
		errs = append(errs, errors.New("rateLimit.rps must be positive"))
	}
	if c.RateLimit.Enabled && c.RateLimit.IPRPS <= 0 {
		errs = append(errs, errors.New("rateLimit.ipRps must be positive"))
	}
	if c.Limits.MaxTextBytes < 0 {
		errs = append(errs, errors.New("limits.maxTextBytes cannot be negative"))
	}
	return errors.Join(errs...)
}

// DSN returns the driver DSN for the configured database.
func (c *Config) DSN() string {
	d := c.Database
	switch d.Driver {
	case "mysql":
		return mysql.DSN(d.User, d.Password, fmt.Sprintf("%s:%d", d.Host, c.port(3306)), d.Name)
	case "postgres":
		return postgres.DSN(d.User, d.Password, fmt.Sprintf("%s:%d", d.Host, c.port(5432)), d.Name, d.SSLMode)
	default:
		return sqlite.DSN(d.Path)
	}
}

func (c *Config) port(def int) int {
	if c.Database.Port == 0 {
		return def
	}
	return c.Database.Port
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
