package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKey maps one key to the tenant and user it authenticates as.
type APIKey struct {
	Key    string `yaml:"key"`
	Tenant string `yaml:"tenant"`
	User   string `yaml:"user"`
}

type Config struct {
	Server struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"readTimeout"`
		WriteTimeout    time.Duration `yaml:"writeTimeout"`
		ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
		AllowedOrigins  []string      `yaml:"allowedOrigins"`
		MaxDocumentSize int           `yaml:"maxDocumentSize"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | sqlite
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
		Path     string `yaml:"path"` // sqlite file, ":memory:" when empty
		Migrate  bool   `yaml:"migrate"`
		Seed     string `yaml:"seed"` // catalog YAML loaded at startup
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	OpenAI struct {
		APIKey  string        `yaml:"apiKey"`
		Model   string        `yaml:"model"`
		BaseURL string        `yaml:"baseURL"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"openai"`

	Auth struct {
		Keys []APIKey `yaml:"keys"`
	} `yaml:"auth"`

	RateLimit struct {
		Capacity   int `yaml:"capacity"`
		RefillRate int `yaml:"refillRate"`
	} `yaml:"rateLimit"`

	Audit struct {
		Backend string        `yaml:"backend"` // memory | redis | sql
		TTL     time.Duration `yaml:"ttl"`
		Prefix  string        `yaml:"prefix"`
	} `yaml:"audit"`

	Monitor struct {
		WebhookURL string        `yaml:"webhookURL"`
		Retention  time.Duration `yaml:"retention"`
		MaxRecent  int           `yaml:"maxRecent"`
	} `yaml:"monitor"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load baca file config.yaml, expand ${VAR} dari environment, lalu isi default
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML document; unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		// model calls dominate the request time
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.MaxDocumentSize == 0 {
		c.Server.MaxDocumentSize = 256 << 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Port == 0 {
		switch c.Database.Driver {
		case "mysql":
			c.Database.Port = 3306
		case "postgres":
			c.Database.Port = 5432
		}
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.OpenAI.Timeout == 0 {
		c.OpenAI.Timeout = 90 * time.Second
	}
	if c.RateLimit.Capacity == 0 {
		c.RateLimit.Capacity = 60
	}
	if c.RateLimit.RefillRate == 0 {
		c.RateLimit.RefillRate = 1
	}
	if c.Audit.Backend == "" {
		c.Audit.Backend = "memory"
	}
	if c.Audit.TTL == 0 {
		c.Audit.TTL = 90 * 24 * time.Hour
	}
	if c.Monitor.Retention == 0 {
		c.Monitor.Retention = time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks cross-field constraints after defaults are applied.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			errs = append(errs, fmt.Errorf("database: host and name are required for %s", c.Database.Driver))
		}
	case "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database: unknown driver %q (mysql, postgres, sqlite)", c.Database.Driver))
	}
	switch c.Audit.Backend {
	case "memory", "sql":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("audit: redis backend needs redis.addr"))
		}
	default:
		errs = append(errs, fmt.Errorf("audit: unknown backend %q (memory, redis, sql)", c.Audit.Backend))
	}
	seen := map[string]bool{}
	for i, k := range c.Auth.Keys {
		if k.Key == "" || k.Tenant == "" || k.User == "" {
			errs = append(errs, fmt.Errorf("auth.keys[%d]: key, tenant and user are required", i))
		}
		if seen[k.Key] {
			errs = append(errs, fmt.Errorf("auth.keys[%d]: duplicate key", i))
		}
		seen[k.Key] = true
	}
	if c.Minio.Endpoint != "" && c.Minio.BucketName == "" {
		errs = append(errs, errors.New("minio: bucketName is required when endpoint is set"))
	}
	return errors.Join(errs...)
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds a lib/pq connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// SQLiteDSN returns the sqlite path, in-memory when unset
func (c *Config) SQLiteDSN() string {
	if c.Database.Path == "" {
		return ":memory:"
	}
	return c.Database.Path
}
