// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the process configuration
type Config struct {
	Environment string `env:"ENVIRONMENT" env-default:"development"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	// DatabaseURL selects the document store: a postgres:// URL, or "memory"
	DatabaseURL   string `env:"DATABASE_URL" env-default:"memory"`
	RunMigrations bool   `env:"DB_RUN_MIGRATIONS" env-default:"true"`

	JWTSecret  string `env:"JWT_SECRET"`
	BcryptCost int    `env:"BCRYPT_COST" env-default:"10"`

	CORSAllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:3000"`
	LoginRatePerMinute int           `env:"LOGIN_RATE_PER_MINUTE" env-default:"10"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" env-default:"60s"`
	MaxBodyBytes       int64         `env:"MAX_BODY_BYTES" env-default:"20971520"`

	Storage   StorageConfig
	Media     MediaConfig
	Keepalive KeepaliveConfig
	Admin     AdminConfig
}

// StorageConfig selects the blob store
type StorageConfig struct {
	// URL is memory://, file:///path or s3://bucket?region=...
	URL string `env:"STORAGE_URL" env-default:"file://./data/media"`

	AccessKeyID            string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey        string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint               string `env:"AWS_S3_ENDPOINT"`
	UsePathStyle           bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	EnableSSE              bool   `env:"AWS_S3_ENABLE_SSE" env-default:"false"`
	SSEAlgorithm           string `env:"AWS_S3_SSE_ALGORITHM"`
	SSEKMSKeyID            string `env:"AWS_S3_SSE_KMS_KEY_ID"`
	PublicRead             bool   `env:"AWS_S3_PUBLIC_READ" env-default:"false"`
	CreateBucketIfNotExist bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

// MediaConfig configures image ingestion
type MediaConfig struct {
	Folder        string `env:"MEDIA_FOLDER" env-default:"clinic_blog"`
	PublicBaseURL string `env:"MEDIA_PUBLIC_BASE_URL" env-default:"http://localhost:8000/media"`
	Optimize      bool   `env:"MEDIA_OPTIMIZE" env-default:"true"`
	MaxDimension  int    `env:"MEDIA_MAX_DIMENSION" env-default:"1920"`
	JPEGQuality   int    `env:"MEDIA_JPEG_QUALITY" env-default:"82"`
}

// KeepaliveConfig configures the optional self ping
type KeepaliveConfig struct {
	URL      string        `env:"KEEPALIVE_URL"`
	Interval time.Duration `env:"KEEPALIVE_INTERVAL" env-default:"14m"`
}

// AdminConfig is the account created by the seeder
type AdminConfig struct {
	Name     string `env:"ADMIN_NAME" env-default:"Clinic Admin"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

// Load reads an optional .env file and then the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "err", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.DatabaseURL != "memory" && !c.UsesPostgres() {
		return fmt.Errorf("DATABASE_URL must be a postgres URL or 'memory', got %q", c.DatabaseURL)
	}
	if _, err := c.Storage.Parse(); err != nil {
		return err
	}
	if _, err := url.Parse(c.Media.PublicBaseURL); err != nil || c.Media.PublicBaseURL == "" {
		return fmt.Errorf("MEDIA_PUBLIC_BASE_URL is invalid: %q", c.Media.PublicBaseURL)
	}
	if c.LoginRatePerMinute < 1 {
		return errors.New("LOGIN_RATE_PER_MINUTE must be positive")
	}
	return nil
}

// IsDevelopment reports whether the process runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// UsesPostgres reports whether DatabaseURL points at PostgreSQL
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

// StorageTarget is a parsed STORAGE_URL
type StorageTarget struct {
	Kind   string // memory, fs or s3
	Path   string // base directory for fs
	Bucket string
	Region string
}

// Parse interprets URL
func (s StorageConfig) Parse() (StorageTarget, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return StorageTarget{}, fmt.Errorf("STORAGE_URL is invalid: %w", err)
	}

	switch u.Scheme {
	case "memory":
		return StorageTarget{Kind: "memory"}, nil
	case "file":
		path := u.Host + u.Path
		if path == "" {
			return StorageTarget{}, errors.New("STORAGE_URL file:// requires a path")
		}
		return StorageTarget{Kind: "fs", Path: path}, nil
	case "s3":
		if u.Host == "" {
			return StorageTarget{}, errors.New("STORAGE_URL s3:// requires a bucket")
		}
		return StorageTarget{Kind: "s3", Bucket: u.Host, Region: u.Query().Get("region")}, nil
	default:
		return StorageTarget{}, fmt.Errorf("STORAGE_URL scheme %q is not supported", u.Scheme)
	}
}
