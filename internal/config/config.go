package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the document repository API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Upload   UploadConfig
	Metrics  MetricsConfig
	Seed     SeedConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	BcryptCost         int
}

// UploadConfig tunes the chunked upload subsystem.
type UploadConfig struct {
	// ChunkSize is the fixed server-chosen chunk size in bytes.
	ChunkSize int64
	// SessionTTL bounds how long an incomplete session may live.
	SessionTTL time.Duration
	// SweepInterval is how often expired sessions are evicted.
	SweepInterval time.Duration
	// TempDir is the scratch root holding per-upload chunk directories.
	TempDir string
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// SeedConfig controls initial admin account creation.
type SeedConfig struct {
	Enabled  bool
	Email    string
	Username string
	Password string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("DOCREPO_API_HOST", "0.0.0.0"),
			Port:         getInt("DOCREPO_API_PORT", 8080),
			ReadTimeout:  getDuration("DOCREPO_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("DOCREPO_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("DOCREPO_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "docrepo_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "docrepo"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			MaxConns: int32(getInt("POSTGRES_MAX_CONNS", 10)),
			MinConns: int32(getInt("POSTGRES_MIN_CONNS", 2)),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "docrepo"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "documents"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Auth:   loadAuthConfig(),
		Upload: loadUploadConfig(),
		Metrics: MetricsConfig{
			PrometheusPath: getString("DOCREPO_METRICS_PATH", "/metrics"),
		},
		Seed: SeedConfig{
			Enabled:  getBool("DOCREPO_SEED_ADMIN", false),
			Email:    getString("DOCREPO_SEED_ADMIN_EMAIL", "admin@docrepo.local"),
			Username: getString("DOCREPO_SEED_ADMIN_USERNAME", "admin"),
			Password: getString("DOCREPO_SEED_ADMIN_PASSWORD", ""),
		},
	}

	if cfg.Upload.ChunkSize <= 0 {
		return Config{}, fmt.Errorf("upload chunk size must be positive, got %d", cfg.Upload.ChunkSize)
	}

	return cfg, nil
}

func loadUploadConfig() UploadConfig {
	return UploadConfig{
		ChunkSize:     getInt64("DOCREPO_UPLOAD_CHUNK_SIZE", 10*1024*1024),
		SessionTTL:    getDuration("DOCREPO_UPLOAD_SESSION_TTL", 24*time.Hour),
		SweepInterval: getDuration("DOCREPO_UPLOAD_SWEEP_INTERVAL", time.Hour),
		TempDir:       getString("DOCREPO_UPLOAD_TEMP_DIR", filepath.Join(os.TempDir(), "docrepo-uploads")),
	}
}

func loadAuthConfig() AuthConfig {
	cost := getInt("DOCREPO_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		AccessTokenSecret:  getString("DOCREPO_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		RefreshTokenSecret: getString("DOCREPO_JWT_REFRESH_SECRET", "change-me-to-a-64-byte-secret"),
		AccessTokenTTL:     getDuration("DOCREPO_AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getDuration("DOCREPO_AUTH_REFRESH_TOKEN_TTL", 720*time.Hour),
		BcryptCost:         cost,
	}
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
