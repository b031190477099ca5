package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Admin    AdminConfig
	AWS      AWSConfig
	Export   ExportConfig
	Tally    TallyConfig
	Voting   VotingConfig
	LogLevel string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	PublicBaseURL      string // used to build participant vote links, e.g. https://bestshot.example.com
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	URL        string // if set, used as-is for postgres
	Host       string
	Port       string
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
	MaxConns   int
}

// RedisConfig holds Redis connection settings. When disabled, the change feed,
// drafts and export status fall back to in-process implementations.
type RedisConfig struct {
	Enabled     bool
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout int // seconds
}

// AdminConfig holds the admin dashboard gate. An empty PasswordHash leaves the
// admin routes open (access control handled by the deployment in front).
type AdminConfig struct {
	PasswordHash string // bcrypt hash
	JWTSecret    string
	ExpireHours  int
}

// AWSConfig holds AWS credentials and the exports bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	ExportsBucket        string
	PresignExpireMinutes int
}

// ExportConfig controls the PDF summary export.
type ExportConfig struct {
	Title            string
	Subtitle         string
	Filename         string
	TopN             int
	FetchConcurrency int
	FetchTimeoutSec  int    // one image
	FetchBudgetSec   int    // all images of one export; must stay under WRITE_TIMEOUT_SEC
	FontPath         string // optional UTF-8 TTF for non-latin names
}

// TallyConfig controls the live tally aggregator.
type TallyConfig struct {
	ResyncSeconds int // 0 disables periodic resync
}

// VotingConfig controls draft persistence.
type VotingConfig struct {
	DraftTTLHours int
}

// Enabled reports whether the admin gate is configured.
func (c AdminConfig) Enabled() bool { return c.PasswordHash != "" }

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 60),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			URL:        getEnv("DATABASE_URL", ""),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", "postgres"),
			DBName:     getEnv("DB_NAME", "bestshot"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "data/bestshot.db"),
			MaxConns:   getEnvInt("DB_MAX_CONNS", 0),
		},
		Redis: RedisConfig{
			Enabled:     getEnvBool("REDIS_ENABLED", true),
			Addr:        getEnv("REDIS_ADDR", "localhost:6379"),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			PoolSize:    getEnvInt("REDIS_POOL_SIZE", 20),
			DialTimeout: getEnvInt("REDIS_DIAL_TIMEOUT_SEC", 5),
		},
		Admin: AdminConfig{
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			JWTSecret:    getEnv("ADMIN_JWT_SECRET", "change-me-in-production"),
			ExpireHours:  getEnvInt("ADMIN_JWT_EXPIRE_HOURS", 12),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ExportsBucket:        getEnv("AWS_S3_EXPORTS_BUCKET", "bestshot-exports"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Export: ExportConfig{
			Title:            getEnv("EXPORT_TITLE", "Best Shot Result"),
			Subtitle:         getEnv("EXPORT_SUBTITLE", "Wedding photo best 10"),
			Filename:         getEnv("EXPORT_FILENAME", "BestShot_Result.pdf"),
			TopN:             getEnvInt("EXPORT_TOP_N", 10),
			FetchConcurrency: getEnvInt("EXPORT_FETCH_CONCURRENCY", 4),
			FetchTimeoutSec:  getEnvInt("EXPORT_FETCH_TIMEOUT_SEC", 20),
			FetchBudgetSec:   getEnvInt("EXPORT_FETCH_BUDGET_SEC", 30),
			FontPath:         getEnv("EXPORT_FONT_PATH", ""),
		},
		Tally: TallyConfig{
			ResyncSeconds: getEnvInt("TALLY_RESYNC_SEC", 60),
		},
		Voting: VotingConfig{
			DraftTTLHours: getEnvInt("DRAFT_TTL_HOURS", 72),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Export.TopN <= 0 {
		return fmt.Errorf("EXPORT_TOP_N must be positive")
	}
	if c.Export.FetchConcurrency <= 0 {
		c.Export.FetchConcurrency = 1
	}
	if c.Export.FetchBudgetSec <= 0 {
		return fmt.Errorf("EXPORT_FETCH_BUDGET_SEC must be positive")
	}
	if c.Server.WriteTimeout > 0 && c.Export.FetchBudgetSec >= c.Server.WriteTimeout {
		return fmt.Errorf("EXPORT_FETCH_BUDGET_SEC (%d) must be below WRITE_TIMEOUT_SEC (%d)", c.Export.FetchBudgetSec, c.Server.WriteTimeout)
	}
	if c.Admin.Enabled() && c.Admin.JWTSecret == "" {
		return fmt.Errorf("ADMIN_JWT_SECRET is required when ADMIN_PASSWORD_HASH is set")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
