package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

type Config struct {
	ListenAddr     string
	DBDriver       string
	DBConn         string
	BlobBackend    string
	UploadDir      string
	BlobDBPath     string
	PublicBaseURL  string
	MaxUploadBytes int64
	CORSOrigin     string
	MCPEnabled     bool
	LogLevel       string
	LogFormat      string
}

// Load reads .env (if present) and then the environment. Variables already set in the
// environment win over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "load .env")
	}

	cfg := &Config{
		ListenAddr:     getEnv("LISTEN_ADDR", ":8080"),
		DBDriver:       getEnv("DB_DRIVER", "sqlite3"),
		DBConn:         getEnv("DB_CONN", "./notebook.db"),
		BlobBackend:    getEnv("BLOB_BACKEND", "fs"),
		UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
		BlobDBPath:     getEnv("BLOB_DB_PATH", "notebook.blobs"),
		PublicBaseURL:  strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),
		CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
		MCPEnabled:     getEnvBool("MCP_ENABLED", true),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case "sqlite3", "postgres":
	default:
		return errors.Errorf("DB_DRIVER must be sqlite3 or postgres, got %q", c.DBDriver)
	}
	if c.DBConn == "" {
		return errors.New("DB_CONN is required")
	}
	switch c.BlobBackend {
	case "fs":
		if c.UploadDir == "" {
			return errors.New("UPLOAD_DIR is required for the fs blob backend")
		}
	case "bolt":
		if c.BlobDBPath == "" {
			return errors.New("BLOB_DB_PATH is required for the bolt blob backend")
		}
	default:
		return errors.Errorf("BLOB_BACKEND must be fs or bolt, got %q", c.BlobBackend)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be greater than 0")
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return errors.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}
