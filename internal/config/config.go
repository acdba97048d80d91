package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config captures the runtime configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Bootstrap BootstrapConfig
}

// ServerConfig configures the HTTP server runtime behavior.
type ServerConfig struct {
	Addr string
}

// DatabaseConfig contains the database connection settings.
type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	// ConnectTimeout bounds the initial connection check. Queries issued
	// later are bounded only by their request context.
	ConnectTimeout time.Duration
	// IdentityStart is the lowest id handed out to newly created ingredients
	// and recipes. Seed rows may use ids below it.
	IdentityStart int64
	UseMock       bool
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level string
}

// BootstrapConfig locates the SQL scripts run by cmd/bootstrap.
type BootstrapConfig struct {
	SQLDir string
}

const (
	defaultMaxOpenConns   = 5
	defaultConnectTimeout = 500 * time.Millisecond
	defaultIdentityStart  = 1000
)

// Load reads an optional .env file, inspects the environment and builds a
// Config value. Variables already set in the environment win over .env.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}

	cfg.Server = ServerConfig{
		Addr: firstNonEmpty(
			os.Getenv("SERVER_ADDR"),
			os.Getenv("ADDR"),
			":8080",
		),
	}

	url := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("DB_URL"),
		"",
	)

	cfg.Database = DatabaseConfig{
		Driver:          resolveDriver(os.Getenv("DATABASE_DRIVER"), url),
		URL:             url,
		MaxIdleConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_IDLE_CONNS"), 0),
		MaxOpenConns:    parseIntWithDefault(os.Getenv("DATABASE_MAX_OPEN_CONNS"), defaultMaxOpenConns),
		ConnMaxLifetime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_LIFETIME"), 0),
		ConnMaxIdleTime: parseDurationWithDefault(os.Getenv("DATABASE_CONN_MAX_IDLE_TIME"), 0),
		ConnectTimeout:  parseDurationWithDefault(os.Getenv("DATABASE_CONNECT_TIMEOUT"), defaultConnectTimeout),
		IdentityStart:   int64(parseIntWithDefault(os.Getenv("DATABASE_IDENTITY_START"), defaultIdentityStart)),
		UseMock:         parseBoolWithDefault(os.Getenv("DATABASE_USE_MOCK"), false),
	}

	cfg.Logging = LoggingConfig{
		Level: firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
	}

	cfg.Bootstrap = BootstrapConfig{
		SQLDir: firstNonEmpty(os.Getenv("BOOTSTRAP_SQL_DIR"), "sql"),
	}

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return Config{}, fmt.Errorf("server address must not be empty")
	}

	switch cfg.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return Config{}, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	if cfg.Database.IdentityStart < 1 {
		return Config{}, fmt.Errorf("database identity start must be positive, got %d", cfg.Database.IdentityStart)
	}

	return cfg, nil
}

// resolveDriver honours an explicit driver name and otherwise guesses from the
// URL: postgres:// style URLs and key=value DSNs select postgres, anything that
// looks like a file selects sqlite.
func resolveDriver(explicit, url string) string {
	if driver := strings.ToLower(strings.TrimSpace(explicit)); driver != "" {
		return driver
	}
	trimmed := strings.TrimSpace(url)
	switch {
	case strings.HasPrefix(trimmed, "postgres://"), strings.HasPrefix(trimmed, "postgresql://"):
		return DriverPostgres
	case strings.HasPrefix(trimmed, "file:"), strings.HasSuffix(trimmed, ".db"), strings.HasSuffix(trimmed, ".sqlite"):
		return DriverSQLite
	default:
		return DriverPostgres
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func parseIntWithDefault(value string, def int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseDurationWithDefault(value string, def time.Duration) time.Duration {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolWithDefault(value string, def bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return def
	}
	return parsed
}
