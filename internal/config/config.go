// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store selects the MetricStore backend.
type Store string

const (
	StoreSQLite   Store = "sqlite"
	StorePostgres Store = "postgres"
	StoreRedis    Store = "redis"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr    string
	PublicBaseURL string

	Store         Store
	DBPath        string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ProbeTimeout time.Duration

	// SecretKey encrypts stored public credentials. Nil disables encryption.
	SecretKey []byte

	LogLevel  slog.Level
	LogFormat string
}

// EnvFile is the dotenv file read by Load when present.
const EnvFile = ".env"

// Load reads configuration from environment variables and returns a validated
// Config. Values from a .env file in the working directory are applied first;
// variables already set in the environment take precedence.
// Optional variables with defaults: LIVEBADGE_LISTEN_ADDR (127.0.0.1:8080),
// LIVEBADGE_PUBLIC_BASE_URL (http://{listen addr}), LIVEBADGE_STORE (sqlite),
// LIVEBADGE_DB_PATH (livebadge.db), LIVEBADGE_REDIS_ADDR (localhost:6379),
// LIVEBADGE_REDIS_DB (0), LIVEBADGE_PROBE_TIMEOUT (10s), LIVEBADGE_LOG_LEVEL
// (info), LIVEBADGE_LOG_FORMAT (text).
func Load() (*Config, error) {
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", EnvFile, err)
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("LIVEBADGE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	publicBaseURL := "http://" + listenAddr
	if v, ok := os.LookupEnv("LIVEBADGE_PUBLIC_BASE_URL"); ok && v != "" {
		if !strings.HasPrefix(v, "http://") && !strings.HasPrefix(v, "https://") {
			return nil, fmt.Errorf("LIVEBADGE_PUBLIC_BASE_URL must start with http:// or https://, got %q", v)
		}
		publicBaseURL = v
	}
	publicBaseURL = strings.TrimRight(publicBaseURL, "/")

	store := StoreSQLite
	if v, ok := os.LookupEnv("LIVEBADGE_STORE"); ok && v != "" {
		store = Store(strings.ToLower(v))
	}

	dbPath := "livebadge.db"
	if v, ok := os.LookupEnv("LIVEBADGE_DB_PATH"); ok {
		dbPath = v
	}

	databaseURL := os.Getenv("LIVEBADGE_DATABASE_URL")

	redisAddr := "localhost:6379"
	if v, ok := os.LookupEnv("LIVEBADGE_REDIS_ADDR"); ok {
		redisAddr = v
	}

	redisDB := 0
	if v, ok := os.LookupEnv("LIVEBADGE_REDIS_DB"); ok && v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("LIVEBADGE_REDIS_DB must be a non-negative integer, got %q", v)
		}
		redisDB = parsed
	}

	switch store {
	case StoreSQLite:
	case StorePostgres:
		if databaseURL == "" {
			return nil, errors.New("LIVEBADGE_DATABASE_URL is required when LIVEBADGE_STORE=postgres")
		}
	case StoreRedis:
	default:
		return nil, fmt.Errorf("LIVEBADGE_STORE has unknown value %q: want sqlite, postgres or redis", store)
	}

	probeTimeout := 10 * time.Second
	if v, ok := os.LookupEnv("LIVEBADGE_PROBE_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("LIVEBADGE_PROBE_TIMEOUT has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("LIVEBADGE_PROBE_TIMEOUT must be positive, got %s", parsed)
		}
		probeTimeout = parsed
	}

	var secretKey []byte
	if v := os.Getenv("LIVEBADGE_SECRET_KEY"); v != "" {
		decoded, err := hex.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("LIVEBADGE_SECRET_KEY must be hex-encoded: %w", err)
		}
		if len(decoded) != 32 {
			return nil, fmt.Errorf("LIVEBADGE_SECRET_KEY must decode to 32 bytes, got %d", len(decoded))
		}
		secretKey = decoded
	}

	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("LIVEBADGE_LOG_LEVEL"); ok && v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("LIVEBADGE_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	logFormat := "text"
	if v, ok := os.LookupEnv("LIVEBADGE_LOG_FORMAT"); ok && v != "" {
		logFormat = strings.ToLower(v)
		if logFormat != "text" && logFormat != "json" {
			return nil, fmt.Errorf("LIVEBADGE_LOG_FORMAT must be text or json, got %q", v)
		}
	}

	return &Config{
		ListenAddr:    listenAddr,
		PublicBaseURL: publicBaseURL,
		Store:         store,
		DBPath:        dbPath,
		DatabaseURL:   databaseURL,
		RedisAddr:     redisAddr,
		RedisPassword: os.Getenv("LIVEBADGE_REDIS_PASSWORD"),
		RedisDB:       redisDB,
		ProbeTimeout:  probeTimeout,
		SecretKey:     secretKey,
		LogLevel:      logLevel,
		LogFormat:     logFormat,
	}, nil
}
