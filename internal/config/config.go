package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultAPIURL is the base URL the client talks to when nothing else is configured
	DefaultAPIURL = "http://localhost:8080"
	// DefaultSort is the display order used when none is configured
	DefaultSort = "updatedAt_desc"
	// configDirName is the directory under the user config dir holding client state
	configDirName = "todoms"
)

// ClientConfig holds configuration for the todoms CLI
type ClientConfig struct {
	APIURL          string        `yaml:"api_url"`
	CredentialsFile string        `yaml:"credentials_file"`
	Timeout         time.Duration `yaml:"-"`
	TimeoutSeconds  int           `yaml:"timeout_seconds"`
	DefaultSort     string        `yaml:"default_sort"`
	Debug           bool          `yaml:"debug"`
}

// ServerConfig holds configuration for the reference API server and activity worker
type ServerConfig struct {
	ServerPort      string
	DatabaseURL     string
	RedisURL        string
	RateLimit       string
	FrontendURL     string
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	RabbitMQURL     string
	EnableHSTS      bool
	SeedDemo        bool
	ServerDebugMode bool
	OTELEnabled     bool
	OTELEndpoint    string
}

// LoadClient loads client configuration: defaults, then the YAML file, then environment variables.
// configPath may be empty, in which case config.yaml in the default config directory is tried.
func LoadClient(configPath string) (*ClientConfig, error) {
	dir, err := DefaultConfigDir()
	if err != nil {
		return nil, err
	}

	cfg := &ClientConfig{
		APIURL:          DefaultAPIURL,
		CredentialsFile: filepath.Join(dir, "credentials.json"),
		TimeoutSeconds:  10,
		DefaultSort:     DefaultSort,
	}

	explicit := configPath != ""
	if !explicit {
		configPath = getEnv("TODOMS_CONFIG", filepath.Join(dir, "config.yaml"))
	}
	if err := mergeFile(cfg, configPath, explicit); err != nil {
		return nil, err
	}

	cfg.APIURL = strings.TrimRight(getEnv("TODOMS_API_URL", cfg.APIURL), "/")
	cfg.CredentialsFile = getEnv("TODOMS_CREDENTIALS_FILE", cfg.CredentialsFile)
	cfg.TimeoutSeconds = getEnvInt("TODOMS_TIMEOUT_SECONDS", cfg.TimeoutSeconds)
	cfg.DefaultSort = getEnv("TODOMS_DEFAULT_SORT", cfg.DefaultSort)
	cfg.Debug = getEnvBool("TODOMS_DEBUG", cfg.Debug)

	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %d seconds", cfg.TimeoutSeconds)
	}
	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	return cfg, nil
}

// LoadServer loads server configuration from environment variables
func LoadServer() (*ServerConfig, error) {
	cfg := &ServerConfig{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		RateLimit:       getEnv("RATE_LIMIT", "20-S"),
		FrontendURL:     getEnv("FRONTEND_URL", "http://localhost:3000"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "todoms"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RabbitMQURL:     getEnv("RABBITMQ_URL", ""),
		EnableHSTS:      getEnvBool("ENABLE_HSTS", false),
		SeedDemo:        getEnvBool("SEED_DEMO", false),
		ServerDebugMode: getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}

	return cfg, nil
}

// WorkerConfig holds activity worker configuration
type WorkerConfig struct {
	RabbitMQURL      string
	RabbitMQPrefetch int
	DLQRetention     time.Duration
	DLQSweepInterval time.Duration
	WorkerDebugMode  bool
}

// LoadWorker loads activity worker configuration from environment variables
func LoadWorker() (*WorkerConfig, error) {
	cfg := &WorkerConfig{
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 10),
		DLQRetention:     getEnvDuration("DLQ_RETENTION", 7*24*time.Hour),
		DLQSweepInterval: getEnvDuration("DLQ_SWEEP_INTERVAL", time.Hour),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required")
	}
	if cfg.RabbitMQPrefetch <= 0 {
		return nil, fmt.Errorf("RABBITMQ_PREFETCH must be positive, got %d", cfg.RabbitMQPrefetch)
	}

	return cfg, nil
}

// DefaultConfigDir returns the directory holding client configuration and credentials
func DefaultConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve user config dir: %w", err)
	}
	return filepath.Join(base, configDirName), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
