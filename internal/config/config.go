package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Store    StoreConfig
	Gateway  GatewayConfig
	AWS      AWSConfig
	Limiter  LimiterConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port         string
	Env          string
	LogLevel     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreConfig struct {
	Backend          string // sessions, audit events, cost ledger
	RateLimitBackend string // rate limit windows
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	CleanupInterval  time.Duration
}

type GatewayConfig struct {
	SecurityConfigSecretID string
	SecurityConfigFile     string
	OriginURL              string
	OriginDir              string
	LoginPagePath          string
	TrustForwardedHeaders  bool
	TrustedProxies         []string
	MFAPendingWindow       time.Duration
	CookieDomain           string
	CookieSecure           bool
	LoginRequestsPerMinute int
	TimingBaseDelayMs      int
	TimingRandomDelayMs    int
}

type AWSConfig struct {
	Region string
}

type LimiterConfig struct {
	PolicyFile         string
	DailyCostThreshold float64
	AlertEmailTo       string
	AlertEmailFrom     string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "adminguard"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 2)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Env:          env,
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Store: StoreConfig{
			Backend:          strings.ToLower(getEnv("STORE_BACKEND", BackendPostgres)),
			RateLimitBackend: strings.ToLower(getEnv("RATE_LIMIT_BACKEND", "")),
			RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:    getEnv("REDIS_PASSWORD", ""),
			RedisDB:          getEnvAsInt("REDIS_DB", 0),
			CleanupInterval:  getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
		Gateway: GatewayConfig{
			SecurityConfigSecretID: getEnv("SECURITY_CONFIG_SECRET_ID", ""),
			SecurityConfigFile:     getEnv("SECURITY_CONFIG_FILE", ""),
			OriginURL:              getEnv("ORIGIN_URL", ""),
			OriginDir:              getEnv("ORIGIN_DIR", ""),
			LoginPagePath:          getEnv("LOGIN_PAGE_PATH", "/admin-login.html"),
			TrustForwardedHeaders:  getEnvAsBool("TRUST_FORWARDED_HEADERS", false),
			TrustedProxies:         getEnvAsList("TRUSTED_PROXIES"),
			MFAPendingWindow:       getEnvAsDuration("MFA_PENDING_WINDOW", 5*time.Minute),
			CookieDomain:           getEnv("COOKIE_DOMAIN", ""),
			CookieSecure:           getEnvAsBool("COOKIE_SECURE", true),
			LoginRequestsPerMinute: getEnvAsInt("LOGIN_REQUESTS_PER_MINUTE", 10),
			TimingBaseDelayMs:      getEnvAsInt("TIMING_BASE_DELAY_MS", 250),
			TimingRandomDelayMs:    getEnvAsInt("TIMING_RANDOM_DELAY_MS", 100),
		},
		AWS: AWSConfig{
			Region: getEnv("AWS_REGION", "us-east-1"),
		},
		Limiter: LimiterConfig{
			PolicyFile:         getEnv("RATE_LIMIT_POLICY_FILE", ""),
			DailyCostThreshold: getEnvAsFloat("DAILY_COST_THRESHOLD", 10.0),
			AlertEmailTo:       getEnv("COST_ALERT_EMAIL_TO", ""),
			AlertEmailFrom:     getEnv("COST_ALERT_EMAIL_FROM", ""),
		},
	}

	if cfg.Store.RateLimitBackend == "" {
		cfg.Store.RateLimitBackend = cfg.Store.Backend
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Store.Backend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q (got %q)", BackendPostgres, BackendMemory, c.Store.Backend)
	}

	switch c.Store.RateLimitBackend {
	case BackendPostgres, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be %q, %q or %q (got %q)",
			BackendPostgres, BackendRedis, BackendMemory, c.Store.RateLimitBackend)
	}

	if c.UsesPostgres() && c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}

	if c.Server.Env == "production" && c.Store.Backend == BackendMemory {
		return fmt.Errorf("STORE_BACKEND=memory is not allowed in production")
	}

	if c.Gateway.SecurityConfigSecretID == "" && c.Gateway.SecurityConfigFile == "" {
		return fmt.Errorf("SECURITY_CONFIG_SECRET_ID or SECURITY_CONFIG_FILE is required")
	}

	if c.Gateway.OriginURL == "" && c.Gateway.OriginDir == "" {
		return fmt.Errorf("ORIGIN_URL or ORIGIN_DIR is required")
	}

	if c.Store.CleanupInterval <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL must be positive (got %s)", c.Store.CleanupInterval)
	}

	if c.Limiter.DailyCostThreshold <= 0 {
		return fmt.Errorf("DAILY_COST_THRESHOLD must be positive")
	}

	if c.Limiter.AlertEmailTo != "" && c.Limiter.AlertEmailFrom == "" {
		return fmt.Errorf("COST_ALERT_EMAIL_FROM is required when COST_ALERT_EMAIL_TO is set")
	}

	return nil
}

// UsesPostgres reports whether any store is backed by Postgres
func (c *Config) UsesPostgres() bool {
	return c.Store.Backend == BackendPostgres || c.Store.RateLimitBackend == BackendPostgres
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := getEnv(key, "")
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
