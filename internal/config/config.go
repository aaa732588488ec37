package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrConfigNotFound is returned when an explicit config file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Redis    RedisConfig    `json:"redis" yaml:"redis"`
	Scraper  ScraperConfig  `json:"scraper" yaml:"scraper"`
	Solver   SolverConfig   `json:"solver" yaml:"solver"`
	Browser  BrowserConfig  `json:"browser" yaml:"browser"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Security SecurityConfig `json:"security" yaml:"security"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port         int           `json:"port" yaml:"port"`
	Environment  string        `json:"environment" yaml:"environment"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled      bool          `json:"enabled" yaml:"enabled"`
	Host         string        `json:"host" yaml:"host"`
	Port         int           `json:"port" yaml:"port"`
	Password     string        `json:"-" yaml:"password"`
	DB           int           `json:"db" yaml:"db"`
	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// ScraperConfig tunes the lookup state machine.
// MaxAttempts zero keeps each site's own limit.
type ScraperConfig struct {
	MaxAttempts      int           `json:"max_attempts" yaml:"max_attempts"`
	CaptureTimeout   time.Duration `json:"capture_timeout" yaml:"capture_timeout"`
	LookupTimeout    time.Duration `json:"lookup_timeout" yaml:"lookup_timeout"`
	CacheTTL         time.Duration `json:"cache_ttl" yaml:"cache_ttl"`
	BatchLimit       int           `json:"batch_limit" yaml:"batch_limit"`
	BatchConcurrency int           `json:"batch_concurrency" yaml:"batch_concurrency"`
	OutputDir        string        `json:"output_dir" yaml:"output_dir"`
}

// SolverConfig points at the captcha model server.
type SolverConfig struct {
	URL        string        `json:"url" yaml:"url"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay" yaml:"retry_delay"`
}

// BrowserConfig holds browser automation configuration
type BrowserConfig struct {
	MinSessions    int           `json:"min_sessions" yaml:"min_sessions"`
	MaxSessions    int           `json:"max_sessions" yaml:"max_sessions"`
	AcquireTimeout time.Duration `json:"acquire_timeout" yaml:"acquire_timeout"`
	PageTimeout    time.Duration `json:"page_timeout" yaml:"page_timeout"`
	Headless       bool          `json:"headless" yaml:"headless"`
	UserAgent      string        `json:"user_agent" yaml:"user_agent"`
	ExecPath       string        `json:"exec_path" yaml:"exec_path"`
}

// StorageConfig selects the run history backend.
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// SecurityConfig holds security configuration
type SecurityConfig struct {
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	CORS      CORSConfig      `json:"cors" yaml:"cors"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" yaml:"requests_per_minute"`
	BurstSize         int           `json:"burst_size" yaml:"burst_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers" yaml:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials" yaml:"allow_credentials"`
}

// Storage drivers.
const (
	StorageSQLite = "sqlite"
	StorageJSON   = "json"
	StorageNone   = "none"
)

// Load loads configuration from environment variables, then overlays the
// YAML file named by CONFIG_FILE when set.
func Load() (*Config, error) {
	cfg := FromEnv()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the environment and defaults only.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnvAsInt("PORT", 8080),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 10*time.Minute),
			IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", true),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			DialTimeout:  getEnvAsDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvAsDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvAsDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Scraper: ScraperConfig{
			MaxAttempts:      getEnvAsInt("SCRAPER_MAX_ATTEMPTS", 0),
			CaptureTimeout:   getEnvAsDuration("SCRAPER_CAPTURE_TIMEOUT", 30*time.Second),
			LookupTimeout:    getEnvAsDuration("SCRAPER_LOOKUP_TIMEOUT", 8*time.Minute),
			CacheTTL:         getEnvAsDuration("SCRAPER_CACHE_TTL", time.Hour),
			BatchLimit:       getEnvAsInt("SCRAPER_BATCH_LIMIT", 20),
			BatchConcurrency: getEnvAsInt("SCRAPER_BATCH_CONCURRENCY", 3),
			OutputDir:        getEnv("SCRAPER_OUTPUT_DIR", "./output"),
		},
		Solver: SolverConfig{
			URL:        getEnv("SOLVER_URL", "http://localhost:8501/v1/models/solver:predict"),
			Timeout:    getEnvAsDuration("SOLVER_TIMEOUT", 10*time.Second),
			MaxRetries: getEnvAsInt("SOLVER_MAX_RETRIES", 2),
			RetryDelay: getEnvAsDuration("SOLVER_RETRY_DELAY", 500*time.Millisecond),
		},
		Browser: BrowserConfig{
			MinSessions:    getEnvAsInt("BROWSER_MIN", 1),
			MaxSessions:    getEnvAsInt("BROWSER_MAX", 4),
			AcquireTimeout: getEnvAsDuration("BROWSER_ACQUIRE_TIMEOUT", 10*time.Second),
			PageTimeout:    getEnvAsDuration("PAGE_TIMEOUT", 45*time.Second),
			Headless:       getEnvAsBool("BROWSER_HEADLESS", true),
			UserAgent:      getEnv("BROWSER_USER_AGENT", ""),
			ExecPath:       getEnv("BROWSER_EXEC_PATH", ""),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", StorageSQLite),
			DSN:    getEnv("STORAGE_DSN", "tracuu.db"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 60),
				BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
				CleanupInterval:   getEnvAsDuration("RATE_LIMIT_CLEANUP", time.Minute),
			},
			CORS: CORSConfig{
				AllowedOrigins:   getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
				AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
				AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
				AllowCredentials: false,
			},
		},
	}
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Server.Port))
	}
	if c.Scraper.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("max attempts must not be negative"))
	}
	if c.Scraper.CaptureTimeout <= 0 {
		errs = append(errs, fmt.Errorf("capture timeout must be positive"))
	}
	if c.Scraper.BatchLimit <= 0 {
		errs = append(errs, fmt.Errorf("batch limit must be positive"))
	}
	if c.Scraper.BatchConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("batch concurrency must be positive"))
	}
	if c.Solver.URL == "" {
		errs = append(errs, fmt.Errorf("SOLVER_URL is required"))
	}
	if c.Browser.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("browser max sessions must be positive"))
	}
	if c.Browser.MinSessions < 0 || c.Browser.MinSessions > c.Browser.MaxSessions {
		errs = append(errs, fmt.Errorf("browser min sessions must be between 0 and %d", c.Browser.MaxSessions))
	}
	switch c.Storage.Driver {
	case StorageSQLite, StorageJSON:
		if c.Storage.DSN == "" {
			errs = append(errs, fmt.Errorf("storage %s needs a DSN", c.Storage.Driver))
		}
	case StorageNone:
	default:
		errs = append(errs, fmt.Errorf("unknown storage driver %q", c.Storage.Driver))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or bare seconds ("90").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
