package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nexconsult/tracuunnt-api/internal/browser"
	"github.com/nexconsult/tracuunnt-api/internal/captcha"
	"github.com/nexconsult/tracuunnt-api/internal/config"
	"github.com/nexconsult/tracuunnt-api/internal/storage"
	"github.com/nexconsult/tracuunnt-api/internal/storage/jsonbackend"
	"github.com/nexconsult/tracuunnt-api/internal/storage/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Container holds all service dependencies
type Container struct {
	config        *config.Config
	logger        *logrus.Logger
	redisClient   *redis.Client
	stopCleanup   context.CancelFunc
	LookupService LookupServiceInterface
	CacheService  CacheServiceInterface
	BrowserPool   BrowserPoolInterface
	Solver        SolverInterface
	Storage       storage.Backend
}

// NewContainer creates a new service container
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config: cfg,
		logger: logger,
	}

	container.initRedis()

	store, err := OpenStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	container.Storage = store

	container.initServices()
	return container, nil
}

// OpenStorage opens the run history backend named by cfg.Driver.
func OpenStorage(cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Driver {
	case config.StorageSQLite:
		return sqlite.New(cfg.DSN)
	case config.StorageJSON:
		return jsonbackend.New(cfg.DSN)
	case config.StorageNone, "":
		return storage.Discard{}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// initRedis connects to Redis; on failure the cache runs in memory only
func (c *Container) initRedis() {
	if !c.config.Redis.Enabled {
		c.logger.Info("Redis disabled, using memory cache")
		return
	}

	c.redisClient = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.config.Redis.Host, c.config.Redis.Port),
		Password:     c.config.Redis.Password,
		DB:           c.config.Redis.DB,
		PoolSize:     c.config.Redis.PoolSize,
		DialTimeout:  c.config.Redis.DialTimeout,
		ReadTimeout:  c.config.Redis.ReadTimeout,
		WriteTimeout: c.config.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Redis.DialTimeout)
	defer cancel()
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis connection failed, running without cache")
		_ = c.redisClient.Close()
		c.redisClient = nil
		return
	}
	c.logger.Info("Redis connection established")
}

// initServices initializes all services
func (c *Container) initServices() {
	cache := NewCacheService(c.redisClient, c.config.Scraper.CacheTTL, c.logger)
	ctx, cancel := context.WithCancel(context.Background())
	cache.StartCleanupRoutine(ctx, c.config.Scraper.CacheTTL)
	c.stopCleanup = cancel
	c.CacheService = cache

	c.Solver = captcha.NewSolver(captcha.SolverConfig{
		Endpoint:   c.config.Solver.URL,
		Timeout:    c.config.Solver.Timeout,
		MaxRetries: c.config.Solver.MaxRetries,
		RetryDelay: c.config.Solver.RetryDelay,
	}, c.logger)

	factory := browser.NewChromeFactory(browser.Config{
		Headless:       c.config.Browser.Headless,
		UserAgent:      c.config.Browser.UserAgent,
		ExecPath:       c.config.Browser.ExecPath,
		PageTimeout:    c.config.Browser.PageTimeout,
		CaptureTimeout: c.config.Scraper.CaptureTimeout,
	}, c.logger)
	c.BrowserPool = browser.NewPool(browser.PoolConfig{
		MinSessions:    c.config.Browser.MinSessions,
		MaxSessions:    c.config.Browser.MaxSessions,
		AcquireTimeout: c.config.Browser.AcquireTimeout,
	}, factory, c.logger)

	c.LookupService = NewLookupService(c.config.Scraper, c.CacheService, c.BrowserPool, c.Solver, c.Storage, c.logger)
}

// Close closes all service connections
func (c *Container) Close() error {
	var errs []error

	if c.stopCleanup != nil {
		c.stopCleanup()
	}

	if c.BrowserPool != nil {
		if err := c.BrowserPool.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser pool: %w", err))
		}
	}

	if c.Storage != nil {
		if err := c.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %w", errors.Join(errs...))
	}
	return nil
}

// Health checks the health of all services
func (c *Container) Health() map[string]interface{} {
	health := make(map[string]interface{})

	if c.CacheService != nil {
		health["cache"] = c.CacheService.Health()
	}
	if c.BrowserPool != nil {
		health["browser"] = c.BrowserPool.Health()
	}
	if c.LookupService != nil {
		health["lookup"] = c.LookupService.Health()
	}

	return health
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logrus.Logger {
	return c.logger
}
