package services

import (
	"context"

	"github.com/nexconsult/tracuunnt-api/internal/browser"
	"github.com/nexconsult/tracuunnt-api/internal/scraper"
	"github.com/nexconsult/tracuunnt-api/internal/storage"
)

// LookupServiceInterface defines the interface for taxpayer lookups
type LookupServiceInterface interface {
	// Lookup runs one command for one set of criteria
	Lookup(ctx context.Context, site string, cmd scraper.Command, c scraper.Criteria) (*LookupResult, error)

	// Batch runs the same command for several criteria concurrently
	Batch(ctx context.Context, site string, cmd scraper.Command, items []scraper.Criteria) ([]BatchItem, error)

	// Runs lists the run history
	Runs(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error)

	// Health returns service health status
	Health() map[string]interface{}
}

// CacheServiceInterface defines the interface for cache service
type CacheServiceInterface interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (string, error)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value string) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear clears all cache entries
	Clear(ctx context.Context) error

	// GetStats returns cache statistics
	GetStats(ctx context.Context) (map[string]interface{}, error)

	// Health returns cache service health status
	Health() map[string]interface{}
}

// BrowserPoolInterface defines the interface for the browser session pool
type BrowserPoolInterface interface {
	// Acquire gets an exclusive session
	Acquire(ctx context.Context) (browser.PooledSession, error)

	// Release returns a session to the pool
	Release(sess browser.PooledSession)

	// GetStats returns browser pool statistics
	GetStats() map[string]interface{}

	// Health returns browser pool health status
	Health() map[string]interface{}

	// Restart restarts the browser pool
	Restart() error

	// Close closes all browsers and releases resources
	Close() error
}

// SolverInterface is the captcha model client
type SolverInterface interface {
	scraper.Solver

	// Health reports whether the model server answers
	Health(ctx context.Context) map[string]interface{}
}
