package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/tracuunnt-api/internal/metrics"
	"github.com/nexconsult/tracuunnt-api/internal/models"
	"github.com/nexconsult/tracuunnt-api/internal/services"
	"github.com/sirupsen/logrus"
)

// StatsHandler summarises the process counters
type StatsHandler struct {
	cacheService services.CacheServiceInterface
	pool         services.BrowserPoolInterface
	logger       *logrus.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(cacheService services.CacheServiceInterface, pool services.BrowserPoolInterface, logger *logrus.Logger) *StatsHandler {
	return &StatsHandler{
		cacheService: cacheService,
		pool:         pool,
		logger:       logger,
	}
}

// GetStats returns lookup, cache, browser and runtime figures
// @Summary Service statistics
// @Description Counters since process start. Prometheus exposition is served at /metrics.
// @Tags Metrics
// @Produce json
// @Success 200 {object} models.StatsResponse
// @Router /stats [get]
func (h *StatsHandler) GetStats(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	snap := metrics.Snapshot()

	cacheStats, err := h.cacheService.GetStats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Failed to get cache statistics")
		cacheStats = map[string]interface{}{"error": err.Error()}
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		Lookups: models.LookupStats{
			Total:         snap.Lookups,
			Failures:      snap.Failures,
			SuccessRate:   snap.SuccessRate,
			AvgDurationMs: snap.AvgDurationMs,
			Attempts:      snap.Attempts,
			CacheHitRate:  snap.CacheHitRate,
		},
		Cache:   cacheStats,
		Browser: h.pool.GetStats(),
		System: models.SystemStats{
			MemoryUsageMB: float64(mem.Alloc) / 1024 / 1024,
			Goroutines:    runtime.NumGoroutine(),
		},
		Timestamp: time.Now(),
	})
}
