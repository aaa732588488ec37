package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/tracuunnt-api/internal/services"
	"github.com/sirupsen/logrus"
)

// CacheHandler handles cache management requests
type CacheHandler struct {
	cacheService services.CacheServiceInterface
	logger       *logrus.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cacheService services.CacheServiceInterface, logger *logrus.Logger) *CacheHandler {
	return &CacheHandler{
		cacheService: cacheService,
		logger:       logger,
	}
}

// GetStats handles cache statistics request
// @Summary Get cache statistics
// @Description Get result cache statistics
// @Tags Cache
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /cache/stats [get]
func (h *CacheHandler) GetStats(c *gin.Context) {
	stats, err := h.cacheService.GetStats(c.Request.Context())
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		}).Error("Failed to get cache statistics")
		abortWithError(c, http.StatusInternalServerError, "CACHE_STATS_ERROR", "Failed to retrieve cache statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":     stats,
		"health":    h.cacheService.Health(),
		"timestamp": time.Now(),
	})
}

// Clear handles cache clear request
// @Summary Clear the result cache
// @Description Remove every cached lookup result
// @Tags Cache
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /cache/clear [delete]
func (h *CacheHandler) Clear(c *gin.Context) {
	requestID := c.GetString("request_id")

	if err := h.cacheService.Clear(c.Request.Context()); err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to clear cache")
		abortWithError(c, http.StatusInternalServerError, "CACHE_CLEAR_ERROR", "Failed to clear cache")
		return
	}

	h.logger.WithField("request_id", requestID).Info("Cache cleared")

	c.JSON(http.StatusOK, gin.H{
		"message":   "Cache cleared successfully",
		"success":   true,
		"timestamp": time.Now(),
	})
}
