package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/tracuunnt-api/internal/services"
	"github.com/sirupsen/logrus"
)

// BrowserHandler handles browser pool management requests
type BrowserHandler struct {
	pool   services.BrowserPoolInterface
	logger *logrus.Logger
}

// NewBrowserHandler creates a new browser handler
func NewBrowserHandler(pool services.BrowserPoolInterface, logger *logrus.Logger) *BrowserHandler {
	return &BrowserHandler{
		pool:   pool,
		logger: logger,
	}
}

// GetStats handles browser pool statistics request
// @Summary Get browser pool statistics
// @Tags Browser
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /browser/stats [get]
func (h *BrowserHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats":     h.pool.GetStats(),
		"health":    h.pool.Health(),
		"timestamp": time.Now(),
	})
}

// Restart handles browser pool restart request
// @Summary Restart browser pool
// @Description Close every browser session and warm the pool again
// @Tags Browser
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 500 {object} models.ErrorResponse
// @Router /browser/restart [post]
func (h *BrowserHandler) Restart(c *gin.Context) {
	requestID := c.GetString("request_id")
	h.logger.WithField("request_id", requestID).Info("Restarting browser pool")

	if err := h.pool.Restart(); err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to restart browser pool")
		abortWithError(c, http.StatusInternalServerError, "BROWSER_RESTART_ERROR", "Failed to restart browser pool")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Browser pool restarted successfully",
		"success":   true,
		"stats":     h.pool.GetStats(),
		"timestamp": time.Now(),
	})
}

// GetHealth handles browser pool health check request
// @Summary Get browser pool health
// @Tags Browser
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /browser/health [get]
func (h *BrowserHandler) GetHealth(c *gin.Context) {
	health := h.pool.Health()

	status := http.StatusOK
	if health["status"] == "unhealthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"health":    health,
		"stats":     h.pool.GetStats(),
		"timestamp": time.Now(),
	})
}
