package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/tracuunnt-api/internal/models"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoints. Overridden at build time.
var Version = "1.0.0"

// HealthChecker reports per-service health maps with a "status" key.
type HealthChecker interface {
	Health() map[string]interface{}
}

// HealthHandler handles health check requests
type HealthHandler struct {
	checker   HealthChecker
	logger    *logrus.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker HealthChecker, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		checker:   checker,
		logger:    logger,
		startTime: time.Now(),
	}
}

func serviceStatus(health interface{}) (string, string) {
	m, ok := health.(map[string]interface{})
	if !ok {
		return "", ""
	}
	status, _ := m["status"].(string)
	errMsg, _ := m["error"].(string)
	return status, errMsg
}

// GetHealth handles general health check
// @Summary Health check
// @Description Get the health status of the API and its dependencies
// @Tags Health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Failure 503 {object} models.HealthResponse
// @Router /health [get]
func (h *HealthHandler) GetHealth(c *gin.Context) {
	servicesHealth := h.checker.Health()
	now := time.Now()

	response := models.HealthResponse{
		Status:    "healthy",
		Timestamp: now,
		Version:   Version,
		Services:  make(map[string]models.ServiceInfo, len(servicesHealth)),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	for name, health := range servicesHealth {
		status, errMsg := serviceStatus(health)
		response.Services[name] = models.ServiceInfo{
			Status:    status,
			LastCheck: now,
			Error:     errMsg,
		}

		switch {
		case status == "unhealthy":
			response.Status = "unhealthy"
		case status == "degraded" && response.Status == "healthy":
			response.Status = "degraded"
		}
	}

	httpStatus := http.StatusOK
	if response.Status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, response)
}

// GetReadiness handles readiness probe
// @Summary Readiness check
// @Description Ready when the browser pool can hand out sessions
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (h *HealthHandler) GetReadiness(c *gin.Context) {
	servicesHealth := h.checker.Health()

	var issues []string
	for _, name := range []string{"browser", "cache"} {
		if status, _ := serviceStatus(servicesHealth[name]); status == "unhealthy" {
			issues = append(issues, name+" service is unhealthy")
		}
	}

	response := gin.H{
		"ready":     len(issues) == 0,
		"services":  servicesHealth,
		"timestamp": time.Now(),
	}
	if len(issues) > 0 {
		response["issues"] = issues
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetLiveness handles liveness probe
// @Summary Liveness check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/live [get]
func (h *HealthHandler) GetLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alive":     true,
		"uptime":    time.Since(h.startTime).Round(time.Second).String(),
		"version":   Version,
		"timestamp": time.Now(),
	})
}
