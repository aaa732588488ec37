package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/tracuunnt-api/internal/models"
	"github.com/nexconsult/tracuunnt-api/internal/scraper"
	"github.com/nexconsult/tracuunnt-api/internal/services"
	"github.com/sirupsen/logrus"
)

// LookupHandler handles taxpayer lookup requests
type LookupHandler struct {
	lookupService services.LookupServiceInterface
	logger        *logrus.Logger
}

// NewLookupHandler creates a new lookup handler
func NewLookupHandler(lookupService services.LookupServiceInterface, logger *logrus.Logger) *LookupHandler {
	return &LookupHandler{
		lookupService: lookupService,
		logger:        logger,
	}
}

// criteriaFromQuery reads search terms either as named parameters
// (?taxnum=...&name=...) or as a single ?term=&value= pair.
func criteriaFromQuery(c *gin.Context) (scraper.Criteria, error) {
	terms := make(map[string]string)
	for _, f := range scraper.FieldOrder {
		if v, ok := c.GetQuery(string(f)); ok {
			terms[string(f)] = v
		}
	}
	if term := c.Query("term"); term != "" {
		terms[term] = c.Query("value")
	}
	return scraper.NewCriteria(terms)
}

// GetLookup handles a single lookup
// @Summary Look up a taxpayer
// @Description Runs pinpoint, sweep or scrape-all against the business or personal registry and returns the result envelope keyed by the criteria
// @Tags Lookup
// @Produce json
// @Param site path string true "Registry" Enums(business, personal)
// @Param command path string true "Command" Enums(pinpoint, sweep, scrape-all)
// @Param taxnum query string false "Tax number"
// @Param name query string false "Taxpayer name"
// @Param address query string false "Address"
// @Param idnum query string false "Identity card number"
// @Param term query string false "Search term name, used with value"
// @Param value query string false "Search term value"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Failure 504 {object} models.ErrorResponse
// @Router /{site}/{command} [get]
func (h *LookupHandler) GetLookup(c *gin.Context) {
	requestID := c.GetString("request_id")
	site := c.Param("site")

	cmd, err := scraper.ParseCommand(c.Param("command"))
	if err != nil {
		status, code := errorStatus(err)
		abortWithError(c, status, code, err.Error())
		return
	}

	criteria, err := criteriaFromQuery(c)
	if err != nil {
		status, code := errorStatus(err)
		abortWithError(c, status, code, err.Error())
		return
	}

	logger := h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"site":       site,
		"command":    cmd,
		"criteria":   criteria.String(),
	})
	logger.Info("Processing lookup request")

	result, err := h.lookupService.Lookup(c.Request.Context(), site, cmd, criteria)
	if err != nil {
		status, code := errorStatus(err)
		logger.WithError(err).WithField("status", status).Warn("Lookup request failed")
		abortWithError(c, status, code, err.Error())
		return
	}

	cache := "MISS"
	if result.Cached {
		cache = "HIT"
	}
	c.Header("X-Run-ID", result.RunID)
	c.Header("X-Cache", cache)
	c.Header("X-Attempts", strconv.Itoa(result.Attempts))
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Status(http.StatusOK)

	if err := scraper.WriteJSON(c.Writer, result.Envelope()); err != nil {
		logger.WithError(err).Error("Failed to write lookup response")
	}
}

// PostBatch handles batch lookups
// @Summary Batch lookup
// @Description Runs one command for up to the configured number of criteria concurrently
// @Tags Lookup
// @Accept json
// @Produce json
// @Param site path string true "Registry" Enums(business, personal)
// @Param request body models.BatchRequest true "Batch request"
// @Success 200 {object} models.BatchResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /{site}/batch [post]
func (h *LookupHandler) PostBatch(c *gin.Context) {
	requestID := c.GetString("request_id")
	site := c.Param("site")
	start := time.Now()

	var req models.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	cmd, err := scraper.ParseCommand(req.Command)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "UNKNOWN_COMMAND", err.Error())
		return
	}

	items := make([]scraper.Criteria, 0, len(req.Criteria))
	for i, terms := range req.Criteria {
		criteria, err := scraper.NewCriteria(terms)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "INVALID_CRITERIA",
				"criteria "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		items = append(items, criteria)
	}

	logger := h.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"site":       site,
		"command":    cmd,
		"count":      len(items),
	})
	logger.Info("Processing batch request")

	results, err := h.lookupService.Batch(c.Request.Context(), site, cmd, items)
	if err != nil {
		status, code := errorStatus(err)
		abortWithError(c, status, code, err.Error())
		return
	}

	resp := models.BatchResponse{
		Total:     len(results),
		Results:   make(map[string]interface{}),
		Errors:    make(map[string]string),
		Timestamp: time.Now(),
	}
	for _, item := range results {
		key := item.Criteria.String()
		if item.Err != nil {
			resp.ErrorCount++
			resp.Errors[key] = item.Err.Error()
			continue
		}
		resp.SuccessCount++
		resp.Results[key] = item.Result.Result
	}
	resp.ExecutionTime = time.Since(start).Round(time.Millisecond).String()

	logger.WithFields(logrus.Fields{
		"success": resp.SuccessCount,
		"errors":  resp.ErrorCount,
	}).Info("Batch request completed")

	c.JSON(http.StatusOK, resp)
}
