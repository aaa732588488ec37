package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/tracuunnt-api/internal/models"
	"github.com/nexconsult/tracuunnt-api/internal/scraper"
	"github.com/nexconsult/tracuunnt-api/internal/services"
	"github.com/nexconsult/tracuunnt-api/internal/storage"
	"github.com/sirupsen/logrus"
)

// RunsHandler serves the run history
type RunsHandler struct {
	lookupService services.LookupServiceInterface
	logger        *logrus.Logger
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(lookupService services.LookupServiceInterface, logger *logrus.Logger) *RunsHandler {
	return &RunsHandler{
		lookupService: lookupService,
		logger:        logger,
	}
}

func filterFromQuery(c *gin.Context) (storage.Filter, string) {
	var f storage.Filter

	if site := c.Query("site"); site != "" {
		if _, err := scraper.LookupTarget(site); err != nil {
			return f, err.Error()
		}
		f.Site = site
	}

	switch status := c.Query("status"); status {
	case "", storage.StatusSuccess, storage.StatusFailed:
		f.Status = status
	default:
		return f, "status must be success or failed"
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return f, "since must be an RFC3339 timestamp"
		}
		f.Since = &t
	}

	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return f, name + " must be a non-negative integer"
		}
		*dst = n
	}

	return f, ""
}

// GetRuns lists executed lookups
// @Summary List runs
// @Description Lists executed lookups, newest first
// @Tags Runs
// @Produce json
// @Param site query string false "Registry" Enums(business, personal)
// @Param status query string false "Run status" Enums(success, failed)
// @Param since query string false "RFC3339 lower bound on the run time"
// @Param limit query int false "Maximum number of runs" default(50)
// @Param offset query int false "Number of runs to skip"
// @Success 200 {object} models.RunsResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /runs [get]
func (h *RunsHandler) GetRuns(c *gin.Context) {
	filter, problem := filterFromQuery(c)
	if problem != "" {
		abortWithError(c, http.StatusBadRequest, "INVALID_FILTER", problem)
		return
	}

	runs, err := h.lookupService.Runs(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		}).Error("Failed to query runs")
		abortWithError(c, http.StatusInternalServerError, "RUNS_QUERY_ERROR", "Failed to query run history")
		return
	}

	resp := models.RunsResponse{Runs: make([]models.RunInfo, 0, len(runs))}
	for _, r := range runs {
		resp.Runs = append(resp.Runs, models.RunInfo{
			ID:         r.ID,
			Site:       r.Site,
			Command:    r.Command,
			Criteria:   r.Criteria,
			Status:     r.Status,
			Attempts:   r.Attempts,
			DurationMs: r.Duration.Milliseconds(),
			Result:     r.Result,
			Error:      r.Error,
			CreatedAt:  r.CreatedAt,
		})
	}
	resp.Count = len(resp.Runs)

	c.JSON(http.StatusOK, resp)
}
