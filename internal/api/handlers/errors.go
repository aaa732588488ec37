package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/tracuunnt-api/internal/browser"
	"github.com/nexconsult/tracuunnt-api/internal/models"
	"github.com/nexconsult/tracuunnt-api/internal/scraper"
	"github.com/nexconsult/tracuunnt-api/internal/services"
)

// errorStatus maps a lookup error to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	var structure *scraper.StructureError

	switch {
	case errors.Is(err, scraper.ErrUnknownTarget):
		return http.StatusNotFound, "UNKNOWN_SITE"
	case errors.Is(err, scraper.ErrUnknownCommand):
		return http.StatusNotFound, "UNKNOWN_COMMAND"
	case errors.Is(err, scraper.ErrUnknownField), errors.Is(err, scraper.ErrEmptyCriteria):
		return http.StatusBadRequest, "INVALID_CRITERIA"
	case errors.Is(err, services.ErrEmptyBatch), errors.Is(err, services.ErrBatchTooLarge):
		return http.StatusBadRequest, "INVALID_BATCH"
	case scraper.IsAttemptsExhausted(err):
		return http.StatusBadGateway, "ATTEMPTS_EXHAUSTED"
	case errors.As(err, &structure):
		return http.StatusBadGateway, "UNEXPECTED_PAGE"
	case errors.Is(err, browser.ErrPoolExhausted), errors.Is(err, browser.ErrPoolClosed):
		return http.StatusServiceUnavailable, "NO_BROWSER_AVAILABLE"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "LOOKUP_TIMEOUT"
	case errors.Is(err, context.Canceled):
		return 499, "REQUEST_CANCELED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	text := http.StatusText(status)
	if text == "" {
		text = "Request Canceled"
	}
	c.AbortWithStatusJSON(status, models.ErrorResponse{
		Error:     text,
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}
