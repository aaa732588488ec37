package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// DefaultEndpoint is the TensorFlow Serving predict URL of the solver model.
const DefaultEndpoint = "http://localhost:8501/v1/models/solver:predict"

// SolverConfig configures the inference client.
type SolverConfig struct {
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// Solver turns preprocessed captcha images into answers by calling a remote
// model serving endpoint.
type Solver struct {
	client   *resty.Client
	endpoint string
	logger   *logrus.Logger
}

type predictRequest struct {
	Instances [][][][]float32 `json:"instances"`
}

type predictResponse struct {
	Predictions []json.RawMessage `json:"predictions"`
}

// NewSolver creates a solver client.
func NewSolver(cfg SolverConfig, logger *logrus.Logger) *Solver {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(cfg.RetryDelay)

	return &Solver{
		client:   client,
		endpoint: cfg.Endpoint,
		logger:   logger,
	}
}

// Solve sends img to the model and decodes the answer.
func (s *Solver) Solve(ctx context.Context, img *Image) (string, error) {
	start := time.Now()

	var out predictResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(predictRequest{Instances: [][][][]float32{img.Tensor()}}).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d", ErrSolverUnavailable, resp.StatusCode())
	}

	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSolverMalformedResponse, err)
	}
	if len(out.Predictions) == 0 {
		return "", fmt.Errorf("%w: no predictions", ErrSolverMalformedResponse)
	}

	answer, err := DecodeRaw(out.Predictions[0])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSolverMalformedResponse, err)
	}

	s.logger.WithFields(logrus.Fields{
		"answer":      answer,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Captcha solved")

	return answer, nil
}

// Health queries the model status resource next to the predict endpoint.
func (s *Solver) Health(ctx context.Context) map[string]interface{} {
	statusURL := strings.TrimSuffix(s.endpoint, ":predict")

	resp, err := s.client.R().SetContext(ctx).Get(statusURL)
	if err != nil {
		return map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
	}
	if resp.IsError() {
		return map[string]interface{}{
			"status": "unhealthy",
			"error":  fmt.Sprintf("status %d", resp.StatusCode()),
		}
	}

	return map[string]interface{}{
		"status":   "healthy",
		"endpoint": s.endpoint,
	}
}
