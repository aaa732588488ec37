package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nexconsult/tracuunnt-api/internal/config"
	"github.com/nexconsult/tracuunnt-api/internal/metrics"
	"github.com/nexconsult/tracuunnt-api/internal/scraper"
	"github.com/nexconsult/tracuunnt-api/internal/storage"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyBatch    = errors.New("batch has no criteria")
	ErrBatchTooLarge = errors.New("batch too large")
)

const (
	defaultRunsLimit = 50
	maxRunsLimit     = 500
)

// LookupResult is the outcome of one lookup.
type LookupResult struct {
	RunID    string
	Site     string
	Criteria scraper.Criteria
	Result   scraper.Result
	Cached   bool
	Attempts int
	Duration time.Duration
}

// Envelope keys the result by its criteria, the shape every client sees.
func (r *LookupResult) Envelope() scraper.Envelope {
	env := scraper.Envelope{}
	env.Add(r.Criteria, r.Result)
	return env
}

// BatchItem is one entry of a batch; exactly one of Result and Err is set.
type BatchItem struct {
	Criteria scraper.Criteria
	Result   *LookupResult
	Err      error
}

// LookupService implements taxpayer lookups: cache, then a pooled browser
// session driving the scraper, then run history and metrics.
type LookupService struct {
	config config.ScraperConfig
	cache  CacheServiceInterface
	pool   BrowserPoolInterface
	solver SolverInterface
	store  storage.Backend
	logger *logrus.Logger
}

// NewLookupService creates a new lookup service
func NewLookupService(cfg config.ScraperConfig, cache CacheServiceInterface, pool BrowserPoolInterface, solver SolverInterface, store storage.Backend, logger *logrus.Logger) *LookupService {
	if store == nil {
		store = storage.Discard{}
	}
	return &LookupService{
		config: cfg,
		cache:  cache,
		pool:   pool,
		solver: solver,
		store:  store,
		logger: logger,
	}
}

// Lookup runs cmd for c on site, answering from the cache when possible.
func (s *LookupService) Lookup(ctx context.Context, site string, cmd scraper.Command, c scraper.Criteria) (*LookupResult, error) {
	target, err := scraper.LookupTarget(site)
	if err != nil {
		return nil, err
	}
	if _, err := scraper.ParseCommand(string(cmd)); err != nil {
		return nil, err
	}
	if len(c.Fields()) == 0 {
		return nil, scraper.ErrEmptyCriteria
	}

	start := time.Now()
	out := &LookupResult{
		RunID:    uuid.NewString(),
		Site:     target.Name,
		Criteria: c,
	}
	logger := s.logger.WithFields(logrus.Fields{
		"run_id":   out.RunID,
		"site":     target.Name,
		"command":  cmd,
		"criteria": c.String(),
	})
	logger.Info("Starting lookup")

	key := CacheKey(target.Name, cmd, c)
	if cached, err := s.cache.Get(ctx, key); err == nil {
		if err := json.Unmarshal([]byte(cached), &out.Result); err == nil {
			metrics.RecordCache(true)
			out.Cached = true
			out.Duration = time.Since(start)
			logger.WithField("duration", out.Duration).Info("Lookup answered from cache")
			return out, nil
		}
		logger.WithError(err).Warn("Failed to unmarshal cached result")
	}
	metrics.RecordCache(false)

	result, attempts, err := s.execute(ctx, target, cmd, c, logger)
	out.Result = result
	out.Attempts = attempts
	out.Duration = time.Since(start)

	s.record(ctx, out, cmd, err, logger)
	if err != nil {
		logger.WithError(err).WithField("attempts", attempts).Error("Lookup failed")
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := s.cache.Set(ctx, key, string(data)); err != nil {
			logger.WithError(err).Warn("Failed to cache lookup result")
		}
	}

	logger.WithFields(logrus.Fields{
		"attempts": attempts,
		"duration": out.Duration,
	}).Info("Lookup completed")
	return out, nil
}

// execute drives one scraper over an exclusive session.
func (s *LookupService) execute(ctx context.Context, target scraper.Target, cmd scraper.Command, c scraper.Criteria, logger *logrus.Entry) (scraper.Result, int, error) {
	sess, err := s.pool.Acquire(ctx)
	if err != nil {
		return scraper.Result{}, 0, fmt.Errorf("failed to acquire browser session: %w", err)
	}
	defer s.pool.Release(sess)
	logger.WithField("session_id", sess.ID()).Debug("Browser session acquired")

	if s.config.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.LookupTimeout)
		defer cancel()
	}

	counter := &attemptCounter{next: metrics.Observer{}}
	sc := scraper.New(target, sess, s.solver, s.logger,
		scraper.WithMaxAttempts(s.config.MaxAttempts),
		scraper.WithObserver(counter),
	)
	result, err := sc.Run(ctx, cmd, c)
	return result, counter.total(), err
}

// record stores the run. Storage failures are logged only.
func (s *LookupService) record(ctx context.Context, r *LookupResult, cmd scraper.Command, runErr error, logger *logrus.Entry) {
	status := storage.StatusSuccess
	if runErr != nil {
		status = storage.StatusFailed
	}
	metrics.RecordLookup(r.Site, string(cmd), status, r.Duration)

	run := &storage.RunRecord{
		ID:        r.RunID,
		Site:      r.Site,
		Command:   string(cmd),
		Criteria:  r.Criteria.String(),
		Status:    status,
		Attempts:  r.Attempts,
		Duration:  r.Duration,
		CreatedAt: time.Now(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	} else if data, err := json.Marshal(r.Result); err == nil {
		run.Result = data
	}

	// the run is recorded even when the caller went away
	if err := s.store.Save(context.WithoutCancel(ctx), run); err != nil {
		logger.WithError(err).Warn("Failed to record run")
	}
}

// Batch runs cmd for every criteria, each on its own session, at most
// BatchConcurrency at a time. Per-item failures are reported in the items.
func (s *LookupService) Batch(ctx context.Context, site string, cmd scraper.Command, items []scraper.Criteria) ([]BatchItem, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	if s.config.BatchLimit > 0 && len(items) > s.config.BatchLimit {
		return nil, fmt.Errorf("%w: %d criteria, limit is %d", ErrBatchTooLarge, len(items), s.config.BatchLimit)
	}
	if _, err := scraper.LookupTarget(site); err != nil {
		return nil, err
	}

	out := make([]BatchItem, len(items))
	var g errgroup.Group
	if s.config.BatchConcurrency > 0 {
		g.SetLimit(s.config.BatchConcurrency)
	}
	for i, c := range items {
		g.Go(func() error {
			res, err := s.Lookup(ctx, site, cmd, c)
			out[i] = BatchItem{Criteria: c, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return out, nil
}

// Runs lists the run history, newest first.
func (s *LookupService) Runs(ctx context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultRunsLimit
	}
	if filter.Limit > maxRunsLimit {
		filter.Limit = maxRunsLimit
	}
	return s.store.Query(ctx, filter)
}

// Health returns the status of the captcha solver.
func (s *LookupService) Health() map[string]interface{} {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	solver := s.solver.Health(ctx)
	status := "healthy"
	if solver["status"] != "healthy" {
		// without a model every challenge gets the fallback answer
		status = "degraded"
	}
	return map[string]interface{}{
		"status": status,
		"solver": solver,
	}
}

// attemptCounter counts submissions of one run and forwards them.
type attemptCounter struct {
	n    atomic.Int32
	next scraper.Observer
}

func (a *attemptCounter) ObserveAttempt(target, mode, outcome string) {
	a.n.Add(1)
	a.next.ObserveAttempt(target, mode, outcome)
}

func (a *attemptCounter) total() int {
	return int(a.n.Load())
}
