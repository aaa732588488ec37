// Package browser implements scraper sessions on top of a headless Chrome
// driven through chromedp.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/nexconsult/tracuunnt-api/internal/correlator"
	"github.com/sirupsen/logrus"
)

const (
	DefaultPageTimeout = 45 * time.Second
	DefaultUserAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"
)

// capturedTypes are the resource types whose bodies are worth keeping.
var capturedTypes = map[network.ResourceType]bool{
	network.ResourceTypeDocument: true,
	network.ResourceTypeImage:    true,
	network.ResourceTypeXHR:      true,
	network.ResourceTypeFetch:    true,
	network.ResourceTypeOther:    true,
}

// Config configures a Chrome session.
type Config struct {
	Headless       bool
	UserAgent      string
	ExecPath       string
	PageTimeout    time.Duration
	CaptureTimeout time.Duration
	WindowWidth    int
	WindowHeight   int
}

// Session is one Chrome tab with network capture. Every completed response
// of a captured type is recorded into the session's correlator.
type Session struct {
	id          string
	ctx         context.Context
	cancel      context.CancelFunc
	responses   *correlator.Correlator
	logger      *logrus.Logger
	pageTimeout time.Duration

	mu       sync.RWMutex
	pending  map[network.RequestID]*network.Response
	healthy  bool
	lastUsed time.Time
}

// New launches a browser and opens a tab.
func New(cfg Config, logger *logrus.Logger) (*Session, error) {
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = DefaultPageTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1366, 768
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-features", "TranslateUI"),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.UserAgent(cfg.UserAgent),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:          "session-" + uuid.NewString(),
		ctx:         ctx,
		cancel:      func() { ctxCancel(); allocCancel() },
		responses:   correlator.New(cfg.CaptureTimeout),
		logger:      logger,
		pageTimeout: cfg.PageTimeout,
		pending:     make(map[network.RequestID]*network.Response),
		healthy:     true,
		lastUsed:    time.Now(),
	}
	chromedp.ListenTarget(ctx, s.onEvent)

	startCtx, startCancel := context.WithTimeout(ctx, 15*time.Second)
	defer startCancel()
	if err := chromedp.Run(startCtx, network.Enable(), chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser health check failed: %w", err)
	}

	logger.WithField("session_id", s.id).Debug("Browser session created")
	return s, nil
}

func (s *Session) onEvent(ev interface{}) {
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if !capturedTypes[e.Type] {
			return
		}
		s.mu.Lock()
		s.pending[e.RequestID] = e.Response
		s.mu.Unlock()

	case *network.EventLoadingFinished:
		s.mu.Lock()
		resp, ok := s.pending[e.RequestID]
		delete(s.pending, e.RequestID)
		s.mu.Unlock()
		if ok {
			// listeners must not block the event loop
			go s.fetchBody(e.RequestID, resp)
		}

	case *network.EventLoadingFailed:
		s.mu.Lock()
		delete(s.pending, e.RequestID)
		s.mu.Unlock()
	}
}

func (s *Session) fetchBody(id network.RequestID, resp *network.Response) {
	c := chromedp.FromContext(s.ctx)
	if c == nil || c.Target == nil {
		return
	}

	body, err := network.GetResponseBody(id).Do(cdp.WithExecutor(s.ctx, c.Target))
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"session_id": s.id,
			"url":        resp.URL,
			"error":      err.Error(),
		}).Debug("Failed to read response body")
		return
	}

	s.responses.Record(correlator.Exchange{
		URL:        resp.URL,
		StatusCode: int(resp.Status),
		MimeType:   resp.MimeType,
		Body:       body,
	})
}

// run executes actions bounded by the page timeout and by ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	if !s.healthy {
		s.mu.Unlock()
		return fmt.Errorf("browser session is not healthy")
	}
	s.lastUsed = time.Now()
	s.mu.Unlock()

	runCtx, cancel := context.WithTimeout(s.ctx, s.pageTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil && s.ctx.Err() != nil {
		s.markUnhealthy()
	}
	return err
}

// Navigate loads url.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

// FillField replaces the value of the input at locator.
func (s *Session) FillField(ctx context.Context, locator, value string) error {
	actions := []chromedp.Action{
		chromedp.WaitReady(locator, chromedp.BySearch),
		chromedp.Clear(locator, chromedp.BySearch),
	}
	if value != "" {
		actions = append(actions, chromedp.SendKeys(locator, value, chromedp.BySearch))
	}
	return s.run(ctx, actions...)
}

// Click clicks the first element matching locator.
func (s *Session) Click(ctx context.Context, locator string) error {
	return s.run(ctx, chromedp.Click(locator, chromedp.BySearch))
}

// Count returns the number of elements matching locator.
func (s *Session) Count(ctx context.Context, locator string) (int, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes(locator, &nodes, chromedp.BySearch, chromedp.AtLeast(0)))
	return len(nodes), err
}

// CurrentPageBody returns the serialized DOM.
func (s *Session) CurrentPageBody(ctx context.Context) ([]byte, error) {
	var html string
	err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return []byte(html), err
}

// GoBack navigates back one history entry.
func (s *Session) GoBack(ctx context.Context) error {
	return s.run(ctx, chromedp.NavigateBack())
}

// Responses returns the capture buffer of this session.
func (s *Session) Responses() *correlator.Correlator {
	return s.responses
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// IsHealthy reports whether the browser is still usable.
func (s *Session) IsHealthy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.healthy
}

// LastUsed returns the time of the last browser action.
func (s *Session) LastUsed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUsed
}

func (s *Session) markUnhealthy() {
	s.mu.Lock()
	s.healthy = false
	s.mu.Unlock()
}

// Close shuts the browser down.
func (s *Session) Close() error {
	s.mu.Lock()
	s.healthy = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	return nil
}
