package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nexconsult/tracuunnt-api/internal/browser"
	"github.com/nexconsult/tracuunnt-api/internal/captcha"
	"github.com/nexconsult/tracuunnt-api/internal/config"
	"github.com/nexconsult/tracuunnt-api/internal/correlator"
	"github.com/nexconsult/tracuunnt-api/internal/parser"
	"github.com/nexconsult/tracuunnt-api/internal/scraper"
	"github.com/nexconsult/tracuunnt-api/internal/storage"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// siteSession imitates the lookup page. The captcha image it serves is not
// decodable, so every submission carries the fallback answer.
type siteSession struct {
	id        string
	target    scraper.Target
	responses *correlator.Correlator
	// page renders the result page for the submitted form fields.
	page func(fields map[string]string) string

	mu          sync.Mutex
	fields      map[string]string
	submissions *atomic.Int32
}

func (s *siteSession) recordCaptcha() {
	s.responses.Record(correlator.Exchange{
		URL:  fmt.Sprintf("http://tracuunnt.gdt.gov.vn/tcnnt/captcha.png?uid=%s", s.id),
		Body: []byte("not an image"),
	})
}

func (s *siteSession) Navigate(context.Context, string) error {
	s.recordCaptcha()
	return nil
}

func (s *siteSession) FillField(_ context.Context, locator, value string) error {
	s.mu.Lock()
	s.fields[locator] = value
	s.mu.Unlock()
	return nil
}

func (s *siteSession) Click(_ context.Context, locator string) error {
	if locator != scraper.SubmitButton {
		return fmt.Errorf("unexpected click on %s", locator)
	}
	s.submissions.Add(1)

	s.mu.Lock()
	fields := make(map[string]string, len(s.fields))
	for k, v := range s.fields {
		fields[k] = v
	}
	s.mu.Unlock()

	s.responses.Record(correlator.Exchange{URL: s.target.SiteURL, StatusCode: 200, Body: []byte(s.page(fields))})
	s.recordCaptcha()
	return nil
}

func (s *siteSession) Count(context.Context, string) (int, error) { return 0, nil }
func (s *siteSession) CurrentPageBody(context.Context) ([]byte, error) { return nil, nil }
func (s *siteSession) GoBack(context.Context) error { return nil }
func (s *siteSession) Responses() *correlator.Correlator { return s.responses }
func (s *siteSession) ID() string { return s.id }
func (s *siteSession) IsHealthy() bool { return true }
func (s *siteSession) Close() error { return nil }

type stubSolver struct {
	health string
}

func (stubSolver) Solve(context.Context, *captcha.Image) (string, error) {
	return "", captcha.ErrSolverUnavailable
}

func (s stubSolver) Health(context.Context) map[string]interface{} {
	return map[string]interface{}{"status": s.health}
}

// memStore is an in-memory storage.Backend.
type memStore struct {
	mu         sync.Mutex
	runs       []*storage.RunRecord
	lastFilter storage.Filter
	failSave   bool
}

func (m *memStore) Save(_ context.Context, run *storage.RunRecord) error {
	if m.failSave {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memStore) Query(_ context.Context, filter storage.Filter) ([]*storage.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	out := []*storage.RunRecord{}
	for i := len(m.runs) - 1; i >= 0; i-- {
		if filter.Match(m.runs[i]) {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) all() []*storage.RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*storage.RunRecord(nil), m.runs...)
}

func resultPage(rows ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="ta_border"><tr><th>STT</th><th>MST</th><th>Tên người nộp thuế</th></tr>`)
	for i, mst := range rows {
		fmt.Fprintf(&b, "<tr><td>%d</td><td>%s</td><td>CONG TY %d</td></tr>", i+1, mst, i+1)
	}
	b.WriteString(`<tr><td colspan="3">1</td></tr></table></body></html>`)
	return b.String()
}

func markerPage(marker string) string {
	return "<html><body><p>" + marker + "</p></body></html>"
}

func rejected() string {
	return markerPage(parser.MarkerCaptchaRejected)
}

type harness struct {
	service     *LookupService
	cache       *CacheService
	pool        *browser.Pool
	store       *memStore
	submissions *atomic.Int32
}

func newHarness(t *testing.T, cfg config.ScraperConfig, maxSessions int, page func(fields map[string]string) string) *harness {
	t.Helper()
	h := &harness{store: &memStore{}, submissions: &atomic.Int32{}}
	logger := testLogger()

	var seq atomic.Int32
	factory := func() (browser.PooledSession, error) {
		n := seq.Add(1)
		return &siteSession{
			id:          fmt.Sprintf("s%d", n),
			target:      scraper.Business,
			responses:   correlator.New(200 * time.Millisecond),
			page:        page,
			fields:      map[string]string{},
			submissions: h.submissions,
		}, nil
	}
	h.pool = browser.NewPool(browser.PoolConfig{MaxSessions: maxSessions, AcquireTimeout: 5 * time.Second}, factory, logger)
	t.Cleanup(func() { _ = h.pool.Close() })

	h.cache = NewCacheService(nil, time.Minute, logger)
	h.service = NewLookupService(cfg, h.cache, h.pool, stubSolver{health: "healthy"}, h.store, logger)
	return h
}

func scraperConfig() config.ScraperConfig {
	return config.ScraperConfig{
		CaptureTimeout:   200 * time.Millisecond,
		LookupTimeout:    10 * time.Second,
		CacheTTL:         time.Minute,
		BatchLimit:       20,
		BatchConcurrency: 2,
	}
}
