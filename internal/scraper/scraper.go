// Package scraper drives the captcha-gated lookup flow of tracuunnt.gdt.gov.vn.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nexconsult/tracuunnt-api/internal/captcha"
	"github.com/nexconsult/tracuunnt-api/internal/correlator"
	"github.com/nexconsult/tracuunnt-api/internal/parser"
	"github.com/sirupsen/logrus"
)

// Session is the browser tab a scraper drives. Locators are XPath
// expressions. A session must not be shared between concurrent runs.
type Session interface {
	// Navigate loads url and waits for the document to be ready
	Navigate(ctx context.Context, url string) error

	// FillField clears the input at locator and types value into it
	FillField(ctx context.Context, locator, value string) error

	// Click clicks the first element matching locator
	Click(ctx context.Context, locator string) error

	// Count returns the number of elements matching locator
	Count(ctx context.Context, locator string) (int, error)

	// CurrentPageBody returns the serialized DOM of the current page
	CurrentPageBody(ctx context.Context) ([]byte, error)

	// GoBack navigates one step back in history
	GoBack(ctx context.Context) error

	// Responses returns the buffer the session records network exchanges into
	Responses() *correlator.Correlator
}

// Solver answers a preprocessed captcha.
type Solver interface {
	Solve(ctx context.Context, img *captcha.Image) (string, error)
}

// Observer receives one call per submitted challenge.
type Observer interface {
	ObserveAttempt(target, mode, outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(string, string, string) {}

// Attempt outcomes reported to the Observer.
const (
	AttemptAccepted = "accepted"
	AttemptRejected = "rejected"
	AttemptTimeout  = "timeout"
)

const (
	ModePinpoint = "pinpoint"
	ModeSweep    = "sweep"
)

// fallbackAnswer is submitted when no answer could be computed, so that the
// site rejects it and serves a fresh challenge.
var fallbackAnswer = strings.Repeat(captcha.Alphabet[:1], captcha.Length)

// Option customizes a Scraper.
type Option func(*Scraper)

// WithMaxAttempts overrides the attempt budget of the target.
func WithMaxAttempts(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithObserver registers an attempt observer.
func WithObserver(o Observer) Option {
	return func(s *Scraper) {
		if o != nil {
			s.observer = o
		}
	}
}

// Scraper runs lookups for one target over one session.
type Scraper struct {
	target      Target
	session     Session
	responses   *correlator.Correlator
	solver      Solver
	logger      *logrus.Logger
	observer    Observer
	maxAttempts int
}

// New creates a scraper. The session is owned by the scraper for the
// duration of every call.
func New(target Target, session Session, solver Solver, logger *logrus.Logger, opts ...Option) *Scraper {
	s := &Scraper{
		target:      target,
		session:     session,
		responses:   session.Responses(),
		solver:      solver,
		logger:      logger,
		observer:    nopObserver{},
		maxAttempts: target.MaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxAttempts <= 0 {
		s.maxAttempts = 1
	}
	return s
}

// Target returns the lookup page this scraper drives.
func (s *Scraper) Target() Target {
	return s.target
}

// machine tracks one Pinpoint or Sweep invocation.
type machine struct {
	s           *Scraper
	mode        string
	criteria    Criteria
	state       State
	attempts    int
	page        int
	lastOutcome string
	log         *logrus.Entry
}

func (s *Scraper) newMachine(mode string, c Criteria) *machine {
	return &machine{
		s:        s,
		mode:     mode,
		criteria: c,
		state:    StateIdle,
		page:     1,
		log: s.logger.WithFields(logrus.Fields{
			"site":     s.target.Name,
			"mode":     mode,
			"criteria": c.String(),
		}),
	}
}

func (m *machine) fire(e Event) error {
	next, err := transition(m.state, e)
	if err != nil {
		return err
	}
	m.log.WithFields(logrus.Fields{
		"from":  m.state.String(),
		"to":    next.String(),
		"event": e.String(),
	}).Trace("State transition")
	m.state = next
	return nil
}

// fail moves the machine to Failed and returns err.
func (m *machine) fail(err error) error {
	_ = m.fire(EventAbort)
	return err
}

// start loads the search form and fills the criteria in.
func (m *machine) start(ctx context.Context) error {
	s := m.s
	s.responses.Reset()
	if err := s.session.Navigate(ctx, s.target.SiteURL); err != nil {
		return fmt.Errorf("failed to open %s: %w", s.target.SiteURL, err)
	}
	for _, f := range m.criteria.Fields() {
		if _, ok := s.target.Fields[f]; !ok {
			return fmt.Errorf("%w: %s not supported by %s", ErrUnknownField, f, s.target.Name)
		}
	}
	// the site keeps previous values in its inputs, so unset fields are cleared
	for _, f := range FieldOrder {
		locator, ok := s.target.Fields[f]
		if !ok {
			continue
		}
		value, _ := m.criteria.Get(f)
		if err := s.session.FillField(ctx, locator, value); err != nil {
			return fmt.Errorf("failed to fill %s: %w", f, err)
		}
	}
	return m.fire(EventStart)
}

// answer solves the freshest challenge image. Sample errors are logged and
// replaced by the fallback answer.
func (m *machine) answer(ctx context.Context) (string, error) {
	s := m.s
	ex, ok := s.responses.FindLatest(CaptchaPattern)
	if !ok {
		var err error
		ex, err = s.responses.Capture(ctx, CaptchaPattern)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			m.log.WithError(err).Warn("No captcha image captured, submitting fallback answer")
			return fallbackAnswer, nil
		}
	}

	img, err := captcha.Preprocess(ex.Body)
	if err == nil {
		var answer string
		answer, err = s.solver.Solve(ctx, img)
		if err == nil {
			return answer, nil
		}
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if !captcha.IsSampleError(err) {
		return "", err
	}

	m.log.WithError(err).Warn("Captcha could not be solved, submitting fallback answer")
	return fallbackAnswer, nil
}

// cycle answers the current challenge, submits it for the current page and
// classifies the page that comes back.
func (m *machine) cycle(ctx context.Context) (parser.Outcome, error) {
	s := m.s
	answer, err := m.answer(ctx)
	if err != nil {
		return parser.Outcome{}, err
	}
	if err := m.fire(EventChallenge); err != nil {
		return parser.Outcome{}, err
	}

	m.log.WithFields(logrus.Fields{
		"page":    m.page,
		"attempt": m.attempts + 1,
		"answer":  answer,
	}).Debug("Submitting captcha")

	s.responses.Reset()
	if err := s.session.FillField(ctx, CaptchaInput, answer); err != nil {
		return parser.Outcome{}, fmt.Errorf("failed to fill captcha: %w", err)
	}
	submit := SubmitButton
	if m.page > 1 {
		submit = PageLink(m.page)
	}
	if err := s.session.Click(ctx, submit); err != nil {
		return parser.Outcome{}, fmt.Errorf("failed to submit page %d: %w", m.page, err)
	}

	ex, err := s.responses.Capture(ctx, s.target.PagePattern)
	if err != nil {
		return parser.Outcome{}, err
	}

	outcome, err := parser.ParseOuter(ex.Body)
	if err != nil {
		return parser.Outcome{}, &StructureError{Step: "outer page", Err: err}
	}
	return outcome, nil
}

// countFailure records a failed attempt and reports whether the budget is
// spent.
func (m *machine) countFailure(outcome string) bool {
	m.attempts++
	m.lastOutcome = outcome
	m.s.observer.ObserveAttempt(m.s.target.Name, m.mode, outcome)
	return m.attempts >= m.s.maxAttempts
}

func (m *machine) exhausted() error {
	_ = m.fire(EventExhausted)
	err := &AttemptsExhaustedError{
		Target:      m.s.target.Name,
		Mode:        m.mode,
		Page:        m.page,
		Attempts:    m.attempts,
		LastOutcome: m.lastOutcome,
	}
	m.log.WithError(err).Error("Giving up")
	return err
}

type stepResult int

const (
	stepRetry stepResult = iota
	stepRestarted
	stepClassified
)

// step runs cycle and folds transient failures into the machine. A timeout
// reloads the search form, so the caller resumes from page 1.
func (m *machine) step(ctx context.Context) (parser.Outcome, stepResult, error) {
	outcome, err := m.cycle(ctx)
	switch {
	case errors.Is(err, correlator.ErrResponseTimeout):
		m.log.WithError(err).WithField("page", m.page).Warn("Page response timed out")
		if m.countFailure(AttemptTimeout) {
			return outcome, stepRetry, m.exhausted()
		}
		if err := m.fire(EventTimeout); err != nil {
			return outcome, stepRetry, err
		}
		m.page = 1
		if err := m.start(ctx); err != nil {
			return outcome, stepRetry, m.fail(err)
		}
		return outcome, stepRestarted, nil
	case err != nil:
		return outcome, stepRetry, m.fail(err)
	case outcome.Kind == parser.KindCaptchaRejected:
		if err := m.fire(EventRejected); err != nil {
			return outcome, stepRetry, err
		}
		m.log.WithFields(logrus.Fields{"page": m.page, "attempt": m.attempts + 1}).Info("Captcha rejected")
		if m.countFailure(AttemptRejected) {
			return outcome, stepRetry, m.exhausted()
		}
		return outcome, stepRetry, m.fire(EventRetry)
	}

	m.s.observer.ObserveAttempt(m.s.target.Name, m.mode, AttemptAccepted)
	m.lastOutcome = outcome.Kind.String()
	if err := m.fire(EventAccepted); err != nil {
		return outcome, stepRetry, err
	}
	return outcome, stepClassified, m.fire(EventClassified)
}
