package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nexconsult/tracuunnt-api/internal/metrics"
	"github.com/nexconsult/tracuunnt-api/internal/scraper"
	"github.com/sirupsen/logrus"
)

var (
	ErrPoolClosed    = errors.New("browser pool is closed")
	ErrPoolExhausted = errors.New("no browser session available and pool is at maximum capacity")
)

// PooledSession is a scraper session the pool can manage.
type PooledSession interface {
	scraper.Session
	ID() string
	IsHealthy() bool
	Close() error
}

// Factory creates a new session.
type Factory func() (PooledSession, error)

// PoolConfig sizes the pool.
type PoolConfig struct {
	MinSessions    int
	MaxSessions    int
	AcquireTimeout time.Duration
}

// Pool hands out exclusive sessions. A session is used by one lookup at a
// time and returned with Release.
type Pool struct {
	config   PoolConfig
	factory  Factory
	logger   *logrus.Logger
	idle     chan PooledSession
	sessions map[string]PooledSession
	mu       sync.RWMutex
	closed   bool
}

// NewChromeFactory returns a Factory launching chromedp sessions.
func NewChromeFactory(cfg Config, logger *logrus.Logger) Factory {
	return func() (PooledSession, error) {
		return New(cfg, logger)
	}
}

// NewPool creates a pool and warms MinSessions sessions. Warm-up failures
// are logged, not returned; sessions are created on demand later.
func NewPool(cfg PoolConfig, factory Factory, logger *logrus.Logger) *Pool {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1
	}
	if cfg.MinSessions > cfg.MaxSessions {
		cfg.MinSessions = cfg.MaxSessions
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 10 * time.Second
	}

	p := &Pool{
		config:   cfg,
		factory:  factory,
		logger:   logger,
		idle:     make(chan PooledSession, cfg.MaxSessions),
		sessions: make(map[string]PooledSession, cfg.MaxSessions),
	}

	p.mu.Lock()
	p.warm()
	p.mu.Unlock()

	logger.WithField("sessions", len(p.sessions)).Info("Browser pool initialized")
	return p
}

// warm must be called with mu held.
func (p *Pool) warm() {
	for i := 0; i < p.config.MinSessions; i++ {
		sess, err := p.factory()
		if err != nil {
			p.logger.WithError(err).Error("Failed to create initial browser session")
			continue
		}
		p.sessions[sess.ID()] = sess
		p.idle <- sess
	}
	p.publish()
}

// Acquire returns an idle session, creating one while under MaxSessions,
// or waits up to AcquireTimeout for one to be released.
func (p *Pool) Acquire(ctx context.Context) (PooledSession, error) {
	if p.isClosed() {
		return nil, ErrPoolClosed
	}

	select {
	case sess, ok := <-p.idle:
		if !ok {
			return nil, ErrPoolClosed
		}
		return p.checkout(sess)
	default:
	}

	if sess, ok, err := p.grow(); ok {
		return sess, err
	}

	timer := time.NewTimer(p.config.AcquireTimeout)
	defer timer.Stop()

	select {
	case sess, ok := <-p.idle:
		if !ok {
			return nil, ErrPoolClosed
		}
		return p.checkout(sess)
	case <-timer.C:
		return nil, ErrPoolExhausted
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// grow creates a session if the pool has room. ok is false when it is full.
func (p *Pool) grow() (PooledSession, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, true, ErrPoolClosed
	}
	if len(p.sessions) >= p.config.MaxSessions {
		return nil, false, nil
	}

	sess, err := p.factory()
	if err != nil {
		return nil, true, fmt.Errorf("failed to create browser session: %w", err)
	}
	p.sessions[sess.ID()] = sess
	p.publish()
	return sess, true, nil
}

// checkout replaces an unhealthy idle session with a fresh one.
func (p *Pool) checkout(sess PooledSession) (PooledSession, error) {
	if sess.IsHealthy() {
		return sess, nil
	}

	p.logger.WithField("session_id", sess.ID()).Warn("Unhealthy browser session detected, creating new one")
	p.discard(sess)

	fresh, ok, err := p.grow()
	if !ok {
		return nil, ErrPoolExhausted
	}
	return fresh, err
}

func (p *Pool) discard(sess PooledSession) {
	_ = sess.Close()

	p.mu.Lock()
	delete(p.sessions, sess.ID())
	p.publish()
	p.mu.Unlock()
}

// Release returns a session to the pool. Unhealthy sessions and sessions
// from before a Restart are closed instead.
func (p *Pool) Release(sess PooledSession) {
	if sess == nil {
		return
	}

	p.mu.RLock()
	_, owned := p.sessions[sess.ID()]
	closed := p.closed
	if !closed && owned && sess.IsHealthy() {
		select {
		case p.idle <- sess:
			p.publish()
			p.mu.RUnlock()
			return
		default:
		}
	}
	p.mu.RUnlock()

	if closed || !owned {
		_ = sess.Close()
		return
	}
	p.discard(sess)
}

// GetStats returns pool statistics.
func (p *Pool) GetStats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	healthy := 0
	for _, sess := range p.sessions {
		if sess.IsHealthy() {
			healthy++
		}
	}
	available := len(p.idle)

	return map[string]interface{}{
		"total_sessions":   len(p.sessions),
		"healthy_sessions": healthy,
		"available":        available,
		"in_use":           len(p.sessions) - available,
		"max_sessions":     p.config.MaxSessions,
		"min_sessions":     p.config.MinSessions,
	}
}

// Health classifies the pool: unhealthy with no healthy session while
// sessions are expected, degraded below MinSessions.
func (p *Pool) Health() map[string]interface{} {
	stats := p.GetStats()
	healthy := stats["healthy_sessions"].(int)

	status := "healthy"
	switch {
	case p.isClosed():
		status = "unhealthy"
	case healthy == 0 && p.config.MinSessions > 0:
		status = "unhealthy"
	case healthy < p.config.MinSessions:
		status = "degraded"
	}

	return map[string]interface{}{
		"status": status,
		"stats":  stats,
	}
}

// Restart closes every session and warms the pool again.
func (p *Pool) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	for _, sess := range p.sessions {
		_ = sess.Close()
	}
	for len(p.idle) > 0 {
		<-p.idle
	}
	p.sessions = make(map[string]PooledSession, p.config.MaxSessions)

	p.warm()
	p.logger.Info("Browser pool restarted")
	return nil
}

// Close closes all sessions.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, sess := range p.sessions {
		_ = sess.Close()
	}
	for len(p.idle) > 0 {
		<-p.idle
	}
	close(p.idle)
	p.sessions = map[string]PooledSession{}
	p.publish()

	p.logger.Info("Browser pool closed")
	return nil
}

func (p *Pool) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// publish must be called with mu held.
func (p *Pool) publish() {
	metrics.SetBrowserSessions(len(p.sessions), len(p.idle))
}
