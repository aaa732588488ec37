// Package correlator keeps the network exchanges observed by a browser
// session so the navigation flow can wait for the response that belongs to
// the action it just performed.
package correlator

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"
)

// ErrResponseTimeout is returned by Capture when no matching exchange shows
// up before the deadline.
var ErrResponseTimeout = errors.New("correlator: response timeout")

// DefaultTimeout bounds Capture when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Exchange is one completed request/response pair.
type Exchange struct {
	URL        string
	StatusCode int
	MimeType   string
	Body       []byte
	ReceivedAt time.Time
}

// Correlator buffers exchanges between two Reset calls. Record is called by
// the browser side; everything else belongs to the navigation flow.
type Correlator struct {
	mu      sync.Mutex
	history []Exchange
	notify  chan struct{}
	timeout time.Duration
}

// New creates a correlator whose Capture waits at most timeout.
func New(timeout time.Duration) *Correlator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Correlator{
		notify:  make(chan struct{}),
		timeout: timeout,
	}
}

// Record appends an exchange and wakes up pending Capture calls.
func (c *Correlator) Record(ex Exchange) {
	if ex.ReceivedAt.IsZero() {
		ex.ReceivedAt = time.Now()
	}

	c.mu.Lock()
	c.history = append(c.history, ex)
	close(c.notify)
	c.notify = make(chan struct{})
	c.mu.Unlock()
}

// Reset drops every exchange recorded so far.
func (c *Correlator) Reset() {
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}

// Len returns the number of buffered exchanges.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// FindLatest returns the newest buffered exchange whose URL matches pattern.
func (c *Correlator) FindLatest(pattern *regexp.Regexp) (Exchange, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.findLocked(pattern)
}

func (c *Correlator) findLocked(pattern *regexp.Regexp) (Exchange, bool) {
	for i := len(c.history) - 1; i >= 0; i-- {
		if pattern.MatchString(c.history[i].URL) {
			return c.history[i], true
		}
	}
	return Exchange{}, false
}

// Capture blocks until an exchange matching pattern has been recorded since
// the last Reset, and returns the newest one.
func (c *Correlator) Capture(ctx context.Context, pattern *regexp.Regexp) (Exchange, error) {
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	for {
		c.mu.Lock()
		ex, ok := c.findLocked(pattern)
		wait := c.notify
		c.mu.Unlock()

		if ok {
			return ex, nil
		}

		select {
		case <-wait:
		case <-timer.C:
			return Exchange{}, fmt.Errorf("%w: %s after %s", ErrResponseTimeout, pattern, c.timeout)
		case <-ctx.Done():
			return Exchange{}, ctx.Err()
		}
	}
}
