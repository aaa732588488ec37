// Package metrics exposes Prometheus collectors for lookups and captcha
// attempts, plus an in-process summary for the JSON stats endpoint.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracuu_captcha_attempts_total",
			Help: "Captcha submissions by site, mode and outcome",
		},
		[]string{"site", "mode", "outcome"},
	)

	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracuu_lookups_total",
			Help: "Lookups executed by site, command and status",
		},
		[]string{"site", "command", "status"},
	)

	LookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracuu_lookup_duration_seconds",
			Help:    "Duration of lookups in seconds",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"site", "command"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracuu_cache_requests_total",
			Help: "Result cache lookups by result",
		},
		[]string{"result"},
	)

	BrowserSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tracuu_browser_sessions",
			Help: "Browser sessions in the pool by state",
		},
		[]string{"state"},
	)
)

var counters struct {
	lookups     atomic.Int64
	failures    atomic.Int64
	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
	attempts    atomic.Int64
	durationMs  atomic.Int64
}

// Observer feeds captcha attempts into AttemptsTotal.
type Observer struct{}

// ObserveAttempt implements scraper.Observer.
func (Observer) ObserveAttempt(site, mode, outcome string) {
	AttemptsTotal.WithLabelValues(site, mode, outcome).Inc()
	counters.attempts.Add(1)
}

// RecordLookup records one finished lookup.
func RecordLookup(site, command, status string, d time.Duration) {
	LookupsTotal.WithLabelValues(site, command, status).Inc()
	LookupDuration.WithLabelValues(site, command).Observe(d.Seconds())

	counters.lookups.Add(1)
	counters.durationMs.Add(d.Milliseconds())
	if status != "success" {
		counters.failures.Add(1)
	}
}

// RecordCache records a result cache hit or miss.
func RecordCache(hit bool) {
	if hit {
		CacheRequestsTotal.WithLabelValues("hit").Inc()
		counters.cacheHits.Add(1)
		return
	}
	CacheRequestsTotal.WithLabelValues("miss").Inc()
	counters.cacheMisses.Add(1)
}

// SetBrowserSessions publishes pool occupancy.
func SetBrowserSessions(total, available int) {
	BrowserSessions.WithLabelValues("total").Set(float64(total))
	BrowserSessions.WithLabelValues("available").Set(float64(available))
}

// Summary is a point-in-time view of the process counters.
type Summary struct {
	Lookups       int64   `json:"lookups"`
	Failures      int64   `json:"failures"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	Attempts      int64   `json:"captcha_attempts"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	CacheHitRate  float64 `json:"cache_hit_rate"`
}

// Snapshot reads the process counters.
func Snapshot() Summary {
	s := Summary{
		Lookups:     counters.lookups.Load(),
		Failures:    counters.failures.Load(),
		Attempts:    counters.attempts.Load(),
		CacheHits:   counters.cacheHits.Load(),
		CacheMisses: counters.cacheMisses.Load(),
	}
	if s.Lookups > 0 {
		s.SuccessRate = float64(s.Lookups-s.Failures) / float64(s.Lookups) * 100
		s.AvgDurationMs = float64(counters.durationMs.Load()) / float64(s.Lookups)
	}
	if total := s.CacheHits + s.CacheMisses; total > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(total) * 100
	}
	return s
}
