// Package storage keeps the history of lookup runs.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// RunRecord is one executed lookup.
type RunRecord struct {
	ID        string          `json:"id"`
	Site      string          `json:"site"`
	Command   string          `json:"command"`
	Criteria  string          `json:"criteria"`
	Status    string          `json:"status"`
	Attempts  int             `json:"attempts"`
	Duration  time.Duration   `json:"duration"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Filter selects runs. Zero values match everything.
type Filter struct {
	Site   string
	Status string
	Since  *time.Time
	Limit  int
	Offset int
}

// Match reports whether r passes the filter, ignoring Limit and Offset.
func (f Filter) Match(r *RunRecord) bool {
	if f.Site != "" && r.Site != f.Site {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Backend stores and queries run records. Query returns newest first.
type Backend interface {
	Save(ctx context.Context, run *RunRecord) error
	Query(ctx context.Context, filter Filter) ([]*RunRecord, error)
	Close() error
}

// Discard is a Backend that keeps nothing.
type Discard struct{}

var _ Backend = Discard{}

func (Discard) Save(context.Context, *RunRecord) error { return nil }

func (Discard) Query(context.Context, Filter) ([]*RunRecord, error) {
	return []*RunRecord{}, nil
}

func (Discard) Close() error { return nil }
