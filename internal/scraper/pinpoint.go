package scraper

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/nexconsult/tracuunnt-api/internal/parser"
)

// Detail is the result of a pinpoint lookup.
type Detail struct {
	Outer []parser.Row            `json:"outer"`
	Inner parser.Row              `json:"inner"`
	Sub   map[string][]parser.Row `json:"sub,omitempty"`
}

// Pinpoint looks up criteria and descends into the first matching record.
// It returns nil without error when the site reports no match.
func (s *Scraper) Pinpoint(ctx context.Context, c Criteria) (*Detail, error) {
	m := s.newMachine(ModePinpoint, c)
	m.log.Info("Pinpointing a single record")

	if err := m.start(ctx); err != nil {
		return nil, m.fail(err)
	}

	var outcome parser.Outcome
	for {
		out, res, err := m.step(ctx)
		if err != nil {
			return nil, err
		}
		if res == stepClassified {
			outcome = out
			break
		}
	}

	if outcome.Terminal() || len(outcome.Rows) == 0 {
		m.log.WithField("outcome", outcome.Kind.String()).Info("Finished pinpoint, record is empty")
		return nil, m.fire(EventFinish)
	}

	if err := m.fire(EventDescend); err != nil {
		return nil, err
	}
	detail, err := m.descend(ctx, outcome.Rows)
	if err != nil {
		return nil, m.fail(err)
	}
	if err := m.fire(EventFinish); err != nil {
		return nil, err
	}

	m.log.WithField("sub_tables", len(detail.Sub)).Info("Finished pinpoint, record is present")
	return detail, nil
}

func (m *machine) descend(ctx context.Context, outer []parser.Row) (*Detail, error) {
	s := m.s
	s.responses.Reset()
	if err := s.session.Click(ctx, DetailLink); err != nil {
		return nil, fmt.Errorf("failed to open detail page: %w", err)
	}
	ex, err := s.responses.Capture(ctx, s.target.PagePattern)
	if err != nil {
		return nil, fmt.Errorf("failed to load detail page: %w", err)
	}
	inner, err := parser.ParseInner(ex.Body)
	if err != nil {
		return nil, &StructureError{Step: "detail page", Err: err}
	}

	detail := &Detail{Outer: outer, Inner: inner}
	if len(s.target.SubTables) == 0 {
		return detail, nil
	}

	detail.Sub, err = m.subTables(ctx)
	if err != nil {
		return nil, err
	}
	return detail, nil
}

func (m *machine) subTables(ctx context.Context) (map[string][]parser.Row, error) {
	s := m.s
	n, err := s.session.Count(ctx, SubTableTrigger)
	if err != nil {
		return nil, fmt.Errorf("failed to count sub-table triggers: %w", err)
	}
	if n != len(s.target.SubTables) {
		return nil, &StructureError{
			Step: "sub-table triggers",
			Err:  fmt.Errorf("found %d, want %d", n, len(s.target.SubTables)),
		}
	}

	sub := make(map[string][]parser.Row, len(s.target.SubTables))
	for i, st := range s.target.SubTables {
		m.log.WithField("sub_table", st.Name).Debug("Scraping sub-table")

		s.responses.Reset()
		if err := s.session.Click(ctx, fmt.Sprintf("(%s)[%d]", SubTableTrigger, i+1)); err != nil {
			return nil, fmt.Errorf("failed to open sub-table %s: %w", st.Name, err)
		}
		ex, err := s.responses.Capture(ctx, st.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to load sub-table %s: %w", st.Name, err)
		}
		rows, err := parser.ParseSubTable(ex.Body)
		if err != nil {
			return nil, &StructureError{Step: "sub-table " + st.Name, Err: err}
		}
		sub[subTableKey(ex.URL, st.Name)] = rows
	}
	return sub, nil
}

// subTableKey names a sub-table after the page it was served from.
func subTableKey(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	name := strings.TrimSuffix(path.Base(u.Path), ".jsp")
	if name == "" || name == "." || name == "/" {
		return fallback
	}
	return name
}
