package scraper

import (
	"context"
	"fmt"

	"github.com/nexconsult/tracuunnt-api/internal/parser"
	"github.com/sirupsen/logrus"
)

// Summary is the result of a sweep.
type Summary struct {
	Outer []parser.Row `json:"outer"`
}

// Sweep collects the summary rows of every result page for criteria.
//
// Each page has its own attempt budget. Page 1 is requested through the
// search button; later pages through the pagination link, with the captcha
// filled but not submitted. A rejected later page is retried after going
// back to the page that carries the link.
func (s *Scraper) Sweep(ctx context.Context, c Criteria) (*Summary, error) {
	m := s.newMachine(ModeSweep, c)
	m.log.Info("Sweeping result pages")

	if err := m.start(ctx); err != nil {
		return nil, m.fail(err)
	}

	rows := make([]parser.Row, 0)
	for {
		outcome, res, err := m.step(ctx)
		if err != nil {
			return nil, err
		}

		switch res {
		case stepRestarted:
			rows = rows[:0]
			continue
		case stepRetry:
			if m.page > 1 {
				// The captcha served with the rejected page answers the retry.
				if err := s.session.GoBack(ctx); err != nil {
					return nil, m.fail(fmt.Errorf("failed to go back from page %d: %w", m.page, err))
				}
			}
			continue
		}

		if outcome.Terminal() {
			m.log.WithField("outcome", outcome.Kind.String()).Info("No more records")
			break
		}

		rows = append(rows, outcome.Rows...)
		m.log.WithFields(logrus.Fields{
			"page":    m.page,
			"rows":    len(outcome.Rows),
			"total":   len(rows),
			"attempt": m.attempts + 1,
		}).Debug("Page consumed")

		m.page++
		if len(outcome.Rows) < s.target.PageSize || m.page > s.target.MaxPage {
			break
		}
		m.attempts = 0
		if err := m.fire(EventNextPage); err != nil {
			return nil, err
		}
	}

	if err := m.fire(EventFinish); err != nil {
		return nil, err
	}
	m.log.WithField("records", len(rows)).Info("Finished sweep")
	return &Summary{Outer: rows}, nil
}
