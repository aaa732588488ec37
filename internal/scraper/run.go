package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nexconsult/tracuunnt-api/internal/parser"
)

// Command selects the lookup flow.
type Command string

const (
	CommandPinpoint  Command = "pinpoint"
	CommandSweep     Command = "sweep"
	CommandScrapeAll Command = "scrape-all"
)

// Commands lists the supported commands.
var Commands = []Command{CommandPinpoint, CommandSweep, CommandScrapeAll}

// ParseCommand validates a command name.
func ParseCommand(name string) (Command, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pinpoint":
		return CommandPinpoint, nil
	case "sweep":
		return CommandSweep, nil
	case "scrape-all", "scrape_all", "scrapeall":
		return CommandScrapeAll, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// Composite is the result of ScrapeAll.
type Composite struct {
	Scan   []parser.Row `json:"scan"`
	Scrape []*Detail    `json:"scrape"`
}

// ScrapeAll sweeps criteria, then pinpoints every tax number found.
func (s *Scraper) ScrapeAll(ctx context.Context, c Criteria) (*Composite, error) {
	summary, err := s.Sweep(ctx, c)
	if err != nil {
		return nil, err
	}

	out := &Composite{
		Scan:   summary.Outer,
		Scrape: make([]*Detail, 0, len(summary.Outer)),
	}
	for i, row := range summary.Outer {
		key := row[s.target.KeyColumn]
		if key == "" {
			s.logger.WithField("row", i).Warnf("Row has no %q column, skipping", s.target.KeyColumn)
			continue
		}
		detail, err := s.Pinpoint(ctx, TaxNumber(key))
		if err != nil {
			return nil, fmt.Errorf("failed to pinpoint %s: %w", key, err)
		}
		out.Scrape = append(out.Scrape, detail)
	}
	return out, nil
}

// Result pairs a command with what it produced.
type Result struct {
	Command Command     `json:"command"`
	Result  interface{} `json:"result"`
}

// Run executes cmd for criteria.
func (s *Scraper) Run(ctx context.Context, cmd Command, c Criteria) (Result, error) {
	var (
		value interface{}
		err   error
	)
	switch cmd {
	case CommandPinpoint:
		value, err = s.Pinpoint(ctx, c)
	case CommandSweep:
		value, err = s.Sweep(ctx, c)
	case CommandScrapeAll:
		value, err = s.ScrapeAll(ctx, c)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Command: cmd, Result: value}, nil
}

// Envelope keys results by the criteria representation.
type Envelope map[string]Result

// Add stores r under c.
func (e Envelope) Add(c Criteria, r Result) {
	e[c.String()] = r
}

// WriteJSON writes v as indented JSON with sorted keys and unescaped
// non-ASCII text.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
