package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nexconsult/tracuunnt-api/internal/browser"
	"github.com/nexconsult/tracuunnt-api/internal/captcha"
	"github.com/nexconsult/tracuunnt-api/internal/scraper"
	"github.com/nexconsult/tracuunnt-api/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type lookupFlags struct {
	site     string
	output   string
	input    string
	headful  bool
	attempts int
	terms    map[scraper.Field]*string
}

func newLookupCmd(command scraper.Command, short string) *cobra.Command {
	flags := &lookupFlags{terms: make(map[scraper.Field]*string)}

	cmd := &cobra.Command{
		Use:   string(command) + " --site <business|personal> [--taxnum N] [--name S] [--address S] [--idnum N]",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, command, flags)
		},
	}

	cmd.Flags().StringVar(&flags.site, "site", "business", "registry to search (business or personal)")
	cmd.Flags().StringVar(&flags.output, "output", "", "output folder; result.json is merged in place (default from SCRAPER_OUTPUT_DIR)")
	cmd.Flags().StringVar(&flags.input, "input", "", "file with one tax number per line, looked up in order")
	cmd.Flags().BoolVar(&flags.headful, "headful", false, "show the browser window")
	cmd.Flags().IntVar(&flags.attempts, "max-attempts", 0, "captcha attempts per page (default per site)")
	for _, f := range scraper.FieldOrder {
		flags.terms[f] = cmd.Flags().String(string(f), "", "search by "+string(f))
	}

	return cmd
}

func init() {
	rootCmd.AddCommand(
		newLookupCmd(scraper.CommandPinpoint, "Looks up a single taxpayer with its detail record."),
		newLookupCmd(scraper.CommandSweep, "Collects the summary rows of every result page."),
		newLookupCmd(scraper.CommandScrapeAll, "Collects every result row, then pinpoints each one by tax number."),
	)
}

// criteriaList builds the criteria to run: the search flags as one
// criteria, or one tax number criteria per line of the input file.
func criteriaList(flags *lookupFlags) ([]scraper.Criteria, error) {
	if flags.input != "" {
		return readTaxNumbers(flags.input)
	}

	terms := make(map[string]string)
	for f, v := range flags.terms {
		if *v != "" {
			terms[string(f)] = *v
		}
	}
	c, err := scraper.NewCriteria(terms)
	if err != nil {
		return nil, err
	}
	return []scraper.Criteria{c}, nil
}

func readTaxNumbers(path string) ([]scraper.Criteria, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer file.Close()

	var out []scraper.Criteria
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, scraper.TaxNumber(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	if len(out) == 0 {
		return nil, scraper.ErrEmptyCriteria
	}
	return out, nil
}

func runLookup(cmd *cobra.Command, command scraper.Command, flags *lookupFlags) error {
	if _, err := scraper.LookupTarget(flags.site); err != nil {
		return err
	}
	items, err := criteriaList(flags)
	if err != nil {
		return err
	}

	output := flags.output
	if output == "" {
		output = cfg.Scraper.OutputDir
	}
	if flags.attempts > 0 {
		cfg.Scraper.MaxAttempts = flags.attempts
	}

	store, err := services.OpenStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer store.Close()

	// one browser, reused across the whole input
	pool := browser.NewPool(browser.PoolConfig{
		MinSessions:    0,
		MaxSessions:    1,
		AcquireTimeout: cfg.Browser.AcquireTimeout,
	}, browser.NewChromeFactory(browser.Config{
		Headless:       cfg.Browser.Headless && !flags.headful,
		UserAgent:      cfg.Browser.UserAgent,
		ExecPath:       cfg.Browser.ExecPath,
		PageTimeout:    cfg.Browser.PageTimeout,
		CaptureTimeout: cfg.Scraper.CaptureTimeout,
	}, log), log)
	defer pool.Close()

	solver := captcha.NewSolver(captcha.SolverConfig{
		Endpoint:   cfg.Solver.URL,
		Timeout:    cfg.Solver.Timeout,
		MaxRetries: cfg.Solver.MaxRetries,
		RetryDelay: cfg.Solver.RetryDelay,
	}, log)

	cache := services.NewCacheService(nil, cfg.Scraper.CacheTTL, log)
	lookups := services.NewLookupService(cfg.Scraper, cache, pool, solver, store, log)

	ctx := cmd.Context()
	start := time.Now()
	env := scraper.Envelope{}
	var errs []error

	for _, c := range items {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := lookups.Lookup(ctx, flags.site, command, c)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c, err))
			continue
		}
		env.Add(c, res.Result)
	}

	if len(env) > 0 {
		path, err := mergeResults(output, env)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"file":     path,
			"results":  len(env),
			"failures": len(errs),
			"duration": time.Since(start).Round(time.Millisecond),
		}).Info("Finished writing results")
	}

	return errors.Join(errs...)
}
