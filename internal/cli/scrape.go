package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gigfinder/gigfinder/internal/scraper"
)

var (
	flagSources     []string
	flagIncludePast bool
)

func newScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run the configured listing scrapers",
		Long: `Fetch every scraper in the config file and store new gigs. Gigs already
stored under the same fingerprint are counted as duplicates. A failing source
is reported and the run continues; the command exits non-zero if any source
failed.`,
		Args: cobra.NoArgs,
		RunE: runScrape,
	}
	cmd.Flags().StringSliceVar(&flagSources, "source", nil, "Only run the named scrapers")
	cmd.Flags().BoolVar(&flagIncludePast, "include-past", false, "Also store gigs dated before today")
	cmd.Flags().StringVar(&flagFormat, "format", string(FormatText), "Output format: text or json")
	return cmd
}

func runScrape(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfgs, err := selectScrapers(a.cfg.Scrapers, flagSources)
	if err != nil {
		return err
	}
	sources, err := scraper.NewSources(cfgs, nil)
	if err != nil {
		return err
	}

	runner := scraper.NewRunner(a.store, a.metrics)
	runner.IncludePast = flagIncludePast
	report := runner.Run(cmd.Context(), sources)

	if err := WriteReport(cmd.OutOrStdout(), report, format); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if report.Failed() {
		return fmt.Errorf("one or more scrapers failed")
	}
	return nil
}

// selectScrapers keeps the configs named in names, or all when names is
// empty.
func selectScrapers(cfgs []scraper.Config, names []string) ([]scraper.Config, error) {
	if len(names) == 0 {
		return cfgs, nil
	}
	byName := make(map[string]scraper.Config, len(cfgs))
	for _, c := range cfgs {
		byName[c.Name] = c
	}
	selected := make([]scraper.Config, 0, len(names))
	for _, n := range names {
		c, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("no scraper named %q in config", n)
		}
		selected = append(selected, c)
	}
	return selected, nil
}
