package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gigfinder/gigfinder/internal/filter"
	"github.com/gigfinder/gigfinder/internal/search"
	"github.com/gigfinder/gigfinder/internal/vibe"
)

var (
	flagLocation string
	flagKeyword  string
	flagWhen     string
	flagVibe     string
	flagPostcode string
	flagRadius   float64
	flagWeekends bool
	flagMaxPrice float64
	flagLimit    int
	flagSort     string
	flagFormat   string
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [keyword]",
		Short: "Search upcoming gigs",
		Long: `Search upcoming gigs across submitted, scraped and live listings.

Exits with status 2 when the live listing could not be reached and only
stored gigs are shown.`,
		Example: `  gigfinder search --location edinburgh --when "this weekend"
  gigfinder search punk --postcode "EH6 8RG" --radius 10 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runSearch,
	}

	cmd.Flags().StringVar(&flagLocation, "location", "", "Town or venue name")
	cmd.Flags().StringVar(&flagKeyword, "keyword", "", "Match event name, venue or description")
	cmd.Flags().StringVar(&flagWhen, "when", "", `Date range, e.g. "tonight", "this weekend", "Dec 1-15"`)
	cmd.Flags().StringVar(&flagVibe, "vibe", "", "Vibe: "+vibeNames())
	cmd.Flags().StringVar(&flagPostcode, "postcode", "", "Postcode to measure distance from")
	cmd.Flags().Float64Var(&flagRadius, "radius", 0, "Radius in miles around --postcode")
	cmd.Flags().BoolVar(&flagWeekends, "weekends", false, "Only Friday to Sunday gigs")
	cmd.Flags().Float64Var(&flagMaxPrice, "max-price", 0, "Maximum ticket price in pounds")
	cmd.Flags().IntVar(&flagLimit, "limit", 0, "Maximum number of results")
	cmd.Flags().StringVar(&flagSort, "sort", string(SortByDate), "Sort order: date, name, venue or distance")
	cmd.Flags().StringVar(&flagFormat, "format", string(FormatText), "Output format: text or json")

	return cmd
}

func vibeNames() string {
	names := make([]string, len(vibe.All))
	for i, v := range vibe.All {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

// buildQuery turns the search flags into a query.
func buildQuery(args []string, now time.Time) (search.Query, error) {
	q := search.Query{
		Location:     flagLocation,
		Keyword:      flagKeyword,
		Postcode:     flagPostcode,
		RadiusMiles:  flagRadius,
		WeekendsOnly: flagWeekends,
		MaxPrice:     flagMaxPrice,
	}
	if len(args) == 1 {
		q.Keyword = args[0]
	}

	if flagWhen != "" {
		from, to, err := filter.ParseDateRange(flagWhen, now)
		if err != nil {
			return q, err
		}
		q.From = *from
		q.To = *to
	}

	if flagVibe != "" {
		v, ok := vibe.Parse(flagVibe)
		if !ok {
			return q, fmt.Errorf("unknown vibe %q (want one of %s)", flagVibe, vibeNames())
		}
		q.Vibe = v
	}
	if flagRadius > 0 && flagPostcode == "" {
		return q, fmt.Errorf("--radius needs --postcode")
	}
	return q, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(flagFormat)
	if err != nil {
		return err
	}
	order, err := parseSortOrder(flagSort)
	if err != nil {
		return err
	}
	q, err := buildQuery(args, time.Now())
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.searchService().Search(cmd.Context(), q)
	if err != nil {
		return err
	}

	sortResults(results.Results, order)
	if flagLimit > 0 && len(results.Results) > flagLimit {
		results.Results = results.Results[:flagLimit]
		results.Count = flagLimit
	}

	if err := WriteResults(cmd.OutOrStdout(), results, format, flagVerbose); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if results.Partial {
		return ErrPartial
	}
	return nil
}
