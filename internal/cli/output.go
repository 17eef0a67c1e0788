package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gigfinder/gigfinder/internal/scraper"
	"github.com/gigfinder/gigfinder/internal/search"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

func parseFormat(s string) (OutputFormat, error) {
	format := OutputFormat(strings.ToLower(s))
	if format != FormatText && format != FormatJSON {
		return "", fmt.Errorf("invalid format: %s (must be 'text' or 'json')", s)
	}
	return format, nil
}

// WriteResults writes search results in the specified format
func WriteResults(w io.Writer, results *search.Results, format OutputFormat, verbose bool) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, results)
	case FormatText:
		return writeResultsText(w, results, verbose)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func writeResultsText(w io.Writer, results *search.Results, verbose bool) error {
	if results.Partial {
		fmt.Fprintf(w, "Note: %s unavailable, showing stored gigs only.\n\n", strings.Join(results.Unavailable, ", "))
	}
	if len(results.Results) == 0 {
		fmt.Fprintln(w, "No gigs found.")
		return nil
	}

	for _, r := range results.Results {
		fmt.Fprintf(w, "%s  %s @ %s", r.Date, r.Name, r.Venue)
		if r.Town != "" {
			fmt.Fprintf(w, ", %s", r.Town)
		}
		if r.Distance != nil {
			fmt.Fprintf(w, " (%.1f mi)", *r.Distance)
		}
		fmt.Fprintln(w)

		fmt.Fprintf(w, "     %s | %s | capacity %s", r.Price, r.VibeLabel, r.Capacity)
		if r.Verified {
			fmt.Fprint(w, " | verified")
		}
		fmt.Fprintln(w)

		if verbose {
			fmt.Fprintf(w, "     ID: %s (%s)\n", r.ID, r.Source)
			if r.Doors != "" {
				fmt.Fprintf(w, "     Doors: %s\n", r.Doors)
			}
			switch {
			case r.InternalTicketing:
				fmt.Fprintln(w, "     Tickets: via GigFinder")
			case r.TicketURL != "":
				fmt.Fprintf(w, "     Tickets: %s\n", r.TicketURL)
			}
		}
	}

	fmt.Fprintf(w, "\nTotal: %d gigs", results.Count)
	if results.Suppressed > 0 {
		fmt.Fprintf(w, " (%d duplicates hidden)", results.Suppressed)
	}
	fmt.Fprintln(w)
	if verbose && results.Filter != "" {
		fmt.Fprintf(w, "Filter: %s\n", results.Filter)
	}
	return nil
}

// WriteReport writes a scrape report in the specified format
func WriteReport(w io.Writer, report *scraper.Report, format OutputFormat) error {
	if format == FormatJSON {
		return writeJSON(w, struct {
			*scraper.Report
			Totals scraper.SourceReport `json:"totals"`
		}{report, report.Totals()})
	}

	if len(report.Sources) == 0 {
		fmt.Fprintln(w, "No scrapers configured.")
		return nil
	}
	for _, s := range report.Sources {
		if s.Error != "" {
			fmt.Fprintf(w, "%-24s FAILED: %s\n", s.Source, s.Error)
			continue
		}
		fmt.Fprintf(w, "%-24s fetched %3d  inserted %3d  duplicates %3d  skipped %3d\n",
			s.Source, s.Fetched, s.Inserted, s.Duplicates, s.Skipped)
	}
	t := report.Totals()
	fmt.Fprintf(w, "\nTotal: %d fetched, %d inserted, %d duplicates, %d skipped\n",
		t.Fetched, t.Inserted, t.Duplicates, t.Skipped)
	return nil
}
