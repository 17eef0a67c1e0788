package cli

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gigfinder/gigfinder/internal/geo"
	"github.com/gigfinder/gigfinder/internal/logger"
	"github.com/gigfinder/gigfinder/internal/venue"
)

var flagApprove bool

func newVenuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "venues",
		Short: "Venue name tooling",
	}
	cmd.AddCommand(newVenuesNormalizeCmd(), newVenuesImportCmd())
	return cmd
}

func newVenuesNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize [name...]",
		Short: "Print the normalized form of venue names",
		Long: `Print each venue name with its normalized form, tab separated. Names are
read from the arguments, or one per line from stdin when there are none.
Two names with the same normalized form and city are the same venue.`,
		Example: `  gigfinder venues normalize "Upstairs at The Voodoo Rooms"
  cut -d, -f1 venues.csv | gigfinder venues normalize`,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				scanner := bufio.NewScanner(cmd.InOrStdin())
				for scanner.Scan() {
					if line := strings.TrimSpace(scanner.Text()); line != "" {
						names = append(names, line)
					}
				}
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("reading names: %w", err)
				}
			}

			w := cmd.OutOrStdout()
			for _, name := range names {
				fmt.Fprintf(w, "%s\t%s\n", name, venue.Normalize(name))
			}
			return nil
		},
	}
}

func newVenuesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import venues from a CSV file",
		Long: `Import venues from a CSV file with a header row. Recognised columns are
name, city, postcode, capacity, email, phone and website; name and city are
required. Rows matching an existing venue by normalized name and city are
left alone. Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: runVenuesImport,
	}
	cmd.Flags().BoolVar(&flagApprove, "approve", true, "Mark imported venues approved")
	return cmd
}

// ImportSummary counts the outcome of an import.
type ImportSummary struct {
	Created  int
	Existing int
	Invalid  int
}

func runVenuesImport(cmd *cobra.Command, args []string) error {
	var r io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()
		r = f
	}

	rows, err := readVenueCSV(r)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var summary ImportSummary
	for i, v := range rows {
		if v.Name == "" || v.City == "" || venue.Normalize(v.Name) == "" {
			logger.Warn("Skipping venue row", logger.Fields{"row": i + 2, "name": v.Name}, errors.New("name and city are required"))
			summary.Invalid++
			continue
		}
		v.Approved = flagApprove
		if v.Postcode != "" {
			if p, ok := geo.ResolvePostcode(v.Postcode); ok {
				v.Lat, v.Lon = p.Lat, p.Lon
			}
		}

		_, created, err := a.store.FindOrCreateVenue(cmd.Context(), v)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		if created {
			summary.Created++
		} else {
			summary.Existing++
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d venues: %d new, %d already known, %d invalid\n",
		len(rows), summary.Created, summary.Existing, summary.Invalid)
	return nil
}

// readVenueCSV parses venue rows keyed by the header line.
func readVenueCSV(r io.Reader) ([]venue.Venue, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["name"]; !ok {
		return nil, fmt.Errorf("header has no name column")
	}
	if _, ok := col["city"]; !ok {
		return nil, fmt.Errorf("header has no city column")
	}

	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var venues []venue.Venue
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		v := venue.Venue{
			Name:         field(rec, "name"),
			City:         field(rec, "city"),
			Postcode:     strings.ToUpper(field(rec, "postcode")),
			ContactEmail: field(rec, "email"),
			ContactPhone: field(rec, "phone"),
			Website:      field(rec, "website"),
		}
		if c := field(rec, "capacity"); c != "" {
			n, err := strconv.Atoi(c)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("line %d: capacity %q is not a number", line, c)
			}
			v.Capacity = n
		}
		venues = append(venues, v)
	}
	return venues, nil
}
