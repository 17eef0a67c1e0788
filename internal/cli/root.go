package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
	ExitPartial = 2
)

// ErrPartial is returned by search when a third-party source was
// unavailable. The results have already been written.
var ErrPartial = errors.New("results are partial")

var (
	flagConfig   string
	flagDataDir  string
	flagLogLevel string
	flagVerbose  bool
)

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gigfinder",
		Short: "Find live music near you",
		Long: `GigFinder merges gigs submitted by venues, scraped from listing sites and
fetched from a live events API into one deduplicated listing.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "Data directory for the file store (overrides config)")
	cmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: DEBUG, INFO, WARN or ERROR (overrides config)")
	cmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose logging")

	cmd.AddCommand(
		newServeCmd(),
		newSearchCmd(),
		newScrapeCmd(),
		newMigrateCmd(),
		newVenuesCmd(),
	)
	return cmd
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, ErrPartial):
		return ExitPartial
	default:
		return ExitError
	}
}

// Execute runs the CLI and exits.
func Execute() {
	err := NewRootCmd().Execute()
	if err != nil && !errors.Is(err, ErrPartial) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(ExitCode(err))
}
