// Package cli implements the gigfinder command line.
//
// The cli package provides the Cobra-based commands: serve runs the HTTP
// API, search queries gigs from the terminal, scrape runs the configured
// listing scrapers, migrate prepares the Postgres schema, and venues holds
// the venue name tooling. Every command loads the same configuration and
// builds the same store, so a search from the terminal sees what the API
// sees.
package cli
