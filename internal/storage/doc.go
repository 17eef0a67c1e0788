// Package storage persists venues and first-party or scraped events.
//
// Two implementations satisfy Store: Postgres, backed by gorm, for deployed
// instances, and File, a single JSON snapshot for local runs and tests.
// Both enforce the same identity rules: one venue per normalized name and
// city, and one event per fingerprint. Inserting a duplicate resolves to the
// existing record rather than failing.
package storage
