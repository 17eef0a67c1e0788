// Package event holds the gig record shared by every source and the rules
// that stitch those sources into one listing.
//
// Each event has a fingerprint, date|venue|name, built from the listed venue
// name. Merge uses fingerprints to drop scraped and external-API copies of
// events that were already submitted first hand, then orders the survivors
// by date.
package event
