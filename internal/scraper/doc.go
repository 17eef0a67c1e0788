// Package scraper pulls gig listings from third-party sites into the store.
//
// Sources are configured rather than coded: an html source walks a listing
// page with CSS selectors and an rss source reads a feed. The Runner turns
// each listing into an event, gives it a fingerprint before it reaches the
// store, and skips anything already present. A bad listing is logged and
// skipped; it never aborts the run.
package scraper
