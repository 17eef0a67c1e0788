package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/geo"
	"github.com/gigfinder/gigfinder/internal/logger"
	"github.com/gigfinder/gigfinder/internal/metrics"
	"github.com/gigfinder/gigfinder/internal/skiddle"
	"github.com/gigfinder/gigfinder/internal/venue"
	"github.com/gigfinder/gigfinder/internal/vibe"
)

// Store is the part of the persistent store the runner writes to.
type Store interface {
	FindOrCreateVenue(ctx context.Context, v venue.Venue) (*venue.Venue, bool, error)
	HasFingerprint(ctx context.Context, fingerprint string) (bool, error)
	CreateEvent(ctx context.Context, e *event.Event) (bool, error)
}

// SourceReport counts the outcome of one source's run.
type SourceReport struct {
	Source     string `json:"source"`
	Fetched    int    `json:"fetched"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// Report summarises a scrape run.
type Report struct {
	Sources []SourceReport `json:"sources"`
}

// Totals sums the per-source counts.
func (r *Report) Totals() SourceReport {
	total := SourceReport{Source: "total"}
	for _, s := range r.Sources {
		total.Fetched += s.Fetched
		total.Inserted += s.Inserted
		total.Duplicates += s.Duplicates
		total.Skipped += s.Skipped
	}
	return total
}

// Failed reports whether any source could not be fetched.
func (r *Report) Failed() bool {
	for _, s := range r.Sources {
		if s.Error != "" {
			return true
		}
	}
	return false
}

// errSkip marks an item that is valid input but not worth storing.
var errSkip = errors.New("skipped")

// Runner ingests items from sources into a store.
type Runner struct {
	store   Store
	metrics *metrics.Metrics
	now     func() time.Time

	// IncludePast keeps listings dated before today.
	IncludePast bool
}

// NewRunner creates a runner. m may be nil.
func NewRunner(store Store, m *metrics.Metrics) *Runner {
	return &Runner{store: store, metrics: m, now: time.Now}
}

// Run fetches every source in turn. A failing source is recorded in the
// report and the run moves on.
func (r *Runner) Run(ctx context.Context, sources []Source) *Report {
	report := &Report{Sources: make([]SourceReport, 0, len(sources))}
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		report.Sources = append(report.Sources, r.runSource(ctx, src))
	}
	return report
}

func (r *Runner) runSource(ctx context.Context, src Source) SourceReport {
	sr := SourceReport{Source: src.Name()}
	log := logger.Default().With(logger.Fields{"source": src.Name()})

	items, err := src.Fetch(ctx)
	if err != nil {
		sr.Error = err.Error()
		log.Error("Failed to fetch source", nil, err)
		r.metrics.IncScrapeItem(src.Name(), metrics.ScrapeFailed)
		return sr
	}
	sr.Fetched = len(items)

	for i := range items {
		created, err := r.ingest(ctx, &items[i])
		switch {
		case errors.Is(err, errSkip):
			sr.Skipped++
			r.metrics.IncScrapeItem(src.Name(), metrics.ScrapeSkipped)
		case err != nil:
			sr.Skipped++
			r.metrics.IncScrapeItem(src.Name(), metrics.ScrapeSkipped)
			log.Warn("Skipping listing", logger.Fields{
				"name":  items[i].Name,
				"date":  items[i].DateText,
				"venue": items[i].VenueName,
			}, err)
		case created:
			sr.Inserted++
			r.metrics.IncScrapeItem(src.Name(), metrics.ScrapeInserted)
		default:
			sr.Duplicates++
			r.metrics.IncScrapeItem(src.Name(), metrics.ScrapeDuplicate)
		}
	}

	log.Info("Scrape complete", logger.Fields{
		"fetched":    sr.Fetched,
		"inserted":   sr.Inserted,
		"duplicates": sr.Duplicates,
		"skipped":    sr.Skipped,
	})
	return sr
}

// ingest stores one item. It returns created=false for a known fingerprint.
func (r *Runner) ingest(ctx context.Context, item *Item) (bool, error) {
	e, err := r.ToEvent(item)
	if err != nil {
		return false, err
	}
	if !r.IncludePast && !e.IsUpcoming(r.now()) {
		return false, errSkip
	}

	exists, err := r.store.HasFingerprint(ctx, e.Fingerprint)
	if err != nil {
		return false, fmt.Errorf("checking fingerprint: %w", err)
	}
	if exists {
		return false, nil
	}

	v, _, err := r.store.FindOrCreateVenue(ctx, venueFor(item))
	if err != nil {
		return false, fmt.Errorf("resolving venue: %w", err)
	}
	e.VenueID = v.ID
	e.Capacity = v.Capacity
	e.Lat, e.Lon = v.Lat, v.Lon
	if e.Town == "" {
		e.Town = v.City
	}

	created, err := r.store.CreateEvent(ctx, e)
	if err != nil {
		return false, fmt.Errorf("storing event: %w", err)
	}
	return created, nil
}

// ToEvent converts an item into a scraped event carrying its fingerprint.
func (r *Runner) ToEvent(item *Item) (*event.Event, error) {
	startsAt := item.StartsAt
	if startsAt.IsZero() {
		startsAt = event.ParseDate(item.DateText)
	}

	e := &event.Event{
		Name:        strings.TrimSpace(item.Name),
		VenueName:   strings.TrimSpace(item.VenueName),
		Town:        strings.TrimSpace(item.Town),
		StartsAt:    startsAt,
		Price:       skiddle.ParsePrice(item.PriceText),
		Genre:       item.Genre,
		Description: item.Description,
		ImageURL:    item.ImageURL,
		TicketURL:   item.Link,
		TicketMode:  event.TicketNone,
		Source:      event.SourceScraped,
		Approved:    true,
	}
	for _, g := range vibe.SplitGenres(item.Genre) {
		e.Genres = append(e.Genres, g.Name)
	}
	if err := e.EnsureFingerprint(); err != nil {
		return nil, err
	}
	return e, nil
}

func venueFor(item *Item) venue.Venue {
	v := venue.Venue{
		Name:     item.VenueName,
		City:     item.Town,
		Postcode: item.Postcode,
		Approved: true,
	}
	if p, ok := geo.ResolvePostcode(item.Postcode); ok {
		v.Lat, v.Lon = p.Lat, p.Lon
	}
	return v
}
