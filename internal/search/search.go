// Package search answers gig queries by combining stored events with a live
// third-party listing.
//
// Each query makes one store read and at most one outbound call. When the
// outbound call fails or times out the query still succeeds with the stored
// events, marked Partial. Nothing is cached between queries.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/filter"
	"github.com/gigfinder/gigfinder/internal/geo"
	"github.com/gigfinder/gigfinder/internal/logger"
	"github.com/gigfinder/gigfinder/internal/metrics"
	"github.com/gigfinder/gigfinder/internal/skiddle"
	"github.com/gigfinder/gigfinder/internal/storage"
	"github.com/gigfinder/gigfinder/internal/vibe"
)

// DefaultExternalTimeout bounds the third-party call when none is set.
const DefaultExternalTimeout = 5 * time.Second

// EventLister reads stored events.
type EventLister interface {
	ListEvents(ctx context.Context, q storage.EventQuery) ([]*event.Event, error)
}

// ExternalSource is a live third-party listing.
type ExternalSource interface {
	Search(ctx context.Context, q skiddle.Query) ([]*event.Event, error)
}

// Query holds the caller's search parameters.
type Query struct {
	Location     string
	Keyword      string
	From         time.Time
	To           time.Time
	Vibe         vibe.Vibe
	Postcode     string
	RadiusMiles  float64
	WeekendsOnly bool
	MaxPrice     float64
	Limit        int
}

// Filter returns the listing filter for the query.
func (q Query) Filter() *filter.Filter {
	f := &filter.Filter{
		Location:     q.Location,
		Keyword:      q.Keyword,
		Vibe:         q.Vibe,
		WeekendsOnly: q.WeekendsOnly,
		MaxPrice:     q.MaxPrice,
	}
	if !q.From.IsZero() {
		from := q.From
		f.DateFrom = &from
	}
	if !q.To.IsZero() {
		to := q.To
		f.DateTo = &to
	}
	return f
}

// Results is the answer to a query.
type Results struct {
	Results     []Result `json:"results"`
	Count       int      `json:"count"`
	Partial     bool     `json:"partial"`
	Unavailable []string `json:"unavailable,omitempty"`
	Suppressed  int      `json:"suppressed"`
	Filter      string   `json:"filter"`

	// Events are the matched events behind Results, in the same order.
	Events []*event.Event `json:"-"`
}

// Options configures a Service.
type Options struct {
	ExternalName    string
	ExternalTimeout time.Duration
	DefaultRadius   float64
	FallbackImage   string
	Metrics         *metrics.Metrics
}

// Service runs searches.
type Service struct {
	store    EventLister
	external ExternalSource
	opts     Options
	now      func() time.Time
}

// NewService creates a search service. external may be nil, in which case
// only stored events are searched and results are never partial.
func NewService(store EventLister, external ExternalSource, opts Options) *Service {
	if opts.ExternalName == "" {
		opts.ExternalName = string(event.SourceSkiddle)
	}
	if opts.ExternalTimeout <= 0 {
		opts.ExternalTimeout = DefaultExternalTimeout
	}
	return &Service{store: store, external: external, opts: opts, now: time.Now}
}

type externalResult struct {
	events []*event.Event
	err    error
}

// Search runs a query. It fails only when the store cannot be read.
func (s *Service) Search(ctx context.Context, q Query) (*Results, error) {
	if q.From.IsZero() {
		q.From = s.now()
	}
	radius := q.RadiusMiles
	if radius == 0 && q.Postcode != "" {
		radius = s.opts.DefaultRadius
	}

	var origin geo.Point
	if q.Postcode != "" {
		origin, _ = geo.ResolvePostcode(q.Postcode)
	}

	extCh := make(chan externalResult, 1)
	if s.external != nil {
		center, extRadius := externalArea(q, origin, radius)
		go func() {
			extCh <- s.fetchExternal(ctx, q, center, extRadius)
		}()
	} else {
		close(extCh)
	}

	stored, err := s.store.ListEvents(ctx, storage.EventQuery{From: q.From})
	if err != nil {
		s.opts.Metrics.IncSearch(metrics.OutcomeError)
		return nil, fmt.Errorf("listing stored events: %w", err)
	}

	results := &Results{Filter: q.Filter().String()}

	firstParty, thirdParty := event.Partition(stored)
	if ext, ok := <-extCh; ok {
		if ext.err != nil {
			results.Partial = true
			results.Unavailable = append(results.Unavailable, s.opts.ExternalName)
			s.opts.Metrics.IncFallback(s.opts.ExternalName)
			logger.Warn("Third-party events unavailable, returning stored events only", logger.Fields{
				"source": s.opts.ExternalName,
			}, ext.err)
		} else {
			thirdParty = append(thirdParty, ext.events...)
		}
	}

	merged := event.Merge(firstParty, thirdParty)
	results.Suppressed = merged.Suppressed
	s.opts.Metrics.AddSuppressed(merged.Suppressed)

	matched := q.Filter().Apply(merged.Events)

	results.Results = make([]Result, 0, len(matched))
	for _, e := range matched {
		r := Shape(e, s.opts.FallbackImage)
		if q.Postcode != "" && (e.Lat != 0 || e.Lon != 0) {
			d := origin.DistanceTo(geo.Point{Lat: e.Lat, Lon: e.Lon})
			if radius > 0 && d > radius {
				continue
			}
			r.Distance = &d
		}
		results.Results = append(results.Results, r)
		results.Events = append(results.Events, e)
		if q.Limit > 0 && len(results.Results) >= q.Limit {
			break
		}
	}
	results.Count = len(results.Results)

	if results.Partial {
		s.opts.Metrics.IncSearch(metrics.OutcomePartial)
	} else {
		s.opts.Metrics.IncSearch(metrics.OutcomeComplete)
	}
	return results, nil
}

// externalArea picks the centre and radius of the third-party query. A
// postcode wins; otherwise a known town in Location is searched at regional
// radius; otherwise the default centroid is used.
func externalArea(q Query, origin geo.Point, radius float64) (geo.Point, float64) {
	if !origin.IsZero() {
		return origin, radius
	}
	if q.Location != "" {
		if center, ok := geo.ResolveCity(q.Location); ok {
			if radius == 0 {
				radius = geo.RadiusRegional
			}
			return center, radius
		}
	}
	center, _ := geo.ResolvePostcode(geo.DefaultKey)
	return center, radius
}

func (s *Service) fetchExternal(ctx context.Context, q Query, center geo.Point, radius float64) externalResult {
	ctx, cancel := context.WithTimeout(ctx, s.opts.ExternalTimeout)
	defer cancel()

	start := time.Now()
	events, err := s.external.Search(ctx, skiddle.Query{
		Lat:         center.Lat,
		Lon:         center.Lon,
		RadiusMiles: radius,
		Keyword:     q.Keyword,
		MinDate:     q.From,
	})
	s.opts.Metrics.ObserveThirdParty(s.opts.ExternalName, time.Since(start).Seconds())
	return externalResult{events: events, err: err}
}
