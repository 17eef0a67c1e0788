// Package metrics provides Prometheus collectors for search, merge and
// scrape operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricSearchesTotal           = "gigfinder_searches_total"
	MetricThirdPartyFallbackTotal = "gigfinder_third_party_fallback_total"
	MetricThirdPartyDuration      = "gigfinder_third_party_duration_seconds"
	MetricDuplicatesSuppressed    = "gigfinder_duplicates_suppressed_total"
	MetricScrapeItemsTotal        = "gigfinder_scrape_items_total"
)

// Search outcomes.
const (
	OutcomeComplete = "complete"
	OutcomePartial  = "partial"
	OutcomeError    = "error"
)

// Scrape item outcomes.
const (
	ScrapeInserted  = "inserted"
	ScrapeDuplicate = "duplicate"
	ScrapeSkipped   = "skipped"
	ScrapeFailed    = "failed"
)

// Metrics contains the service's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	searches    *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec
	thirdParty  *prometheus.HistogramVec
	suppressed  prometheus.Counter
	scrapeItems *prometheus.CounterVec
}

// NewMetrics creates the collectors. They are not registered; call Register.
func NewMetrics() *Metrics {
	return &Metrics{
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricSearchesTotal,
				Help: "Total number of gig searches by outcome",
			},
			[]string{"outcome"},
		),
		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricThirdPartyFallbackTotal,
				Help: "Searches answered without a third-party source, by source",
			},
			[]string{"source"},
		),
		thirdParty: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricThirdPartyDuration,
				Help:    "Latency of third-party event API calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
			},
			[]string{"source"},
		),
		suppressed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricDuplicatesSuppressed,
				Help: "Third-party events dropped because a matching first-party event exists",
			},
		),
		scrapeItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricScrapeItemsTotal,
				Help: "Scraped listing items by source and outcome",
			},
			[]string{"source", "outcome"},
		),
	}
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.searches,
		m.fallbacks,
		m.thirdParty,
		m.suppressed,
		m.scrapeItems,
	}
}

// IncSearch counts a finished search.
func (m *Metrics) IncSearch(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}

// IncFallback counts a search that proceeded without the named source.
func (m *Metrics) IncFallback(source string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(source).Inc()
}

// ObserveThirdParty records the latency of one third-party call.
func (m *Metrics) ObserveThirdParty(source string, seconds float64) {
	if m == nil {
		return
	}
	m.thirdParty.WithLabelValues(source).Observe(seconds)
}

// AddSuppressed adds to the duplicate suppression counter.
func (m *Metrics) AddSuppressed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.suppressed.Add(float64(n))
}

// IncScrapeItem counts one scraped item.
func (m *Metrics) IncScrapeItem(source, outcome string) {
	if m == nil {
		return
	}
	m.scrapeItems.WithLabelValues(source, outcome).Inc()
}
