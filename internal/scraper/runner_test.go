package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/metrics"
	"github.com/gigfinder/gigfinder/internal/storage"
)

type staticSource struct {
	name  string
	items []Item
	err   error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Fetch(context.Context) ([]Item, error) {
	return s.items, s.err
}

func newTestRunner(t *testing.T) (*Runner, *storage.File) {
	t.Helper()
	store, err := storage.NewFile(t.TempDir())
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	r := NewRunner(store, metrics.NewMetrics())
	r.now = func() time.Time { return time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC) }
	return r, store
}

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	serve := func(path, file, contentType string) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if ua := r.Header.Get("User-Agent"); ua != UserAgent {
				t.Errorf("User-Agent = %q", ua)
			}
			data, err := os.ReadFile(file)
			if err != nil {
				t.Errorf("reading fixture: %v", err)
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", contentType)
			w.Write(data)
		})
	}
	serve("/listings", "../../testdata/fixtures/sample_listing.html", "text/html")
	serve("/feed", "../../testdata/fixtures/sample_feed.xml", "application/rss+xml")
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestRunner_Run(t *testing.T) {
	server := fixtureServer(t)
	runner, store := newTestRunner(t)
	ctx := context.Background()

	broken := feedConfig(server.URL + "/broken")
	broken.Name = "broken"
	sources, err := NewSources([]Config{
		listingConfig(server.URL + "/listings"),
		broken,
		feedConfig(server.URL + "/feed"),
	}, server.Client())
	if err != nil {
		t.Fatalf("NewSources: %v", err)
	}

	report := runner.Run(ctx, sources)

	if len(report.Sources) != 3 {
		t.Fatalf("expected 3 source reports, got %d", len(report.Sources))
	}
	listing := report.Sources[0]
	if listing.Fetched != 4 || listing.Inserted != 3 || listing.Skipped != 1 {
		t.Errorf("listing report = %+v", listing)
	}
	if report.Sources[1].Error == "" || !report.Failed() {
		t.Errorf("broken source should report an error: %+v", report.Sources[1])
	}
	feed := report.Sources[2]
	if feed.Fetched != 3 || feed.Inserted != 3 {
		t.Errorf("feed report = %+v", feed)
	}

	events, err := store.ListEvents(ctx, storage.EventQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 6 {
		t.Fatalf("expected 6 stored events, got %d", len(events))
	}
	for _, e := range events {
		if e.Source != event.SourceScraped || e.Fingerprint == "" || e.VenueID == "" {
			t.Errorf("stored event missing scrape fields: %+v", e)
		}
	}

	venues, err := store.ListVenues(ctx, storage.VenueQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(venues) != 3 {
		t.Errorf("expected 3 venues (Sneaky Pete's, Voodoo Rooms, Leith Depot), got %d", len(venues))
	}
	for _, v := range venues {
		if v.NormalizedName == "leith depot" && (v.Lat == 0 || v.Postcode != "EH6 8RG") {
			t.Errorf("feed venue not located from postcode: %+v", v)
		}
	}

	again := runner.Run(ctx, sources[:1])
	if got := again.Sources[0]; got.Inserted != 0 || got.Duplicates != 3 || got.Skipped != 1 {
		t.Errorf("second run = %+v", got)
	}
	if total := report.Totals(); total.Inserted != 6 || total.Fetched != 7 {
		t.Errorf("Totals() = %+v", total)
	}
}

func TestRunner_SkipsPastAndMalformed(t *testing.T) {
	runner, store := newTestRunner(t)
	ctx := context.Background()

	src := &staticSource{name: "static", items: []Item{
		{Name: "Old Gig", DateText: "2025-11-01", VenueName: "Sneaky Pete's"},
		{Name: "", DateText: "2025-12-05", VenueName: "Sneaky Pete's"},
		{Name: "No Venue", DateText: "2025-12-05"},
		{Name: "Good Gig", DateText: "2025-12-05", VenueName: "Sneaky Pete's", Genre: "Rock, Blues"},
	}}

	report := runner.Run(ctx, []Source{src})

	got := report.Sources[0]
	if got.Inserted != 1 || got.Skipped != 3 {
		t.Errorf("report = %+v", got)
	}

	events, _ := store.ListEvents(ctx, storage.EventQuery{})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if len(events[0].Genres) != 2 {
		t.Errorf("genres not split: %v", events[0].Genres)
	}

	runner.IncludePast = true
	report = runner.Run(ctx, []Source{&staticSource{name: "static", items: src.items[:1]}})
	if report.Sources[0].Inserted != 1 {
		t.Errorf("IncludePast should keep old listings: %+v", report.Sources[0])
	}
}

func TestRunner_FingerprintUsesListedVenueName(t *testing.T) {
	runner, _ := newTestRunner(t)

	e, err := runner.ToEvent(&Item{Name: "Gig", DateText: "Fri 5 Dec 2025", VenueName: "The Voodoo Rooms"})
	if err != nil {
		t.Fatal(err)
	}
	if e.Fingerprint != "2025-12-05|the voodoo rooms|gig" {
		t.Errorf("Fingerprint = %q", e.Fingerprint)
	}
}

func TestRunner_FetchError(t *testing.T) {
	runner, _ := newTestRunner(t)
	report := runner.Run(context.Background(), []Source{&staticSource{name: "down", err: errors.New("boom")}})

	if !report.Failed() || report.Sources[0].Error != "boom" {
		t.Errorf("report = %+v", report.Sources[0])
	}
}

func TestRunner_StopsOnCancelledContext(t *testing.T) {
	runner, _ := newTestRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := runner.Run(ctx, []Source{&staticSource{name: "a"}, &staticSource{name: "b"}})
	if len(report.Sources) != 0 {
		t.Errorf("expected no sources run, got %d", len(report.Sources))
	}
}
