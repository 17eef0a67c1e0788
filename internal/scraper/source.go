package scraper

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	UserAgent = "gigfinder-scraper/1.0 (+https://github.com/gigfinder/gigfinder)"
	Timeout   = 30 * time.Second
)

// Source kinds.
const (
	KindHTML = "html"
	KindRSS  = "rss"
)

// Item is one listing as read from a source, before it becomes an event.
type Item struct {
	Name        string
	DateText    string
	StartsAt    time.Time // set when the source provides a parsed date
	VenueName   string
	Town        string
	Postcode    string
	PriceText   string
	Link        string
	ImageURL    string
	Genre       string
	Description string
}

// Source produces listing items.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Item, error)
}

// Selectors are the CSS selectors used by an html source, relative to each
// item element.
type Selectors struct {
	Name        string `koanf:"name"`
	Date        string `koanf:"date"`
	Venue       string `koanf:"venue"`
	Price       string `koanf:"price"`
	Link        string `koanf:"link"`
	Image       string `koanf:"image"`
	Genre       string `koanf:"genre"`
	Description string `koanf:"description"`
}

// Config describes one configured source. Venue, Town and Postcode are used
// when a listing does not name its own venue, as with single-venue sites.
type Config struct {
	Name      string    `koanf:"name"`
	Kind      string    `koanf:"kind"`
	URL       string    `koanf:"url"`
	Item      string    `koanf:"item"`
	Selectors Selectors `koanf:"selectors"`
	Venue     string    `koanf:"venue"`
	Town      string    `koanf:"town"`
	Postcode  string    `koanf:"postcode"`
	Genre     string    `koanf:"genre"`
}

// Validate checks that the configuration can build a source.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("scraper name is required")
	}
	if c.URL == "" {
		return fmt.Errorf("scraper %s: url is required", c.Name)
	}
	switch c.Kind {
	case KindHTML:
		if c.Item == "" || c.Selectors.Name == "" || c.Selectors.Date == "" {
			return fmt.Errorf("scraper %s: html sources need item, name and date selectors", c.Name)
		}
		if c.Selectors.Venue == "" && c.Venue == "" {
			return fmt.Errorf("scraper %s: need a venue selector or a fixed venue", c.Name)
		}
	case KindRSS:
		if c.Venue == "" {
			return fmt.Errorf("scraper %s: rss sources need a fixed venue", c.Name)
		}
	default:
		return fmt.Errorf("scraper %s: unknown kind %q", c.Name, c.Kind)
	}
	return nil
}

// NewSource builds a source from its configuration.
func NewSource(cfg Config, client *http.Client) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: Timeout}
	}
	switch cfg.Kind {
	case KindRSS:
		return NewRSS(cfg, client), nil
	default:
		return NewHTML(cfg, client), nil
	}
}

// NewSources builds every configured source, returning the first error.
func NewSources(cfgs []Config, client *http.Client) ([]Source, error) {
	sources := make([]Source, 0, len(cfgs))
	for _, cfg := range cfgs {
		s, err := NewSource(cfg, client)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, nil
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	regexp.MustCompile(`(?i)(?:(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*,?\s+)?\d{1,2}(?:st|nd|rd|th)?\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*,?(?:\s+\d{4})?`),
	regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`),
}

// extractDate finds date text embedded in a title such as
// "The Angry Apple Trees - Fri 5th Dec 2025".
func extractDate(text string) string {
	for _, p := range datePatterns {
		if match := p.FindString(text); match != "" {
			return strings.TrimSpace(match)
		}
	}
	return ""
}

// stripDate removes embedded date text and separators from a title.
func stripDate(title, dateText string) string {
	if dateText == "" {
		return strings.TrimSpace(title)
	}
	title = strings.Replace(title, dateText, "", 1)
	return strings.Trim(title, " -|@:,\t")
}
