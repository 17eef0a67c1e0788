package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"
)

// RSS reads listings from an RSS or Atom feed published by a single venue.
type RSS struct {
	cfg    Config
	parser *gofeed.Parser
}

// NewRSS creates a feed source.
func NewRSS(cfg Config, client *http.Client) *RSS {
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = UserAgent
	return &RSS{cfg: cfg, parser: parser}
}

// Name returns the configured source name.
func (r *RSS) Name() string {
	return r.cfg.Name
}

// Fetch downloads and parses the feed.
func (r *RSS) Fetch(ctx context.Context) ([]Item, error) {
	feed, err := r.parser.ParseURLWithContext(r.cfg.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return r.items(feed), nil
}

func (r *RSS) items(feed *gofeed.Feed) []Item {
	items := make([]Item, 0, len(feed.Items))
	for _, fi := range feed.Items {
		title := strings.TrimSpace(fi.Title)
		dateText := extractDate(title)

		item := Item{
			Name:        stripDate(title, dateText),
			DateText:    dateText,
			VenueName:   r.cfg.Venue,
			Town:        r.cfg.Town,
			Postcode:    r.cfg.Postcode,
			Link:        fi.Link,
			Genre:       r.cfg.Genre,
			Description: strings.TrimSpace(fi.Description),
		}
		if item.DateText == "" {
			item.DateText = extractDate(fi.Description)
		}
		if item.DateText == "" && fi.PublishedParsed != nil {
			item.StartsAt = *fi.PublishedParsed
		}
		if len(fi.Categories) > 0 && item.Genre == "" {
			item.Genre = strings.Join(fi.Categories, ", ")
		}
		if fi.Image != nil {
			item.ImageURL = fi.Image.URL
		}
		for _, enc := range fi.Enclosures {
			if item.ImageURL == "" && strings.HasPrefix(enc.Type, "image/") {
				item.ImageURL = enc.URL
			}
		}
		items = append(items, item)
	}
	return items
}
