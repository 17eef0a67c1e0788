package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HTML scrapes a listing page with CSS selectors.
type HTML struct {
	cfg    Config
	client *http.Client
}

// NewHTML creates an html source.
func NewHTML(cfg Config, client *http.Client) *HTML {
	return &HTML{cfg: cfg, client: client}
}

// Name returns the configured source name.
func (h *HTML) Name() string {
	return h.cfg.Name
}

// Fetch downloads the page and extracts its listing items.
func (h *HTML) Fetch(ctx context.Context) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return h.parse(resp.Body)
}

func (h *HTML) parse(r io.Reader) ([]Item, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}

	base, _ := url.Parse(h.cfg.URL)
	sel := h.cfg.Selectors
	items := make([]Item, 0)

	doc.Find(h.cfg.Item).Each(func(i int, s *goquery.Selection) {
		item := Item{
			Name:        text(s, sel.Name),
			DateText:    text(s, sel.Date),
			VenueName:   text(s, sel.Venue),
			PriceText:   text(s, sel.Price),
			Genre:       text(s, sel.Genre),
			Description: text(s, sel.Description),
			Link:        resolve(base, attr(s, sel.Link, "href")),
			ImageURL:    resolve(base, imageSrc(s, sel.Image)),
		}
		if item.VenueName == "" {
			item.VenueName = h.cfg.Venue
		}
		if item.Genre == "" {
			item.Genre = h.cfg.Genre
		}
		item.Town = h.cfg.Town
		item.Postcode = h.cfg.Postcode

		if item.DateText == "" {
			item.DateText = extractDate(item.Name)
			item.Name = stripDate(item.Name, item.DateText)
		}
		items = append(items, item)
	})

	return items, nil
}

// text returns the collapsed text of the first match of selector within s.
func text(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return strings.Join(strings.Fields(s.Find(selector).First().Text()), " ")
}

// attr returns an attribute of the first match of selector, or of s itself
// when selector is empty.
func attr(s *goquery.Selection, selector, name string) string {
	target := s
	if selector != "" {
		target = s.Find(selector).First()
	}
	v, _ := target.Attr(name)
	return strings.TrimSpace(v)
}

func imageSrc(s *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	if src := attr(s, selector, "data-src"); src != "" {
		return src
	}
	return attr(s, selector, "src")
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
