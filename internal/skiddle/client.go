// Package skiddle is a client for the Skiddle events API, the external
// listing source queried at search time. Results are never stored.
package skiddle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/logger"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://www.skiddle.com/api/v1"

// Client is a client for the Skiddle events API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client. An empty baseURL selects DefaultBaseURL.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Query holds the search parameters sent to the API.
type Query struct {
	Lat         float64
	Lon         float64
	RadiusMiles float64
	Keyword     string
	MinDate     time.Time
	Limit       int
}

// Venue is the venue block of an API listing.
type Venue struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Town      string  `json:"town"`
	Postcode  string  `json:"postcode"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Genre is a genre tag attached to a listing.
type Genre struct {
	GenreID string `json:"genreid"`
	Name    string `json:"name"`
}

// OpeningTimes holds door and close times as HH:MM strings.
type OpeningTimes struct {
	DoorsOpen  string `json:"doorsopen"`
	DoorsClose string `json:"doorsclose"`
}

// Listing is one event as returned by the API.
type Listing struct {
	ID           string       `json:"id"`
	EventName    string       `json:"eventname"`
	Venue        Venue        `json:"venue"`
	Date         string       `json:"date"`
	StartDate    string       `json:"startdate"`
	OpeningTimes OpeningTimes `json:"openingtimes"`
	Entryprice   string       `json:"entryprice"`
	Link         string       `json:"link"`
	Description  string       `json:"description"`
	LargeImage   string       `json:"largeimageurl"`
	ImageURL     string       `json:"imageurl"`
	Genres       []Genre      `json:"genres"`
}

// SearchResult represents the API search response.
type SearchResult struct {
	Error      int       `json:"error"`
	TotalCount string    `json:"totalcount"`
	Results    []Listing `json:"results"`
}

// Search runs one query against the API and maps the listings to events.
// Listings that cannot be mapped are skipped. The call is attempted once;
// callers decide how to degrade on error.
func (c *Client) Search(ctx context.Context, q Query) ([]*event.Event, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("skiddle api key not configured")
	}

	reqURL := fmt.Sprintf("%s/events/search/?%s", c.baseURL, c.params(q).Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if result.Error != 0 {
		return nil, fmt.Errorf("API returned error code %d", result.Error)
	}

	events := make([]*event.Event, 0, len(result.Results))
	for i := range result.Results {
		e, err := result.Results[i].ToEvent()
		if err != nil {
			logger.Debug("Skipping unusable listing", logger.Fields{
				"listing_id": result.Results[i].ID,
				"reason":     err.Error(),
			})
			continue
		}
		events = append(events, e)
	}

	return events, nil
}

func (c *Client) params(q Query) url.Values {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("eventcode", "LIVE")
	params.Set("order", "date")
	params.Set("description", "1")
	if q.Lat != 0 || q.Lon != 0 {
		params.Set("latitude", strconv.FormatFloat(q.Lat, 'f', 4, 64))
		params.Set("longitude", strconv.FormatFloat(q.Lon, 'f', 4, 64))
		radius := q.RadiusMiles
		if radius <= 0 {
			radius = 10
		}
		params.Set("radius", strconv.FormatFloat(radius, 'f', 0, 64))
	}
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}
	if !q.MinDate.IsZero() {
		params.Set("minDate", event.DateKey(q.MinDate))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	params.Set("limit", strconv.Itoa(limit))
	return params
}

// ToEvent converts an API listing into an event with a computed fingerprint.
func (l *Listing) ToEvent() (*event.Event, error) {
	startsAt := event.ParseDate(l.StartDate)
	if startsAt.IsZero() {
		startsAt = event.ParseDate(l.Date)
	}

	genres := make([]string, 0, len(l.Genres))
	for _, g := range l.Genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			genres = append(genres, name)
		}
	}

	image := l.LargeImage
	if image == "" {
		image = l.ImageURL
	}

	e := &event.Event{
		ExternalID:  l.ID,
		Name:        strings.TrimSpace(l.EventName),
		VenueName:   strings.TrimSpace(l.Venue.Name),
		Town:        strings.TrimSpace(l.Venue.Town),
		Lat:         l.Venue.Latitude,
		Lon:         l.Venue.Longitude,
		StartsAt:    startsAt,
		DoorsTime:   l.OpeningTimes.DoorsOpen,
		Price:       ParsePrice(l.Entryprice),
		Genres:      genres,
		Genre:       strings.Join(genres, ", "),
		Description: strings.TrimSpace(l.Description),
		ImageURL:    image,
		TicketURL:   l.Link,
		TicketMode:  event.TicketNone,
		Source:      event.SourceSkiddle,
		Approved:    true,
	}
	if err := e.EnsureFingerprint(); err != nil {
		return nil, err
	}
	return e, nil
}

// ParsePrice turns entry price text such as "£12.50" or "Free" into a Price.
func ParsePrice(text string) event.Price {
	text = strings.TrimSpace(text)
	p := event.Price{Text: text, Currency: "GBP"}
	if text == "" {
		return p
	}
	if strings.EqualFold(text, "free") {
		zero := 0.0
		p.Amount = &zero
		return p
	}

	numeric := strings.TrimLeft(text, "£$€ ")
	if i := strings.IndexFunc(numeric, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	}); i >= 0 {
		numeric = numeric[:i]
	}
	if v, err := strconv.ParseFloat(numeric, 64); err == nil {
		p.Amount = &v
	}
	return p
}
