package search

import (
	"fmt"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/filter"
	"github.com/gigfinder/gigfinder/internal/vibe"
)

// UnknownCapacity is shown when a venue's capacity is not known.
const UnknownCapacity = "Unknown"

// Result is one gig as presented to callers.
type Result struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Venue             string       `json:"venue"`
	VenueID           string       `json:"venue_id,omitempty"`
	Town              string       `json:"town,omitempty"`
	Lat               float64      `json:"lat,omitempty"`
	Lon               float64      `json:"lon,omitempty"`
	Capacity          string       `json:"capacity"`
	Date              string       `json:"date"`
	StartsAt          time.Time    `json:"starts_at"`
	Doors             string       `json:"doors,omitempty"`
	Price             string       `json:"price"`
	Presale           string       `json:"presale,omitempty"`
	Vibe              vibe.Vibe    `json:"vibe"`
	VibeLabel         string       `json:"vibe_label"`
	Genres            []string     `json:"genres,omitempty"`
	TicketURL         string       `json:"ticket_url,omitempty"`
	InternalTicketing bool         `json:"internal_ticketing"`
	ImageURL          string       `json:"image_url"`
	Description       string       `json:"description,omitempty"`
	Source            event.Source `json:"source"`
	Verified          bool         `json:"verified"`
	Distance          *float64     `json:"distance,omitempty"`
}

// Shape converts an event into a Result. fallbackImage is used when the
// event has no image.
func Shape(e *event.Event, fallbackImage string) Result {
	v := filter.EventVibe(e)
	r := Result{
		ID:                e.DisplayID(),
		Name:              e.Name,
		Venue:             e.VenueName,
		VenueID:           e.VenueID,
		Town:              e.Town,
		Lat:               e.Lat,
		Lon:               e.Lon,
		Capacity:          FormatCapacity(e.Capacity),
		Date:              event.FormatDisplayDate(e.StartsAt),
		StartsAt:          e.StartsAt,
		Doors:             e.DoorsTime,
		Price:             FormatPrice(e.Price),
		Vibe:              v,
		VibeLabel:         v.Label(),
		Genres:            e.AllGenres(),
		InternalTicketing: e.TicketMode.Internal(),
		ImageURL:          e.ImageURL,
		Description:       e.Description,
		Source:            e.Source,
		Verified:          e.Verified,
	}
	if !r.InternalTicketing {
		r.TicketURL = e.TicketURL
	}
	if e.PresalePrice != nil {
		r.Presale = FormatPrice(*e.PresalePrice)
		if e.PresaleCaption != "" {
			r.Presale = fmt.Sprintf("%s (%s)", r.Presale, e.PresaleCaption)
		}
	}
	if r.ImageURL == "" {
		r.ImageURL = fallbackImage
	}
	return r
}

// FormatCapacity renders a capacity, or "Unknown" when it is not set.
func FormatCapacity(capacity int) string {
	if capacity <= 0 {
		return UnknownCapacity
	}
	return fmt.Sprintf("%d", capacity)
}

// FormatPrice renders a price for display.
func FormatPrice(p event.Price) string {
	if p.Text != "" {
		return p.Text
	}
	if p.Amount == nil {
		return "TBC"
	}
	if *p.Amount == 0 {
		return "Free"
	}
	symbol := "£"
	switch p.Currency {
	case "EUR":
		symbol = "€"
	case "USD":
		symbol = "$"
	}
	return fmt.Sprintf("%s%.2f", symbol, *p.Amount)
}
