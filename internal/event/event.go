package event

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Source marks where an event record came from.
type Source string

const (
	SourceManual  Source = "manual"
	SourceScraped Source = "scraped"
	SourceSkiddle Source = "skiddle"
)

// FirstParty reports whether events from this source were entered directly
// by a user or admin.
func (s Source) FirstParty() bool {
	return s == SourceManual
}

// TicketMode describes how tickets for an event are sold.
type TicketMode string

const (
	TicketNone      TicketMode = "none"
	TicketGuestList TicketMode = "guest_list"
	TicketPaid      TicketMode = "paid"
)

// Internal reports whether tickets are handled by GigFinder itself.
func (m TicketMode) Internal() bool {
	return m == TicketGuestList || m == TicketPaid
}

// ErrMalformed is returned when an event lacks the date, venue or name needed
// to derive its fingerprint.
var ErrMalformed = errors.New("event missing date, venue or name")

// Price is a display price with an optional numeric amount.
type Price struct {
	Text     string   `json:"text,omitempty"`
	Amount   *float64 `json:"amount,omitempty"`
	Currency string   `json:"currency,omitempty"`
}

// Event is a performance at a venue on a date.
//
// First-party events carry a database ID; events fetched from an external
// API carry ExternalID instead. StartsAt is the venue-local wall clock time as
// listed; it is never converted between time zones.
type Event struct {
	ID         string `json:"id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`

	Name      string  `json:"name"`
	VenueID   string  `json:"venue_id,omitempty"`
	VenueName string  `json:"venue_name"`
	Town      string  `json:"town,omitempty"`
	Lat       float64 `json:"lat,omitempty"`
	Lon       float64 `json:"lon,omitempty"`
	Capacity  int     `json:"capacity,omitempty"`

	StartsAt  time.Time `json:"starts_at"`
	DoorsTime string    `json:"doors_time,omitempty"`

	Price          Price  `json:"price"`
	PresalePrice   *Price `json:"presale_price,omitempty"`
	PresaleCaption string `json:"presale_caption,omitempty"`

	Genre       string     `json:"genre,omitempty"`
	Genres      []string   `json:"genres,omitempty"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
	TicketURL   string     `json:"ticket_url,omitempty"`
	TicketMode  TicketMode `json:"ticket_mode,omitempty"`

	Source      Source `json:"source"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Approved    bool   `json:"approved"`
	Verified    bool   `json:"verified"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// DateKey returns the calendar date part of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Fingerprint builds the cross-source identity key of an event:
// date|venue|name with the venue and name lowercased and trimmed.
//
// The venue is the raw listed name, not venue.Normalize output. Event
// fingerprints and venue identity are separate schemes and stored
// fingerprints depend on this form.
func Fingerprint(dateISO, venueName, eventName string) string {
	return fmt.Sprintf("%s|%s|%s",
		dateISO,
		strings.ToLower(strings.TrimSpace(venueName)),
		strings.ToLower(strings.TrimSpace(eventName)),
	)
}

// ComputeFingerprint returns the stored fingerprint when present, otherwise
// derives it from the event's date, venue name and name.
func (e *Event) ComputeFingerprint() (string, error) {
	if e.Fingerprint != "" {
		return e.Fingerprint, nil
	}
	if e.StartsAt.IsZero() || strings.TrimSpace(e.VenueName) == "" || strings.TrimSpace(e.Name) == "" {
		return "", fmt.Errorf("%w: name=%q venue=%q", ErrMalformed, e.Name, e.VenueName)
	}
	return Fingerprint(DateKey(e.StartsAt), e.VenueName, e.Name), nil
}

// EnsureFingerprint stores the derived fingerprint on the event.
func (e *Event) EnsureFingerprint() error {
	fp, err := e.ComputeFingerprint()
	if err != nil {
		return err
	}
	e.Fingerprint = fp
	return nil
}

// DisplayID returns the database ID, falling back to the source-prefixed
// external ID for events that were never stored.
func (e *Event) DisplayID() string {
	if e.ID != "" {
		return e.ID
	}
	if e.ExternalID != "" {
		return string(e.Source) + ":" + e.ExternalID
	}
	return ""
}

// AllGenres returns the genre list, falling back to the free-text genre.
func (e *Event) AllGenres() []string {
	if len(e.Genres) > 0 {
		return e.Genres
	}
	if e.Genre != "" {
		return []string{e.Genre}
	}
	return nil
}
