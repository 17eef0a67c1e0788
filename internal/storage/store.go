package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/venue"
)

// ErrNotFound is returned when a venue or event does not exist.
var ErrNotFound = errors.New("not found")

// EventQuery selects stored events.
type EventQuery struct {
	From              time.Time      // only events on or after this date
	Sources           []event.Source // empty means all sources
	VenueID           string
	IncludeUnapproved bool
	Limit             int
}

// VenueQuery selects stored venues. Nil flags match any value.
type VenueQuery struct {
	Approved *bool
	Verified *bool
	City     string
}

// RejectResult describes the effect of rejecting a venue.
type RejectResult struct {
	Venue          *venue.Venue
	DeletedEvents  int
	DetachedEvents int
}

// Store is the persistence boundary used by search, scrapers and the
// catalog workflow.
type Store interface {
	ListEvents(ctx context.Context, q EventQuery) ([]*event.Event, error)
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	// CreateEvent inserts e. When an event with the same fingerprint exists,
	// a first-party e replaces a stored third-party event, keeping its ID,
	// and created is true. Otherwise e is overwritten with the stored record
	// and created is false.
	CreateEvent(ctx context.Context, e *event.Event) (created bool, err error)
	HasFingerprint(ctx context.Context, fingerprint string) (bool, error)
	SetEventApproval(ctx context.Context, id string, approved, verified bool) (*event.Event, error)

	// FindOrCreateVenue returns the venue with the same normalized name and
	// city as v, creating it from v when none exists.
	FindOrCreateVenue(ctx context.Context, v venue.Venue) (*venue.Venue, bool, error)
	GetVenue(ctx context.Context, id string) (*venue.Venue, error)
	ListVenues(ctx context.Context, q VenueQuery) ([]*venue.Venue, error)
	ApproveVenue(ctx context.Context, id string) (*venue.Venue, error)
	VerifyVenue(ctx context.Context, id string) (*venue.Venue, error)
	// RejectVenue deletes the venue and its unapproved events. Approved
	// events are kept and detached from the venue.
	RejectVenue(ctx context.Context, id string) (*RejectResult, error)

	Close() error
}

func (q EventQuery) matches(e *event.Event) bool {
	if !q.IncludeUnapproved && !e.Approved {
		return false
	}
	if !q.From.IsZero() && !e.StartsAt.IsZero() && event.DateKey(e.StartsAt) < event.DateKey(q.From) {
		return false
	}
	if q.VenueID != "" && e.VenueID != q.VenueID {
		return false
	}
	if len(q.Sources) > 0 {
		found := false
		for _, s := range q.Sources {
			if e.Source == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (q VenueQuery) matches(v *venue.Venue) bool {
	if q.Approved != nil && v.Approved != *q.Approved {
		return false
	}
	if q.Verified != nil && v.Verified != *q.Verified {
		return false
	}
	if q.City != "" && !strings.EqualFold(v.City, strings.TrimSpace(q.City)) {
		return false
	}
	return true
}

// prepareEvent fills the fields every stored event needs.
func prepareEvent(e *event.Event, id string, now time.Time) error {
	e.Name = strings.TrimSpace(e.Name)
	e.VenueName = strings.TrimSpace(e.VenueName)
	if err := e.EnsureFingerprint(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = id
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.Source == "" {
		e.Source = event.SourceManual
	}
	if e.TicketMode == "" {
		e.TicketMode = event.TicketNone
	}
	return nil
}

// supersedes reports whether incoming should replace the stored event with
// the same fingerprint. First-party data always wins over third-party data.
func supersedes(incoming, stored *event.Event) bool {
	return incoming.Source.FirstParty() && !stored.Source.FirstParty()
}

// copyEvent returns a copy of e that shares no mutable state with it.
func copyEvent(e *event.Event) *event.Event {
	c := *e
	if e.Genres != nil {
		c.Genres = append([]string(nil), e.Genres...)
	}
	c.Price = copyPrice(e.Price)
	if e.PresalePrice != nil {
		p := copyPrice(*e.PresalePrice)
		c.PresalePrice = &p
	}
	return &c
}

func copyPrice(p event.Price) event.Price {
	if p.Amount != nil {
		amount := *p.Amount
		p.Amount = &amount
	}
	return p
}
