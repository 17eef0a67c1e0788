// Package filter narrows a gig listing by the search criteria a caller
// supplies.
//
// Criteria combine with AND:
//   - Location (town or venue name, case-insensitive substring)
//   - Keyword (event name, venue name or description)
//   - Date range (from/to, inclusive by calendar date)
//   - Vibe (derived from the event's genres)
//   - Weekends only (Friday to Sunday, the gig weekend)
//   - Maximum price (events without a numeric price always pass)
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.Location = "Edinburgh"
//	f.Vibe = vibe.Metal
//	filtered := f.Apply(events)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
	"github.com/gigfinder/gigfinder/internal/vibe"
)

// Filter represents search criteria.
type Filter struct {
	Location string `json:"location,omitempty"`
	Keyword  string `json:"keyword,omitempty"`

	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	Vibe vibe.Vibe `json:"vibe,omitempty"`

	WeekendsOnly bool    `json:"weekends_only,omitempty"`
	MaxPrice     float64 `json:"max_price,omitempty"`
}

// NewFilter creates an empty filter that matches every event.
func NewFilter() *Filter {
	return &Filter{}
}

// IsEmpty reports whether the filter has no active criteria.
func (f *Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Location) == "" &&
		strings.TrimSpace(f.Keyword) == "" &&
		f.DateFrom == nil &&
		f.DateTo == nil &&
		f.Vibe == "" &&
		!f.WeekendsOnly &&
		f.MaxPrice == 0
}

// Matches reports whether an event passes every active criterion.
// Events without a date pass the date checks.
func (f *Filter) Matches(evt *event.Event) bool {
	if f.IsEmpty() {
		return true
	}

	if !evt.StartsAt.IsZero() {
		day := event.DateKey(evt.StartsAt)
		if f.DateFrom != nil && day < event.DateKey(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && day > event.DateKey(*f.DateTo) {
			return false
		}
		if f.WeekendsOnly {
			switch evt.StartsAt.Weekday() {
			case time.Friday, time.Saturday, time.Sunday:
			default:
				return false
			}
		}
	}

	if loc := strings.ToLower(strings.TrimSpace(f.Location)); loc != "" {
		if !containsFold(evt.Town, loc) && !containsFold(evt.VenueName, loc) {
			return false
		}
	}

	if kw := strings.ToLower(strings.TrimSpace(f.Keyword)); kw != "" {
		if !containsFold(evt.Name, kw) && !containsFold(evt.VenueName, kw) && !containsFold(evt.Description, kw) {
			return false
		}
	}

	if f.Vibe != "" && EventVibe(evt) != f.Vibe {
		return false
	}

	if f.MaxPrice > 0 && evt.Price.Amount != nil && *evt.Price.Amount > f.MaxPrice {
		return false
	}

	return true
}

// Apply returns the events that match. An empty filter returns events
// unchanged.
func (f *Filter) Apply(events []*event.Event) []*event.Event {
	if f.IsEmpty() {
		return events
	}

	filtered := make([]*event.Event, 0, len(events))
	for _, evt := range events {
		if f.Matches(evt) {
			filtered = append(filtered, evt)
		}
	}
	return filtered
}

// String returns a human-readable description of the active criteria.
// Format: "Location: Edinburgh | Keyword: punk | From: Dec 1, 2025"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string
	if f.Location != "" {
		parts = append(parts, fmt.Sprintf("Location: %s", f.Location))
	}
	if f.Keyword != "" {
		parts = append(parts, fmt.Sprintf("Keyword: %s", f.Keyword))
	}
	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}
	if f.Vibe != "" {
		parts = append(parts, fmt.Sprintf("Vibe: %s", f.Vibe.Label()))
	}
	if f.WeekendsOnly {
		parts = append(parts, "Weekends only")
	}
	if f.MaxPrice > 0 {
		parts = append(parts, fmt.Sprintf("Max price: £%.2f", f.MaxPrice))
	}
	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter.
func (f *Filter) Clone() *Filter {
	clone := *f
	if f.DateFrom != nil {
		df := *f.DateFrom
		clone.DateFrom = &df
	}
	if f.DateTo != nil {
		dt := *f.DateTo
		clone.DateTo = &dt
	}
	return &clone
}

// EventVibe maps an event's genres to its vibe.
func EventVibe(evt *event.Event) vibe.Vibe {
	if len(evt.Genres) > 0 {
		genres := make([]vibe.Genre, len(evt.Genres))
		for i, g := range evt.Genres {
			genres[i] = vibe.Genre{Name: g}
		}
		return vibe.MapGenreToVibe(genres)
	}
	return vibe.FromText(evt.Genre)
}

func containsFold(s, lowerSub string) bool {
	return strings.Contains(strings.ToLower(s), lowerSub)
}
