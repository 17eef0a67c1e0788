// Package venue models the physical places that host gigs and owns the venue
// identity scheme.
//
// Two submissions refer to the same venue when their normalized names and
// cities match. Normalize is the single implementation of that name
// canonicalization; the HTTP submission path, the scrapers and the batch
// import command all reach it through the store's find-or-create.
package venue

import (
	"strings"
	"time"
)

// Venue is a physical location capable of hosting events.
type Venue struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	City           string    `json:"city"`
	Postcode       string    `json:"postcode,omitempty"`
	Lat            float64   `json:"lat,omitempty"`
	Lon            float64   `json:"lon,omitempty"`
	Capacity       int       `json:"capacity,omitempty"`
	ContactEmail   string    `json:"contact_email,omitempty"`
	ContactPhone   string    `json:"contact_phone,omitempty"`
	Website        string    `json:"website,omitempty"`
	Approved       bool      `json:"approved"`
	Verified       bool      `json:"verified"`
	CreatedAt      time.Time `json:"created_at"`
}

// Identity returns the dedup key for venue creation: the normalized name plus
// the lowercased city.
func Identity(name, city string) (string, string) {
	return Normalize(name), strings.ToLower(strings.TrimSpace(city))
}

// Prepare fills the derived fields of a venue before it is stored.
func (v *Venue) Prepare() {
	v.Name = strings.TrimSpace(v.Name)
	v.City = strings.TrimSpace(v.City)
	v.NormalizedName = Normalize(v.Name)
	if v.Capacity == 0 {
		v.Capacity = KnownCapacity(v.Name)
	}
}

// HasLocation reports whether the venue carries usable coordinates.
func (v *Venue) HasLocation() bool {
	return v.Lat != 0 || v.Lon != 0
}
