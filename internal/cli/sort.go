package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gigfinder/gigfinder/internal/search"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate     SortOrder = "date"
	SortByName     SortOrder = "name"
	SortByVenue    SortOrder = "venue"
	SortByDistance SortOrder = "distance"
)

func parseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case SortByDate, SortByName, SortByVenue, SortByDistance:
		return order, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be date, name, venue or distance)", s)
}

// sortResults sorts results in place. Every order falls back to date, so
// equal keys keep the listing's chronological order.
func sortResults(results []search.Result, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(results, func(i, j int) bool {
			return compareByDate(results[i], results[j])
		})
	case SortByName:
		sort.SliceStable(results, func(i, j int) bool {
			a, b := strings.ToLower(results[i].Name), strings.ToLower(results[j].Name)
			if a != b {
				return a < b
			}
			return compareByDate(results[i], results[j])
		})
	case SortByVenue:
		sort.SliceStable(results, func(i, j int) bool {
			a, b := strings.ToLower(results[i].Venue), strings.ToLower(results[j].Venue)
			if a != b {
				return a < b
			}
			return compareByDate(results[i], results[j])
		})
	case SortByDistance:
		sort.SliceStable(results, func(i, j int) bool {
			di, dj := results[i].Distance, results[j].Distance
			switch {
			case di != nil && dj != nil && *di != *dj:
				return *di < *dj
			case di != nil && dj == nil:
				return true
			case di == nil && dj != nil:
				return false
			}
			return compareByDate(results[i], results[j])
		})
	}
}

// compareByDate reports whether i starts before j. Undated results sort
// last.
func compareByDate(i, j search.Result) bool {
	if !i.StartsAt.IsZero() && !j.StartsAt.IsZero() {
		return i.StartsAt.Before(j.StartsAt)
	}
	return !i.StartsAt.IsZero() && j.StartsAt.IsZero()
}
