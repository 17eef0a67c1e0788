package event

import (
	"sort"
	"strings"
	"time"
)

// dateLayouts are tried in order by ParseDate. Listing sites in the region
// write dates day-first.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"Mon 2 Jan 2006",
	"Monday 2 January 2006",
	"Mon 2 January 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"January 2 2006",
	"Jan 2 2006",
	"02/01/2006",
	"2/1/2006",
	"02.01.06",
	"2.1.06",
}

// yearlessLayouts are date-only layouts missing the year; the next
// occurrence on or after now is assumed.
var yearlessLayouts = []string{
	"Mon 2 Jan",
	"Monday 2 January",
	"2 Jan",
	"2 January",
	"Jan 2",
}

var ordinalReplacer = strings.NewReplacer("1st", "1", "2nd", "2", "3rd", "3", "th ", " ")

// ParseDate parses listing date text into a wall clock time.
// Returns the zero time if no layout matches.
func ParseDate(text string) time.Time {
	return parseDateAt(text, time.Now())
}

func parseDateAt(text string, now time.Time) time.Time {
	s := strings.Join(strings.Fields(strings.ReplaceAll(text, ",", " ")), " ")
	if s == "" {
		return time.Time{}
	}
	s = strings.TrimSpace(ordinalReplacer.Replace(s + " "))

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	for _, layout := range yearlessLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if d.Before(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)) {
			d = d.AddDate(1, 0, 0)
		}
		return d
	}

	return time.Time{}
}

// SortByDate sorts events ascending by start time. The sort is stable, so
// events on the same date keep their relative order.
func SortByDate(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
}

// FormatDisplayDate renders a start time for listings, e.g. "Fri 5 Dec 2025".
func FormatDisplayDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Mon 2 Jan 2006")
}

// IsUpcoming reports whether the event starts on or after the given day.
// Events without a date are treated as upcoming.
func (e *Event) IsUpcoming(now time.Time) bool {
	if e.StartsAt.IsZero() {
		return true
	}
	return DateKey(e.StartsAt) >= DateKey(now)
}
