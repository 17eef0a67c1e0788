// Package calendar exports gigs as iCalendar files.
package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
)

// DefaultDuration is the assumed length of a gig.
const DefaultDuration = 3 * time.Hour

// UIDDomain qualifies event IDs in calendar UIDs.
const UIDDomain = "gigfinder.app"

// GenerateICS generates an iCalendar (.ics) file for a gig. Start times are
// written as floating local times, since listings give venue wall clock
// times with no zone. A gig with a date but no time of day becomes an
// all-day entry. Callers must not pass an undated event.
func GenerateICS(evt *event.Event) string {
	return generateICS(evt, time.Now())
}

func generateICS(evt *event.Event, now time.Time) string {
	var ics strings.Builder
	writeHeader(&ics, "")
	writeEvent(&ics, evt, now)
	writeLine(&ics, "END:VCALENDAR")
	return ics.String()
}

// GenerateBulkICS generates one calendar holding every dated gig in events.
// It returns an empty string when there is nothing to export.
func GenerateBulkICS(events []*event.Event, calendarName string) string {
	return generateBulkICS(events, calendarName, time.Now())
}

func generateBulkICS(events []*event.Event, calendarName string, now time.Time) string {
	var ics strings.Builder
	count := 0
	for _, evt := range events {
		if evt.StartsAt.IsZero() {
			continue
		}
		if count == 0 {
			writeHeader(&ics, calendarName)
		}
		writeEvent(&ics, evt, now)
		count++
	}
	if count == 0 {
		return ""
	}
	writeLine(&ics, "END:VCALENDAR")
	return ics.String()
}

func writeHeader(ics *strings.Builder, calendarName string) {
	writeLine(ics, "BEGIN:VCALENDAR")
	writeLine(ics, "VERSION:2.0")
	writeLine(ics, "PRODID:-//GigFinder//gigfinder//EN")
	writeLine(ics, "CALSCALE:GREGORIAN")
	writeLine(ics, "METHOD:PUBLISH")
	if calendarName != "" {
		writeLine(ics, "X-WR-CALNAME:"+escapeICS(calendarName))
	}
}

func writeEvent(ics *strings.Builder, evt *event.Event, now time.Time) {
	writeLine(ics, "BEGIN:VEVENT")

	writeLine(ics, fmt.Sprintf("UID:%s@%s", strings.ReplaceAll(evt.DisplayID(), ":", "-"), UIDDomain))
	writeLine(ics, "DTSTAMP:"+now.UTC().Format("20060102T150405Z"))

	if start, ok := startTime(evt); ok {
		writeLine(ics, "DTSTART:"+formatFloating(start))
		writeLine(ics, "DTEND:"+formatFloating(start.Add(DefaultDuration)))
	} else {
		day := evt.StartsAt
		writeLine(ics, "DTSTART;VALUE=DATE:"+day.Format("20060102"))
		writeLine(ics, "DTEND;VALUE=DATE:"+day.AddDate(0, 0, 1).Format("20060102"))
	}

	writeLine(ics, "SUMMARY:"+escapeICS(evt.Name))

	var desc []string
	if evt.DoorsTime != "" {
		desc = append(desc, "Doors: "+evt.DoorsTime)
	}
	if evt.Price.Text != "" {
		desc = append(desc, "Price: "+evt.Price.Text)
	}
	if evt.Description != "" {
		desc = append(desc, evt.Description)
	}
	if len(desc) > 0 {
		writeLine(ics, "DESCRIPTION:"+escapeICS(strings.Join(desc, "\n")))
	}

	location := evt.VenueName
	if evt.Town != "" {
		location = fmt.Sprintf("%s, %s", evt.VenueName, evt.Town)
	}
	writeLine(ics, "LOCATION:"+escapeICS(location))
	if evt.Lat != 0 || evt.Lon != 0 {
		writeLine(ics, fmt.Sprintf("GEO:%.6f;%.6f", evt.Lat, evt.Lon))
	}

	if evt.TicketURL != "" && !evt.TicketMode.Internal() {
		writeLine(ics, "URL:"+evt.TicketURL)
	}

	writeLine(ics, "STATUS:CONFIRMED")
	writeLine(ics, "SEQUENCE:0")
	writeLine(ics, "TRANSP:OPAQUE")
	writeLine(ics, "END:VEVENT")
}

// startTime returns the gig's start with a time of day, falling back to the
// doors time when the date carries none.
func startTime(evt *event.Event) (time.Time, bool) {
	t := evt.StartsAt
	if t.Hour() != 0 || t.Minute() != 0 {
		return t, true
	}
	for _, layout := range []string{"15:04", "3:04pm", "3pm", "3.04pm"} {
		doors, err := time.Parse(layout, strings.ToLower(strings.ReplaceAll(evt.DoorsTime, " ", "")))
		if err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), doors.Hour(), doors.Minute(), 0, 0, time.UTC), true
		}
	}
	return t, false
}

// formatFloating formats a wall clock time without a zone designator.
func formatFloating(t time.Time) string {
	return t.Format("20060102T150405")
}

// escapeICS escapes special characters for iCalendar format
func escapeICS(s string) string {
	// Replace special characters according to RFC 5545
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

// writeLine writes a content line, folding it at 75 octets.
func writeLine(b *strings.Builder, line string) {
	limit := 75
	for len(line) > limit {
		cut := limit
		// Avoid splitting a UTF-8 sequence.
		for cut > 0 && line[cut]&0xC0 == 0x80 {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		// Continuation lines start with a space.
		limit = 74
	}
	b.WriteString(line)
	b.WriteString("\r\n")
}
