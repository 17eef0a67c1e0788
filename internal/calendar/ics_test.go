package calendar

import (
	"strings"
	"testing"
	"time"

	"github.com/gigfinder/gigfinder/internal/event"
)

var stamp = time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)

func testEvent() *event.Event {
	return &event.Event{
		ID:        "3f1c2a",
		Name:      "The Angry Apple Trees",
		VenueName: "Sneaky Pete's",
		Town:      "Edinburgh",
		Lat:       55.9486,
		Lon:       -3.1915,
		StartsAt:  time.Date(2025, 12, 5, 19, 30, 0, 0, time.UTC),
		Price:     event.Price{Text: "£8"},
		TicketURL: "https://tickets.example.com/aat",
		Source:    event.SourceManual,
	}
}

func TestGenerateICS(t *testing.T) {
	ics := generateICS(testEvent(), stamp)

	requiredFields := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//GigFinder//gigfinder//EN",
		"BEGIN:VEVENT",
		"UID:3f1c2a@gigfinder.app",
		"DTSTAMP:20251120T100000Z",
		"DTSTART:20251205T193000\r\n",
		"DTEND:20251205T223000\r\n",
		"SUMMARY:The Angry Apple Trees",
		"DESCRIPTION:Price: £8",
		"LOCATION:Sneaky Pete's\\, Edinburgh",
		"GEO:55.948600;-3.191500",
		"URL:https://tickets.example.com/aat",
		"STATUS:CONFIRMED",
		"END:VEVENT",
		"END:VCALENDAR",
	}

	for _, field := range requiredFields {
		if !strings.Contains(ics, field) {
			t.Errorf("ICS missing required field: %q", field)
		}
	}

	if strings.Contains(ics, "DTSTART:20251205T193000Z") {
		t.Error("start time should be floating, not UTC")
	}
	if !strings.HasSuffix(ics, "END:VCALENDAR\r\n") {
		t.Error("ICS should use \\r\\n line endings")
	}
}

func TestGenerateICS_StartTimes(t *testing.T) {
	tests := []struct {
		name      string
		startsAt  time.Time
		doors     string
		wantStart string
		wantEnd   string
	}{
		{
			name:      "time of day from date",
			startsAt:  time.Date(2025, 12, 5, 20, 0, 0, 0, time.UTC),
			wantStart: "DTSTART:20251205T200000",
			wantEnd:   "DTEND:20251205T230000",
		},
		{
			name:      "doors time",
			startsAt:  time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC),
			doors:     "7pm",
			wantStart: "DTSTART:20251205T190000",
			wantEnd:   "DTEND:20251205T220000",
		},
		{
			name:      "late show crosses midnight",
			startsAt:  time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC),
			doors:     "22:30",
			wantStart: "DTSTART:20251205T223000",
			wantEnd:   "DTEND:20251206T013000",
		},
		{
			name:      "all day",
			startsAt:  time.Date(2025, 12, 5, 0, 0, 0, 0, time.UTC),
			doors:     "late",
			wantStart: "DTSTART;VALUE=DATE:20251205",
			wantEnd:   "DTEND;VALUE=DATE:20251206",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := testEvent()
			evt.StartsAt = tt.startsAt
			evt.DoorsTime = tt.doors

			ics := generateICS(evt, stamp)
			if !strings.Contains(ics, tt.wantStart+"\r\n") {
				t.Errorf("missing %q in\n%s", tt.wantStart, ics)
			}
			if !strings.Contains(ics, tt.wantEnd+"\r\n") {
				t.Errorf("missing %q", tt.wantEnd)
			}
		})
	}
}

func TestGenerateICS_ExternalAndInternalTicketing(t *testing.T) {
	external := testEvent()
	external.ID = ""
	external.ExternalID = "9911"
	external.Source = event.SourceSkiddle

	ics := generateICS(external, stamp)
	if !strings.Contains(ics, "UID:skiddle-9911@gigfinder.app") {
		t.Error("external events should use the source-qualified ID")
	}

	internal := testEvent()
	internal.TicketMode = event.TicketGuestList
	if strings.Contains(generateICS(internal, stamp), "URL:") {
		t.Error("internally ticketed gigs should not link out")
	}
}

func TestGenerateICS_SpecialCharacters(t *testing.T) {
	evt := testEvent()
	evt.Name = "Gig; With, Special\\Characters\nAnd Newlines"

	ics := generateICS(evt, stamp)

	if !strings.Contains(ics, "SUMMARY:Gig\\; With\\, Special\\\\Characters\\nAnd Newlines") {
		t.Errorf("special characters should be escaped:\n%s", ics)
	}
}

func TestGenerateICS_FoldsLongLines(t *testing.T) {
	evt := testEvent()
	evt.Description = strings.Repeat("a long support line-up ", 10)

	ics := generateICS(evt, stamp)
	for _, line := range strings.Split(strings.TrimSuffix(ics, "\r\n"), "\r\n") {
		if len(line) > 75 {
			t.Errorf("line longer than 75 octets: %q", line)
		}
	}
	if !strings.Contains(ics, "\r\n ") {
		t.Error("expected a folded continuation line")
	}
}

func TestGenerateBulkICS(t *testing.T) {
	a := testEvent()
	b := testEvent()
	b.ID = "b"
	b.Name = "Velvet Static"
	undated := testEvent()
	undated.ID = "undated"
	undated.StartsAt = time.Time{}

	ics := generateBulkICS([]*event.Event{a, b, undated}, "Edinburgh gigs", stamp)

	if !strings.Contains(ics, "X-WR-CALNAME:Edinburgh gigs") {
		t.Error("missing calendar name")
	}
	if n := strings.Count(ics, "BEGIN:VEVENT"); n != 2 {
		t.Errorf("expected 2 events, got %d", n)
	}
	if n := strings.Count(ics, "BEGIN:VCALENDAR"); n != 1 {
		t.Errorf("expected 1 calendar, got %d", n)
	}
	if strings.Contains(ics, "UID:undated@") {
		t.Error("undated gigs should be skipped")
	}
}

func TestGenerateBulkICS_Empty(t *testing.T) {
	if ics := GenerateBulkICS(nil, "Nothing"); ics != "" {
		t.Errorf("expected empty string, got %q", ics)
	}
}

func TestEscapeICS(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Simple text", "Simple text"},
		{"Text with, comma", "Text with\\, comma"},
		{"Text with; semicolon", "Text with\\; semicolon"},
		{"Text with\\backslash", "Text with\\\\backslash"},
		{"Text with\nnewline", "Text with\\nnewline"},
		{"Windows\r\nnewline", "Windows\\nnewline"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeICS(tt.input); got != tt.expected {
				t.Errorf("escapeICS(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
