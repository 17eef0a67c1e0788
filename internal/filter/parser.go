package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthNames = `jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december`

var (
	sameMonthRange  = regexp.MustCompile(`(?i)^(` + monthNames + `)\s+(\d{1,2})\s*-\s*(\d{1,2})$`)
	crossMonthRange = regexp.MustCompile(`(?i)^(` + monthNames + `)\s+(\d{1,2})\s*-\s*(` + monthNames + `)\s+(\d{1,2})$`)
	wholeMonth      = regexp.MustCompile(`(?i)^(` + monthNames + `)$`)
)

// ParseDateRange parses a "when" phrase into start and end dates relative
// to now.
//
// Supported formats:
//   - "tonight" or "today"
//   - "tomorrow"
//   - "this weekend" - the coming Friday to Sunday, or the current one
//   - "this week" - today to Sunday
//   - "Dec 1-15" or "December 1-15"
//   - "Dec 20 - Jan 5"
//   - "December" - entire month
//
// Months already past this year resolve to next year. Start times are at
// 00:00:00 and end times at 23:59:59 UTC.
func ParseDateRange(input string, now time.Time) (*time.Time, *time.Time, error) {
	input = strings.Join(strings.Fields(strings.ToLower(input)), " ")
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch input {
	case "today", "tonight":
		return span(today, today)
	case "tomorrow":
		d := today.AddDate(0, 0, 1)
		return span(d, d)
	case "this weekend", "weekend":
		from := today
		switch today.Weekday() {
		case time.Friday, time.Saturday, time.Sunday:
		default:
			from = today.AddDate(0, 0, int(time.Friday-today.Weekday()))
		}
		return span(from, endOfWeek(from))
	case "this week":
		return span(today, endOfWeek(today))
	}

	if m := sameMonthRange.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		day1, err := parseDay(m[2])
		if err != nil {
			return nil, nil, err
		}
		day2, err := parseDay(m[3])
		if err != nil {
			return nil, nil, err
		}
		year := yearForMonth(month, now)
		return ordered(time.Date(year, month, day1, 0, 0, 0, 0, time.UTC), time.Date(year, month, day2, 0, 0, 0, 0, time.UTC))
	}

	if m := crossMonthRange.FindStringSubmatch(input); m != nil {
		month1 := parseMonth(m[1])
		day1, err := parseDay(m[2])
		if err != nil {
			return nil, nil, err
		}
		month2 := parseMonth(m[3])
		day2, err := parseDay(m[4])
		if err != nil {
			return nil, nil, err
		}
		year1 := yearForMonth(month1, now)
		year2 := year1
		if month2 < month1 {
			year2++
		}
		return ordered(time.Date(year1, month1, day1, 0, 0, 0, 0, time.UTC), time.Date(year2, month2, day2, 0, 0, 0, 0, time.UTC))
	}

	if m := wholeMonth.FindStringSubmatch(input); m != nil {
		month := parseMonth(m[1])
		year := yearForMonth(month, now)
		from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
		return span(from, to)
	}

	return nil, nil, fmt.Errorf("invalid date range %q: use 'tonight', 'this weekend', 'Dec 1-15', 'Dec 20 - Jan 5' or 'December'", input)
}

func span(from, to time.Time) (*time.Time, *time.Time, error) {
	end := time.Date(to.Year(), to.Month(), to.Day(), 23, 59, 59, 0, time.UTC)
	return &from, &end, nil
}

func ordered(from, to time.Time) (*time.Time, *time.Time, error) {
	if from.After(to) {
		return nil, nil, fmt.Errorf("start date must be before end date")
	}
	return span(from, to)
}

func endOfWeek(d time.Time) time.Time {
	if d.Weekday() == time.Sunday {
		return d
	}
	return d.AddDate(0, 0, 7-int(d.Weekday()))
}

func parseDay(s string) (int, error) {
	day, err := strconv.Atoi(s)
	if err != nil || day < 1 || day > 31 {
		return 0, fmt.Errorf("invalid day: %s", s)
	}
	return day, nil
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

// parseMonth converts a month name to time.Month, or 0 if unknown.
func parseMonth(name string) time.Month {
	return months[strings.ToLower(strings.TrimSpace(name))]
}

// yearForMonth returns now's year, or the next one if month has passed.
func yearForMonth(month time.Month, now time.Time) int {
	year := now.Year()
	if month < now.Month() {
		year++
	}
	return year
}
