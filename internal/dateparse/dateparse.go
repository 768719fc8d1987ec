// Package dateparse provides natural language date parsing for report
// and list filters.
package dateparse

import (
	"strconv"
	"strings"
	"time"
)

// Parse parses a natural language date string and returns a date in
// YYYY-MM-DD format, or "" when the input is not recognized.
// Supported formats:
//   - today, yesterday, tomorrow
//   - monday, tuesday, ... (most recent occurrence, today excluded)
//   - last week, last month (7 days / one month back)
//   - start of month, som
//   - -N / +N (N days back or ahead)
//   - YYYY-MM-DD (passthrough)
func Parse(input string) string {
	return ParseFrom(input, time.Now())
}

// ParseFrom parses a date relative to the given reference time.
func ParseFrom(input string, now time.Time) string {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return ""
	}

	switch input {
	case "today":
		return formatDate(now)
	case "yesterday":
		return formatDate(now.AddDate(0, 0, -1))
	case "tomorrow":
		return formatDate(now.AddDate(0, 0, 1))
	case "last week", "lastweek":
		return formatDate(now.AddDate(0, 0, -7))
	case "last month", "lastmonth":
		return formatDate(now.AddDate(0, -1, 0))
	case "start of month", "som":
		return formatDate(startOfMonth(now))
	}

	if day, ok := parseWeekday(input); ok {
		return formatDate(previousWeekday(now, day))
	}

	// -N / +N day offsets
	if strings.HasPrefix(input, "-") || strings.HasPrefix(input, "+") {
		if days, err := strconv.Atoi(input); err == nil {
			return formatDate(now.AddDate(0, 0, days))
		}
	}

	// YYYY-MM-DD passthrough
	if _, err := time.Parse("2006-01-02", input); err == nil {
		return input
	}

	return ""
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(input string) (time.Weekday, bool) {
	day, ok := weekdays[input]
	return day, ok
}

// previousWeekday returns the most recent occurrence of day strictly
// before now, so "monday" on a Monday means a week ago.
func previousWeekday(now time.Time, day time.Weekday) time.Time {
	diff := int(now.Weekday() - day)
	if diff <= 0 {
		diff += 7
	}
	return now.AddDate(0, 0, -diff)
}

func startOfMonth(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
