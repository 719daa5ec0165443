package services

import (
	"fmt"
	"time"
)

// DateLayout is the strict date-only format used everywhere. Dates in
// this format compare correctly as plain strings.
const DateLayout = "2006-01-02"

// dateLayouts are the accepted input formats, tried in order.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"02/01/2006",
	"2006/01/02",
}

// NormalizeDateOnly parses a date-like input and returns it as a
// strict YYYY-MM-DD string in UTC. Returns a validation error if no
// known format matches.
func NormalizeDateOnly(raw string) (string, error) {
	s := CollapseWhitespace(raw)
	if s == "" {
		return "", validationError("date", "date is required")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Format(DateLayout), nil
		}
	}
	return "", validationError("date", "invalid date format: expected YYYY-MM-DD")
}

// Today returns the current date as YYYY-MM-DD in local time.
func Today() string {
	return time.Now().Format(DateLayout)
}

// IsFutureDate reports whether a normalized date is strictly after
// today at local midnight.
func IsFutureDate(date string) bool {
	return date > Today()
}

// DaysBetween returns the whole days from one normalized date to
// another. Negative when to precedes from.
func DaysBetween(from, to string) int {
	a, err1 := time.Parse(DateLayout, from)
	b, err2 := time.Parse(DateLayout, to)
	if err1 != nil || err2 != nil {
		return 0
	}
	return int(b.Sub(a).Hours() / 24)
}

var spanishMonths = []string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthLabel returns the Spanish label for a month, e.g. "Enero 2026".
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", spanishMonths[int(month)-1], year)
}

// RegistrationMonthLabel derives the registration-month label from a
// normalized filing date.
func RegistrationMonthLabel(filingDate string) string {
	t, err := time.Parse(DateLayout, filingDate)
	if err != nil {
		return ""
	}
	return MonthLabel(t.Year(), t.Month())
}
