package domain

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Today truncates now to a calendar date in now's location.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now)
}

// AddDate adds years, months and days to d with time.AddDate's overflow
// normalisation (Jan 31 + 1 month = Mar 2 or 3).
func AddDate(d civil.Date, years, months, days int) civil.Date {
	return civil.DateOf(d.In(time.UTC).AddDate(years, months, days))
}

// IsZeroDate reports whether d is the zero civil.Date.
func IsZeroDate(d civil.Date) bool {
	return d == civil.Date{}
}

// ParseDate accepts a plain ISO date or a full RFC 3339 timestamp, the
// latter truncated to its date in loc.
func ParseDate(s string, loc *time.Location) (civil.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := civil.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return civil.DateOf(t.In(loc)), nil
}

// MonthKey identifies a calendar month as "YYYY-MM".
func MonthKey(d civil.Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year, int(d.Month))
}
