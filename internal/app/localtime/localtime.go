// Package localtime converts between the fixed local zone used for every
// user-facing timestamp (UTC+05:30) and the UTC instants that are stored and
// compared.
package localtime

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DisplayLayout renders instants as "02 Jan 2006, 03:04 PM".
	DisplayLayout = "02 Jan 2006, 03:04 PM"

	// DateLineLayout renders the report generation date.
	DateLineLayout = "02 January, 2006"

	offsetSeconds = 5*60*60 + 30*60
)

// Location is the fixed local zone. It is a fixed offset, not a tz database
// entry, so it never depends on the host's zoneinfo.
var Location = time.FixedZone("IST", offsetSeconds)

// Layouts carrying an explicit offset are tried first.
var zonedLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05-0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04Z07:00",
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseError reports an input that is not a recognisable date/time.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid date/time %q", e.Input)
	}
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ToStorage parses an ISO-8601 string into a UTC instant. Inputs without an
// explicit offset are read as local time.
func ToStorage(value string) (time.Time, error) {
	s := repairOffset(strings.TrimSpace(value))
	if s == "" {
		return time.Time{}, &ParseError{Input: value, Err: fmt.Errorf("empty date/time")}
	}

	var firstErr error
	for _, layout := range zonedLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, Location); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, &ParseError{Input: value, Err: firstErr}
}

// ToDisplay formats an instant in the local zone using DisplayLayout.
func ToDisplay(t time.Time) string {
	return t.In(Location).Format(DisplayLayout)
}

// DateLine formats the local calendar date of t for report headers.
func DateLine(t time.Time) string {
	return t.In(Location).Format(DateLineLayout)
}

// Date truncates t to local midnight. The result is still an absolute instant.
func Date(t time.Time) time.Time {
	local := t.In(Location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location)
}

// repairOffset restores a "+hh:mm" offset whose plus sign was decoded to a
// space by query-string unescaping, e.g. "2025-01-01T10:00:00 05:30".
func repairOffset(s string) string {
	n := len(s)
	if n < len("2006-01-02T15:04 05:30") || s[n-6] != ' ' || s[n-3] != ':' {
		return s
	}
	for _, i := range []int{n - 5, n - 4, n - 2, n - 1} {
		if s[i] < '0' || s[i] > '9' {
			return s
		}
	}
	// A clock time must precede the suspected offset.
	if !strings.Contains(s[:n-6], ":") {
		return s
	}
	return s[:n-6] + "+" + s[n-5:]
}
