package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidLink is returned for an empty or unparsable URL.
	ErrInvalidLink = errors.New("invalid link")

	// ErrInvalidRange is returned when a range starts after it ends.
	ErrInvalidRange = errors.New("from_date must not be after to_date")

	// ErrInvalidLog is returned for a download log entry that cannot be stored.
	ErrInvalidLog = errors.New("invalid download log")

	// ErrNoRecords is returned when an export range contains no links.
	ErrNoRecords = errors.New("no records found")
)

// ConflictError reports a URL that is already stored. Platform is the
// label of the stored link.
type ConflictError struct {
	URL      string
	Platform string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("link %q already exists (%s)", e.URL, e.Platform)
}

func validateRange(from, to time.Time) error {
	if from.After(to) {
		return ErrInvalidRange
	}
	return nil
}
