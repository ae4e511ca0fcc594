// Package report turns flagged links into compliance reports. Records are
// grouped once into a Report, which each Renderer serialises independently.
package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/sifan077/LinkLedger/internal/app/localtime"
)

var (
	// ErrEmptyReport is returned when there is nothing to put in a report.
	ErrEmptyReport = errors.New("report: no records")

	// ErrUnknownFormat is returned for a format with no registered renderer.
	ErrUnknownFormat = errors.New("report: unknown format")
)

// Column headings shared by every format. The third heading is rendered on
// two lines.
var Columns = [5]string{
	"S.No",
	"URL",
	"Relevant Violation\nof IT Rules, 2021",
	"Action Status",
	"Comments",
}

const otherPlatform = "Other"

// Record is one link as it appears in a report.
type Record struct {
	URL           string
	Platform      string
	RuleViolation string
	ActionStatus  string
	Comments      string
}

// Row is a record numbered within its platform section, starting at 1.
type Row struct {
	SerialNo int
	Record
}

// Section holds the rows of a single platform.
type Section struct {
	Platform string
	Rows     []Row
}

// Header is the fixed text printed above all sections.
type Header struct {
	Title    string
	Subtitle string
	Author   string
}

// Report is the format-independent content of a report.
type Report struct {
	Header
	// GeneratedAt is local midnight of the generation day; renderers use it
	// for document metadata so output only changes from one day to the next.
	GeneratedAt time.Time
	DateLine    string
	Sections    []Section
}

// RowCount returns the number of rows across all sections.
func (r *Report) RowCount() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Rows)
	}
	return n
}

// Group builds a Report from records. Sections appear in the order their
// platform is first seen and rows keep their input order.
func Group(header Header, records []Record, generatedAt time.Time) (*Report, error) {
	if len(records) == 0 {
		return nil, ErrEmptyReport
	}

	index := make(map[string]int)
	var sections []Section
	for _, rec := range records {
		if rec.Platform == "" {
			rec.Platform = otherPlatform
		}
		i, ok := index[rec.Platform]
		if !ok {
			i = len(sections)
			index[rec.Platform] = i
			sections = append(sections, Section{Platform: rec.Platform})
		}
		sections[i].Rows = append(sections[i].Rows, Row{
			SerialNo: len(sections[i].Rows) + 1,
			Record:   rec,
		})
	}

	day := localtime.Date(generatedAt)
	return &Report{
		Header:      header,
		GeneratedAt: day,
		DateLine:    "(" + localtime.DateLine(day) + ")",
		Sections:    sections,
	}, nil
}

// SerializationError wraps a failure while encoding a report.
type SerializationError struct {
	Format Format
	Err    error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("report: render %s: %v", e.Format, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}
