package report

import (
	"fmt"
	"strings"
	"time"
)

// Format identifies an output document type.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a file_type value. An empty value means PDF.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatDOCX:
		return FormatDOCX, nil
	case FormatXLSX:
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

func (f Format) Extension() string {
	return "." + string(f)
}

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Renderer serialises a grouped Report into one document format. Render
// must be deterministic for a given Report.
type Renderer interface {
	Format() Format
	Render(r *Report) ([]byte, error)
}

// Builder groups records and dispatches to the renderer for a format.
type Builder struct {
	header    Header
	renderers map[Format]Renderer
}

// NewBuilder registers renderers by their format. With no renderers the
// PDF, DOCX and XLSX renderers are used.
func NewBuilder(header Header, renderers ...Renderer) *Builder {
	if len(renderers) == 0 {
		renderers = []Renderer{NewPDFRenderer(), NewDOCXRenderer(), NewXLSXRenderer()}
	}
	b := &Builder{
		header:    header,
		renderers: make(map[Format]Renderer, len(renderers)),
	}
	for _, r := range renderers {
		b.renderers[r.Format()] = r
	}
	return b
}

// Supports reports whether a renderer is registered for f.
func (b *Builder) Supports(f Format) bool {
	_, ok := b.renderers[f]
	return ok
}

// Build renders records as a single document. Either the complete document
// is returned or an error; never partial output.
func (b *Builder) Build(records []Record, format Format, generatedAt time.Time) ([]byte, error) {
	renderer, ok := b.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	rep, err := Group(b.header, records, generatedAt)
	if err != nil {
		return nil, err
	}

	out, err := render(renderer, rep)
	if err != nil {
		return nil, &SerializationError{Format: format, Err: err}
	}
	return out, nil
}

func render(r Renderer, rep *Report) (out []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return r.Render(rep)
}
