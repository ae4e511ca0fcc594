package report

import (
	"time"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Report"

// Character widths for columns A to E.
var xlsxColumnWidths = [5]float64{7, 60, 24, 18, 36}

// XLSXRenderer writes the report onto a single worksheet, sections one
// after another.
type XLSXRenderer struct{}

func NewXLSXRenderer() *XLSXRenderer {
	return &XLSXRenderer{}
}

func (*XLSXRenderer) Format() Format {
	return FormatXLSX
}

func (*XLSXRenderer) Render(rep *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	w := &xlsxWriter{f: f}
	w.check(f.SetSheetName("Sheet1", xlsxSheet))

	stamp := rep.GeneratedAt.UTC().Format(time.RFC3339)
	w.check(f.SetDocProps(&excelize.DocProperties{
		Title:          rep.Title,
		Creator:        rep.Author,
		LastModifiedBy: rep.Author,
		Created:        stamp,
		Modified:       stamp,
	}))

	for i, width := range xlsxColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		w.check(err)
		w.check(f.SetColWidth(xlsxSheet, col, col, width))
	}

	st := w.styles()
	row := 1
	for _, line := range []string{rep.Title, rep.Subtitle} {
		if line != "" {
			w.banner(row, line, st.title)
			row++
		}
	}
	w.banner(row, rep.DateLine, st.date)
	row += 2

	for _, s := range rep.Sections {
		w.set(1, row, s.Platform, st.platform)
		row++

		for i, label := range Columns {
			w.set(i+1, row, label, st.header)
		}
		row++

		for _, r := range s.Rows {
			w.set(1, row, r.SerialNo, st.cell)
			w.set(2, row, r.URL, st.link)
			if r.URL != "" {
				w.check(f.SetCellHyperLink(xlsxSheet, w.cell(2, row), r.URL, "External"))
			}
			w.set(3, row, r.RuleViolation, st.cell)
			w.set(4, row, r.ActionStatus, st.cell)
			w.set(5, row, r.Comments, st.cell)
			row++
		}
		row++
	}

	if w.err != nil {
		return nil, w.err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// xlsxWriter keeps the first excelize error so the layout code reads
// top to bottom.
type xlsxWriter struct {
	f   *excelize.File
	err error
}

type xlsxStyles struct {
	title, date, platform, header, cell, link int
}

func (w *xlsxWriter) check(err error) {
	if w.err == nil && err != nil {
		w.err = err
	}
}

func (w *xlsxWriter) cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	w.check(err)
	return name
}

func (w *xlsxWriter) set(col, row int, value any, style int) {
	name := w.cell(col, row)
	if w.err != nil {
		return
	}
	w.check(w.f.SetCellValue(xlsxSheet, name, value))
	w.check(w.f.SetCellStyle(xlsxSheet, name, name, style))
}

func (w *xlsxWriter) banner(row int, text string, style int) {
	w.set(1, row, text, style)
	w.check(w.f.MergeCell(xlsxSheet, w.cell(1, row), w.cell(len(Columns), row)))
}

func (w *xlsxWriter) style(s *excelize.Style) int {
	id, err := w.f.NewStyle(s)
	w.check(err)
	return id
}

func (w *xlsxWriter) styles() xlsxStyles {
	grid := []excelize.Border{
		{Type: "left", Color: "808080", Style: 1},
		{Type: "top", Color: "808080", Style: 1},
		{Type: "right", Color: "808080", Style: 1},
		{Type: "bottom", Color: "808080", Style: 1},
	}
	wrapTop := &excelize.Alignment{Vertical: "top", WrapText: true}

	return xlsxStyles{
		title: w.style(&excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 16, Color: "002147"},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}),
		date: w.style(&excelize.Style{
			Font:      &excelize.Font{Size: 10},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		}),
		platform: w.style(&excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 12, Color: "002147"},
		}),
		header: w.style(&excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 9},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"DCE6F1"}, Pattern: 1},
			Border:    grid,
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "top", WrapText: true},
		}),
		cell: w.style(&excelize.Style{
			Font:      &excelize.Font{Size: 9},
			Border:    grid,
			Alignment: wrapTop,
		}),
		link: w.style(&excelize.Style{
			Font:      &excelize.Font{Size: 9, Color: "0000EE", Underline: "single"},
			Border:    grid,
			Alignment: wrapTop,
		}),
	}
}
