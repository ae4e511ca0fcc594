package report

import (
	"bytes"
	_ "embed"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
)

var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
)

const (
	pdfMarginLeft   = 40.0
	pdfMarginRight  = 40.0
	pdfMarginTop    = 60.0
	pdfMarginBottom = 40.0

	pdfFont         = "DejaVu"
	pdfCellPadding  = 4.0
	pdfTableSize    = 9.0
	pdfLineHeight   = 11.0
	pdfBaseline     = 8.5
	pdfGridWidth    = 0.4
	pdfHeadingIndex = 8.0
)

// Column widths in points, in Columns order.
var pdfColumnWidths = [5]float64{35, 180, 115, 90, 80}

type rgb struct{ r, g, b int }

var (
	colorNavy       = rgb{0x00, 0x21, 0x47}
	colorBlack      = rgb{0x00, 0x00, 0x00}
	colorLink       = rgb{0x00, 0x00, 0xEE}
	colorGrid       = rgb{0x80, 0x80, 0x80}
	colorHeaderFill = rgb{0xDC, 0xE6, 0xF1}
	colorWhite      = rgb{0xFF, 0xFF, 0xFF}
	colorStripe     = rgb{0xF7, 0xF9, 0xFB}
)

// PDFRenderer lays a report out on A4 pages with one table per platform.
type PDFRenderer struct {
	compress bool
}

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{compress: true}
}

func (*PDFRenderer) Format() Format {
	return FormatPDF
}

func (r *PDFRenderer) Render(rep *Report) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddUTF8FontFromBytes(pdfFont, "", fontRegular)
	pdf.AddUTF8FontFromBytes(pdfFont, "B", fontBold)
	pdf.SetMargins(pdfMarginLeft, pdfMarginTop, pdfMarginRight)
	pdf.SetAutoPageBreak(false, pdfMarginBottom)
	pdf.SetCompression(r.compress)
	// Fixed dates and sorted catalog keep output byte-identical per day.
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(rep.GeneratedAt)
	pdf.SetModificationDate(rep.GeneratedAt)
	pdf.SetTitle(rep.Title, true)
	pdf.SetAuthor(rep.Author, true)
	pdf.SetCreator(rep.Author, true)

	pageW, pageH := pdf.GetPageSize()
	w := &pdfWriter{
		pdf:      pdf,
		contentW: pageW - pdfMarginLeft - pdfMarginRight,
		bottom:   pageH - pdfMarginBottom,
	}

	pdf.AddPage()
	w.writeTitle(rep)
	for _, s := range rep.Sections {
		w.writeSection(s)
	}

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type pdfWriter struct {
	pdf      *fpdf.Fpdf
	contentW float64
	bottom   float64
	header   []pdfCell
}

type pdfCell struct {
	lines []string
	link  string
	style string
	color rgb
}

func (w *pdfWriter) setText(c rgb) { w.pdf.SetTextColor(c.r, c.g, c.b) }
func (w *pdfWriter) setFill(c rgb) { w.pdf.SetFillColor(c.r, c.g, c.b) }
func (w *pdfWriter) setDraw(c rgb) { w.pdf.SetDrawColor(c.r, c.g, c.b) }

func (w *pdfWriter) writeTitle(rep *Report) {
	w.setText(colorNavy)
	w.pdf.SetFont(pdfFont, "B", 16)
	for _, line := range []string{rep.Title, rep.Subtitle} {
		if line == "" {
			continue
		}
		w.pdf.SetX(pdfMarginLeft)
		w.pdf.MultiCell(w.contentW, 20, pdfText(line), "", "C", false)
	}

	w.setText(colorBlack)
	w.pdf.SetFont(pdfFont, "", 10)
	w.pdf.SetX(pdfMarginLeft)
	w.pdf.MultiCell(w.contentW, 14, pdfText(rep.DateLine), "", "C", false)
	w.pdf.Ln(15)
}

func (w *pdfWriter) writeSection(s Section) {
	w.pdf.SetFont(pdfFont, "", pdfTableSize)
	w.header = w.headerCells()

	rows := make([][]pdfCell, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = w.rowCells(row)
	}

	// Keep the heading with the table header and the first row.
	const headingH = 16.0 + 6.0
	need := headingH + w.rowHeight(w.header)
	if len(rows) > 0 {
		need += w.rowHeight(rows[0])
	}
	if w.pdf.GetY()+need > w.bottom {
		w.pdf.AddPage()
	}

	w.setText(colorNavy)
	w.pdf.SetFont(pdfFont, "B", 12)
	w.pdf.SetX(pdfMarginLeft + pdfHeadingIndex)
	w.pdf.CellFormat(w.contentW-pdfHeadingIndex, 16, pdfText(s.Platform), "", 1, "L", false, 0, "")
	w.pdf.Ln(6)

	w.drawRow(w.header, colorHeaderFill, true)
	for i, cells := range rows {
		fill := colorWhite
		if i%2 == 1 {
			fill = colorStripe
		}
		w.drawRow(cells, fill, false)
	}
	w.pdf.Ln(12)
}

func (w *pdfWriter) headerCells() []pdfCell {
	w.pdf.SetFont(pdfFont, "B", pdfTableSize)
	cells := make([]pdfCell, len(Columns))
	for i, label := range Columns {
		cells[i] = pdfCell{
			lines: w.wrap(pdfText(label), pdfColumnWidths[i]),
			style: "B",
			color: colorBlack,
		}
	}
	return cells
}

func (w *pdfWriter) rowCells(row Row) []pdfCell {
	values := [5]string{
		strconv.Itoa(row.SerialNo),
		row.URL,
		row.RuleViolation,
		row.ActionStatus,
		row.Comments,
	}
	cells := make([]pdfCell, len(values))
	for i, v := range values {
		c := pdfCell{color: colorBlack}
		if i == 1 {
			c.style = "U"
			c.color = colorLink
			c.link = row.URL
			w.pdf.SetFont(pdfFont, "U", pdfTableSize)
		} else {
			w.pdf.SetFont(pdfFont, "", pdfTableSize)
		}
		c.lines = w.clip(w.wrap(pdfText(v), pdfColumnWidths[i]))
		cells[i] = c
	}
	return cells
}

func (w *pdfWriter) rowHeight(cells []pdfCell) float64 {
	maxLines := 1
	for _, c := range cells {
		if len(c.lines) > maxLines {
			maxLines = len(c.lines)
		}
	}
	return float64(maxLines)*pdfLineHeight + 2*pdfCellPadding
}

func (w *pdfWriter) drawRow(cells []pdfCell, fill rgb, isHeader bool) {
	h := w.rowHeight(cells)
	if w.pdf.GetY()+h > w.bottom {
		w.pdf.AddPage()
		if !isHeader {
			w.drawRow(w.header, colorHeaderFill, true)
		}
	}

	x, y := pdfMarginLeft, w.pdf.GetY()
	w.setDraw(colorGrid)
	w.pdf.SetLineWidth(pdfGridWidth)
	for i, c := range cells {
		cw := pdfColumnWidths[i]
		w.setFill(fill)
		w.pdf.Rect(x, y, cw, h, "FD")

		w.pdf.SetFont(pdfFont, c.style, pdfTableSize)
		w.setText(c.color)
		for j, line := range c.lines {
			if line == "" {
				continue
			}
			w.pdf.Text(x+pdfCellPadding, y+pdfCellPadding+float64(j)*pdfLineHeight+pdfBaseline, line)
		}
		if c.link != "" {
			w.pdf.LinkString(x, y, cw, h, c.link)
		}
		x += cw
	}
	w.pdf.SetXY(pdfMarginLeft, y+h)
}

// wrap breaks text into lines that fit a column, using the current font.
// Long tokens such as URLs are split after a separator where possible,
// otherwise at the last rune that fits.
func (w *pdfWriter) wrap(text string, colWidth float64) []string {
	avail := colWidth - 2*pdfCellPadding
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, w.wrapLine([]rune(para), avail)...)
	}
	return lines
}

func (w *pdfWriter) wrapLine(rs []rune, avail float64) []string {
	if len(rs) == 0 {
		return []string{""}
	}

	var lines []string
	for len(rs) > 0 {
		if w.pdf.GetStringWidth(string(rs)) <= avail {
			lines = append(lines, string(rs))
			break
		}

		cut := 1
		for cut < len(rs) && w.pdf.GetStringWidth(string(rs[:cut+1])) <= avail {
			cut++
		}
		if i := lastBreak(rs[:cut]); i > 0 && i+1 < cut {
			cut = i + 1
		}

		lines = append(lines, strings.TrimRight(string(rs[:cut]), " "))
		rs = trimLeftSpace(rs[cut:])
	}
	return lines
}

func lastBreak(rs []rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if strings.ContainsRune(" /?&=-_.", rs[i]) {
			return i
		}
	}
	return -1
}

func trimLeftSpace(rs []rune) []rune {
	for len(rs) > 0 && rs[0] == ' ' {
		rs = rs[1:]
	}
	return rs
}

// clip limits a cell to what fits on one page below the table header.
func (w *pdfWriter) clip(lines []string) []string {
	_, pageH := w.pdf.GetPageSize()
	usable := pageH - pdfMarginTop - pdfMarginBottom - w.rowHeight(w.header) - 2*pdfCellPadding
	maxLines := int(usable / pdfLineHeight)
	if maxLines < 1 || len(lines) <= maxLines {
		return lines
	}
	clipped := append([]string(nil), lines[:maxLines]...)
	clipped[maxLines-1] += " ..."
	return clipped
}

// pdfText replaces what the embedded font cannot address. Its width table
// only spans the Basic Multilingual Plane.
func pdfText(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFFFF {
			return utf8.RuneError
		}
		return r
	}, strings.ToValidUTF8(s, string(utf8.RuneError)))
}

// linkTarget percent-encodes non-ASCII bytes so the annotation URI stays a
// 7-bit string while the cell still shows the raw URL.
func linkTarget(raw string) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c < utf8.RuneSelf {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte("0123456789ABCDEF"[c>>4])
		b.WriteByte("0123456789ABCDEF"[c&0xF])
	}
	return b.String()
}
