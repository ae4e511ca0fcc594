package report

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"net/url"
	"strings"
	"testing"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	pdfread "github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const trickyURL = `https://x.com/search?q=<script>&lang="en"&x=(1)`

func sampleReport(t *testing.T) *Report {
	t.Helper()
	withComment := record("https://facebook.com/watch?v=1", "Facebook")
	withComment.Comments = "Reported by <ops> & legal"

	long := record("https://t.me/"+strings.Repeat("verylongchannelname", 20), "Telegram")
	long.Comments = strings.Repeat("word ", 200)

	rep, err := Group(testHeader, []Record{
		record(trickyURL, "Twitter"),
		withComment,
		record("https://x.com/2", "Twitter"),
		long,
	}, testGeneratedAt)
	require.NoError(t, err)
	return rep
}

// pdfPage holds what a reader recovers from one rendered page: the strings
// shown by text operators, in drawing order, and the link annotation URIs.
type pdfPage struct {
	texts []string
	links []string
}

func parsePDF(t *testing.T, data []byte) []pdfPage {
	t.Helper()
	r, err := pdfread.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	pages := make([]pdfPage, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		require.False(t, p.V.IsNull(), "page %d", i)

		var page pdfPage
		pdfread.Interpret(p.V.Key("Contents"), func(stk *pdfread.Stack, op string) {
			switch op {
			case "Tj":
				page.texts = append(page.texts, decodeCIDs(stk.Pop().RawString()))
			case "TJ":
				parts := stk.Pop()
				var sb strings.Builder
				for j := 0; j < parts.Len(); j++ {
					if v := parts.Index(j); v.Kind() == pdfread.String {
						sb.WriteString(decodeCIDs(v.RawString()))
					}
				}
				page.texts = append(page.texts, sb.String())
			}
		})

		annots := p.V.Key("Annots")
		for j := 0; j < annots.Len(); j++ {
			page.links = append(page.links, annots.Index(j).Key("A").Key("URI").RawString())
		}
		pages = append(pages, page)
	}
	return pages
}

// decodeCIDs reads Identity-H codes. The embedded font's ToUnicode map is the
// identity, so each code is a UTF-16 code unit.
func decodeCIDs(raw string) string {
	units := make([]uint16, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		units = append(units, uint16(raw[i])<<8|uint16(raw[i+1]))
	}
	return string(utf16.Decode(units))
}

func allTexts(pages []pdfPage) []string {
	var texts []string
	for _, p := range pages {
		texts = append(texts, p.texts...)
	}
	return texts
}

func allLinks(pages []pdfPage) []string {
	var links []string
	for _, p := range pages {
		links = append(links, p.links...)
	}
	return links
}

func TestPDFRenderer(t *testing.T) {
	out, err := NewPDFRenderer().Render(sampleReport(t))
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "missing PDF header")
	assert.True(t, bytes.HasSuffix(bytes.TrimSpace(out), []byte("%%EOF")), "missing PDF trailer")

	pages := parsePDF(t, out)
	require.NotEmpty(t, pages)
	texts := allTexts(pages)

	assert.Equal(t, []string{testHeader.Title, testHeader.Subtitle, "(02 June, 2025)"}, texts[:3])
	assert.Contains(t, texts, "Twitter")
	assert.Contains(t, texts, "Facebook")
	assert.Contains(t, texts, "Telegram")
	assert.Less(t, indexOf(texts, "Twitter"), indexOf(texts, "Facebook"))
	assert.Less(t, indexOf(texts, "Facebook"), indexOf(texts, "Telegram"))

	// URLs wrap at separators and comments at spaces.
	assert.Contains(t, strings.Join(texts, ""), trickyURL)
	assert.Contains(t, strings.Join(texts, " "), "Reported by <ops> & legal")

	links := allLinks(pages)
	assert.Contains(t, links, trickyURL)
	assert.Contains(t, links, "https://facebook.com/watch?v=1")
}

func TestPDFRenderer_NonLatinText(t *testing.T) {
	const (
		hindiURL     = "https://example.in/समाचार/लेख?q=ऑनलाइन"
		hindiComment = "हिंदी टिप्पणी ₹ 500"
	)
	rec := record(hindiURL, "Other")
	rec.Comments = hindiComment + " 😀"

	rep, err := Group(testHeader, []Record{rec}, testGeneratedAt)
	require.NoError(t, err)
	out, err := NewPDFRenderer().Render(rep)
	require.NoError(t, err)

	pages := parsePDF(t, out)
	texts := allTexts(pages)
	assert.Contains(t, strings.Join(texts, ""), hindiURL)
	// Runes outside the BMP have no width entry and are shown as U+FFFD.
	assert.Contains(t, strings.Join(texts, " "), hindiComment+" \uFFFD")

	links := allLinks(pages)
	require.Len(t, links, 1)
	for i := 0; i < len(links[0]); i++ {
		require.Less(t, links[0][i], byte(0x80), "annotation URI must be ASCII")
	}
	decoded, err := url.PathUnescape(links[0])
	require.NoError(t, err)
	assert.Equal(t, hindiURL, decoded)
}

func TestPDFRenderer_Reproducible(t *testing.T) {
	r := NewPDFRenderer()
	first, err := r.Render(sampleReport(t))
	require.NoError(t, err)
	second, err := r.Render(sampleReport(t))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second), "PDF output differs between identical renders")
}

func TestPDFRenderer_ManyRowsSpanPages(t *testing.T) {
	records := make([]Record, 0, 120)
	for i := 0; i < 120; i++ {
		records = append(records, record("https://reddit.com/r/"+strings.Repeat("a", i%40), "Reddit"))
	}
	rep, err := Group(testHeader, records, testGeneratedAt)
	require.NoError(t, err)

	out, err := NewPDFRenderer().Render(rep)
	require.NoError(t, err)

	pages := parsePDF(t, out)
	require.Greater(t, len(pages), 1)
	// The table header repeats at the top of every continuation page.
	assert.Equal(t, Columns[0], pages[1].texts[0])
	assert.Len(t, allLinks(pages), 120)
}

func TestWrapLine_RuneBoundaries(t *testing.T) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.AddUTF8FontFromBytes(pdfFont, "", fontRegular)
	pdf.SetFont(pdfFont, "", pdfTableSize)
	w := &pdfWriter{pdf: pdf}

	text := strings.Repeat("टिप्पणी", 12)
	lines := w.wrap(text, pdfColumnWidths[4])
	require.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.True(t, utf8.ValidString(line), "line split inside a rune: %q", line)
		assert.LessOrEqual(t, pdf.GetStringWidth(line), pdfColumnWidths[4]-2*pdfCellPadding)
	}
	assert.Equal(t, text, strings.Join(lines, ""))
}

func indexOf(items []string, want string) int {
	for i, item := range items {
		if item == want {
			return i
		}
	}
	return -1
}

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	parts := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		parts[f.Name] = body
	}
	return parts
}

// wellFormed decodes every token and returns the character data of all
// elements named local, in document order.
func wellFormed(t *testing.T, name string, data []byte, local string) []string {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(data))
	var (
		texts  []string
		inside bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return texts
		}
		require.NoError(t, err, "%s is not well-formed XML", name)

		switch el := tok.(type) {
		case xml.StartElement:
			inside = el.Name.Local == local
		case xml.EndElement:
			inside = false
		case xml.CharData:
			if inside {
				texts = append(texts, string(el))
			}
		}
	}
}

func TestDOCXRenderer(t *testing.T) {
	out, err := NewDOCXRenderer().Render(sampleReport(t))
	require.NoError(t, err)

	parts := readZip(t, out)
	for _, name := range []string{
		"[Content_Types].xml", "_rels/.rels", "docProps/core.xml",
		"word/document.xml", "word/styles.xml", "word/_rels/document.xml.rels",
	} {
		require.Contains(t, parts, name)
		wellFormed(t, name, parts[name], "")
	}

	texts := wellFormed(t, "document.xml", parts["word/document.xml"], "t")
	assert.Contains(t, texts, trickyURL)
	assert.Contains(t, texts, "Reported by <ops> & legal")
	assert.Contains(t, texts, "(02 June, 2025)")
	assert.Contains(t, texts, "Relevant Violation")
	assert.Contains(t, texts, "of IT Rules, 2021")

	doc := string(parts["word/document.xml"])
	assert.Equal(t, 3, strings.Count(doc, "<w:tbl>"), "one table per platform")
	assert.Less(t, strings.Index(doc, ">Twitter<"), strings.Index(doc, ">Facebook<"))
	assert.Less(t, strings.Index(doc, ">Facebook<"), strings.Index(doc, ">Telegram<"))

	var rels struct {
		Items []struct {
			ID     string `xml:"Id,attr"`
			Target string `xml:"Target,attr"`
			Mode   string `xml:"TargetMode,attr"`
		} `xml:"Relationship"`
	}
	require.NoError(t, xml.Unmarshal(parts["word/_rels/document.xml.rels"], &rels))
	require.Len(t, rels.Items, 5)
	assert.Equal(t, "styles.xml", rels.Items[0].Target)
	assert.Equal(t, trickyURL, rels.Items[1].Target)
	assert.Equal(t, "External", rels.Items[1].Mode)
}

func TestDOCXRenderer_Reproducible(t *testing.T) {
	r := NewDOCXRenderer()
	first, err := r.Render(sampleReport(t))
	require.NoError(t, err)
	second, err := r.Render(sampleReport(t))
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first, second), "DOCX output differs between identical renders")
}

func TestXLSXRenderer(t *testing.T) {
	out, err := NewXLSXRenderer().Render(sampleReport(t))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{xlsxSheet}, f.GetSheetList())

	title, err := f.GetCellValue(xlsxSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, testHeader.Title, title)

	// Rows: 1-2 title, 3 date, 4 blank, 5 platform, 6 header, 7 first record.
	platform, err := f.GetCellValue(xlsxSheet, "A5")
	require.NoError(t, err)
	assert.Equal(t, "Twitter", platform)

	url, err := f.GetCellValue(xlsxSheet, "B7")
	require.NoError(t, err)
	assert.Equal(t, trickyURL, url)

	ok, link, err := f.GetCellHyperLink(xlsxSheet, "B7")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, trickyURL, link)

	serial, err := f.GetCellValue(xlsxSheet, "A8")
	require.NoError(t, err)
	assert.Equal(t, "2", serial)
}

func TestBuilder_AllFormats(t *testing.T) {
	b := NewBuilder(testHeader)
	records := []Record{record(trickyURL, "Twitter")}

	for _, f := range []Format{FormatPDF, FormatDOCX, FormatXLSX} {
		out, err := b.Build(records, f, testGeneratedAt)
		require.NoError(t, err, f)
		assert.NotEmpty(t, out, f)
	}
}
