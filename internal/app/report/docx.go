package report

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	nsWordMain = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsDocRels  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPkgRels  = "http://schemas.openxmlformats.org/package/2006/relationships"

	relTypeHyperlink = nsDocRels + "/hyperlink"
	relTypeStyles    = nsDocRels + "/styles"

	xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// Column widths in twentieths of a point, matching the PDF layout.
var docxColumnWidths = [5]int{700, 3600, 2300, 1800, 1600}

// DOCXRenderer writes a WordprocessingML package with one table per
// platform section.
type DOCXRenderer struct{}

func NewDOCXRenderer() *DOCXRenderer {
	return &DOCXRenderer{}
}

func (*DOCXRenderer) Format() Format {
	return FormatDOCX
}

func (*DOCXRenderer) Render(rep *Report) ([]byte, error) {
	rels := &docxRels{}
	rels.add(relTypeStyles, "styles.xml", false)

	document := renderDocumentXML(rep, rels)

	parts := []struct {
		name string
		body string
	}{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxPackageRels},
		{"docProps/core.xml", renderCoreXML(rep)},
		{"word/document.xml", document},
		{"word/styles.xml", docxStyles},
		{"word/_rels/document.xml.rels", rels.xml()},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: rep.GeneratedAt,
		})
		if err != nil {
			return nil, fmt.Errorf("docx: create %s: %w", p.name, err)
		}
		if _, err := fw.Write([]byte(p.body)); err != nil {
			return nil, fmt.Errorf("docx: write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("docx: close package: %w", err)
	}
	return buf.Bytes(), nil
}

type docxRel struct {
	id       string
	relType  string
	target   string
	external bool
}

type docxRels struct {
	items []docxRel
}

// add registers a relationship and returns its id. Ids follow insertion
// order so the package is reproducible.
func (r *docxRels) add(relType, target string, external bool) string {
	id := "rId" + strconv.Itoa(len(r.items)+1)
	r.items = append(r.items, docxRel{id: id, relType: relType, target: target, external: external})
	return id
}

func (r *docxRels) xml() string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<Relationships xmlns="` + nsPkgRels + `">`)
	for _, rel := range r.items {
		fmt.Fprintf(&b, `<Relationship Id="%s" Type="%s" Target="%s"`, rel.id, rel.relType, escapeXML(rel.target))
		if rel.external {
			b.WriteString(` TargetMode="External"`)
		}
		b.WriteString(`/>`)
	}
	b.WriteString(`</Relationships>`)
	return b.String()
}

func renderDocumentXML(rep *Report, rels *docxRels) string {
	var b strings.Builder
	b.WriteString(xmlHeader)
	b.WriteString(`<w:document xmlns:w="` + nsWordMain + `" xmlns:r="` + nsDocRels + `"><w:body>`)

	for _, line := range []string{rep.Title, rep.Subtitle} {
		if line != "" {
			b.WriteString(`<w:p><w:pPr><w:pStyle w:val="Heading1"/><w:jc w:val="center"/></w:pPr>`)
			writeRun(&b, "", line)
			b.WriteString(`</w:p>`)
		}
	}
	b.WriteString(`<w:p><w:pPr><w:jc w:val="center"/></w:pPr>`)
	writeRun(&b, "", rep.DateLine)
	b.WriteString(`</w:p><w:p/>`)

	for _, s := range rep.Sections {
		b.WriteString(`<w:p><w:pPr><w:spacing w:after="120"/></w:pPr>`)
		writeRun(&b, `<w:b/><w:color w:val="002147"/><w:sz w:val="26"/>`, s.Platform)
		b.WriteString(`</w:p>`)
		writeTable(&b, s, rels)
		b.WriteString(`<w:p/>`)
	}

	b.WriteString(`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1200" w:right="720" w:bottom="800" w:left="720" w:header="708" w:footer="708" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`)
	return b.String()
}

func writeTable(b *strings.Builder, s Section, rels *docxRels) {
	b.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/>` +
		`<w:tblLook w:val="04A0" w:firstRow="1" w:lastRow="0" w:firstColumn="1" w:lastColumn="0" w:noHBand="0" w:noVBand="1"/></w:tblPr>`)
	b.WriteString(`<w:tblGrid>`)
	for _, w := range docxColumnWidths {
		fmt.Fprintf(b, `<w:gridCol w:w="%d"/>`, w)
	}
	b.WriteString(`</w:tblGrid>`)

	b.WriteString(`<w:tr><w:trPr><w:tblHeader/></w:trPr>`)
	for i, label := range Columns {
		openCell(b, i, "DCE6F1")
		for j, line := range strings.Split(label, "\n") {
			if j > 0 {
				b.WriteString(`<w:r><w:br/></w:r>`)
			}
			writeRun(b, `<w:b/>`, line)
		}
		b.WriteString(`</w:p></w:tc>`)
	}
	b.WriteString(`</w:tr>`)

	for _, row := range s.Rows {
		b.WriteString(`<w:tr>`)

		openCell(b, 0, "")
		writeRun(b, "", strconv.Itoa(row.SerialNo))
		b.WriteString(`</w:p></w:tc>`)

		openCell(b, 1, "")
		id := rels.add(relTypeHyperlink, row.URL, true)
		fmt.Fprintf(b, `<w:hyperlink r:id="%s" w:history="1">`, id)
		writeRun(b, `<w:rStyle w:val="Hyperlink"/><w:color w:val="0000FF"/><w:u w:val="single"/>`, row.URL)
		b.WriteString(`</w:hyperlink></w:p></w:tc>`)

		for i, v := range []string{row.RuleViolation, row.ActionStatus, row.Comments} {
			openCell(b, i+2, "")
			if v != "" {
				writeRun(b, "", v)
			}
			b.WriteString(`</w:p></w:tc>`)
		}

		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
}

// openCell starts a table cell and its paragraph; the caller closes both.
func openCell(b *strings.Builder, col int, shade string) {
	fmt.Fprintf(b, `<w:tc><w:tcPr><w:tcW w:w="%d" w:type="dxa"/>`, docxColumnWidths[col])
	if shade != "" {
		fmt.Fprintf(b, `<w:shd w:val="clear" w:color="auto" w:fill="%s"/>`, shade)
	}
	b.WriteString(`</w:tcPr><w:p>`)
}

func writeRun(b *strings.Builder, props, text string) {
	b.WriteString(`<w:r>`)
	if props != "" {
		b.WriteString(`<w:rPr>` + props + `</w:rPr>`)
	}
	b.WriteString(`<w:t xml:space="preserve">` + escapeXML(text) + `</w:t></w:r>`)
}

func renderCoreXML(rep *Report) string {
	created := rep.GeneratedAt.UTC().Format(time.RFC3339)
	return xmlHeader +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/"` +
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:title>` + escapeXML(rep.Title) + `</dc:title>` +
		`<dc:creator>` + escapeXML(rep.Author) + `</dc:creator>` +
		`<dcterms:created xsi:type="dcterms:W3CDTF">` + created + `</dcterms:created>` +
		`<dcterms:modified xsi:type="dcterms:W3CDTF">` + created + `</dcterms:modified>` +
		`</cp:coreProperties>`
}

// escapeXML escapes text for use in element content or a quoted attribute.
// Characters not allowed in XML are replaced with U+FFFD.
func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

const docxContentTypes = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`</Types>`

const docxPackageRels = xmlHeader +
	`<Relationships xmlns="` + nsPkgRels + `">` +
	`<Relationship Id="rId1" Type="` + nsDocRels + `/officeDocument" Target="word/document.xml"/>` +
	`<Relationship Id="rId2" Type="` + nsPkgRels + `/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

const docxBorder = `w:val="single" w:sz="4" w:space="0" w:color="808080"`

const docxStyles = xmlHeader +
	`<w:styles xmlns:w="` + nsWordMain + `">` +
	`<w:docDefaults><w:rPrDefault><w:rPr><w:rFonts w:ascii="Calibri" w:hAnsi="Calibri" w:eastAsia="Calibri" w:cs="Calibri"/>` +
	`<w:sz w:val="20"/><w:szCs w:val="20"/></w:rPr></w:rPrDefault>` +
	`<w:pPrDefault><w:pPr><w:spacing w:after="80" w:line="259" w:lineRule="auto"/></w:pPr></w:pPrDefault></w:docDefaults>` +
	`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/>` +
	`<w:pPr><w:keepNext/><w:spacing w:before="240" w:after="120"/><w:outlineLvl w:val="0"/></w:pPr>` +
	`<w:rPr><w:b/><w:color w:val="002147"/><w:sz w:val="32"/><w:szCs w:val="32"/></w:rPr></w:style>` +
	`<w:style w:type="character" w:styleId="Hyperlink"><w:name w:val="Hyperlink"/><w:rPr><w:color w:val="0000FF"/><w:u w:val="single"/></w:rPr></w:style>` +
	`<w:style w:type="table" w:default="1" w:styleId="TableNormal"><w:name w:val="Normal Table"/>` +
	`<w:tblPr><w:tblInd w:w="0" w:type="dxa"/><w:tblCellMar><w:top w:w="0" w:type="dxa"/><w:left w:w="108" w:type="dxa"/>` +
	`<w:bottom w:w="0" w:type="dxa"/><w:right w:w="108" w:type="dxa"/></w:tblCellMar></w:tblPr></w:style>` +
	`<w:style w:type="table" w:styleId="TableGrid"><w:name w:val="Table Grid"/><w:basedOn w:val="TableNormal"/>` +
	`<w:pPr><w:spacing w:after="0" w:line="240" w:lineRule="auto"/></w:pPr>` +
	`<w:tblPr><w:tblBorders><w:top ` + docxBorder + `/><w:left ` + docxBorder + `/><w:bottom ` + docxBorder + `/>` +
	`<w:right ` + docxBorder + `/><w:insideH ` + docxBorder + `/><w:insideV ` + docxBorder + `/></w:tblBorders></w:tblPr></w:style>` +
	`</w:styles>`
