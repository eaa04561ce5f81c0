// Package docxtest builds small WordprocessingML containers for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/FocuswithJustin/resumetailor/core/encoding"
)

const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
const relNS = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"

// Numbering ids registered by the default numbering part.
const (
	BulletList  = "1"
	DecimalList = "2"
	NoneList    = "3"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const packageRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/></Relationships>`

const defaultNumbering = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:numbering xmlns:w="` + wordNS + `">` +
	`<w:abstractNum w:abstractNumId="10"><w:lvl w:ilvl="0"><w:numFmt w:val="bullet"/></w:lvl></w:abstractNum>` +
	`<w:abstractNum w:abstractNumId="20"><w:lvl w:ilvl="0"><w:numFmt w:val="decimal"/></w:lvl></w:abstractNum>` +
	`<w:abstractNum w:abstractNumId="30"><w:lvl w:ilvl="0"><w:numFmt w:val="none"/></w:lvl></w:abstractNum>` +
	`<w:num w:numId="1"><w:abstractNumId w:val="10"/></w:num>` +
	`<w:num w:numId="2"><w:abstractNumId w:val="20"/></w:num>` +
	`<w:num w:numId="3"><w:abstractNumId w:val="30"/></w:num>` +
	`</w:numbering>`

const defaultStyles = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="` + wordNS + `">` +
	`<w:style w:type="paragraph" w:styleId="Normal"><w:name w:val="Normal"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/><w:basedOn w:val="Normal"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="ListParagraph"><w:name w:val="List Paragraph"/><w:basedOn w:val="Normal"/></w:style>` +
	`<w:style w:type="paragraph" w:styleId="ResumeItem"><w:name w:val="Resume Item"/><w:basedOn w:val="ListParagraph"/></w:style>` +
	`<w:style w:type="character" w:styleId="Hyperlink"><w:name w:val="Hyperlink"/></w:style>` +
	`</w:styles>`

type entry struct {
	name string
	data []byte
}

// Builder assembles a document body paragraph by paragraph.
type Builder struct {
	body      strings.Builder
	styles    string
	numbering string
	links     map[string]string
	extra     map[string][]byte
	bom       bool
}

// New returns a builder with default styles and numbering parts.
func New() *Builder {
	return &Builder{
		styles:    defaultStyles,
		numbering: defaultNumbering,
		links:     map[string]string{},
		extra:     map[string][]byte{},
	}
}

// R renders a plain text run.
func R(text string) string {
	return `<w:r><w:t xml:space="preserve">` + encoding.EscapeXMLText(text) + `</w:t></w:r>`
}

// Bold renders a bold text run.
func Bold(text string) string {
	return `<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">` + encoding.EscapeXMLText(text) + `</w:t></w:r>`
}

// Italic renders an italic text run.
func Italic(text string) string {
	return `<w:r><w:rPr><w:i/></w:rPr><w:t xml:space="preserve">` + encoding.EscapeXMLText(text) + `</w:t></w:r>`
}

// Link renders a w:hyperlink around the given runs.
func Link(relID string, runs ...string) string {
	return `<w:hyperlink r:id="` + relID + `">` + strings.Join(runs, "") + `</w:hyperlink>`
}

// Drawing renders a run holding an inline image placeholder.
func Drawing() string {
	return `<w:r><w:drawing><wp:inline xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"/></w:drawing></w:r>`
}

// Paragraph appends a plain paragraph made of the given run markup.
func (b *Builder) Paragraph(runs ...string) *Builder {
	return b.Raw(`<w:p>` + strings.Join(runs, "") + `</w:p>`)
}

// Styled appends a paragraph with a paragraph style.
func (b *Builder) Styled(style string, runs ...string) *Builder {
	return b.Raw(`<w:p><w:pPr><w:pStyle w:val="` + style + `"/></w:pPr>` + strings.Join(runs, "") + `</w:p>`)
}

// Bullet appends a list paragraph using the default bullet numbering.
func (b *Builder) Bullet(runs ...string) *Builder {
	return b.Numbered(BulletList, runs...)
}

// Numbered appends a list paragraph using numbering instance numID.
func (b *Builder) Numbered(numID string, runs ...string) *Builder {
	return b.Raw(`<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="` + numID + `"/></w:numPr></w:pPr>` +
		strings.Join(runs, "") + `</w:p>`)
}

// Heading appends a Heading1 paragraph with a single run.
func (b *Builder) Heading(text string) *Builder {
	return b.Styled("Heading1", R(text))
}

// Raw appends body markup verbatim.
func (b *Builder) Raw(xml string) *Builder {
	b.body.WriteString(xml)
	return b
}

// Hyperlink registers an external hyperlink relationship.
func (b *Builder) Hyperlink(relID, target string) *Builder {
	b.links[relID] = target
	return b
}

// Styles replaces the styles part. An empty string omits it.
func (b *Builder) Styles(xml string) *Builder {
	b.styles = xml
	return b
}

// Numbering replaces the numbering part. An empty string omits it.
func (b *Builder) Numbering(xml string) *Builder {
	b.numbering = xml
	return b
}

// Part adds an extra container entry.
func (b *Builder) Part(name string, data []byte) *Builder {
	b.extra[name] = data
	return b
}

// BOM prefixes the primary part with a UTF-8 byte order mark.
func (b *Builder) BOM() *Builder {
	b.bom = true
	return b
}

// DocumentXML returns the primary part the builder would write.
func (b *Builder) DocumentXML() string {
	var sb strings.Builder
	if b.bom {
		sb.WriteString("\uFEFF")
	}
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	sb.WriteString(`<w:document xmlns:w="` + wordNS + `" xmlns:r="` + relNS + `"><w:body>`)
	sb.WriteString(b.body.String())
	sb.WriteString(`<w:sectPr/></w:body></w:document>`)
	return sb.String()
}

// Build encodes the container. Entry order is fixed so equal builders give
// equal bytes.
func (b *Builder) Build(tb testing.TB) []byte {
	tb.Helper()
	data, err := b.Encode()
	if err != nil {
		tb.Fatalf("docxtest: %v", err)
	}
	return data
}

// Encode is Build without a testing handle.
func (b *Builder) Encode() ([]byte, error) {
	parts := []entry{
		{"[Content_Types].xml", []byte(contentTypes)},
		{"_rels/.rels", []byte(packageRels)},
		{"word/document.xml", []byte(b.DocumentXML())},
	}
	if b.styles != "" {
		parts = append(parts, entry{"word/styles.xml", []byte(b.styles)})
	}
	if b.numbering != "" {
		parts = append(parts, entry{"word/numbering.xml", []byte(b.numbering)})
	}
	parts = append(parts, entry{"word/_rels/document.xml.rels", []byte(b.relationships())})

	names := make([]string, 0, len(b.extra))
	for name := range b.extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, entry{name, b.extra[name]})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Builder) relationships() string {
	ids := make([]string, 0, len(b.links))
	for id := range b.links {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	sb.WriteString(`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">`)
	for _, id := range ids {
		sb.WriteString(`<Relationship Id="` + id + `" Type="` + relNS + `/hyperlink" Target="` +
			encoding.EscapeXMLAttr(b.links[id]) + `" TargetMode="External"/>`)
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

// Entries returns the names and raw compressed bytes of every container
// entry, for byte-identity checks.
func Entries(tb testing.TB, data []byte) map[string][]byte {
	tb.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		tb.Fatalf("docxtest: %v", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.OpenRaw()
		if err != nil {
			tb.Fatalf("docxtest: open %s: %v", f.Name, err)
		}
		var b bytes.Buffer
		if _, err := b.ReadFrom(rc); err != nil {
			tb.Fatalf("docxtest: read %s: %v", f.Name, err)
		}
		out[f.Name] = b.Bytes()
	}
	return out
}

// ReadPart returns the decompressed bytes of one container entry.
func ReadPart(tb testing.TB, data []byte, name string) string {
	tb.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		tb.Fatalf("docxtest: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			tb.Fatalf("docxtest: open %s: %v", name, err)
		}
		defer rc.Close()
		var b bytes.Buffer
		if _, err := b.ReadFrom(rc); err != nil {
			tb.Fatalf("docxtest: read %s: %v", name, err)
		}
		return b.String()
	}
	tb.Fatalf("docxtest: no part %s", name)
	return ""
}
