package docx

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// listGlyphs are the leading characters that make a plain paragraph read as
// a bullet even without numbering.
var listGlyphs = []string{"•", "-", "–", "·"}

type frame struct {
	name    string
	start   int
	zone    bool
	deleted bool
	nestedP bool
}

type fieldState struct {
	instr     strings.Builder
	separated bool
}

func (f *fieldState) hyperlink() bool {
	return f.separated && strings.Contains(strings.ToUpper(f.instr.String()), "HYPERLINK")
}

// scanner walks the primary part token by token, recording byte offsets of
// every paragraph and run. It tolerates any namespace prefix and only looks
// at local names.
type scanner struct {
	doc   *Document
	base  int
	stack []*frame

	block  *Block
	pDepth int
	nested int

	inParaProps bool
	hasNumPr    bool
	numID       string
	ilvl        string

	childStart int

	run        *Run
	rDepth     int
	inRunProps bool
	inText     bool
	inInstr    bool
	text       strings.Builder

	zones   int
	link    string
	deleted int
	fields  []*fieldState
}

func (d *Document) scan() error {
	body := d.part
	if bytes.HasPrefix(body, utf8BOM) {
		d.partOffset = len(utf8BOM)
		body = body[len(utf8BOM):]
	}

	s := &scanner{doc: d, base: d.partOffset}
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.Entity = map[string]string{}

	for {
		start := int(dec.InputOffset()) + s.base
		tok, err := dec.RawToken()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		end := int(dec.InputOffset()) + s.base

		switch t := tok.(type) {
		case xml.StartElement:
			s.startElement(t, start, end)
		case xml.EndElement:
			s.endElement(start, end)
		case xml.CharData:
			s.charData(t)
		}
	}
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func (s *scanner) startElement(t xml.StartElement, start, end int) {
	name := t.Name.Local
	f := &frame{name: name, start: start}
	s.stack = append(s.stack, f)
	depth := len(s.stack)

	if s.block == nil {
		if name == "p" {
			s.openParagraph(t, start, end, depth)
		}
		return
	}
	if s.nested > 0 || name == "p" {
		// Paragraphs inside text boxes belong to the run that hosts them.
		if name == "p" {
			f.nestedP = true
			s.nested++
		}
		return
	}

	if depth == s.pDepth+1 {
		s.childStart = len(s.block.Runs)
	}

	switch {
	case s.run != nil:
		s.runChild(t, depth)
	case s.inParaProps:
		switch name {
		case "numPr":
			s.hasNumPr = true
		case "numId":
			s.numID = attr(t, "val")
		case "ilvl":
			s.ilvl = attr(t, "val")
		case "pStyle":
			s.block.Style = attr(t, "val")
		}
	case name == "pPr" && depth == s.pDepth+1:
		s.inParaProps = true
	case name == "r":
		s.openRun(t, start, end, depth)
	case name == "hyperlink":
		f.zone = true
		s.zones++
		if id := attr(t, "id"); id != "" {
			s.link = s.doc.links[id]
		} else if anchor := attr(t, "anchor"); anchor != "" {
			s.link = "#" + anchor
		}
	case name == "fldSimple":
		instr := attr(t, "instr")
		if strings.Contains(strings.ToUpper(instr), "HYPERLINK") {
			f.zone = true
			s.zones++
			s.link = hyperlinkTarget(instr)
		}
	case name == "del" || name == "moveFrom":
		f.deleted = true
		s.deleted++
	}
}

func (s *scanner) openParagraph(t xml.StartElement, start, end, depth int) {
	s.block = &Block{
		start:     start,
		bodyStart: end,
		prefix:    t.Name.Space,
	}
	s.pDepth = depth
	s.inParaProps = false
	s.hasNumPr = false
	s.numID = ""
	s.ilvl = ""
	s.childStart = 0
}

func (s *scanner) openRun(t xml.StartElement, start, end, depth int) {
	r := &Run{
		start:        start,
		contentStart: end,
		open:         s.doc.part[start:end],
		prefix:       t.Name.Space,
		Hyperlink:    s.zones > 0,
		Embedded:     s.deleted > 0,
	}
	if r.Hyperlink {
		r.Link = s.link
	} else if link, ok := s.fieldLink(); ok {
		r.Hyperlink = true
		r.Link = link
	}
	s.run = r
	s.rDepth = depth
	s.inRunProps = false
	s.inText = false
	s.inInstr = false
	s.text.Reset()
}

// runChild classifies the direct children of a run. Anything that is not
// plain text, a tab or a line break makes the run embedded.
func (s *scanner) runChild(t xml.StartElement, depth int) {
	name := t.Name.Local
	if s.inRunProps {
		if name == "rStyle" {
			s.run.Style = attr(t, "val")
		}
		return
	}
	if depth != s.rDepth+1 {
		return
	}

	switch name {
	case "rPr":
		s.inRunProps = true
	case "t":
		s.inText = true
	case "tab", "ptab":
		s.text.WriteByte('\t')
	case "cr":
		s.text.WriteByte('\n')
	case "br":
		if typ := attr(t, "type"); typ == "" || typ == "textWrapping" {
			s.text.WriteByte('\n')
		} else {
			s.run.Embedded = true
		}
	case "noBreakHyphen":
		s.text.WriteByte('-')
	case "softHyphen", "lastRenderedPageBreak":
	case "fldChar":
		s.run.Embedded = true
		switch attr(t, "fldCharType") {
		case "begin":
			s.fields = append(s.fields, &fieldState{})
		case "separate":
			if n := len(s.fields); n > 0 {
				s.fields[n-1].separated = true
			}
		case "end":
			if n := len(s.fields); n > 0 {
				s.fields = s.fields[:n-1]
			}
		}
	case "instrText":
		s.run.Embedded = true
		s.inInstr = true
	default:
		s.run.Embedded = true
	}
}

func (s *scanner) charData(t xml.CharData) {
	if s.run == nil || s.nested > 0 {
		return
	}
	switch {
	case s.inText:
		s.text.Write(t)
	case s.inInstr:
		if n := len(s.fields); n > 0 {
			s.fields[n-1].instr.Write(t)
		}
	}
}

func (s *scanner) endElement(start, end int) {
	if len(s.stack) == 0 {
		return
	}
	depth := len(s.stack)
	f := s.stack[depth-1]
	s.stack = s.stack[:depth-1]

	if s.block == nil {
		return
	}
	if f.nestedP {
		s.nested--
		return
	}
	if s.nested > 0 {
		return
	}

	if s.run != nil {
		switch {
		case depth == s.rDepth:
			s.closeRun(start, end)
		case f.name == "rPr" && depth == s.rDepth+1:
			s.inRunProps = false
			s.run.props = s.doc.part[f.start:end]
			s.run.contentStart = end
		case f.name == "t" && depth == s.rDepth+1:
			s.inText = false
		case f.name == "instrText" && depth == s.rDepth+1:
			s.inInstr = false
		}
		if s.run != nil {
			return
		}
	}

	if f.name == "pPr" && depth == s.pDepth+1 {
		s.inParaProps = false
		s.block.bodyStart = end
	}
	if f.zone {
		s.zones--
		if s.zones == 0 {
			s.link = ""
		}
	}
	if f.deleted {
		s.deleted--
	}
	if depth == s.pDepth+1 {
		for _, r := range s.block.Runs[s.childStart:] {
			r.after = end
		}
	}
	if depth == s.pDepth {
		s.closeParagraph(start, end)
	}
}

func (s *scanner) closeRun(start, end int) {
	r := s.run
	r.end = end
	r.after = end
	r.contentEnd = start
	r.selfClosing = start == end
	if r.selfClosing {
		r.contentStart = end
		r.contentEnd = end
	}
	r.text = s.text.String()
	if !r.Hyperlink && s.doc.styles.IsHyperlinkStyle(r.Style) {
		r.Hyperlink = true
	}
	s.block.Runs = append(s.block.Runs, r)
	s.run = nil
	s.text.Reset()
}

func (s *scanner) closeParagraph(start, end int) {
	b := s.block
	b.end = end
	if start == end {
		// <w:p/> has no body; InsertRun callers are handled by the serializer.
		b.bodyStart = -1
	}
	b.Index = len(s.doc.Blocks)
	b.StyleName = s.doc.styles.Name(b.Style)

	if s.hasNumPr && s.numID != "" && s.numID != "0" {
		format := s.doc.numbering.Format(s.numID, s.ilvl)
		if format != "none" {
			b.IsList = true
			b.ListFormat = format
		}
	}
	if !b.IsList && s.doc.styles.IsListStyle(b.Style) {
		b.IsList = true
	}
	if !b.IsList {
		text := strings.TrimSpace(b.Text())
		for _, g := range listGlyphs {
			if strings.HasPrefix(text, g) {
				b.IsList = true
				break
			}
		}
	}

	s.doc.Blocks = append(s.doc.Blocks, b)
	s.block = nil
}

// fieldLink reports whether the scanner is inside the result of a complex
// HYPERLINK field, and the field's target if it can be read.
func (s *scanner) fieldLink() (string, bool) {
	for i := len(s.fields) - 1; i >= 0; i-- {
		if s.fields[i].hyperlink() {
			return hyperlinkTarget(s.fields[i].instr.String()), true
		}
	}
	return "", false
}

// hyperlinkTarget extracts the quoted target of a HYPERLINK field
// instruction, e.g. `HYPERLINK "https://x.dev" \o "tip"`.
func hyperlinkTarget(instr string) string {
	i := strings.Index(instr, `"`)
	if i < 0 {
		return ""
	}
	rest := instr[i+1:]
	if j := strings.Index(rest, `"`); j >= 0 {
		return rest[:j]
	}
	return ""
}
