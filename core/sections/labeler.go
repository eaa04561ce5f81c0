package sections

import (
	"strings"
	"unicode/utf8"

	"github.com/FocuswithJustin/resumetailor/core/docx"
)

// Labeler is the forward-only section scanner. Its only state is the section
// of the last header seen.
type Labeler struct {
	dict    *Dictionary
	current Tag
}

// NewLabeler returns a labeler with no current section. A nil dictionary
// selects DefaultDictionary.
func NewLabeler(dict *Dictionary) *Labeler {
	if dict == nil {
		dict = DefaultDictionary()
	}
	return &Labeler{dict: dict}
}

// Current returns the section subsequent body Blocks will be tagged with.
func (l *Labeler) Current() Tag {
	return l.current
}

// Reset clears the current section.
func (l *Labeler) Reset() {
	l.current = ""
}

// Step labels one Block and advances the state. A short non-list Block whose
// normalized text names a section becomes a header and switches the current
// section; any other Block inherits the current section.
func (l *Labeler) Step(b *docx.Block) {
	b.Header = false
	if tag, ok := l.header(b); ok {
		l.current = tag
		b.Header = true
	}
	b.Section = l.current
	b.Protected = l.current != "" && l.dict.Protected(l.current)
}

func (l *Labeler) header(b *docx.Block) (Tag, bool) {
	if b.IsList {
		return "", false
	}
	text := strings.TrimSpace(b.Text())
	if text == "" || utf8.RuneCountInString(text) > l.dict.HeaderMaxLen() {
		return "", false
	}
	return l.dict.Lookup(text)
}

// Label resets the labeler and steps through every Block of doc in order.
func (l *Labeler) Label(doc *docx.Document) {
	l.Reset()
	for _, b := range doc.Blocks {
		l.Step(b)
	}
}

// Label tags doc using dict.
func Label(doc *docx.Document, dict *Dictionary) {
	NewLabeler(dict).Label(doc)
}

// Range is a run of consecutive Blocks under one section. End is exclusive.
type Range struct {
	Section Tag
	Start   int
	End     int
}

// Ranges groups the Blocks of a labeled document into section ranges. Each
// range starts at a header Block; Blocks before the first header form an
// untagged leading range.
func Ranges(doc *docx.Document) []Range {
	var out []Range
	for i, b := range doc.Blocks {
		if i == 0 || b.Header {
			if n := len(out); n > 0 {
				out[n-1].End = i
			}
			out = append(out, Range{Section: b.Section, Start: i})
		}
	}
	if n := len(out); n > 0 {
		out[n-1].End = len(doc.Blocks)
	}
	return out
}
