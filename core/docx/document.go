// Package docx loads a WordprocessingML container into an arena of Blocks and
// Runs and writes it back.
//
// The loader never rebuilds XML. Every Run remembers the byte span of its
// content inside word/document.xml, and the serializer splices new content
// into exactly those spans. Everything else in the container (other parts,
// formatting properties, numbering, relationships, media) is reproduced
// byte for byte.
package docx

import (
	"strings"
)

// Section is the canonical header a Block sits under. The zero value means
// no recognised header has been seen yet.
type Section string

// Document is one loaded container. It is built once per patch pass, mutated
// in place and serialized once. It is not safe for concurrent mutation.
type Document struct {
	// Blocks holds every paragraph of the primary part in document order.
	Blocks []*Block

	source      []byte
	part        []byte
	partOffset  int
	fingerprint string
	styles      *StyleSheet
	numbering   *Numbering
	links       map[string]string
}

// Block is one paragraph or list item.
type Block struct {
	// Index is the block's ordinal position in Document.Blocks.
	Index int
	// Runs are the text-bearing spans of the paragraph in order.
	Runs []*Run
	// IsList marks bullet and numbered paragraphs.
	IsList bool
	// ListFormat is the numbering format of a numbered paragraph ("bullet",
	// "decimal", ...); empty for glyph or style based lists.
	ListFormat string
	// Style is the paragraph style id, StyleName its display name.
	Style     string
	StyleName string

	// Section, Header and Protected are filled in by the section labeler.
	Section   Section
	Header    bool
	Protected bool

	start     int
	end       int
	bodyStart int
	prefix    string
	written   bool
}

// Run is a span of text with one formatting identity. Only the text may
// change; formatting is cloned from raw bytes and never interpreted.
type Run struct {
	// Hyperlink marks runs inside a hyperlink zone. They are never rewritten.
	Hyperlink bool
	// Embedded marks runs that carry non-text content (drawings, field
	// codes, footnote references, deleted text). They are never rewritten.
	Embedded bool
	// Style is the character style id, if any.
	Style string
	// Link is the hyperlink target for hyperlink runs, when one is known.
	Link string

	text string

	start        int
	end          int
	contentStart int
	contentEnd   int
	after        int
	open         []byte
	props        []byte
	prefix       string
	selfClosing  bool

	dirty       bool
	synthesized bool
	insertAt    int
}

// Fingerprint returns the BLAKE3 hash of the container bytes the document
// was loaded from, hex encoded.
func (d *Document) Fingerprint() string {
	return d.fingerprint
}

// Links returns the hyperlink relationship targets keyed by relationship id.
func (d *Document) Links() map[string]string {
	out := make(map[string]string, len(d.links))
	for k, v := range d.links {
		out[k] = v
	}
	return out
}

// Modified reports whether any run text differs from the loaded bytes.
func (d *Document) Modified() bool {
	for _, b := range d.Blocks {
		for _, r := range b.Runs {
			if r.dirty || r.synthesized {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of the block/run arena. The copy shares the
// immutable source bytes, so cloning is cheap and mutations of either copy
// do not affect the other.
func (d *Document) Clone() *Document {
	c := *d
	c.Blocks = make([]*Block, len(d.Blocks))
	for i, b := range d.Blocks {
		nb := *b
		nb.Runs = make([]*Run, len(b.Runs))
		for j, r := range b.Runs {
			nr := *r
			nb.Runs[j] = &nr
		}
		c.Blocks[i] = &nb
	}
	c.links = d.Links()
	return &c
}

// Text returns the concatenation of the block's run texts.
func (b *Block) Text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.text)
	}
	return sb.String()
}

// Written reports whether the block has been rewritten in this pass.
func (b *Block) Written() bool {
	return b.written
}

// MarkWritten records that the block was rewritten. It returns false if the
// block had already been marked.
func (b *Block) MarkWritten() bool {
	if b.written {
		return false
	}
	b.written = true
	return true
}

// InsertRun synthesizes a new plain run at position at in b.Runs, cloning
// the formatting of template when template is non-nil. The run is placed in
// the XML directly after the run at position at-1, or at the start of the
// paragraph body when at is 0.
func (b *Block) InsertRun(at int, template *Run) *Run {
	if at < 0 {
		at = 0
	}
	if at > len(b.Runs) {
		at = len(b.Runs)
	}

	r := &Run{
		synthesized: true,
		prefix:      b.prefix,
		insertAt:    b.bodyStart,
	}
	if at > 0 {
		r.insertAt = b.Runs[at-1].after
	}
	if template != nil {
		r.props = append([]byte(nil), template.props...)
		r.Style = template.Style
		if template.prefix != "" {
			r.prefix = template.prefix
		}
	}

	b.Runs = append(b.Runs, nil)
	copy(b.Runs[at+1:], b.Runs[at:])
	b.Runs[at] = r
	return r
}

// Text returns the run's text. Tabs and breaks appear as '\t' and '\n'.
func (r *Run) Text() string {
	return r.text
}

// SetText replaces the run's text. Formatting is untouched.
func (r *Run) SetText(s string) {
	if s == r.text && !r.synthesized {
		return
	}
	r.text = s
	r.dirty = true
}

// Editable reports whether the writer may change this run.
func (r *Run) Editable() bool {
	return !r.Hyperlink && !r.Embedded
}

// Synthesized reports whether the run was created by InsertRun.
func (r *Run) Synthesized() bool {
	return r.synthesized
}

// HasFormatting reports whether the run carries its own run properties.
func (r *Run) HasFormatting() bool {
	return len(r.props) > 0
}
