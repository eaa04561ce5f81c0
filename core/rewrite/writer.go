// Package rewrite replaces the text of a Block while keeping its run
// structure.
//
// New text is spread over the Block's editable runs in proportion to their
// original lengths. This is a layout heuristic: it keeps bold, italic and
// other run formatting in roughly the same place, it does not align
// formatting with meaning.
package rewrite

import (
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/FocuswithJustin/resumetailor/core/docx"
	"github.com/FocuswithJustin/resumetailor/core/edits"
	"github.com/FocuswithJustin/resumetailor/core/errors"
)

var (
	markerRunRE    = regexp.MustCompile(`^[\s\-‐‑‒–—−•·▪◦●]+$`)
	markerPrefixRE = regexp.MustCompile(`^[\s\-‐‑‒–—−•·▪◦●]+`)
)

// IsMarker reports whether s is non-empty and made only of whitespace,
// hyphen variants and bullet glyphs.
func IsMarker(s string) bool {
	return markerRunRE.MatchString(s)
}

// MarkerPrefix returns the leading whitespace, hyphen and bullet glyphs of s.
func MarkerPrefix(s string) string {
	return markerPrefixRE.FindString(s)
}

// Outcome describes one applied rewrite.
type Outcome struct {
	Block int
	// Before and After are the Block's full text around the rewrite.
	Before string
	After  string
	// Prefix is the marker text kept in front of the new text.
	Prefix string
	// Runs are the indices, after any insertion, of the runs that received
	// text.
	Runs []int
	// Synthesized is set when a new run had to be created.
	Synthesized bool
}

// Writer applies rewrites. It keeps no state between calls; the
// written-once rule is tracked on each Block.
type Writer struct{}

// NewWriter returns a Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// EditableSlice returns the index of the first editable run and the length
// of the editable slice. A leading run made only of marker glyphs is
// skipped. The slice then runs up to the first hyperlink or embedded run.
func EditableSlice(b *docx.Block) (start, n int) {
	if len(b.Runs) > 0 && b.Runs[0].Editable() && IsMarker(b.Runs[0].Text()) {
		start = 1
	}
	for i := start; i < len(b.Runs) && b.Runs[i].Editable(); i++ {
		n++
	}
	return start, n
}

// Lead returns the text Apply keeps in front of new text: a skipped marker
// run followed by the marker prefix of the first editable run.
func Lead(b *docx.Block) string {
	start, n := EditableSlice(b)
	lead := ""
	if start > 0 {
		lead = b.Runs[0].Text()
	}
	if n > 0 {
		lead += MarkerPrefix(b.Runs[start].Text())
	}
	return lead
}

// Tail returns the text Apply never touches at the end of b: the first
// hyperlink or embedded run and every run after it.
func Tail(b *docx.Block) string {
	start, n := EditableSlice(b)
	var sb strings.Builder
	for _, r := range b.Runs[start+n:] {
		sb.WriteString(r.Text())
	}
	return sb.String()
}

// SplitTail removes tail from the end of text, comparing normalized forms.
// It returns the remaining head and false when text no longer ends with
// tail. A tail that starts with whitespace takes the separating space with
// it.
func SplitTail(text, tail string) (string, bool) {
	t := edits.Normalize(tail)
	if t == "" {
		return text, true
	}
	text = edits.Normalize(text)
	if !strings.HasSuffix(text, t) {
		return text, false
	}
	head := strings.TrimSuffix(text, t)
	if r, _ := utf8.DecodeRuneInString(tail); unicode.IsSpace(r) {
		head = strings.TrimRightFunc(head, unicode.IsSpace)
	}
	return head, true
}

// Apply rewrites b so its editable runs carry newText, preceded by any
// marker prefix of the first editable run. Runs outside the editable slice
// are never touched. Applying to the same Block twice, or to a protected
// Block, is an invariant violation.
func (w *Writer) Apply(b *docx.Block, newText string) (Outcome, error) {
	if b.Protected {
		return Outcome{}, errors.NewInvariant("protected-block", "block %d is in protected section %q", b.Index, b.Section)
	}
	if !b.MarkWritten() {
		return Outcome{}, errors.NewInvariant("write-once", "block %d already rewritten in this pass", b.Index)
	}

	out := Outcome{Block: b.Index, Before: b.Text()}

	start, n := EditableSlice(b)
	if n == 0 {
		b.InsertRun(start, template(b))
		n = 1
		out.Synthesized = true
	}
	runs := b.Runs[start : start+n]

	out.Prefix = MarkerPrefix(runs[0].Text())
	combined := out.Prefix + newText

	weights := make([]int, len(runs))
	for i, r := range runs {
		weights[i] = utf8.RuneCountInString(r.Text())
	}
	for i, part := range Distribute(combined, weights) {
		runs[i].SetText(part)
		out.Runs = append(out.Runs, start+i)
	}

	out.After = b.Text()
	return out, nil
}

// template picks the run whose formatting a synthesized run copies: the
// first editable run with visible text. Hyperlink runs are passed over so
// the new run does not inherit a hyperlink character style.
func template(b *docx.Block) *docx.Run {
	for _, r := range b.Runs {
		if r.Editable() && r.Text() != "" {
			return r
		}
	}
	return nil
}

// Distribute splits s into len(weights) contiguous pieces. Each weight is
// floored at 1. Every piece but the last gets its proportional share of the
// characters, rounded; the last gets the exact remainder, so the pieces
// always concatenate back to s.
func Distribute(s string, weights []int) []string {
	if len(weights) == 0 {
		return nil
	}
	runes := []rune(s)
	total := 0
	for _, w := range weights {
		total += max(w, 1)
	}

	parts := make([]string, len(weights))
	pos := 0
	for i, w := range weights {
		if i == len(weights)-1 {
			parts[i] = string(runes[pos:])
			break
		}
		share := int(math.Round(float64(len(runes)) * float64(max(w, 1)) / float64(total)))
		share = min(share, len(runes)-pos)
		parts[i] = string(runes[pos : pos+share])
		pos += share
	}
	return parts
}
