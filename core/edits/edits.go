// Package edits turns edit records in any of their synonymous shapes into
// canonical before/after requests.
package edits

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Request is one canonical text replacement.
type Request struct {
	Before string `json:"original"`
	After  string `json:"rewritten"`
}

// Raw is an edit record as produced by a generator or a change log. Several
// fields carry the same meaning; Canonicalize resolves them.
type Raw struct {
	Original              string `json:"original,omitempty" yaml:"original,omitempty"`
	OriginalParagraphText string `json:"original_paragraph_text,omitempty" yaml:"original_paragraph_text,omitempty"`
	Anchor                string `json:"anchor,omitempty" yaml:"anchor,omitempty"`
	Rewritten             string `json:"rewritten,omitempty" yaml:"rewritten,omitempty"`
	ModifiedParagraphText string `json:"modified_paragraph_text,omitempty" yaml:"modified_paragraph_text,omitempty"`
	InsertedSentence      string `json:"inserted_sentence,omitempty" yaml:"inserted_sentence,omitempty"`
}

// Before resolves the "before" value: original, then
// original_paragraph_text, then anchor.
func (r Raw) Before() string {
	return first(r.Original, r.OriginalParagraphText, r.Anchor)
}

// After resolves the "after" value: rewritten, then
// modified_paragraph_text, then original with inserted_sentence appended.
func (r Raw) After() string {
	if s := first(r.Rewritten, r.ModifiedParagraphText); s != "" {
		return s
	}
	if strings.TrimSpace(r.InsertedSentence) == "" || strings.TrimSpace(r.Original) == "" {
		return ""
	}
	return strings.TrimSpace(r.Original) + " " + strings.TrimSpace(r.InsertedSentence)
}

func first(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Canonicalize resolves every record and drops the ones that cannot form a
// change: a missing before or after value, or a before that normalizes to
// the same text as its after. Input order is kept.
func Canonicalize(raw []Raw) []Request {
	out := make([]Request, 0, len(raw))
	for _, r := range raw {
		if req, ok := r.Request(); ok {
			out = append(out, req)
		}
	}
	return out
}

// Request resolves one record. ok is false when the record is discarded.
func (r Raw) Request() (Request, bool) {
	before, after := r.Before(), r.After()
	nb, na := Normalize(before), Normalize(after)
	if nb == "" || na == "" || nb == na {
		return Request{}, false
	}
	return Request{Before: before, After: after}, true
}

// FromRequest converts a canonical request back into a record.
func FromRequest(req Request) Raw {
	return Raw{Original: req.Before, Rewritten: req.After}
}

// Normalize prepares text for comparison: NFC composition, en and em dashes
// folded to '-', whitespace runs collapsed to one space, trimmed. Case is
// kept.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case r == '–' || r == '—':
			r = '-'
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}
