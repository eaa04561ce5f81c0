package liveedit

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Summary describes how one Block's text changed.
type Summary struct {
	Inserted []string `json:"inserted,omitempty"`
	Removed  []string `json:"removed,omitempty"`
	// Distance is the Levenshtein distance in characters.
	Distance int `json:"distance"`

	diffs []diffmatchpatch.Diff
}

// Delta diffs before against after at word-friendly granularity.
func Delta(before, after string) Summary {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	s := Summary{Distance: dmp.DiffLevenshtein(diffs), diffs: diffs}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			s.Inserted = append(s.Inserted, d.Text)
		case diffmatchpatch.DiffDelete:
			s.Removed = append(s.Removed, d.Text)
		}
	}
	return s
}

// Unchanged reports whether the texts were identical.
func (s Summary) Unchanged() bool {
	return len(s.Inserted) == 0 && len(s.Removed) == 0
}

// Inline renders the change with [-removed-] and {+inserted+} markers.
func (s Summary) Inline() string {
	var b strings.Builder
	for _, d := range s.diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
