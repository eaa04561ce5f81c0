// Package projection turns a labeled document into plain text for the
// generation and scoring collaborators.
package projection

import (
	"strings"

	"github.com/FocuswithJustin/resumetailor/core/docx"
)

// BulletMarker prefixes rewritable list Blocks in Linearize output.
const BulletMarker = "• "

// Rewritable reports whether b is a list Block outside every protected
// section. These are the Blocks the generation step is asked to improve.
func Rewritable(b *docx.Block) bool {
	return b.IsList && !b.Protected
}

// Bullets returns the text of every rewritable list Block in document order.
// Headers, prose and protected content are left out.
func Bullets(doc *docx.Document) []string {
	var out []string
	for _, b := range doc.Blocks {
		if Rewritable(b) {
			out = append(out, b.Text())
		}
	}
	return out
}

// Linearize returns one line per Block. Rewritable list Blocks carry
// BulletMarker; every other Block, protected list Blocks included, is
// emitted as is.
func Linearize(doc *docx.Document) []string {
	out := make([]string, 0, len(doc.Blocks))
	for _, b := range doc.Blocks {
		if Rewritable(b) {
			out = append(out, BulletMarker+b.Text())
			continue
		}
		out = append(out, b.Text())
	}
	return out
}

// Text joins projected lines with newlines.
func Text(lines []string) string {
	return strings.Join(lines, "\n")
}
