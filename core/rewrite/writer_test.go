package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/resumetailor/core/docx"
	"github.com/FocuswithJustin/resumetailor/core/docx/docxtest"
	"github.com/FocuswithJustin/resumetailor/core/errors"
	"github.com/FocuswithJustin/resumetailor/core/sections"
)

func load(t *testing.T, b *docxtest.Builder) *docx.Document {
	t.Helper()
	doc, err := docx.Load(b.Build(t))
	require.NoError(t, err)
	sections.Label(doc, nil)
	return doc
}

func reload(t *testing.T, doc *docx.Document) *docx.Document {
	t.Helper()
	out, err := doc.Bytes()
	require.NoError(t, err)
	again, err := docx.Load(out)
	require.NoError(t, err)
	return again
}

func TestIsMarker(t *testing.T) {
	for _, s := range []string{"•", "• ", " - ", "–", "\t·", "▪ "} {
		assert.True(t, IsMarker(s), "%q", s)
	}
	for _, s := range []string{"", "•a", "Built", "1."} {
		assert.False(t, IsMarker(s), "%q", s)
	}
}

func TestMarkerPrefix(t *testing.T) {
	tests := []struct{ in, want string }{
		{"• Built tools", "• "},
		{"  – Led team", "  – "},
		{"Built tools", ""},
		{"-", "-"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MarkerPrefix(tt.in), "%q", tt.in)
	}
}

func TestDistribute(t *testing.T) {
	tests := []struct {
		name    string
		s       string
		weights []int
		want    []string
	}{
		{"even", "abcdefghij", []int{5, 5}, []string{"abcde", "fghij"}},
		{"proportional", "abcdefgh", []int{10, 30}, []string{"ab", "cdefgh"}},
		{"zero weights floored", "abc", []int{0, 0, 0}, []string{"a", "b", "c"}},
		{"short text", "ab", []int{1, 1, 1}, []string{"a", "b", ""}},
		{"empty text", "", []int{3, 4}, []string{"", ""}},
		{"single run", "anything at all", []int{2}, []string{"anything at all"}},
		{"runes not bytes", "héllo wörld", []int{1, 1}, []string{"héllo ", "wörld"}},
		{"no runs", "x", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distribute(tt.s, tt.weights)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, len(tt.weights))
		})
	}
}

func TestDistributeAlwaysConcatenates(t *testing.T) {
	text := "Engineered internal tooling in Python and SQL, improving throughput 30%."
	for _, weights := range [][]int{{1}, {3, 1}, {1, 99}, {7, 7, 7}, {0, 50, 0, 2}, {100, 1, 1, 1, 1, 1}} {
		parts := Distribute(text, weights)
		assert.Equal(t, text, strings.Join(parts, ""), "weights %v", weights)
	}
}

func TestApplySingleRun(t *testing.T) {
	doc := load(t, docxtest.New().
		Heading("Experience").
		Bullet(docxtest.R("Built internal tools using Python and SQL.")))
	b := doc.Blocks[1]

	after := "Engineered internal tooling in Python and SQL, improving throughput 30%."
	out, err := NewWriter().Apply(b, after)
	require.NoError(t, err)

	assert.Equal(t, after, b.Text())
	assert.Equal(t, "Built internal tools using Python and SQL.", out.Before)
	assert.Equal(t, after, out.After)
	assert.Empty(t, out.Prefix)
	assert.Equal(t, []int{0}, out.Runs)
	assert.False(t, out.Synthesized)

	assert.Equal(t, after, reload(t, doc).Blocks[1].Text())
}

func TestApplyKeepsMarkerRun(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(
		docxtest.R("• "),
		docxtest.R("Built tools"),
		docxtest.Bold(" for the data team"),
	))
	b := doc.Blocks[0]
	marker := b.Runs[0]

	out, err := NewWriter().Apply(b, "Shipped a metrics pipeline used by five teams")
	require.NoError(t, err)

	assert.Equal(t, "• ", marker.Text())
	assert.Equal(t, "• Shipped a metrics pipeline used by five teams", b.Text())
	assert.Equal(t, []int{1, 2}, out.Runs)

	again := reload(t, doc)
	require.Len(t, again.Blocks[0].Runs, 3)
	assert.Equal(t, "• ", again.Blocks[0].Runs[0].Text())
	assert.True(t, again.Blocks[0].Runs[2].HasFormatting(), "bold run lost its properties")
	assert.Equal(t, b.Text(), again.Blocks[0].Text())
}

func TestApplyPreservesInlinePrefix(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(docxtest.R("– Built tools")))
	b := doc.Blocks[0]

	out, err := NewWriter().Apply(b, "Built better tools")
	require.NoError(t, err)
	assert.Equal(t, "– ", out.Prefix)
	assert.Equal(t, "– Built better tools", b.Text())
}

func TestApplyStopsAtHyperlink(t *testing.T) {
	doc := load(t, docxtest.New().
		Hyperlink("rId7", "https://example.dev").
		Paragraph(docxtest.R("Portfolio at "), docxtest.Link("rId7", docxtest.R("example.dev")), docxtest.R(" and more")))
	b := doc.Blocks[0]

	_, err := NewWriter().Apply(b, "Work samples at ")
	require.NoError(t, err)

	assert.Equal(t, "Work samples at example.dev and more", b.Text())
	assert.Equal(t, "example.dev", b.Runs[1].Text())
	assert.Equal(t, " and more", b.Runs[2].Text())

	again := reload(t, doc)
	assert.True(t, again.Blocks[0].Runs[1].Hyperlink)
	assert.Equal(t, "example.dev", again.Blocks[0].Runs[1].Text())
	assert.Equal(t, "https://example.dev", again.Blocks[0].Runs[1].Link)
}

func TestApplySynthesizesRunBeforeLeadingHyperlink(t *testing.T) {
	doc := load(t, docxtest.New().
		Hyperlink("rId3", "https://github.com/jordan").
		Paragraph(docxtest.Link("rId3", docxtest.R("github.com/jordan"))))
	b := doc.Blocks[0]
	link := b.Runs[0]

	out, err := NewWriter().Apply(b, "Open source work: ")
	require.NoError(t, err)
	assert.True(t, out.Synthesized)
	assert.Equal(t, []int{0}, out.Runs)
	require.Len(t, b.Runs, 2)
	assert.Same(t, link, b.Runs[1])
	assert.Equal(t, "github.com/jordan", link.Text())

	again := reload(t, doc)
	runs := again.Blocks[0].Runs
	require.Len(t, runs, 2)
	assert.False(t, runs[0].Hyperlink)
	assert.Equal(t, "Open source work: ", runs[0].Text())
	assert.True(t, runs[1].Hyperlink)
	assert.Equal(t, "github.com/jordan", runs[1].Text())
}

func TestApplySynthesizesAfterMarker(t *testing.T) {
	doc := load(t, docxtest.New().
		Hyperlink("rId3", "https://x.dev").
		Paragraph(docxtest.Italic("• "), docxtest.Link("rId3", docxtest.R("x.dev"))))
	b := doc.Blocks[0]

	out, err := NewWriter().Apply(b, "Site: ")
	require.NoError(t, err)
	assert.True(t, out.Synthesized)
	assert.Equal(t, []int{1}, out.Runs)
	assert.Equal(t, "• Site: x.dev", b.Text())
	// The marker run is the only text-bearing editable run, so it is the template.
	assert.True(t, b.Runs[1].HasFormatting())

	again := reload(t, doc)
	assert.Equal(t, "• Site: x.dev", again.Blocks[0].Text())
	assert.True(t, again.Blocks[0].Runs[2].Hyperlink)
}

func TestApplyEmptyParagraph(t *testing.T) {
	doc := load(t, docxtest.New().Raw(`<w:p/>`))
	b := doc.Blocks[0]

	out, err := NewWriter().Apply(b, "Filled in")
	require.NoError(t, err)
	assert.True(t, out.Synthesized)
	assert.Equal(t, "Filled in", reload(t, doc).Blocks[0].Text())
}

func TestApplyStopsAtEmbeddedRun(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(docxtest.R("Logo"), docxtest.Drawing(), docxtest.R(" caption")))
	b := doc.Blocks[0]

	_, err := NewWriter().Apply(b, "Brand")
	require.NoError(t, err)
	assert.Equal(t, "Brand caption", b.Text())
	assert.Equal(t, " caption", b.Runs[2].Text())
}

func TestApplyTwiceIsInvariantViolation(t *testing.T) {
	doc := load(t, docxtest.New().Bullet(docxtest.R("Built tools")))
	w := NewWriter()

	_, err := w.Apply(doc.Blocks[0], "first")
	require.NoError(t, err)

	_, err = w.Apply(doc.Blocks[0], "second")
	require.Error(t, err)
	var ie *errors.InvariantError
	assert.True(t, errors.As(err, &ie))
	assert.True(t, errors.Is(err, errors.ErrInternal))
	assert.Equal(t, "first", doc.Blocks[0].Text())
}

func TestApplyProtectedIsInvariantViolation(t *testing.T) {
	doc := load(t, docxtest.New().
		Heading("Education").
		Bullet(docxtest.R("B.S. Computer Science, 2020")))

	_, err := NewWriter().Apply(doc.Blocks[1], "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInternal))
	assert.Equal(t, "B.S. Computer Science, 2020", doc.Blocks[1].Text())
	assert.False(t, doc.Modified())
}

func TestEditableSlice(t *testing.T) {
	doc := load(t, docxtest.New().
		Hyperlink("rId1", "https://x.dev").
		Paragraph(docxtest.R("• "), docxtest.R("a"), docxtest.R("b"), docxtest.Link("rId1", docxtest.R("c")), docxtest.R("d")).
		Paragraph(docxtest.Link("rId1", docxtest.R("c")), docxtest.R("d")).
		Paragraph(docxtest.R("plain")))

	tests := []struct {
		block    int
		start, n int
	}{
		{0, 1, 2},
		{1, 0, 0},
		{2, 0, 1},
	}
	for _, tt := range tests {
		start, n := EditableSlice(doc.Blocks[tt.block])
		assert.Equal(t, tt.start, start, "block %d start", tt.block)
		assert.Equal(t, tt.n, n, "block %d length", tt.block)
	}
}

func TestLead(t *testing.T) {
	doc := load(t, docxtest.New().
		Paragraph(docxtest.R("• "), docxtest.R("Built tools")).
		Paragraph(docxtest.R("– Built tools")).
		Paragraph(docxtest.R("• "), docxtest.R("- Built tools")).
		Paragraph(docxtest.R("Built tools")))

	want := []string{"• ", "– ", "• - ", ""}
	for i, w := range want {
		assert.Equal(t, w, Lead(doc.Blocks[i]), "block %d", i)
	}
}

func TestTail(t *testing.T) {
	doc := load(t, docxtest.New().
		Hyperlink("rId1", "https://x.dev").
		Paragraph(docxtest.R("Site "), docxtest.Link("rId1", docxtest.R("x.dev")), docxtest.R(" today")).
		Paragraph(docxtest.R("• "), docxtest.Link("rId1", docxtest.R("x.dev"))).
		Paragraph(docxtest.R("Logo"), docxtest.Drawing(), docxtest.R(" caption")).
		Paragraph(docxtest.R("plain")))

	want := []string{"x.dev today", "x.dev", " caption", ""}
	for i, w := range want {
		assert.Equal(t, w, Tail(doc.Blocks[i]), "block %d", i)
	}
}

func TestSplitTail(t *testing.T) {
	tests := []struct {
		name       string
		text, tail string
		want       string
		ok         bool
	}{
		{"no tail", "Built tools", "", "Built tools", true},
		{"kept link", "Jordan A. Example jordan.dev", "jordan.dev", "Jordan A. Example ", true},
		{"tail owns the space", "Logo Brand caption", " caption", "Logo Brand", true},
		{"normalized compare", "Site  x.dev   today", "x.dev today", "Site ", true},
		{"only the tail left", "jordan.dev", "jordan.dev", "", true},
		{"link text changed", "Jordan Example jordan.io", "jordan.dev", "Jordan Example jordan.io", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SplitTail(tt.text, tt.tail)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyAfterSplitTailKeepsLinkOnce(t *testing.T) {
	doc := load(t, docxtest.New().
		Hyperlink("rId7", "https://example.dev").
		Paragraph(docxtest.R("Portfolio at "), docxtest.Link("rId7", docxtest.R("example.dev")), docxtest.R(" and more")))
	b := doc.Blocks[0]

	head, ok := SplitTail("Work samples at example.dev and more", Tail(b))
	require.True(t, ok)
	_, err := NewWriter().Apply(b, head)
	require.NoError(t, err)
	assert.Equal(t, "Work samples at example.dev and more", reload(t, doc).Blocks[0].Text())
	assert.Equal(t, 1, strings.Count(b.Text(), "example.dev"))
}
