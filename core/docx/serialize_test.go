package docx_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/resumetailor/core/docx"
	"github.com/FocuswithJustin/resumetailor/core/docx/docxtest"
)

func TestBytesUnmodifiedIsIdentity(t *testing.T) {
	data := docxtest.New().
		Heading("Experience").
		Bullet(docxtest.Bold("Led"), docxtest.R(" a team")).
		Part("word/media/image1.png", []byte{0x89, 'P', 'N', 'G'}).
		Build(t)

	doc, err := docx.Load(data)
	require.NoError(t, err)

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, out)
	assert.False(t, doc.Modified())
}

func TestSetTextRewritesOnlyThatRun(t *testing.T) {
	data := docxtest.New().
		Heading("Experience").
		Bullet(docxtest.Bold("Led"), docxtest.R(" a team of four")).
		Part("word/media/image1.png", []byte{0x89, 'P', 'N', 'G', 0, 1, 2}).
		Build(t)

	doc, err := docx.Load(data)
	require.NoError(t, err)
	doc.Blocks[1].Runs[1].SetText(" a team of 12 & <growing>")
	require.True(t, doc.Modified())

	out, err := doc.Bytes()
	require.NoError(t, err)

	before := docxtest.Entries(t, data)
	after := docxtest.Entries(t, out)
	require.Equal(t, len(before), len(after))
	for name, raw := range before {
		if name == docx.DocumentPart {
			continue
		}
		assert.Equal(t, raw, after[name], "entry %s changed", name)
	}

	part := docxtest.ReadPart(t, out, docx.DocumentPart)
	assert.Contains(t, part, `<w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Led</w:t>`)
	assert.Contains(t, part, "a team of 12 &amp; &lt;growing&gt;")
	assert.NotContains(t, part, "a team of four")

	reloaded, err := docx.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "Led a team of 12 & <growing>", reloaded.Blocks[1].Text())
	assert.True(t, reloaded.Blocks[1].IsList)
	assert.True(t, reloaded.Blocks[1].Runs[0].HasFormatting())
}

func TestSetTextTabsAndBreaks(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(docxtest.R("x")))
	doc.Blocks[0].Runs[0].SetText("a\tb\nc")

	out, err := doc.Bytes()
	require.NoError(t, err)
	part := docxtest.ReadPart(t, out, docx.DocumentPart)
	assert.Contains(t, part, `<w:t xml:space="preserve">a</w:t><w:tab/><w:t xml:space="preserve">b</w:t><w:br/>`)

	reloaded, err := docx.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "a\tb\nc", reloaded.Blocks[0].Text())
}

func TestSetTextEmptyRun(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(docxtest.R("keep"), docxtest.R(" drop")))
	doc.Blocks[0].Runs[1].SetText("")

	out, err := doc.Bytes()
	require.NoError(t, err)
	reloaded, err := docx.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "keep", reloaded.Blocks[0].Text())
	require.Len(t, reloaded.Blocks[0].Runs, 2)
}

func TestSetTextSelfClosingRun(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(`<w:r/>`))
	require.Len(t, doc.Blocks[0].Runs, 1)
	doc.Blocks[0].Runs[0].SetText("filled")

	out, err := doc.Bytes()
	require.NoError(t, err)
	reloaded, err := docx.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "filled", reloaded.Blocks[0].Text())
}

func TestInsertRun(t *testing.T) {
	tests := []struct {
		name  string
		build func(*docxtest.Builder) *docxtest.Builder
		at    int
		want  string
		list  bool
	}{
		{
			name:  "self-closing paragraph",
			build: func(b *docxtest.Builder) *docxtest.Builder { return b.Raw(`<w:p/>`) },
			want:  "new text",
		},
		{
			name: "paragraph with only properties",
			build: func(b *docxtest.Builder) *docxtest.Builder {
				return b.Raw(`<w:p><w:pPr><w:numPr><w:ilvl w:val="0"/><w:numId w:val="1"/></w:numPr></w:pPr></w:p>`)
			},
			want: "new text",
			list: true,
		},
		{
			name: "after a hyperlink",
			build: func(b *docxtest.Builder) *docxtest.Builder {
				return b.Hyperlink("rId9", "https://x.dev").Paragraph(docxtest.Link("rId9", docxtest.R("site")))
			},
			at:   1,
			want: "sitenew text",
		},
		{
			name: "before the first run",
			build: func(b *docxtest.Builder) *docxtest.Builder {
				return b.Paragraph(docxtest.R(" tail"))
			},
			want: "new text tail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := load(t, tt.build(docxtest.New()))
			b := doc.Blocks[0]
			r := b.InsertRun(tt.at, nil)
			r.SetText("new text")
			assert.True(t, r.Synthesized())
			assert.True(t, r.Editable())

			out, err := doc.Bytes()
			require.NoError(t, err)
			reloaded, err := docx.Load(out)
			require.NoError(t, err)
			require.Len(t, reloaded.Blocks, 1)
			assert.Equal(t, tt.want, reloaded.Blocks[0].Text())
			assert.Equal(t, tt.list, reloaded.Blocks[0].IsList)
			for _, run := range reloaded.Blocks[0].Runs {
				if run.Text() == "new text" {
					assert.False(t, run.Hyperlink, "synthesized run landed inside the hyperlink")
				}
			}
		})
	}
}

func TestInsertRunClonesFormatting(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(docxtest.Italic("first")))
	b := doc.Blocks[0]
	r := b.InsertRun(1, b.Runs[0])
	r.SetText(" second")
	assert.True(t, r.HasFormatting())

	out, err := doc.Bytes()
	require.NoError(t, err)
	part := docxtest.ReadPart(t, out, docx.DocumentPart)
	assert.Equal(t, 2, strings.Count(part, "<w:i/>"))
}

func TestCloneIsIndependent(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(docxtest.R("original")))
	c := doc.Clone()
	c.Blocks[0].Runs[0].SetText("changed")
	c.Blocks[0].MarkWritten()

	assert.Equal(t, "original", doc.Blocks[0].Text())
	assert.False(t, doc.Modified())
	assert.False(t, doc.Blocks[0].Written())
	assert.True(t, c.Modified())
	assert.Equal(t, doc.Fingerprint(), c.Fingerprint())
}

func TestMarkWritten(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(docxtest.R("x")))
	b := doc.Blocks[0]
	assert.True(t, b.MarkWritten())
	assert.False(t, b.MarkWritten())
	assert.True(t, b.Written())
}

func TestBytesWithBOM(t *testing.T) {
	doc := load(t, docxtest.New().BOM().Paragraph(docxtest.R("Hello")))
	doc.Blocks[0].Runs[0].SetText("Goodbye")

	out, err := doc.Bytes()
	require.NoError(t, err)
	part := docxtest.ReadPart(t, out, docx.DocumentPart)
	assert.True(t, strings.HasPrefix(part, "\uFEFF"))

	reloaded, err := docx.Load(out)
	require.NoError(t, err)
	assert.Equal(t, "Goodbye", reloaded.Blocks[0].Text())
}

func TestWriteFile(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(docxtest.R("x")))
	doc.Blocks[0].Runs[0].SetText("y")

	path := filepath.Join(t.TempDir(), "out.docx")
	require.NoError(t, doc.WriteFile(path))

	reloaded, err := docx.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "y", reloaded.Blocks[0].Text())
}
