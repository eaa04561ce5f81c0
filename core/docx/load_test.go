package docx_test

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FocuswithJustin/resumetailor/core/docx"
	"github.com/FocuswithJustin/resumetailor/core/docx/docxtest"
	"github.com/FocuswithJustin/resumetailor/core/errors"
)

func load(t *testing.T, b *docxtest.Builder) *docx.Document {
	t.Helper()
	doc, err := docx.Load(b.Build(t))
	require.NoError(t, err)
	return doc
}

func TestLoadClassifiesLists(t *testing.T) {
	doc := load(t, docxtest.New().
		Heading("Experience").
		Bullet(docxtest.R("Built a cache")).
		Numbered(docxtest.DecimalList, docxtest.R("Step one")).
		Numbered(docxtest.NoneList, docxtest.R("Not a list")).
		Styled("ResumeItem", docxtest.R("Styled item")).
		Paragraph(docxtest.R("• Glyph item")).
		Paragraph(docxtest.R("Plain prose")))

	require.Len(t, doc.Blocks, 7)

	tests := []struct {
		idx    int
		text   string
		list   bool
		format string
	}{
		{0, "Experience", false, ""},
		{1, "Built a cache", true, "bullet"},
		{2, "Step one", true, "decimal"},
		{3, "Not a list", false, ""},
		{4, "Styled item", true, ""},
		{5, "• Glyph item", true, ""},
		{6, "Plain prose", false, ""},
	}
	for _, tt := range tests {
		b := doc.Blocks[tt.idx]
		assert.Equal(t, tt.idx, b.Index)
		assert.Equal(t, tt.text, b.Text(), "block %d", tt.idx)
		assert.Equal(t, tt.list, b.IsList, "block %d IsList", tt.idx)
		assert.Equal(t, tt.format, b.ListFormat, "block %d ListFormat", tt.idx)
	}
	assert.Equal(t, "Heading1", doc.Blocks[0].Style)
	assert.Equal(t, "heading 1", doc.Blocks[0].StyleName)
}

func TestLoadListWithoutAuxiliaryParts(t *testing.T) {
	doc := load(t, docxtest.New().
		Styles("").
		Numbering("").
		Bullet(docxtest.R("Numbered but unknown")).
		Styled("ListBullet", docxtest.R("Named list style")))

	require.Len(t, doc.Blocks, 2)
	// Unknown numbering still counts: numId is non-zero and no format says "none".
	assert.True(t, doc.Blocks[0].IsList)
	assert.True(t, doc.Blocks[1].IsList)
}

func TestLoadHyperlinkZones(t *testing.T) {
	doc := load(t, docxtest.New().
		Hyperlink("rId5", "https://example.dev").
		Paragraph(docxtest.R("See "), docxtest.Link("rId5", docxtest.R("portfolio")), docxtest.R(" online")).
		Paragraph(`<w:r><w:rPr><w:rStyle w:val="Hyperlink"/></w:rPr><w:t>styled</w:t></w:r>`).
		Paragraph(`<w:fldSimple w:instr=" HYPERLINK &quot;https://simple.dev&quot; ">` + docxtest.R("simple") + `</w:fldSimple>`))

	require.Len(t, doc.Blocks, 3)

	runs := doc.Blocks[0].Runs
	require.Len(t, runs, 3)
	assert.False(t, runs[0].Hyperlink)
	assert.True(t, runs[1].Hyperlink)
	assert.Equal(t, "https://example.dev", runs[1].Link)
	assert.False(t, runs[2].Hyperlink)
	assert.Equal(t, "See portfolio online", doc.Blocks[0].Text())

	require.Len(t, doc.Blocks[1].Runs, 1)
	assert.True(t, doc.Blocks[1].Runs[0].Hyperlink)
	assert.False(t, doc.Blocks[1].Runs[0].Editable())

	require.Len(t, doc.Blocks[2].Runs, 1)
	assert.True(t, doc.Blocks[2].Runs[0].Hyperlink)
	assert.Equal(t, "https://simple.dev", doc.Blocks[2].Runs[0].Link)

	assert.Equal(t, map[string]string{"rId5": "https://example.dev"}, doc.Links())
}

func TestLoadComplexFieldHyperlink(t *testing.T) {
	doc := load(t, docxtest.New().Paragraph(
		docxtest.R("Repo: "),
		`<w:r><w:fldChar w:fldCharType="begin"/></w:r>`,
		`<w:r><w:instrText xml:space="preserve"> HYPERLINK "https://git.dev/x" </w:instrText></w:r>`,
		`<w:r><w:fldChar w:fldCharType="separate"/></w:r>`,
		docxtest.R("git.dev/x"),
		`<w:r><w:fldChar w:fldCharType="end"/></w:r>`,
		docxtest.R(" today"),
	))

	runs := doc.Blocks[0].Runs
	require.Len(t, runs, 7)
	assert.True(t, runs[0].Editable())
	for _, i := range []int{1, 2, 3, 5} {
		assert.True(t, runs[i].Embedded, "run %d", i)
	}
	assert.True(t, runs[4].Hyperlink)
	assert.Equal(t, "https://git.dev/x", runs[4].Link)
	assert.True(t, runs[6].Editable())
	assert.Equal(t, "Repo: git.dev/x today", doc.Blocks[0].Text())
}

func TestLoadEmbeddedAndSpecialContent(t *testing.T) {
	doc := load(t, docxtest.New().
		Paragraph(docxtest.R("Logo"), docxtest.Drawing()).
		Paragraph(`<w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r>`).
		Paragraph(`<w:del w:id="1" w:author="x">` + `<w:r><w:delText>gone</w:delText></w:r>` + `</w:del>` + docxtest.R("kept")).
		Paragraph(`<w:r><w:t>Outer</w:t></w:r><w:r><w:pict xmlns:v="urn:schemas-microsoft-com:vml"><v:textbox><w:txbxContent><w:p><w:r><w:t>Inner</w:t></w:r></w:p></w:txbxContent></v:textbox></w:pict></w:r>`).
		Paragraph(`<w:r><w:br w:type="page"/></w:r>`))

	require.Len(t, doc.Blocks, 5)

	assert.True(t, doc.Blocks[0].Runs[1].Embedded)
	assert.Equal(t, "Logo", doc.Blocks[0].Text())

	assert.Equal(t, "a\tb\nc", doc.Blocks[1].Text())
	assert.True(t, doc.Blocks[1].Runs[0].Editable())

	assert.True(t, doc.Blocks[2].Runs[0].Embedded)
	assert.Equal(t, "kept", doc.Blocks[2].Text())

	require.Len(t, doc.Blocks[3].Runs, 2)
	assert.Equal(t, "Outer", doc.Blocks[3].Text())
	assert.True(t, doc.Blocks[3].Runs[1].Embedded)

	assert.True(t, doc.Blocks[4].Runs[0].Embedded)
}

func TestLoadDeterministic(t *testing.T) {
	data := docxtest.New().
		Heading("Skills").
		Bullet(docxtest.R("Go"), docxtest.Bold(" and Rust")).
		Build(t)

	a, err := docx.Load(data)
	require.NoError(t, err)
	b, err := docx.Load(data)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Len(t, a.Fingerprint(), 64)
	require.Equal(t, len(a.Blocks), len(b.Blocks))
	for i := range a.Blocks {
		assert.Equal(t, a.Blocks[i].Text(), b.Blocks[i].Text())
		assert.Equal(t, a.Blocks[i].IsList, b.Blocks[i].IsList)
		assert.Equal(t, len(a.Blocks[i].Runs), len(b.Blocks[i].Runs))
	}
}

func TestLoadWithBOM(t *testing.T) {
	doc := load(t, docxtest.New().BOM().Paragraph(docxtest.R("Hello")))
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, "Hello", doc.Blocks[0].Text())
}

func zipWith(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a zip", []byte("plain text, not a container")},
		{"empty input", nil},
		{"missing primary part", zipWith(t, map[string]string{"word/styles.xml": "<w:styles/>"})},
		{"empty primary part", zipWith(t, map[string]string{docx.DocumentPart: "  "})},
		{"malformed primary part", zipWith(t, map[string]string{docx.DocumentPart: "<w:document><w:body></w:document>"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := docx.Load(tt.data)
			require.Error(t, err)
			var pe *errors.ParseError
			assert.True(t, errors.As(err, &pe), "want ParseError, got %T", err)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput))
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := docx.LoadFile(t.TempDir() + "/nope.docx")
	require.Error(t, err)
	var ioe *errors.IOError
	assert.True(t, errors.As(err, &ioe))
}
