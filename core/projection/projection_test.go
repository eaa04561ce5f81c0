package projection

import (
	"testing"

	"github.com/FocuswithJustin/resumetailor/core/docx"
	"github.com/FocuswithJustin/resumetailor/core/docx/docxtest"
	"github.com/FocuswithJustin/resumetailor/core/sections"
)

func labeled(t *testing.T) *docx.Document {
	t.Helper()
	doc, err := docx.Load(docxtest.New().
		Paragraph(docxtest.R("Jordan Example")).
		Heading("Experience").
		Paragraph(docxtest.R("Acme Corp")).
		Bullet(docxtest.R("Built internal tools using Python and SQL.")).
		Bullet(docxtest.Bold("Led"), docxtest.R(" a team of four.")).
		Heading("Education").
		Bullet(docxtest.R("B.S. Computer Science, 2020")).
		Heading("References").
		Paragraph(docxtest.R("Available on request")).
		Build(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sections.Label(doc, nil)
	return doc
}

func TestBullets(t *testing.T) {
	got := Bullets(labeled(t))
	want := []string{
		"Built internal tools using Python and SQL.",
		"Led a team of four.",
	}
	if len(got) != len(want) {
		t.Fatalf("Bullets() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Bullets()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLinearize(t *testing.T) {
	got := Linearize(labeled(t))
	want := []string{
		"Jordan Example",
		"Experience",
		"Acme Corp",
		"• Built internal tools using Python and SQL.",
		"• Led a team of four.",
		"Education",
		"B.S. Computer Science, 2020",
		"References",
		"Available on request",
	}
	if len(got) != len(want) {
		t.Fatalf("Linearize() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Linearize()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestText(t *testing.T) {
	if got := Text([]string{"a", "b"}); got != "a\nb" {
		t.Errorf("Text() = %q", got)
	}
	if got := Text(nil); got != "" {
		t.Errorf("Text(nil) = %q", got)
	}
}

func TestProjectionIsPure(t *testing.T) {
	doc := labeled(t)
	before := Text(Linearize(doc))
	_ = Bullets(doc)
	if after := Text(Linearize(doc)); after != before {
		t.Error("projection changed the document")
	}
	if doc.Modified() {
		t.Error("projection marked the document modified")
	}
}
