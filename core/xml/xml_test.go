package xml

import (
	"testing"
)

const stylesPart = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:style w:type="paragraph" w:styleId="ListBullet">
    <w:name w:val="List Bullet"/>
    <w:pPr><w:numPr><w:numId w:val="3"/></w:numPr></w:pPr>
  </w:style>
  <w:style w:type="character" w:styleId="Hyperlink">
    <w:name w:val="Hyperlink"/>
  </w:style>
</w:styles>`

func TestParseValidXML(t *testing.T) {
	doc, err := Parse([]byte(stylesPart))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	styles, err := doc.XPath("/" + Local("styles"))
	if err != nil {
		t.Fatalf("XPath failed: %v", err)
	}
	if len(styles) != 1 {
		t.Fatalf("got %d root elements, want 1", len(styles))
	}
	children, err := styles[0].XPath(Local("style"))
	if err != nil {
		t.Fatalf("XPath failed: %v", err)
	}
	if len(children) != 2 {
		t.Errorf("got %d style children, want 2", len(children))
	}
}

func TestParseInvalidXML(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"unclosed tag", "<root><element></root>"},
		{"mismatched tags", "<root></other>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.xml)); err == nil {
				t.Error("Parse should fail for invalid XML")
			}
		})
	}
}

func TestXPathByLocalName(t *testing.T) {
	doc, err := Parse([]byte(stylesPart))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	nodes, err := doc.XPath("//" + Local("style"))
	if err != nil {
		t.Fatalf("XPath failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d styles, want 2", len(nodes))
	}
	if got := nodes[0].Attr("styleId"); got != "ListBullet" {
		t.Errorf("Attr(styleId) = %q, want ListBullet", got)
	}
	if got := nodes[0].Attr("missing"); got != "" {
		t.Errorf("Attr(missing) = %q, want empty", got)
	}

	name, err := nodes[0].XPathFirst(Local("name"))
	if err != nil {
		t.Fatalf("XPathFirst failed: %v", err)
	}
	if got := name.Attr("val"); got != "List Bullet" {
		t.Errorf("name val = %q, want List Bullet", got)
	}

	numPr, err := nodes[0].XPath(".//" + Local("numPr"))
	if err != nil {
		t.Fatalf("XPath failed: %v", err)
	}
	if len(numPr) != 1 {
		t.Errorf("got %d numPr, want 1", len(numPr))
	}
}

func TestXPathFirstNotFound(t *testing.T) {
	doc, err := Parse([]byte(stylesPart))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	node, err := doc.XPathFirst("//" + Local("latentStyles"))
	if err != nil {
		t.Fatalf("XPathFirst failed: %v", err)
	}
	if node != nil {
		t.Errorf("XPathFirst = %v, want nil", node)
	}
	if node.Attr("val") != "" {
		t.Error("nil node Attr should return empty")
	}
}

func TestXPathInvalidExpression(t *testing.T) {
	doc, err := Parse([]byte(stylesPart))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := doc.XPath("//[["); err == nil {
		t.Error("XPath should fail for an invalid expression")
	}
	if _, err := doc.XPathFirst("//[["); err == nil {
		t.Error("XPathFirst should fail for an invalid expression")
	}
}

func TestNilDocument(t *testing.T) {
	var doc *Document
	if first, err := doc.XPathFirst("//a"); err != nil || first != nil {
		t.Errorf("nil document XPathFirst = %v, %v", first, err)
	}
	nodes, err := doc.XPath("//a")
	if err != nil || nodes != nil {
		t.Errorf("nil document XPath = %v, %v", nodes, err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		xml   string
		valid bool
	}{
		{"well formed", stylesPart, true},
		{"unclosed", "<w:p><w:r></w:p>", false},
		{"undeclared entity", "<a>&custom;</a>", false},
		{"predefined entity", "<a>R&amp;D</a>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate([]byte(tt.xml))
			if result.Valid != tt.valid {
				t.Errorf("Validate().Valid = %v, want %v (%v)", result.Valid, tt.valid, result.Errors)
			}
			if !tt.valid && len(result.Errors) == 0 {
				t.Error("invalid input should report an error")
			}
		})
	}
}
