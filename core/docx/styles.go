package docx

import (
	"strings"

	"github.com/FocuswithJustin/resumetailor/core/xml"
)

// Auxiliary parts read for classification only. They are never rewritten.
const (
	StylesPart        = "word/styles.xml"
	NumberingPart     = "word/numbering.xml"
	RelationshipsPart = "word/_rels/document.xml.rels"
)

// maxStyleDepth bounds basedOn chains; cyclic style sheets exist in the wild.
const maxStyleDepth = 16

// Style is the subset of a style definition the loader needs.
type Style struct {
	ID      string
	Name    string
	Type    string
	BasedOn string
	NumID   string
}

// StyleSheet indexes word/styles.xml by style id.
type StyleSheet struct {
	styles map[string]Style
}

// ParseStyles reads a styles part. A nil or empty part yields an empty sheet.
func ParseStyles(data []byte) (*StyleSheet, error) {
	sheet := &StyleSheet{styles: make(map[string]Style)}
	if len(data) == 0 {
		return sheet, nil
	}

	doc, err := xml.Parse(data)
	if err != nil {
		return nil, err
	}
	nodes, err := doc.XPath("//" + xml.Local("style"))
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		s := Style{
			ID:   n.Attr("styleId"),
			Type: n.Attr("type"),
		}
		if s.ID == "" {
			continue
		}
		if name, _ := n.XPathFirst(xml.Local("name")); name != nil {
			s.Name = name.Attr("val")
		}
		if based, _ := n.XPathFirst(xml.Local("basedOn")); based != nil {
			s.BasedOn = based.Attr("val")
		}
		if num, _ := n.XPathFirst(xml.Local("pPr") + "/" + xml.Local("numPr") + "/" + xml.Local("numId")); num != nil {
			s.NumID = num.Attr("val")
		}
		sheet.styles[s.ID] = s
	}
	return sheet, nil
}

// Lookup returns the style with the given id.
func (s *StyleSheet) Lookup(id string) (Style, bool) {
	if s == nil {
		return Style{}, false
	}
	st, ok := s.styles[id]
	return st, ok
}

// Name returns the display name of a style id, falling back to the id.
func (s *StyleSheet) Name(id string) string {
	if st, ok := s.Lookup(id); ok && st.Name != "" {
		return st.Name
	}
	return id
}

// IsListStyle reports whether a paragraph style, or any style it is based
// on, is a list style by name or carries numbering.
func (s *StyleSheet) IsListStyle(id string) bool {
	for depth := 0; id != "" && depth < maxStyleDepth; depth++ {
		if listLikeName(id) {
			return true
		}
		st, ok := s.Lookup(id)
		if !ok {
			return false
		}
		if listLikeName(st.Name) {
			return true
		}
		if st.NumID != "" && st.NumID != "0" {
			return true
		}
		id = st.BasedOn
	}
	return false
}

// IsHyperlinkStyle reports whether a character style is a hyperlink style.
func (s *StyleSheet) IsHyperlinkStyle(id string) bool {
	for depth := 0; id != "" && depth < maxStyleDepth; depth++ {
		if strings.Contains(strings.ToLower(id), "hyperlink") {
			return true
		}
		st, ok := s.Lookup(id)
		if !ok {
			return false
		}
		if strings.Contains(strings.ToLower(st.Name), "hyperlink") {
			return true
		}
		id = st.BasedOn
	}
	return false
}

func listLikeName(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "list") || strings.Contains(n, "bullet") || strings.Contains(n, "number")
}

// Numbering maps numbering instances to level formats.
type Numbering struct {
	formats map[string]map[string]string // abstractNumId -> ilvl -> numFmt
	nums    map[string]string            // numId -> abstractNumId
}

// ParseNumbering reads a numbering part. A nil or empty part yields an
// empty table.
func ParseNumbering(data []byte) (*Numbering, error) {
	n := &Numbering{
		formats: make(map[string]map[string]string),
		nums:    make(map[string]string),
	}
	if len(data) == 0 {
		return n, nil
	}

	doc, err := xml.Parse(data)
	if err != nil {
		return nil, err
	}

	abstracts, err := doc.XPath("//" + xml.Local("abstractNum"))
	if err != nil {
		return nil, err
	}
	for _, a := range abstracts {
		id := a.Attr("abstractNumId")
		levels := make(map[string]string)
		lvls, _ := a.XPath(xml.Local("lvl"))
		for _, lvl := range lvls {
			if f, _ := lvl.XPathFirst(xml.Local("numFmt")); f != nil {
				levels[lvl.Attr("ilvl")] = f.Attr("val")
			}
		}
		n.formats[id] = levels
	}

	nums, err := doc.XPath("//" + xml.Local("num"))
	if err != nil {
		return nil, err
	}
	for _, num := range nums {
		if ref, _ := num.XPathFirst(xml.Local("abstractNumId")); ref != nil {
			n.nums[num.Attr("numId")] = ref.Attr("val")
		}
	}
	return n, nil
}

// Format returns the numFmt of a numbering instance at a level, or "" when
// the instance is unknown.
func (n *Numbering) Format(numID, ilvl string) string {
	if n == nil {
		return ""
	}
	if ilvl == "" {
		ilvl = "0"
	}
	abstract, ok := n.nums[numID]
	if !ok {
		return ""
	}
	return n.formats[abstract][ilvl]
}

// parseRelationships returns the hyperlink targets of the document part.
func parseRelationships(data []byte) (map[string]string, error) {
	links := make(map[string]string)
	if len(data) == 0 {
		return links, nil
	}
	doc, err := xml.Parse(data)
	if err != nil {
		return nil, err
	}
	rels, err := doc.XPath("//" + xml.Local("Relationship"))
	if err != nil {
		return nil, err
	}
	for _, rel := range rels {
		if strings.HasSuffix(rel.Attr("Type"), "/hyperlink") {
			links[rel.Attr("Id")] = rel.Attr("Target")
		}
	}
	return links, nil
}
