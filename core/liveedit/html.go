package liveedit

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/FocuswithJustin/resumetailor/core/errors"
	"github.com/FocuswithJustin/resumetailor/core/rewrite"
)

// Attribute names carried by the rendered view.
const (
	AttrBlockID     = "data-block-id"
	AttrIndex       = "data-index"
	AttrSection     = "data-section"
	AttrFingerprint = "data-fingerprint"
)

// HTML renders the session as one editable element per Block. Hyperlinks
// are rendered as anchors, also in edited Blocks whose text still ends with
// them. Protected Blocks are rendered read-only.
func (s *Session) HTML(w io.Writer) error {
	s.mu.RLock()
	root := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "class", Val: "resume"},
			{Key: AttrFingerprint, Val: s.fingerprint},
		},
	}
	for _, e := range s.entries {
		root.AppendChild(renderEntry(e))
	}
	s.mu.RUnlock()

	if err := html.Render(w, root); err != nil {
		return errors.NewIO("render", "html", err)
	}
	return nil
}

func renderEntry(e *Entry) *html.Node {
	class := "block"
	switch {
	case e.Header:
		class += " header"
	case e.List:
		class += " list"
	}
	if e.Protected {
		class += " protected"
	}
	editable := "true"
	if e.Protected {
		editable = "false"
	}

	n := &html.Node{
		Type:     html.ElementNode,
		Data:     "p",
		DataAtom: atom.P,
		Attr: []html.Attribute{
			{Key: AttrBlockID, Val: e.ID},
			{Key: AttrIndex, Val: strconv.Itoa(e.Block)},
			{Key: "class", Val: class},
			{Key: "contenteditable", Val: editable},
		},
	}
	if e.Section != "" {
		n.Attr = append(n.Attr, html.Attribute{Key: AttrSection, Val: string(e.Section)})
	}

	spans := e.runs
	if e.Current != e.Original {
		// Keep the hyperlink and trailing runs as long as the edited text
		// still ends with them.
		var tail strings.Builder
		for _, sp := range e.runs[e.tailAt:] {
			tail.WriteString(sp.text)
		}
		head, ok := rewrite.SplitTail(e.Current, tail.String())
		if !ok {
			appendText(n, e.Current)
			return n
		}
		appendText(n, head)
		spans = e.runs[e.tailAt:]
	}
	appendSpans(n, spans)
	return n
}

func appendSpans(n *html.Node, spans []span) {
	for _, sp := range spans {
		if !sp.live || sp.text == "" {
			continue
		}
		if sp.link == "" {
			appendText(n, sp.text)
			continue
		}
		a := &html.Node{
			Type:     html.ElementNode,
			Data:     "a",
			DataAtom: atom.A,
			Attr:     []html.Attribute{{Key: "href", Val: sp.link}},
		}
		appendText(a, sp.text)
		n.AppendChild(a)
	}
}

// appendText adds text to n, turning line breaks into <br>.
func appendText(n *html.Node, text string) {
	for i, line := range strings.Split(text, "\n") {
		if i > 0 {
			n.AppendChild(&html.Node{Type: html.ElementNode, Data: "br", DataAtom: atom.Br})
		}
		if line != "" {
			n.AppendChild(&html.Node{Type: html.TextNode, Data: line})
		}
	}
}

// ApplyHTML reads an edited rendering back and updates every Block it
// contains. Ids are checked before anything is updated, so an unknown id
// leaves the session untouched. It returns the number of Blocks whose
// current text changed.
func (s *Session) ApplyHTML(r io.Reader) (int, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return 0, &errors.ParseError{Format: "html", Message: "unreadable edit view", Err: err}
	}

	type update struct{ id, text string }
	var updates []update
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if id := attr(n, AttrBlockID); id != "" {
				updates = append(updates, update{id: id, text: textContent(n)})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, u := range updates {
		if _, ok := s.Entry(u.id); !ok {
			return 0, errors.NewNotFound("block", u.id)
		}
	}

	changed := 0
	for _, u := range updates {
		before, _ := s.Entry(u.id)
		if err := s.Update(u.id, u.text); err != nil {
			return changed, err
		}
		after, _ := s.Entry(u.id)
		if after.Current != before.Current {
			changed++
		}
	}
	return changed, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent flattens an element the way an editing surface shows it:
// <br> and nested block elements become line breaks.
func textContent(n *html.Node) string {
	var b strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Br:
				b.WriteByte('\n')
				return
			case atom.Div, atom.P, atom.Li:
				if b.Len() > 0 {
					b.WriteByte('\n')
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		f(c)
	}
	return b.String()
}
