// Package xml provides XPath access to the auxiliary XML parts of a container
// (styles, numbering, relationships) and a well-formedness check for parts the
// engine writes back.
//
// Security Notes:
//   - XXE (External Entity) attacks are mitigated by using Go's xml.Decoder
//     which doesn't fetch external entities by default, and we explicitly
//     disable entity expansion in Validate.
//   - The xmlquery library is used for parsing, which uses Go's encoding/xml
//     internally and inherits its security properties.
//
// Queries should use local-name() tests (or the Local helper) rather than
// namespace prefixes, since producers are free to bind WordprocessingML to any
// prefix.
package xml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

// Document represents a parsed XML document.
type Document struct {
	root *xmlquery.Node
}

// Node represents an XML node (element, text, attribute, etc.).
type Node struct {
	node *xmlquery.Node
}

// ValidationResult contains the result of XML validation.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError represents a single validation error.
type ValidationError struct {
	Offset  int64
	Message string
}

// Parse parses XML data and returns a Document.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	return &Document{root: root}, nil
}

// Validate checks that data is well-formed XML.
//
// Security: entity expansion is disabled, so a hostile part cannot expand
// into an XXE or billion-laughs payload while being checked.
func Validate(data []byte) ValidationResult {
	result := ValidationResult{Valid: true}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.Entity = map[string]string{}

	for {
		_, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, ValidationError{
				Offset:  decoder.InputOffset(),
				Message: err.Error(),
			})
			break
		}
	}

	return result
}

// Local returns an XPath step matching elements by local name regardless of
// namespace prefix, e.g. Local("style") == "*[local-name()='style']".
func Local(name string) string {
	return "*[local-name()='" + name + "']"
}

// XPath executes an XPath query and returns matching nodes.
func (d *Document) XPath(expr string) ([]*Node, error) {
	if d == nil || d.root == nil {
		return nil, nil
	}
	return queryAll(d.root, expr)
}

// XPathFirst executes an XPath query and returns the first matching node.
func (d *Document) XPathFirst(expr string) (*Node, error) {
	if d == nil || d.root == nil {
		return nil, nil
	}
	return queryFirst(d.root, expr)
}

// XPath executes a query relative to this node.
func (n *Node) XPath(expr string) ([]*Node, error) {
	if n == nil || n.node == nil {
		return nil, nil
	}
	return queryAll(n.node, expr)
}

// XPathFirst executes a query relative to this node and returns the first match.
func (n *Node) XPathFirst(expr string) (*Node, error) {
	if n == nil || n.node == nil {
		return nil, nil
	}
	return queryFirst(n.node, expr)
}

func queryAll(top *xmlquery.Node, expr string) ([]*Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}
	nodes := xmlquery.QuerySelectorAll(top, compiled)
	result := make([]*Node, len(nodes))
	for i, n := range nodes {
		result[i] = &Node{node: n}
	}
	return result, nil
}

func queryFirst(top *xmlquery.Node, expr string) (*Node, error) {
	compiled, err := xpath.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath: %w", err)
	}
	node := xmlquery.QuerySelector(top, compiled)
	if node == nil {
		return nil, nil
	}
	return &Node{node: node}, nil
}

// Attr returns the value of the attribute with the given local name,
// ignoring its namespace prefix. Missing attributes yield "".
func (n *Node) Attr(local string) string {
	if n == nil || n.node == nil {
		return ""
	}
	for _, attr := range n.node.Attr {
		if attr.Name.Local == local {
			return attr.Value
		}
	}
	return ""
}
