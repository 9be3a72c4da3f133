// Package tei parses TEI-P5-style canon XML documents.
//
// The whole buffer is parsed eagerly into a DOM; malformed input fails fast
// with a ParseError rather than blocking on trailing content. Rendering and
// extraction packages work directly on the xmlquery node tree this package
// exposes.
package tei

import (
	"bytes"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/FocuswithJustin/BodhiCanon/core/errors"
)

// Document represents a parsed canon XML document.
type Document struct {
	root *xmlquery.Node
}

// Parse parses XML data and returns a Document.
func Parse(data []byte) (*Document, error) {
	root, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, errors.NewParse("XML", "", err.Error())
	}
	return &Document{root: root}, nil
}

// Root returns the document node of the parsed tree.
func (d *Document) Root() *xmlquery.Node {
	return d.root
}

// Body returns the <body> element, or nil if the document has none.
func (d *Document) Body() *xmlquery.Node {
	return d.first("//body")
}

// Back returns the <back> element (variant-apparatus region), or nil.
func (d *Document) Back() *xmlquery.Node {
	return d.first("//back")
}

// Query executes an XPath query against the document. Element names match
// on local names, so namespaced documents query without prefixes.
func (d *Document) Query(expr string) ([]*xmlquery.Node, error) {
	if _, err := xpath.Compile(expr); err != nil {
		return nil, errors.Wrapf(err, "invalid xpath %q", expr)
	}
	nodes, err := xmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, errors.Wrapf(err, "xpath query %q failed", expr)
	}
	return nodes, nil
}

func (d *Document) first(expr string) *xmlquery.Node {
	node, err := xmlquery.Query(d.root, expr)
	if err != nil {
		return nil
	}
	return node
}

// LocalName returns the element's name without its namespace prefix.
func LocalName(n *xmlquery.Node) string {
	return n.Data
}

// Attr returns the value of an attribute. Prefixed names ("xml:id",
// "cb:type") match on both prefix and local part.
func Attr(n *xmlquery.Node, name string) string {
	return n.SelectAttr(name)
}

// AttrAny returns the first non-empty value among the given attribute
// names. Several attributes appear both plain and cb:-prefixed across
// document vintages.
func AttrAny(n *xmlquery.Node, names ...string) string {
	for _, name := range names {
		if v := n.SelectAttr(name); v != "" {
			return v
		}
	}
	return ""
}
