package render

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/BodhiCanon/core/gaiji"
	"github.com/FocuswithJustin/BodhiCanon/core/tei"
)

// plainSkip lists element kinds whose subtree never contributes to plain
// text: annotations, variant alternates, structural markers, and the header
// regions that can leak into a careless walk.
var plainSkip = map[string]bool{
	"note":      true,
	"rdg":       true,
	"mulu":      true,
	"anchor":    true,
	"back":      true,
	"teiHeader": true,
	"charDecl":  true,
	"lb":        true,
	"pb":        true,
	"milestone": true,
	"sic":       true,
	"orig":      true,
	"figure":    true,
	"graphic":   true,
}

// PlainText extracts the searchable text of a subtree: escape references
// resolved, annotations and variant alternates excluded, spacing markers
// turned into ideographic spaces. The skip rules apply to descendants, not
// to n itself, so the text of a note or rdg node can be extracted by
// calling PlainText on it directly.
func PlainText(table *gaiji.Table, n *xmlquery.Node) string {
	var sb strings.Builder
	plainInto(&sb, table, n)
	return strings.TrimSpace(sb.String())
}

func plainInto(sb *strings.Builder, table *gaiji.Table, n *xmlquery.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			sb.WriteString(cleanText(c.Data))
		case xmlquery.ElementNode:
			name := tei.LocalName(c)
			switch {
			case name == "g":
				sb.WriteString(table.Resolve(tei.Attr(c, "ref")))
			case name == "space":
				sb.WriteString(spaceRun(c))
			case name == "caesura":
				sb.WriteString("　")
			case plainSkip[name]:
			default:
				plainInto(sb, table, c)
			}
		}
	}
}

// spaceRun expands a <space> marker into its declared quantity of
// ideographic spaces.
func spaceRun(n *xmlquery.Node) string {
	count := 1
	if q := tei.Attr(n, "quantity"); q != "" {
		if v, err := strconv.Atoi(q); err == nil && v > 0 {
			count = v
		}
	}
	return strings.Repeat("　", count)
}

// cleanText collapses whitespace runs (indentation, newlines between
// elements) into single spaces; whitespace-only text vanishes.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
