// Package extract derives the auxiliary record streams from a parsed
// document and its traversal result: variant-reading apparatus, annotations,
// and table-of-contents entries. All extractors are read-only and tolerate
// zero matches.
package extract

import (
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/BodhiCanon/core/gaiji"
	"github.com/FocuswithJustin/BodhiCanon/core/render"
	"github.com/FocuswithJustin/BodhiCanon/core/tei"
)

// Apparatus builds the variant-reading records for one document. The back
// region is the authoritative source when present; its groups carry explicit
// anchor references into the body. Documents without a back region fall back
// to the inline groups collected during the main traversal.
func Apparatus(doc *tei.Document, table *gaiji.Table, res *render.Result) []render.Apparatus {
	back := doc.Back()
	if back == nil {
		return res.InlineApps
	}

	var apps []render.Apparatus
	for _, n := range elements(back, "app") {
		lineID := anchorLine(tei.Attr(n, "from"))
		chapter := chapterFor(res, lineID)

		var lemma string
		var readings []render.Reading
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			switch tei.LocalName(c) {
			case "lem":
				if lemma == "" {
					lemma = render.PlainText(table, c)
				}
			case "rdg":
				readings = append(readings, render.Reading{
					Witness: tei.Attr(c, "wit"),
					Text:    render.PlainText(table, c),
				})
			}
		}

		apps = append(apps, render.Apparatus{
			Chapter:  chapter,
			LineID:   lineID,
			Lemma:    lemma,
			Readings: readings,
		})
	}
	return apps
}

// Annotations filters the traversal's annotation stream down to entries
// with actual text. Empty notes are structural residue, not annotations.
func Annotations(res *render.Result) []render.Annotation {
	var out []render.Annotation
	for _, a := range res.Annotations {
		if a.Text != "" {
			out = append(out, a)
		}
	}
	return out
}

// TOC returns the traversal's table-of-contents stream. Entries already
// carry their depth and document order; hierarchy is implicit.
func TOC(res *render.Result) []render.TOCEntry {
	return res.TOC
}

// anchorLine normalizes a back-region anchor reference to the line-marker
// id it points at: "#beg0848c07" refers to the span beginning at line
// 0848c07.
func anchorLine(ref string) string {
	ref = strings.TrimPrefix(ref, "#")
	ref = strings.TrimPrefix(ref, "beg")
	return ref
}

// chapterFor resolves a line id to its chapter. An id that never appeared
// as a marker (anchors can point between lines) falls back to the nearest
// preceding marker: line ids within one volume sort lexicographically in
// document order.
func chapterFor(res *render.Result, lineID string) int {
	if ch, ok := res.LineChapter(lineID); ok {
		return ch
	}
	chapter := 1
	for _, l := range res.Lines {
		if l.ID <= lineID {
			chapter = l.Chapter
		} else {
			break
		}
	}
	return chapter
}

// elements collects descendant elements with the given local name in
// document order.
func elements(n *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	var walk func(*xmlquery.Node)
	walk = func(cur *xmlquery.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != xmlquery.ElementNode {
				continue
			}
			if tei.LocalName(c) == name {
				out = append(out, c)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return out
}
