package render

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/BodhiCanon/core/gaiji"
	"github.com/FocuswithJustin/BodhiCanon/core/tei"
	"github.com/FocuswithJustin/BodhiCanon/internal/logging"
)

// Segment walks a document body and splits it into chapters at boundary
// markers (<milestone unit="juan">), producing the dual rendering plus all
// side channels. Chapter numbering starts at offset (values below 1 are
// treated as 1); each well-formed boundary marker increments it by one.
//
// A subtree is only entered with the segmenting walk if a boundary marker
// occurs somewhere inside it; otherwise the whole subtree renders in one
// shot. Markers met before any content accumulates are absorbed into the
// current chapter, so leading markers and continuation files stay
// well-behaved. Chapters whose output is entirely blank are not emitted,
// but every body yields at least one unit.
func Segment(body *xmlquery.Node, table *gaiji.Table, docID string, offset int) *Result {
	if offset < 1 {
		offset = 1
	}
	res := &Result{}
	w := &walker{table: table, docID: docID, res: res, chapter: offset}

	if body == nil {
		res.Units = append(res.Units, ContentUnit{Chapter: offset})
		return res
	}

	w.startChapter()
	w.walkSegment(body)
	w.flush(true)
	return res
}

// walkSegment is the segmenting pass: boundary markers advance the chapter
// cursor, subtrees containing markers recurse (their own wrapper is
// dropped), everything else delegates to the one-shot renderer.
func (w *walker) walkSegment(n *xmlquery.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			if isBoundary(c) {
				w.boundary(c)
				continue
			}
			if containsBoundary(c) {
				w.walkSegment(c)
				continue
			}
		}
		w.renderNode(c)
	}
}

// boundary handles one chapter marker: flush the current accumulator and
// advance the cursor. Malformed markers are chapter-preserving; markers with
// nothing accumulated yet are absorbed.
func (w *walker) boundary(n *xmlquery.Node) {
	ord := tei.Attr(n, "n")
	if _, err := atoiPositive(ord); err != nil {
		logging.MalformedMarker(w.docID, ord)
		return
	}
	if !w.hasContent() {
		return
	}
	w.flush(false)
	w.chapter++
	w.startChapter()
}

// startChapter begins a fresh accumulator with the chapter anchor the
// reading surface scrolls to.
func (w *walker) startChapter() {
	w.mkf(`<a class="juan-anchor" id="juan-%d"></a>`, w.chapter)
}

// hasContent reports whether the current chapter accumulated real content.
// Locator markers (lb, pb, mulu, anchors) render markup before the first
// boundary marker in nearly every source file; they must not defeat
// leading-marker absorption, so only rendered text counts.
func (w *walker) hasContent() bool {
	return w.sawContent
}

// flush emits the current accumulator as a content unit and resets it.
// Blank chapters are dropped, except that the final flush of a body that
// produced nothing at all still emits one unit.
func (w *walker) flush(final bool) {
	if w.hasContent() || (final && len(w.res.Units) == 0) {
		w.res.Units = append(w.res.Units, ContentUnit{
			Chapter: w.chapter,
			Markup:  w.markup.String(),
			Plain:   strings.TrimSpace(w.plain.String()),
		})
	}
	w.markup.Reset()
	w.plain.Reset()
	w.sawContent = false
}

// isBoundary reports whether the element is a chapter boundary marker.
func isBoundary(n *xmlquery.Node) bool {
	return tei.LocalName(n) == "milestone" && tei.Attr(n, "unit") == "juan"
}

// containsBoundary reports whether any descendant is a boundary marker.
func containsBoundary(n *xmlquery.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if isBoundary(c) || containsBoundary(c) {
			return true
		}
	}
	return false
}

func atoiPositive(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if v < 1 {
		return 0, strconv.ErrRange
	}
	return v, nil
}
