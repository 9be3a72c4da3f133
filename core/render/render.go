// Package render is the chapter segmenter and dual renderer: one depth-first
// pass over a document body that emits, per chapter, both semantic markup and
// search-plain text, while recording line markers, annotations, toc entries,
// and inline variant groups on side channels.
package render

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/BodhiCanon/core/encoding"
	"github.com/FocuswithJustin/BodhiCanon/core/gaiji"
	"github.com/FocuswithJustin/BodhiCanon/core/tei"
	"github.com/FocuswithJustin/BodhiCanon/internal/logging"
)

// walker carries the traversal state: the chapter cursor, the per-chapter
// accumulators, and the result being assembled. It is created per document
// and never shared.
type walker struct {
	table *gaiji.Table
	docID string
	res   *Result

	chapter int
	markup  strings.Builder
	plain   strings.Builder

	// sawContent reports whether real content (text or a resolved escape
	// character) rendered since the last chapter start. Locator markers
	// (lb, pb, anchors, hidden mulu spans) emit markup without setting it,
	// so a chapter holding only markers still counts as empty.
	sawContent bool

	// plainSuppressed > 0 while rendering subtrees that appear in markup
	// only (note bodies, sic/orig, figures). inNote > 0 while inside a
	// note so nested notes recurse transparently instead of producing
	// their own annotation records.
	plainSuppressed int
	inNote          int

	lastLine string
}

func (w *walker) mk(s string) {
	w.markup.WriteString(s)
}

func (w *walker) mkf(format string, args ...any) {
	fmt.Fprintf(&w.markup, format, args...)
}

// text appends a text node to both accumulators, entity-escaped on the
// markup side only.
func (w *walker) text(s string) {
	t := cleanText(s)
	if t == "" {
		return
	}
	w.sawContent = true
	w.markup.WriteString(encoding.EscapeXMLText(t))
	if w.plainSuppressed == 0 {
		w.plain.WriteString(t)
	}
}

// emit appends a literal string to both accumulators; the caller guarantees
// it is already safe for markup.
func (w *walker) emit(s string) {
	w.markup.WriteString(s)
	if w.plainSuppressed == 0 {
		w.plain.WriteString(s)
	}
}

func (w *walker) renderChildren(n *xmlquery.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.renderNode(c)
	}
}

// suppressed renders children into markup only.
func (w *walker) suppressed(n *xmlquery.Node) {
	w.plainSuppressed++
	w.renderChildren(n)
	w.plainSuppressed--
}

// wrap surrounds the rendered children with a markup open/close pair.
func (w *walker) wrap(n *xmlquery.Node, open, close string) {
	w.mk(open)
	w.renderChildren(n)
	w.mk(close)
}

// renderNode dispatches one node. Unrecognized element kinds are logged once
// per kind and pass their children through, so no text is ever dropped
// silently.
func (w *walker) renderNode(n *xmlquery.Node) {
	switch n.Type {
	case xmlquery.TextNode, xmlquery.CharDataNode:
		w.text(n.Data)
	case xmlquery.ElementNode:
		if fn, ok := renderers[tei.LocalName(n)]; ok {
			fn(w, n)
			return
		}
		logging.UnknownNode(tei.LocalName(n), "doc_id", w.docID)
		w.renderChildren(n)
	}
}

type renderFn func(w *walker, n *xmlquery.Node)

func esc(s string) string  { return encoding.EscapeXMLAttr(s) }
func escT(s string) string { return encoding.EscapeXMLText(s) }

// passThrough renders children with no wrapper of its own.
func passThrough(w *walker, n *xmlquery.Node) {
	w.renderChildren(n)
}

// skip drops the subtree from both outputs.
func skip(w *walker, n *xmlquery.Node) {}

// spanClass builds a renderFn wrapping children in a span with a fixed class.
func spanClass(class string) renderFn {
	open := fmt.Sprintf(`<span class="%s">`, class)
	return func(w *walker, n *xmlquery.Node) {
		w.wrap(n, open, "</span>")
	}
}

// divClass builds a renderFn wrapping children in a div with a fixed class
// and an optional data attribute sourced from the named node attribute.
func divClass(class, dataAttr string) renderFn {
	return func(w *walker, n *xmlquery.Node) {
		if dataAttr == "" {
			w.wrap(n, fmt.Sprintf(`<div class="%s">`, class), "</div>")
			return
		}
		v := tei.AttrAny(n, "cb:"+dataAttr, dataAttr)
		w.wrap(n, fmt.Sprintf(`<div class="%s" data-%s="%s">`, class, dataAttr, esc(v)), "</div>")
	}
}

// hiddenSpan renders content into markup only, wrapped in a hidden span.
// Used for sic/orig so the rejected reading stays inspectable but never
// reaches plain text.
func hiddenSpan(class string) renderFn {
	open := fmt.Sprintf(`<span class="%s" hidden>`, class)
	return func(w *walker, n *xmlquery.Node) {
		w.mk(open)
		w.suppressed(n)
		w.mk("</span>")
	}
}

var renderers map[string]renderFn

func init() {
	renderers = map[string]renderFn{
		// Structural pass-throughs and skips.
		"body":      passThrough,
		"text":      passThrough,
		"group":     passThrough,
		"back":      skip,
		"teiHeader": skip,
		"charDecl":  skip,
		"milestone": skip, // juan milestones are consumed by the segmenter
		"rdg":       skip, // alternates surface through <app> only

		// Divisions, headings, paragraphs.
		"div": func(w *walker, n *xmlquery.Node) {
			dtype := tei.Attr(n, "type")
			if dtype == "" {
				dtype = "unknown"
			}
			w.wrap(n, fmt.Sprintf(`<div class="div-%s" data-type="%s">`, esc(dtype), esc(dtype)), "</div>")
		},
		"p":       renderP,
		"head":    divClass("head", "type"),
		"byline":  divClass("byline", "type"),
		"trailer": func(w *walker, n *xmlquery.Node) { w.wrap(n, `<p class="trailer">`, "</p>") },

		// Position markers.
		"lb":     renderLB,
		"pb":     renderPB,
		"anchor": renderAnchor,

		// Spacing.
		"space": func(w *walker, n *xmlquery.Node) {
			pad := spaceRun(n)
			w.mkf(`<span class="space">%s</span>`, pad)
			if w.plainSuppressed == 0 {
				w.plain.WriteString(pad)
			}
		},
		"caesura": func(w *walker, n *xmlquery.Node) {
			w.mk(`<span class="caesura">　</span>`)
			if w.plainSuppressed == 0 {
				w.plain.WriteString("　")
			}
		},

		// Character escapes.
		"g": renderGaiji,

		// Variant readings and annotations.
		"app":  renderApp,
		"lem":  passThrough,
		"note": renderNote,

		// Verse.
		"lg": divClass("verse", "type"),
		"l": func(w *walker, n *xmlquery.Node) {
			w.wrap(n, `<div class="verse-line">`, "</div>")
			if w.plainSuppressed == 0 {
				w.plain.WriteString("　")
			}
		},

		// Scroll heads and toc markers.
		"juan":  divClass("juan", "fun"),
		"jhead": spanClass("jhead"),
		"mulu":  renderMulu,

		// Lists and tables.
		"list": func(w *walker, n *xmlquery.Node) {
			w.wrap(n, fmt.Sprintf(`<ul class="list" data-rend="%s">`, esc(tei.Attr(n, "rend"))), "</ul>")
		},
		"item": func(w *walker, n *xmlquery.Node) {
			if ord := tei.Attr(n, "n"); ord != "" {
				w.wrap(n, fmt.Sprintf(`<li data-n="%s">`, esc(ord)), "</li>")
				return
			}
			w.wrap(n, "<li>", "</li>")
		},
		"table": func(w *walker, n *xmlquery.Node) { w.wrap(n, `<table class="canon-table">`, "</table>") },
		"row":   func(w *walker, n *xmlquery.Node) { w.wrap(n, "<tr>", "</tr>") },
		"cell":  renderCell,

		// Quotes, speech, dialog.
		"quote": func(w *walker, n *xmlquery.Node) {
			w.wrap(n, fmt.Sprintf(`<blockquote class="quote" data-source="%s">`, esc(tei.Attr(n, "source"))), "</blockquote>")
		},
		"sp":     divClass("speech", "type"),
		"dialog": divClass("dialog", "type"),

		// Uncertain and foreign text.
		"unclear": spanClass("unclear"),
		"foreign": func(w *walker, n *xmlquery.Node) {
			lang := tei.AttrAny(n, "xml:lang", "lang")
			w.wrap(n, fmt.Sprintf(`<span class="foreign" lang="%s">`, esc(lang)), "</span>")
		},

		// Figures render as markup placeholders; nothing reaches plain text.
		"figure": func(w *walker, n *xmlquery.Node) {
			w.mk(`<figure class="figure">`)
			w.suppressed(n)
			w.mk("</figure>")
		},
		"graphic": func(w *walker, n *xmlquery.Node) {
			w.mkf(`<img src="%s" class="graphic"/>`, esc(tei.Attr(n, "url")))
		},
		"figDesc": func(w *walker, n *xmlquery.Node) {
			w.mk("<figcaption>")
			w.suppressed(n)
			w.mk("</figcaption>")
		},

		// Dictionary constructs.
		"entry": divClass("dict-entry", ""),
		"form":  spanClass("dict-form"),
		"def":   spanClass("dict-def"),
		"sg": func(w *walker, n *xmlquery.Node) {
			w.wrap(n, fmt.Sprintf(`<span class="phonetic" data-type="%s">`, esc(tei.Attr(n, "type"))), "</span>")
		},

		// Bilingual gloss pairs: every language reaches plain text; markup
		// labels non-Chinese glosses so the display layer can style them.
		"tt": passThrough,
		"t": func(w *walker, n *xmlquery.Node) {
			lang := tei.AttrAny(n, "xml:lang", "lang")
			if lang == "" || strings.Contains(lang, "zh") {
				w.renderChildren(n)
				return
			}
			w.wrap(n, fmt.Sprintf(`<span class="gloss" lang="%s">`, esc(lang)), "</span>")
		},

		// Inline formatting.
		"hi": func(w *walker, n *xmlquery.Node) {
			if strings.Contains(tei.Attr(n, "rend"), "bold") {
				w.wrap(n, "<b>", "</b>")
				return
			}
			w.wrap(n, fmt.Sprintf(`<span class="hi" data-rend="%s">`, esc(tei.Attr(n, "rend"))), "</span>")
		},
		"seg": func(w *walker, n *xmlquery.Node) {
			w.wrap(n, fmt.Sprintf(`<span class="seg" data-rend="%s">`, esc(tei.Attr(n, "rend"))), "</span>")
		},
		"term": func(w *walker, n *xmlquery.Node) {
			w.wrap(n, fmt.Sprintf(`<span class="term" lang="%s">`, esc(tei.AttrAny(n, "xml:lang", "lang"))), "</span>")
		},

		// References.
		"ref": func(w *walker, n *xmlquery.Node) {
			w.wrap(n, fmt.Sprintf(`<a class="ref" href="%s">`, esc(tei.Attr(n, "target"))), "</a>")
		},
		"ptr": func(w *walker, n *xmlquery.Node) {
			w.mkf(`<a class="ptr" href="%s">[→]</a>`, esc(tei.Attr(n, "target")))
		},

		// Editorial regularization: the accepted reading passes through,
		// the rejected one stays markup-only.
		"choice": passThrough,
		"corr":   passThrough,
		"reg":    passThrough,
		"sic":    hiddenSpan("sic"),
		"orig":   hiddenSpan("orig"),

		// Numbering and labels.
		"num": func(w *walker, n *xmlquery.Node) {
			w.wrap(n, fmt.Sprintf(`<span class="num" data-n="%s">`, esc(tei.Attr(n, "n"))), "</span>")
		},
		"label":     spanClass("label"),
		"formula":   spanClass("formula"),
		"docNumber": spanClass("doc-number"),

		// Jiaxing canon front-matter.
		"jl_title":  spanClass("jl-title"),
		"jl_juan":   spanClass("jl-juan"),
		"jl_byline": spanClass("jl-byline"),

		// Phonetic glosses.
		"yin": spanClass("yin"),
		"zi":  spanClass("zi"),
		"fan": spanClass("fan"),

		// Citations, names, dates.
		"cit":       spanClass("citation"),
		"bibl":      spanClass("bibl"),
		"biblScope": spanClass("biblscope"),
		"event":     spanClass("event"),
		"date":      spanClass("date"),
		"title":     spanClass("title"),
		"editor":    spanClass("editor"),
		"name":      spanClass("name"),
	}
}

func renderP(w *walker, n *xmlquery.Node) {
	class := "para-block"
	if tei.AttrAny(n, "cb:type", "type") == "dharani" {
		class = "dharani"
	}
	if id := tei.Attr(n, "xml:id"); id != "" {
		w.wrap(n, fmt.Sprintf(`<p class="%s" id="%s">`, class, esc(id)), "</p>")
		return
	}
	w.wrap(n, fmt.Sprintf(`<p class="%s">`, class), "</p>")
}

// renderLB records the line marker on the side channel and emits a line
// break plus a visible line-number tag in markup; plain text is untouched.
// Markers carried over from a superseded edition (type="old") are dropped.
func renderLB(w *walker, n *xmlquery.Node) {
	if tei.Attr(n, "type") == "old" {
		return
	}
	id := tei.Attr(n, "n")
	if id == "" {
		return
	}
	w.lastLine = id
	w.res.Lines = append(w.res.Lines, LineRef{ID: id, Chapter: w.chapter, Seq: len(w.res.Lines)})
	w.mkf(`<br><span class="line-num" id="lb-%s">%s</span>`, esc(id), escT(id))
}

func renderPB(w *walker, n *xmlquery.Node) {
	id := tei.Attr(n, "n")
	if id == "" {
		return
	}
	w.mkf(`<span class="page-break" id="pb-%s" data-ed="%s"></span>`, esc(id), esc(tei.Attr(n, "ed")))
}

func renderAnchor(w *walker, n *xmlquery.Node) {
	if id := tei.AttrAny(n, "xml:id", "id"); id != "" {
		w.mkf(`<a id="%s" class="anchor"></a>`, esc(id))
	}
}

func renderGaiji(w *walker, n *xmlquery.Node) {
	ref := tei.Attr(n, "ref")
	resolved := w.table.Resolve(ref)
	code := strings.TrimPrefix(ref, "#")
	w.sawContent = true
	w.mkf(`<span class="gaiji" data-ref="%s">%s</span>`, esc(code), escT(resolved))
	if w.plainSuppressed == 0 {
		w.plain.WriteString(resolved)
	}
}

// renderApp renders an inline variant group: the base reading stays in both
// outputs, the alternates go into a markup tooltip and onto the InlineApps
// side channel.
func renderApp(w *walker, n *xmlquery.Node) {
	var lem *xmlquery.Node
	var readings []Reading
	var tips []string

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		switch tei.LocalName(c) {
		case "lem":
			if lem == nil {
				lem = c
			}
		case "rdg":
			r := Reading{Witness: tei.Attr(c, "wit"), Text: PlainText(w.table, c)}
			readings = append(readings, r)
			if r.Text == "" {
				tips = append(tips, r.Witness+": (缺)")
			} else {
				tips = append(tips, r.Witness+": "+r.Text)
			}
		}
	}

	var lemma string
	if lem != nil {
		lemma = PlainText(w.table, lem)
	}
	w.res.InlineApps = append(w.res.InlineApps, Apparatus{
		Chapter:  w.chapter,
		LineID:   w.lastLine,
		Lemma:    lemma,
		Readings: readings,
	})

	if len(tips) > 0 {
		w.mkf(`<span class="app-var" title="%s">`, esc(strings.Join(tips, " ｜ ")))
	} else {
		w.mk(`<span class="app-var">`)
	}
	if lem != nil {
		w.renderChildren(lem)
	}
	w.mk("</span>")
}

var inlineNotePlaces = map[string]bool{
	"inline":      true,
	"inline2":     true,
	"interlinear": true,
}

var inlineNoteKinds = map[string]bool{
	"authorial": true,
}

// renderNote records the annotation and emits either an in-text small-print
// rendering (inline placements) or a clickable numbered marker. Note text
// never reaches plain text. Nested notes recurse transparently.
func renderNote(w *walker, n *xmlquery.Node) {
	if w.inNote > 0 {
		w.renderChildren(n)
		return
	}

	kind := tei.Attr(n, "type")
	place := tei.Attr(n, "place")
	w.res.Annotations = append(w.res.Annotations, Annotation{
		Chapter:   w.chapter,
		LineID:    w.lastLine,
		Kind:      kind,
		Placement: place,
		Text:      PlainText(w.table, n),
	})
	idx := len(w.res.Annotations)

	w.inNote++
	defer func() { w.inNote-- }()

	if inlineNotePlaces[place] || inlineNoteKinds[kind] {
		w.mk(`<span class="note-inline">（`)
		w.suppressed(n)
		w.mk(`）</span>`)
		return
	}
	w.mkf(`<sup class="note-ref" id="ref-%d"><a href="#note-%d" data-note-idx="%d">[%d]</a></sup>`, idx, idx, idx, idx)
}

// renderMulu records the toc entry; markup keeps a hidden span so the
// display layer can rebuild in-page navigation, plain text gets nothing.
func renderMulu(w *walker, n *xmlquery.Node) {
	ord := tei.Attr(n, "n")
	title := PlainText(w.table, n)
	if title == "" {
		title = ord
	}
	level := 1
	if l := tei.Attr(n, "level"); l != "" {
		if v, err := atoiPositive(l); err == nil {
			level = v
		}
	}
	typ := tei.AttrAny(n, "cb:type", "type")
	w.res.TOC = append(w.res.TOC, TOCEntry{
		Chapter: w.chapter,
		Level:   level,
		Type:    typ,
		Ordinal: ord,
		Title:   title,
	})
	w.mkf(`<span class="mulu" data-type="%s" data-n="%s" hidden>%s</span>`, esc(typ), esc(ord), escT(title))
}

func renderCell(w *walker, n *xmlquery.Node) {
	var attrs strings.Builder
	if cols := tei.Attr(n, "cols"); cols != "" {
		fmt.Fprintf(&attrs, ` colspan="%s"`, esc(cols))
	}
	if rows := tei.Attr(n, "rows"); rows != "" {
		fmt.Fprintf(&attrs, ` rowspan="%s"`, esc(rows))
	}
	w.wrap(n, "<td"+attrs.String()+">", "</td>")
}
