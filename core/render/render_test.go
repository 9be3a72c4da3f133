package render

import (
	"strings"
	"testing"

	"github.com/FocuswithJustin/BodhiCanon/core/gaiji"
)

func testTable(t *testing.T) *gaiji.Table {
	t.Helper()
	table, err := gaiji.Parse([]byte(`{
		"CB00178": {"uni_char": "瞋"},
		"CB00416": {"composition": "[王*扁]"}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	return table
}

func TestPlainFreeOfMarkupAndNotes(t *testing.T) {
	res := segment(t, `<div type="品"><head>序品</head>`+
		`<p>觀自在菩薩<note type="cf1">參照註記</note>行深般若</p>`+
		`<lg type="verse"><l>色即是空</l><l>空即是色</l></lg>`+
		`<list><item n="1">第一</item></list></div>`)

	plain := res.Units[0].Plain
	if strings.Contains(plain, "<") || strings.Contains(plain, ">") {
		t.Errorf("plain text contains markup: %q", plain)
	}
	if strings.Contains(plain, "參照註記") {
		t.Errorf("plain text contains annotation text: %q", plain)
	}
	if !strings.Contains(plain, "觀自在菩薩") || !strings.Contains(plain, "行深般若") {
		t.Errorf("plain text lost body content: %q", plain)
	}
	if !strings.Contains(plain, "色即是空") {
		t.Errorf("plain text lost verse content: %q", plain)
	}
}

func TestLineMarkerAnchorsInMarkup(t *testing.T) {
	res := segment(t, `<lb n="0001a05"/><p>如是我聞</p>`)

	u := res.Units[0]
	if !strings.Contains(u.Markup, `<br><span class="line-num" id="lb-0001a05">0001a05</span>`) {
		t.Errorf("markup missing visible line-number tag: %q", u.Markup)
	}
	if strings.Contains(u.Plain, "0001a05") {
		t.Errorf("plain text contains line id: %q", u.Plain)
	}
}

func TestAnnotationAnchoring(t *testing.T) {
	res := segment(t, `<lb n="0001a05"/><p>如是我聞<note n="0001005" place="foot text" type="orig">校勘：異讀</note></p>`)

	if len(res.Annotations) != 1 {
		t.Fatalf("expected 1 annotation, got %d", len(res.Annotations))
	}
	a := res.Annotations[0]
	if a.Chapter != 1 {
		t.Errorf("Chapter = %d, want 1", a.Chapter)
	}
	if a.LineID != "0001a05" {
		t.Errorf("LineID = %q, want 0001a05", a.LineID)
	}
	if a.Text != "校勘：異讀" {
		t.Errorf("Text = %q, want 校勘：異讀", a.Text)
	}
	if a.Kind != "orig" || a.Placement != "foot text" {
		t.Errorf("Kind/Placement = %q/%q", a.Kind, a.Placement)
	}
}

func TestNoteMarkerInMarkup(t *testing.T) {
	res := segment(t, `<p>本文<note type="add">註文</note>續文</p>`)

	u := res.Units[0]
	if !strings.Contains(u.Markup, `class="note-ref"`) {
		t.Errorf("markup missing note marker: %q", u.Markup)
	}
	if strings.Contains(u.Plain, "註文") {
		t.Errorf("note text leaked into plain: %q", u.Plain)
	}
}

func TestInlineNoteRendering(t *testing.T) {
	res := segment(t, `<p>本文<note place="inline">夾註</note>續文</p>`)

	u := res.Units[0]
	if !strings.Contains(u.Markup, `<span class="note-inline">（夾註）</span>`) {
		t.Errorf("inline note not rendered in-text: %q", u.Markup)
	}
	if strings.Contains(u.Plain, "夾註") {
		t.Errorf("inline note leaked into plain: %q", u.Plain)
	}
}

func TestGaijiResolution(t *testing.T) {
	body := `<p>長<g ref="#CB00178"/>相<g ref="#CB00416"/>貌<g ref="#CB99999"/>終</p>`
	res := Segment(parseBody(t, body), testTable(t), "T0001", 1)

	u := res.Units[0]
	if !strings.Contains(u.Plain, "瞋") {
		t.Errorf("unicode form missing from plain: %q", u.Plain)
	}
	if !strings.Contains(u.Plain, "[王*扁]") {
		t.Errorf("composition recipe missing from plain: %q", u.Plain)
	}
	if !strings.Contains(u.Plain, "[CB99999]") {
		t.Errorf("fallback token missing from plain: %q", u.Plain)
	}
	if !strings.Contains(u.Markup, `<span class="gaiji" data-ref="CB00178">瞋</span>`) {
		t.Errorf("markup gaiji span wrong: %q", u.Markup)
	}
}

func TestMuluTOC(t *testing.T) {
	res := segment(t, `<cb:mulu type="品" level="2" n="3">序品第三</cb:mulu><p>正文</p>`+
		`<milestone unit="juan" n="2"/><cb:mulu type="卷" n="2"></cb:mulu><p>次卷</p>`)

	if len(res.TOC) != 2 {
		t.Fatalf("expected 2 toc entries, got %d", len(res.TOC))
	}
	first := res.TOC[0]
	if first.Chapter != 1 || first.Level != 2 || first.Type != "品" || first.Ordinal != "3" || first.Title != "序品第三" {
		t.Errorf("toc entry = %+v", first)
	}
	second := res.TOC[1]
	if second.Chapter != 2 {
		t.Errorf("second entry chapter = %d, want 2", second.Chapter)
	}
	if second.Title != "2" {
		t.Errorf("empty title should fall back to ordinal, got %q", second.Title)
	}
	if strings.Contains(res.Units[0].Plain, "序品第三") {
		t.Errorf("toc title leaked into plain: %q", res.Units[0].Plain)
	}
}

func TestInlineAppCollected(t *testing.T) {
	res := segment(t, `<lb n="0848c07"/><p><app><lem wit="【大】">般若</lem>`+
		`<rdg wit="【宋】">波若</rdg><rdg wit="【元】"></rdg></app>波羅蜜</p>`)

	if len(res.InlineApps) != 1 {
		t.Fatalf("expected 1 inline app, got %d", len(res.InlineApps))
	}
	app := res.InlineApps[0]
	if app.Chapter != 1 || app.LineID != "0848c07" {
		t.Errorf("anchor = chapter %d line %q", app.Chapter, app.LineID)
	}
	if app.Lemma != "般若" {
		t.Errorf("Lemma = %q", app.Lemma)
	}
	if len(app.Readings) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(app.Readings))
	}
	if app.Readings[0].Witness != "【宋】" || app.Readings[0].Text != "波若" {
		t.Errorf("reading 0 = %+v", app.Readings[0])
	}
	if app.Readings[1].Text != "" {
		t.Errorf("omission reading should have empty text, got %q", app.Readings[1].Text)
	}

	u := res.Units[0]
	if !strings.Contains(u.Plain, "般若") {
		t.Errorf("base reading missing from plain: %q", u.Plain)
	}
	if strings.Contains(u.Plain, "波若") {
		t.Errorf("alternate reading leaked into plain: %q", u.Plain)
	}
	if !strings.Contains(u.Markup, `class="app-var"`) {
		t.Errorf("markup missing variant span: %q", u.Markup)
	}
}

func TestSicDroppedCorrKept(t *testing.T) {
	res := segment(t, `<p><choice><corr>正</corr><sic>訛</sic></choice>文</p>`)

	u := res.Units[0]
	if !strings.Contains(u.Plain, "正") || strings.Contains(u.Plain, "訛") {
		t.Errorf("choice handling wrong: %q", u.Plain)
	}
	if !strings.Contains(u.Markup, `<span class="sic" hidden>`) {
		t.Errorf("rejected reading should stay in markup: %q", u.Markup)
	}
}

func TestSpaceAndCaesura(t *testing.T) {
	res := segment(t, `<p>上<space quantity="3"/>下<caesura/>終</p>`)

	if !strings.Contains(res.Units[0].Plain, "上　　　下　終") {
		t.Errorf("spacing wrong: %q", res.Units[0].Plain)
	}
}

func TestUnknownNodePassesThrough(t *testing.T) {
	res := segment(t, `<p>前<strange attr="x">中</strange>後</p>`)

	u := res.Units[0]
	if !strings.Contains(u.Plain, "中") {
		t.Errorf("unknown node dropped content: %q", u.Plain)
	}
	if !strings.Contains(u.Plain, "前") || !strings.Contains(u.Plain, "後") {
		t.Errorf("surrounding content lost: %q", u.Plain)
	}
}

func TestMarkupEscaping(t *testing.T) {
	res := segment(t, `<p>a &lt; b &amp; c</p>`)

	u := res.Units[0]
	if !strings.Contains(u.Markup, "a &lt; b &amp; c") {
		t.Errorf("markup not escaped: %q", u.Markup)
	}
	if !strings.Contains(u.Plain, "a < b & c") {
		t.Errorf("plain should carry raw text: %q", u.Plain)
	}
}

func TestPlainTextOnSubtree(t *testing.T) {
	body := parseBody(t, `<p id="x">長<g ref="#CB00178"/>者<note>註</note>問</p>`)
	var p = body.FirstChild

	got := PlainText(testTable(t), p)
	if got != "長瞋者問" {
		t.Errorf("PlainText = %q, want 長瞋者問", got)
	}
}

func TestFigureExcludedFromPlain(t *testing.T) {
	res := segment(t, `<p>前</p><figure><graphic url="fig.png"/><figDesc>圖說</figDesc></figure><p>後</p>`)

	u := res.Units[0]
	if strings.Contains(u.Plain, "圖說") {
		t.Errorf("figure description leaked into plain: %q", u.Plain)
	}
	if !strings.Contains(u.Markup, `<img src="fig.png" class="graphic"/>`) {
		t.Errorf("markup missing graphic placeholder: %q", u.Markup)
	}
}
