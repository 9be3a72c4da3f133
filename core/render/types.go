package render

// ContentUnit is the dual rendering of one chapter: semantic markup for the
// reading surface and plain text for the search index.
type ContentUnit struct {
	Chapter int
	Markup  string
	Plain   string
}

// LineRef records one line marker in document order. Apparatus and
// annotation records anchor to the nearest preceding line marker, so the
// traversal keeps this index instead of forcing extractors to re-walk the
// tree.
type LineRef struct {
	ID      string
	Chapter int
	Seq     int
}

// Reading is one witness alternate inside a variant-reading group.
type Reading struct {
	Witness string `json:"wit"`
	Text    string `json:"text"`
}

// Apparatus is one variant-reading group: the base text plus its ordered
// alternates, anchored to a line marker and the chapter active there.
type Apparatus struct {
	Chapter  int
	LineID   string
	Lemma    string
	Readings []Reading
}

// Annotation is one inline or end-of-page note.
type Annotation struct {
	Chapter   int
	LineID    string
	Kind      string
	Placement string
	Text      string
}

// TOCEntry is one structural heading marker. Entries form an implicit tree
// through (Level, document order); no parent pointer is stored.
type TOCEntry struct {
	Chapter int
	Level   int
	Type    string
	Ordinal string
	Title   string
}

// Result carries everything one traversal of a document body produces: the
// content units plus the side channels the extractors consume.
type Result struct {
	Units       []ContentUnit
	Lines       []LineRef
	Annotations []Annotation
	TOC         []TOCEntry

	// InlineApps collects <app> groups found inside the body itself. They
	// are used as the apparatus source when the document has no back
	// region.
	InlineApps []Apparatus
}

// LineChapter returns the chapter that was active at the given line marker.
func (r *Result) LineChapter(id string) (int, bool) {
	for _, l := range r.Lines {
		if l.ID == id {
			return l.Chapter, true
		}
	}
	return 0, false
}

// LastChapter returns the highest chapter number emitted, or 0 for an empty
// result. Multi-file continuation starts the next file here.
func (r *Result) LastChapter() int {
	if len(r.Units) == 0 {
		return 0
	}
	return r.Units[len(r.Units)-1].Chapter
}
