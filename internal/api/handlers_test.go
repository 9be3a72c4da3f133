package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/FocuswithJustin/BodhiCanon/core/render"
	"github.com/FocuswithJustin/BodhiCanon/core/store"
	"github.com/FocuswithJustin/BodhiCanon/internal/config"
)

// newTestServer opens a fresh store seeded with one document and returns a
// router ready for httptest requests.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "canon.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	rec := &store.DocumentRecord{
		Catalog: store.CatalogEntry{
			DocID:      "T0251",
			Collection: "T",
			Volume:     "T08",
			Title:      "般若波羅蜜多心經",
			Author:     "唐 玄奘譯",
			Chapters:   1,
			Checksum:   "abc123",
		},
		Units: []render.ContentUnit{{
			Chapter: 1,
			Markup:  `<a class="juan-anchor" id="juan-1"></a><p>觀自在菩薩行深般若波羅蜜多時</p>`,
			Plain:   "觀自在菩薩行深般若波羅蜜多時",
		}},
		Apparatus: []render.Apparatus{{
			Chapter: 1, LineID: "0848c07", Lemma: "般若",
			Readings: []render.Reading{{Witness: "【宋】", Text: "波若"}},
		}},
		Annotations: []render.Annotation{{
			Chapter: 1, LineID: "0848c07", Kind: "orig", Placement: "foot", Text: "校勘記",
		}},
		TOC: []render.TOCEntry{{Chapter: 1, Level: 1, Type: "經", Ordinal: "251", Title: "般若波羅蜜多心經"}},
	}
	if err := st.WriteDocument(context.Background(), rec, store.Replace); err != nil {
		t.Fatal(err)
	}

	return NewServer(st, config.Default())
}

// get runs one request through the router and decodes the JSON body.
func get(t *testing.T, s *Server, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	if out != nil && w.Code == http.StatusOK {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return w.Code
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	var body map[string]string
	if code := get(t, s, "/health", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestGetCatalog(t *testing.T) {
	s := newTestServer(t)
	var entry store.CatalogEntry
	if code := get(t, s, "/api/v1/catalog/T0251", &entry); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if entry.Title != "般若波羅蜜多心經" || entry.Collection != "T" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestGetCatalogNotFound(t *testing.T) {
	s := newTestServer(t)
	if code := get(t, s, "/api/v1/catalog/T9999", nil); code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", code)
	}
}

func TestListCatalogFiltered(t *testing.T) {
	s := newTestServer(t)

	var all []store.CatalogEntry
	if code := get(t, s, "/api/v1/catalog", &all); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(all) != 1 {
		t.Fatalf("entries = %+v", all)
	}

	var none []store.CatalogEntry
	if code := get(t, s, "/api/v1/catalog?collection=X", &none); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(none) != 0 {
		t.Errorf("filtered entries = %+v", none)
	}
}

func TestGetContent(t *testing.T) {
	s := newTestServer(t)
	var row store.ContentRow
	if code := get(t, s, "/api/v1/content/T0251/1", &row); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if row.Plain != "觀自在菩薩行深般若波羅蜜多時" {
		t.Errorf("plain = %q", row.Plain)
	}
}

func TestGetContentBadChapter(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/content/T0251/0", "/api/v1/content/T0251/x"} {
		if code := get(t, s, path, nil); code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, code)
		}
	}
}

func TestGetApparatusAndNotes(t *testing.T) {
	s := newTestServer(t)

	var apps []render.Apparatus
	if code := get(t, s, "/api/v1/apparatus/T0251/1", &apps); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(apps) != 1 || apps[0].Readings[0].Text != "波若" {
		t.Errorf("apparatus = %+v", apps)
	}

	var notes []render.Annotation
	if code := get(t, s, "/api/v1/notes/T0251/1", &notes); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(notes) != 1 || notes[0].Text != "校勘記" {
		t.Errorf("notes = %+v", notes)
	}
}

func TestGetTOC(t *testing.T) {
	s := newTestServer(t)
	var toc []render.TOCEntry
	if code := get(t, s, "/api/v1/toc/T0251", &toc); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(toc) != 1 || toc[0].Title != "般若波羅蜜多心經" {
		t.Errorf("toc = %+v", toc)
	}
}

func TestSearchEndpoint(t *testing.T) {
	s := newTestServer(t)
	var hits []store.SearchHit
	// "觀自在菩薩"; the trigram tokenizer needs at least three characters.
	if code := get(t, s, "/api/v1/search?q=%E8%A7%80%E8%87%AA%E5%9C%A8%E8%8F%A9%E8%96%A9&limit=5", &hits); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(hits) != 1 || hits[0].DocID != "T0251" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	s := newTestServer(t)
	if code := get(t, s, "/api/v1/search", nil); code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
}
