package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FocuswithJustin/BodhiCanon/core/errors"
	"github.com/FocuswithJustin/BodhiCanon/core/render"
)

// ContentRow is one stored content unit.
type ContentRow struct {
	DocID   string `json:"doc_id"`
	Chapter int    `json:"chapter"`
	Markup  string `json:"markup"`
	Plain   string `json:"plain_text"`
	PlainSC string `json:"plain_text_sc"`
}

// SearchHit is one ranked full-text match.
type SearchHit struct {
	DocID   string `json:"doc_id"`
	Chapter int    `json:"chapter"`
	Snippet string `json:"snippet"`
}

// GetCatalog fetches a document's catalog entry.
func (s *Store) GetCatalog(ctx context.Context, docID string) (*CatalogEntry, error) {
	var e CatalogEntry
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_id, collection, volume, title, title_sc, author, chapters, category, checksum
		 FROM catalog WHERE doc_id = ?`, docID,
	).Scan(&e.DocID, &e.Collection, &e.Volume, &e.Title, &e.TitleSC,
		&e.Author, &e.Chapters, &e.Category, &e.Checksum)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("catalog entry", docID)
	}
	if err != nil {
		return nil, errors.NewStore("query catalog", docID, err)
	}
	return &e, nil
}

// ListCatalog returns catalog entries, optionally filtered by collection
// code, ordered by document id.
func (s *Store) ListCatalog(ctx context.Context, collection string) ([]CatalogEntry, error) {
	query := `SELECT doc_id, collection, volume, title, title_sc, author, chapters, category, checksum
	          FROM catalog`
	var args []any
	if collection != "" {
		query += " WHERE collection = ?"
		args = append(args, collection)
	}
	query += " ORDER BY doc_id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewStore("list catalog", collection, err)
	}
	defer rows.Close()

	var out []CatalogEntry
	for rows.Next() {
		var e CatalogEntry
		if err := rows.Scan(&e.DocID, &e.Collection, &e.Volume, &e.Title, &e.TitleSC,
			&e.Author, &e.Chapters, &e.Category, &e.Checksum); err != nil {
			return nil, errors.NewStore("scan catalog", collection, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetContent fetches one content unit by (document id, chapter).
func (s *Store) GetContent(ctx context.Context, docID string, chapter int) (*ContentRow, error) {
	var c ContentRow
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_id, chapter, markup, plain_text, plain_text_sc
		 FROM content WHERE doc_id = ? AND chapter = ?`, docID, chapter,
	).Scan(&c.DocID, &c.Chapter, &c.Markup, &c.Plain, &c.PlainSC)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("content unit", fmt.Sprintf("%s/%d", docID, chapter))
	}
	if err != nil {
		return nil, errors.NewStore("query content", docID, err)
	}
	return &c, nil
}

// Chapters returns the chapter numbers stored for a document, in order.
func (s *Store) Chapters(ctx context.Context, docID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT chapter FROM content WHERE doc_id = ? ORDER BY chapter", docID)
	if err != nil {
		return nil, errors.NewStore("query chapters", docID, err)
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var ch int
		if err := rows.Scan(&ch); err != nil {
			return nil, errors.NewStore("scan chapters", docID, err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// Search runs a ranked full-text query over the simplified plain text.
// The query string is simplified before matching, so traditional input
// finds simplified rows. Matches come back best-ranked first with a short
// highlighted snippet.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidation("query", "must not be empty")
	}
	if limit <= 0 {
		limit = 20
	}

	// Quoting makes the input a phrase, not FTS5 operator syntax.
	match := `"` + strings.ReplaceAll(s.simplify(query), `"`, `""`) + `"`

	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, chapter, snippet(content_fts, 2, '[', ']', '…', 12)
		 FROM content_fts WHERE content_fts MATCH ?
		 ORDER BY rank LIMIT ?`, match, limit)
	if err != nil {
		return nil, errors.NewStore("search", query, err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.DocID, &h.Chapter, &h.Snippet); err != nil {
			return nil, errors.NewStore("scan search", query, err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// GetTOC fetches a document's table-of-contents entries in document order.
func (s *Store) GetTOC(ctx context.Context, docID string) ([]render.TOCEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chapter, level, type, ordinal, title FROM toc
		 WHERE doc_id = ? ORDER BY id`, docID)
	if err != nil {
		return nil, errors.NewStore("query toc", docID, err)
	}
	defer rows.Close()

	var out []render.TOCEntry
	for rows.Next() {
		var e render.TOCEntry
		if err := rows.Scan(&e.Chapter, &e.Level, &e.Type, &e.Ordinal, &e.Title); err != nil {
			return nil, errors.NewStore("scan toc", docID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetApparatus fetches a chapter's variant-reading entries.
func (s *Store) GetApparatus(ctx context.Context, docID string, chapter int) ([]render.Apparatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chapter, line_id, lemma, readings FROM apparatus
		 WHERE doc_id = ? AND chapter = ? ORDER BY id`, docID, chapter)
	if err != nil {
		return nil, errors.NewStore("query apparatus", docID, err)
	}
	defer rows.Close()

	var out []render.Apparatus
	for rows.Next() {
		var a render.Apparatus
		var readings string
		if err := rows.Scan(&a.Chapter, &a.LineID, &a.Lemma, &readings); err != nil {
			return nil, errors.NewStore("scan apparatus", docID, err)
		}
		if readings != "" && readings != "null" {
			if err := json.Unmarshal([]byte(readings), &a.Readings); err != nil {
				return nil, errors.NewStore("decode readings", docID, err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetNotes fetches a chapter's annotations.
func (s *Store) GetNotes(ctx context.Context, docID string, chapter int) ([]render.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chapter, line_id, kind, placement, content FROM notes
		 WHERE doc_id = ? AND chapter = ? ORDER BY id`, docID, chapter)
	if err != nil {
		return nil, errors.NewStore("query notes", docID, err)
	}
	defer rows.Close()

	var out []render.Annotation
	for rows.Next() {
		var n render.Annotation
		if err := rows.Scan(&n.Chapter, &n.LineID, &n.Kind, &n.Placement, &n.Text); err != nil {
			return nil, errors.NewStore("scan notes", docID, err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
