// Package store persists extraction results into the SQLite search store
// and serves the read contract the query surfaces consume. One document's
// rows across all five tables land in a single transaction; the FTS index
// follows content writes through triggers, never as a separate step.
package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/longbridgeapp/opencc"

	"github.com/FocuswithJustin/BodhiCanon/core/errors"
	"github.com/FocuswithJustin/BodhiCanon/core/render"
	"github.com/FocuswithJustin/BodhiCanon/core/sqlite"
)

// CatalogEntry is one document's catalog row.
type CatalogEntry struct {
	DocID      string `json:"doc_id"`
	Collection string `json:"collection"`
	Volume     string `json:"volume"`
	Title      string `json:"title"`
	TitleSC    string `json:"title_sc"`
	Author     string `json:"author"`
	Chapters   int    `json:"chapters"`
	Category   string `json:"category"`
	Checksum   string `json:"checksum"`
}

// DocumentRecord is the full extraction result of one document, handed to
// WriteDocument as a unit.
type DocumentRecord struct {
	Catalog     CatalogEntry
	Units       []render.ContentUnit
	Apparatus   []render.Apparatus
	Annotations []render.Annotation
	TOC         []render.TOCEntry
}

// Mode selects how WriteDocument treats pre-existing rows for the document.
type Mode int

const (
	// Replace deletes every prior row for the document id across all five
	// tables before inserting. The first (or only) file of a work uses it.
	Replace Mode = iota
	// Append keeps existing rows and only adds new ones. Continuation
	// files of a multi-file work use it; the catalog row from the first
	// file stays authoritative.
	Append
)

// Store wraps the SQLite database and the traditional-to-simplified
// converter used to populate the search projection columns.
type Store struct {
	db *sql.DB
	cc *opencc.OpenCC
}

// Open opens (creating if needed) the store at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sqlite.Open(path)
	if err != nil {
		return nil, errors.NewStore("open", "", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.NewStore("pragma", "", err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, errors.NewStore("schema", "", err)
	}

	cc, err := opencc.New("t2s")
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "load t2s conversion table")
	}
	return &Store{db: db, cc: cc}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for diagnostics.
func (s *Store) DB() *sql.DB {
	return s.db
}

// simplify projects traditional text to simplified for the search columns.
// A conversion failure falls back to the original text so a bad table entry
// cannot lose content.
func (s *Store) simplify(text string) string {
	sc, err := s.cc.Convert(text)
	if err != nil {
		return text
	}
	return sc
}

// WriteDocument persists one document's full extraction atomically. Either
// every row lands or none do; a mid-write failure rolls back and leaves the
// previous state visible to readers.
func (s *Store) WriteDocument(ctx context.Context, rec *DocumentRecord, mode Mode) error {
	docID := rec.Catalog.DocID
	if docID == "" {
		return errors.NewValidation("doc_id", "must not be empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStore("begin", docID, err)
	}
	defer tx.Rollback()

	if mode == Replace {
		for _, table := range []string{"apparatus", "notes", "toc", "content", "catalog"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE doc_id = ?", docID); err != nil {
				return errors.NewStore("delete "+table, docID, err)
			}
		}
	}

	cat := rec.Catalog
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO catalog (doc_id, collection, volume, title, title_sc, author, chapters, category, checksum)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(doc_id) DO NOTHING`,
		docID, cat.Collection, cat.Volume, cat.Title, s.simplify(cat.Title),
		cat.Author, cat.Chapters, cat.Category, cat.Checksum,
	); err != nil {
		return errors.NewStore("insert catalog", docID, err)
	}

	for _, u := range rec.Units {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO content (doc_id, chapter, markup, plain_text, plain_text_sc)
			 VALUES (?, ?, ?, ?, ?)`,
			docID, u.Chapter, u.Markup, u.Plain, s.simplify(u.Plain),
		); err != nil {
			return errors.NewStore("insert content", docID, err)
		}
	}

	for _, a := range rec.Apparatus {
		readings, err := json.Marshal(a.Readings)
		if err != nil {
			return errors.NewStore("encode readings", docID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO apparatus (doc_id, chapter, line_id, lemma, readings)
			 VALUES (?, ?, ?, ?, ?)`,
			docID, a.Chapter, a.LineID, a.Lemma, string(readings),
		); err != nil {
			return errors.NewStore("insert apparatus", docID, err)
		}
	}

	for _, n := range rec.Annotations {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO notes (doc_id, chapter, line_id, kind, placement, content)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			docID, n.Chapter, n.LineID, n.Kind, n.Placement, n.Text,
		); err != nil {
			return errors.NewStore("insert notes", docID, err)
		}
	}

	for _, e := range rec.TOC {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO toc (doc_id, chapter, level, type, ordinal, title)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			docID, e.Chapter, e.Level, e.Type, e.Ordinal, e.Title,
		); err != nil {
			return errors.NewStore("insert toc", docID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewStore("commit", docID, err)
	}
	return nil
}
