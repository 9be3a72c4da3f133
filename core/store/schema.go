package store

// schemaSQL creates the five relational tables plus the full-text index.
// content_fts is an external-content FTS5 table over content; the three
// triggers keep it consistent with every content write inside the same
// transaction, so the index can never drift from the rows it mirrors.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS catalog (
    doc_id     TEXT PRIMARY KEY,
    collection TEXT NOT NULL,
    volume     TEXT,
    title      TEXT,
    title_sc   TEXT,
    author     TEXT,
    chapters   INTEGER DEFAULT 1,
    category   TEXT,
    checksum   TEXT
);

CREATE TABLE IF NOT EXISTS content (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    doc_id        TEXT NOT NULL,
    chapter       INTEGER NOT NULL,
    markup        TEXT,
    plain_text    TEXT,
    plain_text_sc TEXT,
    FOREIGN KEY (doc_id) REFERENCES catalog(doc_id),
    UNIQUE(doc_id, chapter)
);

CREATE TABLE IF NOT EXISTS apparatus (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    doc_id   TEXT NOT NULL,
    chapter  INTEGER,
    line_id  TEXT,
    lemma    TEXT,
    readings TEXT
);

CREATE TABLE IF NOT EXISTS notes (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    doc_id    TEXT NOT NULL,
    chapter   INTEGER,
    line_id   TEXT,
    kind      TEXT,
    placement TEXT,
    content   TEXT
);

CREATE TABLE IF NOT EXISTS toc (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    doc_id  TEXT NOT NULL,
    chapter INTEGER,
    level   INTEGER,
    type    TEXT,
    ordinal TEXT,
    title   TEXT
);

CREATE VIRTUAL TABLE IF NOT EXISTS content_fts USING fts5(
    doc_id,
    chapter,
    plain_text_sc,
    content=content,
    content_rowid=id,
    tokenize='trigram'
);

CREATE TRIGGER IF NOT EXISTS content_ai AFTER INSERT ON content BEGIN
    INSERT INTO content_fts(rowid, doc_id, chapter, plain_text_sc)
    VALUES (new.id, new.doc_id, new.chapter, new.plain_text_sc);
END;

CREATE TRIGGER IF NOT EXISTS content_ad AFTER DELETE ON content BEGIN
    INSERT INTO content_fts(content_fts, rowid, doc_id, chapter, plain_text_sc)
    VALUES ('delete', old.id, old.doc_id, old.chapter, old.plain_text_sc);
END;

CREATE TRIGGER IF NOT EXISTS content_au AFTER UPDATE ON content BEGIN
    INSERT INTO content_fts(content_fts, rowid, doc_id, chapter, plain_text_sc)
    VALUES ('delete', old.id, old.doc_id, old.chapter, old.plain_text_sc);
    INSERT INTO content_fts(rowid, doc_id, chapter, plain_text_sc)
    VALUES (new.id, new.doc_id, new.chapter, new.plain_text_sc);
END;

CREATE INDEX IF NOT EXISTS idx_catalog_collection ON catalog(collection);
CREATE INDEX IF NOT EXISTS idx_content_doc ON content(doc_id);
CREATE INDEX IF NOT EXISTS idx_apparatus_doc ON apparatus(doc_id, chapter);
CREATE INDEX IF NOT EXISTS idx_notes_doc ON notes(doc_id, chapter);
CREATE INDEX IF NOT EXISTS idx_toc_doc ON toc(doc_id);
`
