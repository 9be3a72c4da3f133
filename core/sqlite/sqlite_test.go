package sqlite

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDriverInfo(t *testing.T) {
	info := GetInfo()

	if info.DriverName == "" {
		t.Error("DriverName should not be empty")
	}
	if info.DriverType == "" {
		t.Error("DriverType should not be empty")
	}
	if info.Package == "" {
		t.Error("Package should not be empty")
	}

	// Verify consistency
	if info.DriverName != DriverName() {
		t.Errorf("DriverName mismatch: info=%s, func=%s", info.DriverName, DriverName())
	}
	if info.DriverType != DriverType() {
		t.Errorf("DriverType mismatch: info=%s, func=%s", info.DriverType, DriverType())
	}
	if info.IsCGO != IsCGO() {
		t.Errorf("IsCGO mismatch: info=%v, func=%v", info.IsCGO, IsCGO())
	}

	t.Logf("SQLite driver: %s (%s) from %s", info.DriverName, info.DriverType, info.Package)
}

func TestOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE test (id INTEGER PRIMARY KEY, value TEXT)`)
	if err != nil {
		t.Fatalf("failed to create table: %v", err)
	}

	_, err = db.Exec(`INSERT INTO test (value) VALUES (?)`, "hello")
	if err != nil {
		t.Fatalf("failed to insert: %v", err)
	}

	var value string
	err = db.QueryRow(`SELECT value FROM test WHERE id = 1`).Scan(&value)
	if err != nil {
		t.Fatalf("failed to query: %v", err)
	}
	if value != "hello" {
		t.Errorf("expected 'hello', got '%s'", value)
	}
}

func TestFTS5Available(t *testing.T) {
	// The content search index requires FTS5 with the trigram tokenizer.
	db := MustOpen(filepath.Join(t.TempDir(), "fts.db"))
	defer db.Close()

	_, err := db.Exec(`CREATE VIRTUAL TABLE ft USING fts5(body, tokenize='trigram')`)
	if err != nil {
		t.Fatalf("FTS5 trigram table creation failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO ft (body) VALUES ('general knowledge')`); err != nil {
		t.Fatalf("insert into fts table failed: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT count(*) FROM ft WHERE ft MATCH 'knowledge'`).Scan(&n); err != nil {
		t.Fatalf("fts query failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 match, got %d", n)
	}
}

func TestOpenReadOnly(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ro.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if _, err := db.Exec(`CREATE TABLE t (v TEXT)`); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	db.Close()

	ro, err := OpenReadOnly(dbPath)
	if err != nil {
		t.Fatalf("failed to open read-only: %v", err)
	}
	defer ro.Close()

	if _, err := ro.Exec(`INSERT INTO t (v) VALUES ('x')`); err == nil {
		t.Error("write to read-only database should fail")
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("database file missing: %v", err)
	}
}
