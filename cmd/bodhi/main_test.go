package main

import (
	"os"
	"path/filepath"
	"testing"
)

const testSutra = `<?xml version="1.0" encoding="UTF-8"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0" xmlns:cb="http://www.cbeta.org/ns/1.0" xml:id="T08n0251">
  <teiHeader>
    <fileDesc>
      <titleStmt>
        <title level="m" xml:lang="zh-Hant">般若波羅蜜多心經</title>
        <author>唐 玄奘譯</author>
      </titleStmt>
      <extent>1卷</extent>
    </fileDesc>
  </teiHeader>
  <text>
    <body>
      <cb:mulu type="經" n="251">般若波羅蜜多心經</cb:mulu>
      <lb n="0848c07"/><p>觀自在菩薩行深般若波羅蜜多時</p>
    </body>
  </text>
</TEI>`

// setupCorpus lays out a one-document corpus and points the global flags
// at it. Flags reset when the test finishes.
func setupCorpus(t *testing.T) {
	t.Helper()
	root := t.TempDir()

	srcPath := filepath.Join(root, "xml", "T", "T08", "T08n0251.xml")
	if err := os.MkdirAll(filepath.Dir(srcPath), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(srcPath, []byte(testSutra), 0644); err != nil {
		t.Fatal(err)
	}

	cfgPath := filepath.Join(root, "bodhi.toml")
	cfg := `source_root = "` + filepath.ToSlash(filepath.Join(root, "xml")) + `"
database_path = "` + filepath.ToSlash(filepath.Join(root, "canon.db")) + `"
gaiji_path = "` + filepath.ToSlash(filepath.Join(root, "gaiji.json")) + `"
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "gaiji.json"), []byte(`{}`), 0644); err != nil {
		t.Fatal(err)
	}

	prev := CLI.Config
	CLI.Config = cfgPath
	t.Cleanup(func() { CLI.Config = prev })
}

func TestETLDocCmd_Run(t *testing.T) {
	setupCorpus(t)

	cmd := &ETLDocCmd{Ref: "T0251"}
	if err := cmd.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestETLDocCmd_RunNotFound(t *testing.T) {
	setupCorpus(t)

	cmd := &ETLDocCmd{Ref: "T9999"}
	if err := cmd.Run(); err == nil {
		t.Error("expected error for unknown document")
	}
}

func TestETLAllThenQuery(t *testing.T) {
	setupCorpus(t)

	if err := (&ETLAllCmd{}).Run(); err != nil {
		t.Fatalf("etl all: %v", err)
	}

	if err := (&QueryCatalogCmd{Ref: "T0251"}).Run(); err != nil {
		t.Errorf("query catalog: %v", err)
	}
	if err := (&QueryContentCmd{Ref: "T0251", Chapter: 1}).Run(); err != nil {
		t.Errorf("query content: %v", err)
	}
	if err := (&QueryTOCCmd{Ref: "T0251"}).Run(); err != nil {
		t.Errorf("query toc: %v", err)
	}
	if err := (&QuerySearchCmd{Query: "觀自在菩薩", Limit: 5}).Run(); err != nil {
		t.Errorf("query search: %v", err)
	}
}

func TestQueryContentCmd_RunMissing(t *testing.T) {
	setupCorpus(t)

	if err := (&ETLAllCmd{}).Run(); err != nil {
		t.Fatal(err)
	}
	if err := (&QueryContentCmd{Ref: "T0251", Chapter: 99}).Run(); err == nil {
		t.Error("expected error for missing chapter")
	}
}

func TestETLCanonCmd_RunReportsFailures(t *testing.T) {
	setupCorpus(t)

	// Drop a malformed file next to the good one.
	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(cfg.SourceRoot, "T", "T01", "T01n0001.xml")
	if err := os.MkdirAll(filepath.Dir(bad), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(bad, []byte("<TEI><body>broken"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := (&ETLCanonCmd{Code: "T"}).Run(); err == nil {
		t.Error("expected nonzero result when a document fails")
	}
}

func TestVersionCmd_Run(t *testing.T) {
	if err := (&VersionCmd{}).Run(); err != nil {
		t.Errorf("Run: %v", err)
	}
}
