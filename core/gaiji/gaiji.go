// Package gaiji resolves private-use character escape codes to display forms.
//
// Canon XML references characters outside standard encodings through
// <g ref="#CB00178"/> elements. The resolution table maps each CB code to up
// to four declared forms; Resolve picks the best one available and never
// returns an empty string, so a missing mapping stays visible in the output
// instead of silently disappearing.
package gaiji

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/FocuswithJustin/BodhiCanon/core/errors"
)

// Entry holds the declared display forms for one escape code.
// Fields mirror the table file; any of them may be empty.
type Entry struct {
	UniChar      string `json:"uni_char"`       // exact Unicode character
	NormUniChar  string `json:"norm_uni_char"`  // normalized Unicode substitute
	NormBig5Char string `json:"norm_big5_char"` // Big5-range substitute
	Composition  string `json:"composition"`    // compositional recipe, e.g. [口*爾]
}

// Table is an immutable escape-code resolution table. Construct it once per
// batch run with Load and pass it explicitly into the rendering pass.
type Table struct {
	entries map[string]Entry
}

// Load reads a resolution table from a JSON file mapping codes to entries.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIO("read", path, err)
	}
	return Parse(data)
}

// Parse builds a table from raw JSON bytes.
func Parse(data []byte) (*Table, error) {
	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.NewParse("JSON", "", fmt.Sprintf("gaiji table: %v", err))
	}
	return &Table{entries: entries}, nil
}

// Empty returns a table with no entries. Every lookup falls back to the
// visible [CODE] token. Useful for tests and for corpora without a table.
func Empty() *Table {
	return &Table{entries: map[string]Entry{}}
}

// Len returns the number of loaded entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Resolve maps an escape code to a display form. First match wins:
//
//  1. exact Unicode character
//  2. normalized Unicode character
//  3. Big5-range substitute
//  4. compositional recipe (kept verbatim; assembling the glyph is a
//     display-layer concern)
//  5. the raw code wrapped in brackets, so gaps are auditable
//
// A leading "#" (as found in ref attributes) is stripped.
func (t *Table) Resolve(code string) string {
	code = strings.TrimPrefix(code, "#")

	entry, ok := t.entries[code]
	if !ok {
		return "[" + code + "]"
	}
	switch {
	case entry.UniChar != "":
		return entry.UniChar
	case entry.NormUniChar != "":
		return entry.NormUniChar
	case entry.NormBig5Char != "":
		return entry.NormBig5Char
	case entry.Composition != "":
		return entry.Composition
	}
	return "[" + code + "]"
}

// Lookup returns the raw entry for a code, if present.
func (t *Table) Lookup(code string) (Entry, bool) {
	entry, ok := t.entries[strings.TrimPrefix(code, "#")]
	return entry, ok
}
