// Package canonref parses operator-supplied canon document references.
//
// Three forms are accepted:
//
//   - "T"          collection code (whole collection)
//   - "T0251"      short document reference
//   - "T08n0251"   volume-qualified reference, as used in source file names
//
// Number parts may carry a lowercase suffix or prefix letter, as in
// "T08n0251a" or "B00na002" (supplement volumes).
package canonref

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Ref is a parsed document reference. For collection references only
// Collection is set; for volume-qualified references Volume is non-empty.
type Ref struct {
	Collection string // collection code, e.g. "T"
	Volume     string // volume digits, e.g. "08"; empty for short form
	Number     string // document number within the collection, e.g. "0251"
}

// rawRef is the grammar shape before post-processing.
type rawRef struct {
	Collection string  `parser:"@Collection"`
	First      *string `parser:"( @Number"`
	Sep        *string `parser:"  ( @Lower"`
	Second     *string `parser:"    @Number )?"`
	Suffix     *string `parser:"  ( @Lower )? )?"`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Collection", Pattern: `[A-Z]+`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Lower", Pattern: `[a-z]+`},
})

// Two tokens of lookahead let the parser tell a volume separator
// ("n" followed by digits) from a bare suffix letter before committing.
var refParser = participle.MustBuild[rawRef](
	participle.Lexer(refLexer),
	participle.UseLookahead(2),
)

// Parse parses a reference string.
func Parse(input string) (*Ref, error) {
	input = strings.TrimSpace(input)
	raw, err := refParser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reference %q: %w", input, err)
	}

	ref := &Ref{Collection: raw.Collection}

	switch {
	case raw.Second != nil:
		// Volume form: First is the volume, Sep is "n" plus an optional
		// lowercase number prefix ("na" in B00na002).
		sep := *raw.Sep
		if !strings.HasPrefix(sep, "n") {
			return nil, fmt.Errorf("failed to parse reference %q: expected volume separator 'n', got %q", input, sep)
		}
		ref.Volume = *raw.First
		ref.Number = sep[1:] + *raw.Second
		if raw.Suffix != nil {
			ref.Number += *raw.Suffix
		}
	case raw.First != nil:
		ref.Number = *raw.First
		if raw.Suffix != nil {
			ref.Number += *raw.Suffix
		}
	case raw.Suffix != nil:
		return nil, fmt.Errorf("failed to parse reference %q: dangling suffix", input)
	}

	return ref, nil
}

// IsCollection reports whether the reference names a whole collection.
func (r *Ref) IsCollection() bool {
	return r.Number == ""
}

// DocID returns the normalized document identifier ("T0251"): collection
// code plus the document number zero-padded to four digits. Empty for
// collection references.
func (r *Ref) DocID() string {
	if r.Number == "" {
		return ""
	}
	return r.Collection + padNumber(r.Number)
}

// String reconstructs the reference in its most specific form.
func (r *Ref) String() string {
	if r.Volume != "" {
		return r.Collection + r.Volume + "n" + r.Number
	}
	return r.Collection + r.Number
}

// padNumber zero-pads the digit run of a document number to four digits,
// preserving any letter prefix/suffix ("a002" -> "a002", "251" -> "0251").
func padNumber(num string) string {
	start := 0
	for start < len(num) && (num[start] < '0' || num[start] > '9') {
		start++
	}
	end := start
	for end < len(num) && num[end] >= '0' && num[end] <= '9' {
		end++
	}
	digits := num[start:end]
	for len(digits) < 4 {
		digits = "0" + digits
	}
	return num[:start] + digits + num[end:]
}
