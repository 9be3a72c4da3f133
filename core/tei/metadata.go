package tei

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/FocuswithJustin/BodhiCanon/core/gaiji"
)

// Metadata holds the document-level header fields. Missing header fields
// yield zero values; a document with an incomplete header is still
// processed.
type Metadata struct {
	DocID            string // normalized identifier, e.g. "T0251"
	XMLID            string // raw xml:id of the root, e.g. "T08n0251"
	Collection       string // collection code, e.g. "T"
	Volume           string // volume digits, e.g. "08"
	Title            string
	Author           string
	DeclaredChapters int    // chapter count declared in <extent>
	Category         string // collection display name
}

// xmlIDPattern matches identifiers like T01n0001, B00na002, GA040n...,
// X78n1553a: collection letters, volume digits, "n", optional lowercase
// prefix, digits, optional lowercase suffix.
var xmlIDPattern = regexp.MustCompile(`^([A-Z]+)(\d+)n([a-z]*)(\d+[a-z]?)`)

var digitsPattern = regexp.MustCompile(`\d+`)

// ExtractMetadata reads the fixed header fields from a parsed document.
// The gaiji table resolves escape references inside titles; canons maps
// collection codes to display names and may be nil.
func ExtractMetadata(doc *Document, table *gaiji.Table, canons map[string]string) Metadata {
	meta := Metadata{DeclaredChapters: 1}

	root := doc.first("/*")
	if root != nil {
		meta.XMLID = Attr(root, "xml:id")
	}

	if m := xmlIDPattern.FindStringSubmatch(meta.XMLID); m != nil {
		meta.Collection = m[1]
		meta.Volume = m[2]
		meta.DocID = meta.Collection + padDocNumber(m[3]+m[4])
	} else {
		meta.DocID = meta.XMLID
	}

	meta.Title = extractTitle(doc, table)
	if meta.Title == "" {
		meta.Title = meta.XMLID
	}

	if author := doc.first("//titleStmt/author"); author != nil {
		meta.Author = strings.TrimSpace(author.InnerText())
	}

	if extent := doc.first("//extent"); extent != nil {
		if m := digitsPattern.FindString(extent.InnerText()); m != "" {
			if n, err := strconv.Atoi(m); err == nil && n > 0 {
				meta.DeclaredChapters = n
			}
		}
	}

	if canons != nil {
		meta.Category = canons[meta.Collection]
	}

	return meta
}

// extractTitle finds the monograph-level Chinese title. Titles may contain
// <g> escape references, so plain inner text is not enough.
func extractTitle(doc *Document, table *gaiji.Table) string {
	titles, err := doc.Query("//titleStmt/title")
	if err != nil || len(titles) == 0 {
		return ""
	}
	for _, n := range titles {
		if Attr(n, "level") == "m" && Attr(n, "xml:lang") == "zh-Hant" {
			if t := strings.TrimSpace(headerText(n, table)); t != "" {
				return t
			}
		}
	}
	// Headers without level/lang markup: take the first non-empty title.
	for _, n := range titles {
		if t := strings.TrimSpace(headerText(n, table)); t != "" {
			return t
		}
	}
	return ""
}

// headerText extracts text from a header element, resolving <g> escape
// references. Header fields carry no other markup worth special-casing.
func headerText(n *xmlquery.Node, table *gaiji.Table) string {
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			sb.WriteString(child.Data)
		case xmlquery.ElementNode:
			if LocalName(child) == "g" && table != nil {
				sb.WriteString(table.Resolve(Attr(child, "ref")))
			} else {
				sb.WriteString(headerText(child, table))
			}
		}
	}
	return sb.String()
}

// padDocNumber zero-pads the digit run of a document number to four digits,
// preserving letter prefixes and suffixes.
func padDocNumber(num string) string {
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
