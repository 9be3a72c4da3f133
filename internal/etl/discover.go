package etl

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/FocuswithJustin/BodhiCanon/core/canonref"
	"github.com/FocuswithJustin/BodhiCanon/core/errors"
)

// isSourceFile reports whether a name looks like a corpus source file.
func isSourceFile(name string) bool {
	return strings.HasSuffix(name, ".xml") || strings.HasSuffix(name, ".xml.xz")
}

// baseID strips the directory, extension(s), and any part suffix from a
// source path: "T/T08/T08n0251_001.xml.xz" yields "T08n0251_001" without
// extensions, which sameDoc further trims at "_".
func baseID(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, ".xz")
	base = strings.TrimSuffix(base, ".xml")
	return base
}

// listFiles walks a directory collecting source files in sorted order.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isSourceFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewIO("walk", dir, err)
	}
	return files, nil
}

// discoverAll finds every unit under the source root, restricted to the
// configured collections when that list is non-empty.
func (p *Pipeline) discoverAll() ([]unit, error) {
	collections := p.cfg.Collections
	if len(collections) == 0 {
		entries, err := os.ReadDir(p.cfg.SourceRoot)
		if err != nil {
			return nil, errors.NewIO("read", p.cfg.SourceRoot, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				collections = append(collections, e.Name())
			}
		}
	}

	var files []string
	for _, code := range collections {
		found, err := listFiles(filepath.Join(p.cfg.SourceRoot, code))
		if err != nil {
			return nil, err
		}
		files = append(files, found...)
	}
	return p.groupFiles(files), nil
}

// discoverCollection finds every unit belonging to one collection code.
func (p *Pipeline) discoverCollection(code string) ([]unit, error) {
	files, err := listFiles(filepath.Join(p.cfg.SourceRoot, code))
	if err != nil {
		return nil, err
	}
	return p.groupFiles(files), nil
}

// discoverDoc finds the units for one document reference.
func (p *Pipeline) discoverDoc(ref *canonref.Ref) ([]unit, error) {
	files, err := listFiles(filepath.Join(p.cfg.SourceRoot, ref.Collection))
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, f := range files {
		if sameDoc(baseID(f), ref) {
			matched = append(matched, f)
		}
	}
	return p.groupFiles(matched), nil
}

// groupFiles partitions a file list into units. Files claimed by a
// configured work group assemble into one ordered multi-file unit (the
// group's full file list, even if discovery only matched part of it);
// everything else becomes a single-file unit.
func (p *Pipeline) groupFiles(files []string) []unit {
	var units []unit
	grouped := make(map[string]bool)

	for _, f := range files {
		rel := f
		if r, err := filepath.Rel(p.cfg.SourceRoot, f); err == nil {
			rel = r
		}
		g, ok := p.cfg.GroupFor(rel)
		if !ok {
			units = append(units, unit{files: []string{f}})
			continue
		}
		if grouped[g.DocID] {
			continue
		}
		grouped[g.DocID] = true
		u := unit{docID: g.DocID}
		for _, gf := range g.Files {
			u.files = append(u.files, filepath.Join(p.cfg.SourceRoot, gf))
		}
		units = append(units, u)
	}

	sortUnits(units)
	return units
}
