// Package etl drives the corpus pipeline: discover source files, run
// parse → segment/extract → write per file with per-document fault
// isolation, and report a batch summary. Every invocation is a fresh full
// pass; there is no checkpoint or resume state.
package etl

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/BodhiCanon/core/canonref"
	"github.com/FocuswithJustin/BodhiCanon/core/errors"
	"github.com/FocuswithJustin/BodhiCanon/core/extract"
	"github.com/FocuswithJustin/BodhiCanon/core/gaiji"
	"github.com/FocuswithJustin/BodhiCanon/core/render"
	"github.com/FocuswithJustin/BodhiCanon/core/store"
	"github.com/FocuswithJustin/BodhiCanon/core/tei"
	"github.com/FocuswithJustin/BodhiCanon/internal/config"
	"github.com/FocuswithJustin/BodhiCanon/internal/fileutil"
	"github.com/FocuswithJustin/BodhiCanon/internal/logging"
)

// Event is one progress notification: a unit finished, successfully or not.
type Event struct {
	DocID string `json:"doc_id"`
	Path  string `json:"path"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	Err   string `json:"error,omitempty"`
}

// Failure identifies one document that did not make it into the store.
type Failure struct {
	DocID string `json:"doc_id"`
	Path  string `json:"path"`
	Err   string `json:"error"`
}

// Summary is the outcome of one batch run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Failed    []Failure     `json:"failed,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Pipeline wires the pipeline stages together for a batch run.
type Pipeline struct {
	cfg    *config.Config
	store  *store.Store
	table  *gaiji.Table
	canons map[string]string

	// Progress, when set, receives one event per completed unit. Events
	// may arrive from worker goroutines.
	Progress func(Event)
}

// New builds a pipeline: the gaiji table and collection names load once and
// stay immutable for the run.
func New(cfg *config.Config, st *store.Store) (*Pipeline, error) {
	table, err := gaiji.Load(cfg.GaijiPath)
	if err != nil {
		return nil, errors.Wrap(err, "load gaiji table")
	}
	canons, err := tei.LoadCanons(cfg.CanonsPath)
	if err != nil {
		return nil, errors.Wrap(err, "load collection names")
	}
	return &Pipeline{cfg: cfg, store: st, table: table, canons: canons}, nil
}

// NewWithTable builds a pipeline around a preloaded table. Used by tests
// and by callers that manage the table themselves.
func NewWithTable(cfg *config.Config, st *store.Store, table *gaiji.Table, canons map[string]string) *Pipeline {
	return &Pipeline{cfg: cfg, store: st, table: table, canons: canons}
}

// unit is one schedulable piece of work: a single file, or an ordered
// multi-file group sharing one catalog entry.
type unit struct {
	docID string // group override; empty for single files
	files []string
}

// RunAll processes every collection under the source root (restricted by
// the configured collection list, if any).
func (p *Pipeline) RunAll(ctx context.Context) (*Summary, error) {
	units, err := p.discoverAll()
	if err != nil {
		return nil, err
	}
	return p.run(ctx, units)
}

// RunCollection processes one collection by code.
func (p *Pipeline) RunCollection(ctx context.Context, code string) (*Summary, error) {
	units, err := p.discoverCollection(code)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, units)
}

// RunDoc processes the documents matching an operator-supplied reference
// such as "T0251" or "T08n0251". A bare collection code falls through to
// RunCollection.
func (p *Pipeline) RunDoc(ctx context.Context, rawRef string) (*Summary, error) {
	ref, err := canonref.Parse(rawRef)
	if err != nil {
		return nil, err
	}
	if ref.IsCollection() {
		return p.RunCollection(ctx, ref.Collection)
	}
	units, err := p.discoverDoc(ref)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, errors.NewNotFound("document", rawRef)
	}
	return p.run(ctx, units)
}

// run executes the unit list. Units run concurrently when workers > 1; the
// files inside one group always run in order on one goroutine, because the
// chapter offset of each continuation file depends on its predecessor.
func (p *Pipeline) run(ctx context.Context, units []unit) (*Summary, error) {
	logging.ResetNodeKinds()

	summary := &Summary{
		RunID: uuid.NewString(),
		Total: len(units),
	}
	start := time.Now()

	var mu sync.Mutex
	done := 0
	report := func(docID, path string, err error) {
		mu.Lock()
		done++
		idx := done
		if err != nil {
			summary.Failed = append(summary.Failed, Failure{DocID: docID, Path: path, Err: err.Error()})
		} else {
			summary.Processed++
		}
		mu.Unlock()

		if err != nil {
			logging.DocumentFailed(docID, path, err)
		}
		if p.Progress != nil {
			ev := Event{DocID: docID, Path: path, Index: idx, Total: len(units)}
			if err != nil {
				ev.Err = err.Error()
			}
			p.Progress(ev)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)
	for _, u := range units {
		u := u
		g.Go(func() error {
			docID, err := p.processUnit(gctx, u)
			report(docID, u.files[0], err)
			// Per-document failures stay inside the unit; only
			// cancellation stops the batch.
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary.Elapsed = time.Since(start)
	logging.BatchSummary(summary.RunID, summary.Processed, len(summary.Failed), summary.Elapsed)
	return summary, nil
}

// processUnit runs one unit: the first file replaces the document's rows,
// continuation files append with chapter numbering picking up where the
// previous file ended.
func (p *Pipeline) processUnit(ctx context.Context, u unit) (string, error) {
	mode := store.Replace
	offset := 1
	docID := u.docID

	for _, path := range u.files {
		start := time.Now()
		id, last, chapters, err := p.processFile(ctx, path, docID, mode, offset)
		if err != nil {
			if docID == "" {
				docID = id
			}
			return docID, err
		}
		docID = id
		mode = store.Append
		offset = last + 1
		logging.DocumentProcessed(id, chapters, time.Since(start), "path", path)
	}
	return docID, nil
}

// processFile runs the full pipeline for one source file. idOverride pins
// the catalog identity for multi-file groups whose per-file xml:ids differ.
func (p *Pipeline) processFile(ctx context.Context, path, idOverride string, mode store.Mode, offset int) (docID string, lastChapter, chapters int, err error) {
	data, err := fileutil.ReadSource(path)
	if err != nil {
		return idOverride, 0, 0, err
	}
	doc, err := tei.Parse(data)
	if err != nil {
		return idOverride, 0, 0, err
	}

	meta := tei.ExtractMetadata(doc, p.table, p.canons)
	docID = meta.DocID
	if idOverride != "" {
		docID = idOverride
	}

	res := render.Segment(doc.Body(), p.table, docID, offset)
	rec := &store.DocumentRecord{
		Catalog: store.CatalogEntry{
			DocID:      docID,
			Collection: meta.Collection,
			Volume:     meta.Volume,
			Title:      meta.Title,
			Author:     meta.Author,
			Chapters:   meta.DeclaredChapters,
			Category:   meta.Category,
			Checksum:   fileutil.Checksum(data),
		},
		Units:       res.Units,
		Apparatus:   extract.Apparatus(doc, p.table, res),
		Annotations: extract.Annotations(res),
		TOC:         extract.TOC(res),
	}
	if err := p.store.WriteDocument(ctx, rec, mode); err != nil {
		return docID, 0, 0, err
	}
	return docID, res.LastChapter(), len(res.Units), nil
}

// sortUnits keeps runs deterministic: single files by path, groups by
// their first file.
func sortUnits(units []unit) {
	sort.Slice(units, func(i, j int) bool {
		return units[i].files[0] < units[j].files[0]
	})
}

// sameDoc reports whether a source file name refers to the given document:
// the file's identifier prefix (before any part suffix) parses to the same
// normalized id.
func sameDoc(base string, ref *canonref.Ref) bool {
	if i := strings.IndexByte(base, '_'); i >= 0 {
		base = base[:i]
	}
	got, err := canonref.Parse(base)
	if err != nil {
		return false
	}
	return got.DocID() == ref.DocID()
}
