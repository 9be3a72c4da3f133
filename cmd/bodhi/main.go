// Command bodhi is the CLI for the canon search store. It ingests TEI
// source files into SQLite, queries the resulting store, and serves the
// read API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/FocuswithJustin/BodhiCanon/core/sqlite"
	"github.com/FocuswithJustin/BodhiCanon/core/store"
	"github.com/FocuswithJustin/BodhiCanon/internal/api"
	"github.com/FocuswithJustin/BodhiCanon/internal/config"
	"github.com/FocuswithJustin/BodhiCanon/internal/etl"
	"github.com/FocuswithJustin/BodhiCanon/internal/logging"
)

const version = "0.1.0"

// CLI defines the command-line interface for bodhi.
var CLI struct {
	// Global flags
	Config    string `name:"config" short:"c" help:"Config file path (TOML)" type:"path"`
	DB        string `name:"db" help:"Database path override"`
	Source    string `name:"source" help:"Source root override"`
	Workers   int    `name:"workers" help:"Worker count override"`
	LogLevel  string `name:"log-level" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	LogFormat string `name:"log-format" default:"text" enum:"text,json" help:"Log format"`

	ETL     ETLGroup   `cmd:"" help:"Ingest source files into the store"`
	Query   QueryGroup `cmd:"" help:"Query the store"`
	Serve   ServeCmd   `cmd:"" help:"Start the query API server"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// ETLGroup contains pipeline runs at the three scopes.
type ETLGroup struct {
	Doc   ETLDocCmd   `cmd:"" help:"Process one document by reference"`
	Canon ETLCanonCmd `cmd:"" help:"Process one collection by code"`
	All   ETLAllCmd   `cmd:"" help:"Process the whole corpus"`
}

// QueryGroup contains read operations against an existing store.
type QueryGroup struct {
	Catalog   QueryCatalogCmd   `cmd:"" help:"Show catalog entries"`
	Content   QueryContentCmd   `cmd:"" help:"Show one chapter's content"`
	TOC       QueryTOCCmd       `cmd:"" help:"Show a document's table of contents"`
	Apparatus QueryApparatusCmd `cmd:"" help:"Show a chapter's variant readings"`
	Notes     QueryNotesCmd     `cmd:"" help:"Show a chapter's annotations"`
	Search    QuerySearchCmd    `cmd:"" help:"Full-text search"`
}

// loadConfig applies config file and global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		return nil, err
	}
	if CLI.DB != "" {
		cfg.DatabasePath = CLI.DB
	}
	if CLI.Source != "" {
		cfg.SourceRoot = CLI.Source
	}
	if CLI.Workers > 0 {
		cfg.Workers = CLI.Workers
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.DatabasePath)
}

// runETL executes one pipeline invocation and prints the summary.
func runETL(run func(context.Context, *etl.Pipeline) (*etl.Summary, error)) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := etl.New(cfg, st)
	if err != nil {
		return err
	}
	p.Progress = func(ev etl.Event) {
		if ev.Err != "" {
			fmt.Printf("[%d/%d] FAIL %s: %s\n", ev.Index, ev.Total, ev.DocID, ev.Err)
			return
		}
		fmt.Printf("[%d/%d] %s\n", ev.Index, ev.Total, ev.DocID)
	}

	sum, err := run(context.Background(), p)
	if err != nil {
		return err
	}

	fmt.Printf("\nRun %s: %d/%d processed in %s\n",
		sum.RunID, sum.Processed, sum.Total, sum.Elapsed.Round(time.Millisecond))
	if len(sum.Failed) > 0 {
		fmt.Printf("%d failed:\n", len(sum.Failed))
		for _, f := range sum.Failed {
			fmt.Printf("  %s (%s): %s\n", f.DocID, f.Path, f.Err)
		}
		return fmt.Errorf("%d of %d documents failed", len(sum.Failed), sum.Total)
	}
	return nil
}

// ETLDocCmd processes a single document.
type ETLDocCmd struct {
	Ref string `arg:"" help:"Document reference, e.g. T0251 or T08n0251"`
}

func (c *ETLDocCmd) Run() error {
	return runETL(func(ctx context.Context, p *etl.Pipeline) (*etl.Summary, error) {
		return p.RunDoc(ctx, c.Ref)
	})
}

// ETLCanonCmd processes one collection.
type ETLCanonCmd struct {
	Code string `arg:"" help:"Collection code, e.g. T or X"`
}

func (c *ETLCanonCmd) Run() error {
	return runETL(func(ctx context.Context, p *etl.Pipeline) (*etl.Summary, error) {
		return p.RunCollection(ctx, c.Code)
	})
}

// ETLAllCmd processes everything under the source root.
type ETLAllCmd struct{}

func (c *ETLAllCmd) Run() error {
	return runETL(func(ctx context.Context, p *etl.Pipeline) (*etl.Summary, error) {
		return p.RunAll(ctx)
	})
}

// withStore opens the store for a read command.
func withStore(fn func(context.Context, *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(context.Background(), st)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// QueryCatalogCmd lists catalog entries or shows one document's entry.
type QueryCatalogCmd struct {
	Ref        string `arg:"" optional:"" help:"Document reference; omit to list"`
	Collection string `name:"collection" help:"Filter list by collection code"`
}

func (c *QueryCatalogCmd) Run() error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		if c.Ref != "" {
			entry, err := st.GetCatalog(ctx, c.Ref)
			if err != nil {
				return err
			}
			return printJSON(entry)
		}
		entries, err := st.ListCatalog(ctx, c.Collection)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-10s %-6s %s\n", e.DocID, e.Volume, e.Title)
		}
		fmt.Printf("%d documents\n", len(entries))
		return nil
	})
}

// QueryContentCmd prints one chapter.
type QueryContentCmd struct {
	Ref     string `arg:"" help:"Document reference"`
	Chapter int    `arg:"" help:"Chapter number"`
	Markup  bool   `name:"markup" help:"Print the markup rendering instead of plain text"`
}

func (c *QueryContentCmd) Run() error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		row, err := st.GetContent(ctx, c.Ref, c.Chapter)
		if err != nil {
			return err
		}
		if c.Markup {
			fmt.Println(row.Markup)
		} else {
			fmt.Println(row.Plain)
		}
		return nil
	})
}

// QueryTOCCmd prints a document's table of contents.
type QueryTOCCmd struct {
	Ref string `arg:"" help:"Document reference"`
}

func (c *QueryTOCCmd) Run() error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		toc, err := st.GetTOC(ctx, c.Ref)
		if err != nil {
			return err
		}
		for _, e := range toc {
			fmt.Printf("%s[%s %s] %s (juan %d)\n",
				strings.Repeat("  ", e.Level-1), e.Type, e.Ordinal, e.Title, e.Chapter)
		}
		return nil
	})
}

// QueryApparatusCmd prints a chapter's variant readings.
type QueryApparatusCmd struct {
	Ref     string `arg:"" help:"Document reference"`
	Chapter int    `arg:"" help:"Chapter number"`
}

func (c *QueryApparatusCmd) Run() error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		apps, err := st.GetApparatus(ctx, c.Ref, c.Chapter)
		if err != nil {
			return err
		}
		return printJSON(apps)
	})
}

// QueryNotesCmd prints a chapter's annotations.
type QueryNotesCmd struct {
	Ref     string `arg:"" help:"Document reference"`
	Chapter int    `arg:"" help:"Chapter number"`
}

func (c *QueryNotesCmd) Run() error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		notes, err := st.GetNotes(ctx, c.Ref, c.Chapter)
		if err != nil {
			return err
		}
		return printJSON(notes)
	})
}

// QuerySearchCmd runs a ranked full-text search.
type QuerySearchCmd struct {
	Query string `arg:"" help:"Search text (traditional or simplified)"`
	Limit int    `name:"limit" default:"20" help:"Maximum hits"`
}

func (c *QuerySearchCmd) Run() error {
	return withStore(func(ctx context.Context, st *store.Store) error {
		hits, err := st.Search(ctx, c.Query, c.Limit)
		if err != nil {
			return err
		}
		for _, h := range hits {
			fmt.Printf("%s juan %d: %s\n", h.DocID, h.Chapter, h.Snippet)
		}
		fmt.Printf("%d hits\n", len(hits))
		return nil
	})
}

// ServeCmd starts the query API server.
type ServeCmd struct {
	Addr string `name:"addr" help:"Listen address; overrides config"`
}

func (c *ServeCmd) Run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	addr := cfg.ListenAddr
	if c.Addr != "" {
		addr = c.Addr
	}
	return api.NewServer(st, cfg).ListenAndServe(addr)
}

// VersionCmd prints version and driver information.
type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	info := sqlite.GetInfo()
	fmt.Printf("bodhi %s\n", version)
	fmt.Printf("sqlite driver: %s (%s)\n", info.DriverName, info.DriverType)
	return nil
}

func initLogging() {
	level := logging.LevelInfo
	switch CLI.LogLevel {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	format := logging.FormatText
	if CLI.LogFormat == "json" {
		format = logging.FormatJSON
	}
	logging.InitLogger(level, format)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("bodhi"),
		kong.Description("Canon text ETL and search store"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	initLogging()
	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
