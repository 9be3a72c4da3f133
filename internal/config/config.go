// Package config loads the pipeline configuration from a TOML file.
// CLI flags override individual fields after loading.
package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/FocuswithJustin/BodhiCanon/core/errors"
)

// WorkGroup names a logical work split across multiple source files. The
// files are processed in order: the first replaces, the rest append with
// chapter numbering continuing where the previous file ended. Groups are
// explicit configuration; the pipeline never guesses them from file names.
type WorkGroup struct {
	DocID string   `toml:"doc_id"`
	Files []string `toml:"files"`
}

// Config is the full pipeline configuration.
type Config struct {
	// SourceRoot is the corpus directory: SourceRoot/<collection>/<vol>/<file>.xml
	SourceRoot string `toml:"source_root"`
	// DatabasePath is where the SQLite store lives.
	DatabasePath string `toml:"database_path"`
	// GaijiPath is the character-resolution table file.
	GaijiPath string `toml:"gaiji_path"`
	// CanonsPath maps collection codes to display names; optional.
	CanonsPath string `toml:"canons_path"`
	// Collections restricts `etl all` to these codes; empty means all.
	Collections []string `toml:"collections"`
	// Workers is the cross-document worker count; 1 means sequential.
	Workers int `toml:"workers"`
	// Groups lists multi-file works.
	Groups []WorkGroup `toml:"groups"`

	// Server settings for the query API.
	ListenAddr string `toml:"listen_addr"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		SourceRoot:   "data/xml",
		DatabasePath: "data/canon.db",
		GaijiPath:    "data/gaiji.json",
		CanonsPath:   "data/canons.json",
		Workers:      1,
		ListenAddr:   ":8080",
	}
}

// Load reads a config file, applying defaults for absent fields. A missing
// file is not an error; the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.NewIO("read", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewParse("TOML", path, err.Error())
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return cfg, nil
}

// GroupFor returns the work group containing the given file path, if any.
func (c *Config) GroupFor(path string) (*WorkGroup, bool) {
	for i := range c.Groups {
		for _, f := range c.Groups[i].Files {
			if f == path {
				return &c.Groups[i], true
			}
		}
	}
	return nil, false
}
