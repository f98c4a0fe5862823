// Package settings loads the runtime configuration emitted by the
// generator: the [tool.pgsite] namespace of a pgsite.toml file, holding
// per-object insert statement lists and read statements.
//
// Settings are loaded once and passed by reference; there is no implicit
// global state.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// maxSearchDepth bounds the upward directory walk during discovery.
const maxSearchDepth = 10

// ConfigName is the discovered configuration file name.
const ConfigName = "pgsite.toml"

// Settings holds the [tool.pgsite] configuration.
type Settings struct {
	// Path is the file the settings were loaded from; empty when the
	// defaults are in effect.
	Path string

	readSQL      map[string]string
	insertSQL    map[string]any
	DefaultTable string
	AutoCommit   bool
}

type fileFormat struct {
	Tool struct {
		Pgsite struct {
			ReadSQL      map[string]string `toml:"read_sql"`
			InsertSQL    map[string]any    `toml:"insert_sql"`
			DefaultTable string            `toml:"default_table"`
			AutoCommit   *bool             `toml:"auto_commit"`
		} `toml:"pgsite"`
	} `toml:"tool"`
}

func defaults() *Settings {
	return &Settings{
		readSQL:    map[string]string{},
		insertSQL:  map[string]any{},
		AutoCommit: true,
	}
}

// Load reads settings from path. An empty path triggers discovery: walk
// up from the working directory looking for pgsite.toml; if none is
// found, the defaults apply (missing configuration is not an error, it
// just means no queries are configured).
func Load(path string) (*Settings, error) {
	if path == "" {
		path = discover()
		if path == "" {
			return defaults(), nil
		}
	}

	raw, err := os.ReadFile(path) //nolint:gosec // path is from trusted source
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	var f fileFormat
	if err := toml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	s := defaults()
	s.Path = path
	if f.Tool.Pgsite.ReadSQL != nil {
		s.readSQL = f.Tool.Pgsite.ReadSQL
	}
	if f.Tool.Pgsite.InsertSQL != nil {
		s.insertSQL = f.Tool.Pgsite.InsertSQL
	}
	s.DefaultTable = f.Tool.Pgsite.DefaultTable
	if f.Tool.Pgsite.AutoCommit != nil {
		s.AutoCommit = *f.Tool.Pgsite.AutoCommit
	}
	return s, nil
}

// discover walks up from the working directory looking for pgsite.toml.
func discover() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for i := 0; i < maxSearchDepth; i++ {
		candidate := filepath.Join(dir, ConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// ReadSQL returns the read statement configured for name, or "" when none
// is configured.
func (s *Settings) ReadSQL(name string) string {
	return strings.TrimSpace(s.readSQL[name])
}

// InsertSQL returns the insert statements configured for name. A string
// value is split on semicolons; a list value is returned as-is. Empty
// entries are dropped.
func (s *Settings) InsertSQL(name string) []string {
	switch v := s.insertSQL[name].(type) {
	case string:
		var out []string
		for _, q := range strings.Split(v, ";") {
			if q = strings.TrimSpace(q); q != "" {
				out = append(out, q)
			}
		}
		return out
	case []any:
		var out []string
		for _, item := range v {
			if q, ok := item.(string); ok && strings.TrimSpace(q) != "" {
				out = append(out, strings.TrimSpace(q))
			}
		}
		return out
	}
	return nil
}

// Objects returns the names that have insert statements configured,
// sorted for stable output.
func (s *Settings) Objects() []string {
	names := make([]string, 0, len(s.insertSQL))
	for name := range s.insertSQL {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
