package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tobyms/pgsite/internal/cli"
	"github.com/tobyms/pgsite/pkg/analyzer"
	"github.com/tobyms/pgsite/pkg/emitter"
	"github.com/tobyms/pgsite/pkg/parser"
	"github.com/tobyms/pgsite/pkg/schema"
	"github.com/tobyms/pgsite/pkg/sqlgen"
)

var (
	generateOutput  string
	generateFormat  string
	generateObjects []string
	generateWatch   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate [schema.sql]",
	Short: "Generate SQL and configuration from an annotated schema",
	Long: `Scan a .sql schema for annotated CREATE TABLE statements, infer
relationships between the tables, and emit insertion queries, read
queries, and TOML configuration in dependency order.`,
	Example: `  # Generate TOML configuration to stdout
  pgsite generate schema.sql

  # Write plain SQL insert statements to a file
  pgsite generate schema.sql --format sql -o inserts.sql

  # Only process collections and attributes
  pgsite generate schema.sql --objects collections --objects attributes

  # Regenerate whenever the schema changes
  pgsite generate schema.sql -o pgsite.toml --watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := cfg.Schema
		if len(args) == 1 {
			input = args[0]
		}
		output := resolveString(generateOutput, cfg.Generate.Output)
		format := resolveString(generateFormat, cfg.Generate.Format, "toml")
		objects := generateObjects
		if len(objects) == 0 {
			objects = cfg.Generate.Objects
		}
		watch := resolveBool(generateWatch, cfg.Generate.Watch)

		if filepath.Ext(input) != ".sql" && !quiet {
			fmt.Fprintln(os.Stderr, warnStyle.Render("Warning: file does not have .sql extension"))
		}

		if err := runGenerate(input, output, format, objects); err != nil {
			return err
		}
		if watch {
			return watchGenerate(input, output, format, objects)
		}
		return nil
	},
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&generateOutput, "output", "o", "", "output file path (default: print to stdout)")
	f.StringVar(&generateFormat, "format", "", "output format: toml, sql, or json")
	f.StringArrayVar(&generateObjects, "objects", nil, "object types to process (repeatable; default: all)")
	f.BoolVar(&generateWatch, "watch", false, "regenerate when the schema file changes")
}

func runGenerate(input, output, format string, objects []string) error {
	out, err := buildOutput(input, format, objects)
	if err != nil {
		if errors.Is(err, parser.ErrConflictingAnnotations) {
			return cli.SchemaParseError("schema error", err)
		}
		return cli.GeneralError("generation failed", err)
	}

	if output == "" {
		fmt.Print(out)
		return nil
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return cli.GeneralError("creating output directory", err)
		}
	}
	if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
		return cli.GeneralError("writing output", err)
	}
	verbosef("output written to %s", output)
	return nil
}

// buildOutput runs the full generation pipeline for one schema file.
func buildOutput(input, format string, objectFilter []string) (string, error) {
	verbosef("parsing %s", input)
	tables, err := parser.ParseFile(input)
	if err != nil {
		return "", err
	}
	verbosef("found %d objects", len(tables))
	for _, t := range tables {
		verbosef("  - %s: %s", t.Kind, t.Name)
	}

	tables, err = filterTables(tables, objectFilter)
	if err != nil {
		return "", err
	}

	verbosef("analyzing relationships")
	rels := analyzer.Analyze(tables)
	verbosef("found %d relationships", len(rels))

	ordered := analyzer.Order(tables, rels)
	inserts := sqlgen.Inserts(ordered, rels)
	reads := sqlgen.Reads(ordered, rels)

	switch format {
	case "toml":
		return emitter.TOML(ordered, inserts, reads)
	case "sql":
		return emitter.SQL(inserts), nil
	case "json":
		out, err := emitter.JSON(ordered, rels, inserts, reads)
		if err != nil {
			return "", err
		}
		return string(out) + "\n", nil
	}
	return "", fmt.Errorf("unknown output format %q (expected toml, sql, or json)", format)
}

// filterTables keeps only the requested annotated kinds. Unmarked tables
// always survive the filter: the analyzer may still reclassify them as
// junctions or shared lookups.
func filterTables(tables []*schema.Table, objectFilter []string) ([]*schema.Table, error) {
	if len(objectFilter) == 0 {
		return tables, nil
	}

	wanted := map[schema.Kind]bool{schema.KindUnmarked: true}
	for _, o := range objectFilter {
		kind, err := schema.ParseKind(strings.ToLower(o))
		if err != nil {
			return nil, err
		}
		wanted[kind] = true
	}

	var out []*schema.Table
	for _, t := range tables {
		if wanted[t.Kind] {
			out = append(out, t)
		}
	}
	return out, nil
}

// watchGenerate blocks, regenerating the output whenever the schema file
// changes. The parent directory is watched rather than the file itself so
// editors that replace the file on save keep triggering events.
func watchGenerate(input, output, format string, objects []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return cli.GeneralError("starting watcher", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(input)
	if err := watcher.Add(dir); err != nil {
		return cli.GeneralError("watching schema directory", err)
	}
	if !quiet {
		fmt.Fprintln(os.Stderr, infoStyle.Render(fmt.Sprintf("watching %s for changes", input)))
	}

	target := filepath.Clean(input)
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			verbosef("schema changed, regenerating")
			if err := runGenerate(input, output, format, objects); err != nil {
				// Keep watching; a half-saved file often fails once.
				fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, errorStyle.Render("Watch error: "+err.Error()))
		}
	}
}
