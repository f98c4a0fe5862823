package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tobyms/pgsite/internal/cli"
	"github.com/tobyms/pgsite/pkg/analyzer"
	"github.com/tobyms/pgsite/pkg/emitter"
	"github.com/tobyms/pgsite/pkg/parser"
	"github.com/tobyms/pgsite/pkg/schema"
	"github.com/tobyms/pgsite/pkg/sqlgen"
)

var (
	classifyOutput string
	classifyAll    bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify [schema.sql]",
	Short: "Interactively classify unannotated tables",
	Long: `Walk through the tables of a .sql schema that carry no annotation and
classify each one as a page, collection, attribute, or junction, then
emit the TOML configuration for the classified schema.`,
	Example: `  # Classify unmarked tables and print the configuration
  pgsite classify schema.sql

  # Reclassify every table, annotated or not
  pgsite classify schema.sql --all -o pgsite.toml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := cfg.Schema
		if len(args) == 1 {
			input = args[0]
		}
		return runClassify(input, classifyOutput, classifyAll)
	},
}

func init() {
	f := classifyCmd.Flags()
	f.StringVarP(&classifyOutput, "output", "o", "", "output file path (default: print to stdout)")
	f.BoolVar(&classifyAll, "all", false, "prompt for annotated tables too")
}

// shortcuts maps single-key answers to kinds. "s" skips the table.
var shortcuts = map[string]schema.Kind{
	"p": schema.KindPage,
	"c": schema.KindCollection,
	"a": schema.KindAttribute,
	"j": schema.KindJunction,
}

func runClassify(input, output string, all bool) error {
	tables, err := parser.ParseFile(input)
	if err != nil {
		if errors.Is(err, parser.ErrConflictingAnnotations) {
			return cli.SchemaParseError("schema error", err)
		}
		return cli.GeneralError("parsing schema", err)
	}

	// Analysis before classification gives the prompts relationship
	// context (and auto-detects obvious junctions so the user is not
	// asked about them).
	rels := analyzer.Analyze(tables)

	classified := promptClassification(tables, rels, all)
	if !quiet {
		fmt.Fprintln(os.Stderr, infoStyle.Render(fmt.Sprintf("classified %d tables", classified)))
	}

	// Relationships depend on kinds; recompute after classification.
	rels = analyzer.Analyze(tables)
	ordered := analyzer.Order(tables, rels)
	inserts := sqlgen.Inserts(ordered, rels)
	reads := sqlgen.Reads(ordered, rels)

	out, err := emitter.TOML(ordered, inserts, reads)
	if err != nil {
		return cli.GeneralError("emitting configuration", err)
	}

	if output == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
		return cli.GeneralError("writing output", err)
	}
	return nil
}

// promptClassification asks the user to classify each candidate table and
// returns how many were classified.
func promptClassification(tables []*schema.Table, rels []schema.Relationship, all bool) int {
	scanner := bufio.NewScanner(os.Stdin)
	classified := 0

	for _, t := range tables {
		if !all && t.Kind != schema.KindUnmarked {
			continue
		}

		fmt.Println(headerStyle.Render(fmt.Sprintf("table %s (%s)", t.Name, strings.Join(t.Columns, ", "))))
		for _, r := range rels {
			if r.Source == t.Name || r.Target == t.Name {
				fmt.Println(infoStyle.Render(fmt.Sprintf("  %s: %s -> %s", r.Kind, r.Source, r.Target)))
			}
		}

		kind, ok := askKind(scanner)
		if !ok {
			fmt.Println(infoStyle.Render("  skipped"))
			continue
		}
		t.Kind = kind
		if kind == schema.KindCollection && t.CollectionName == "" {
			t.CollectionName = t.TableName
		}
		classified++
	}
	return classified
}

// askKind reads one classification answer, reprompting on bad input.
// Returns ok=false on skip or end of input.
func askKind(scanner *bufio.Scanner) (schema.Kind, bool) {
	for {
		fmt.Print("  [p]age  [c]ollection  [a]ttribute  [j]unction  [s]kip: ")
		if !scanner.Scan() {
			return "", false
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer == "s" || answer == "" {
			return "", false
		}
		if kind, ok := shortcuts[answer]; ok {
			return kind, true
		}
		fmt.Println(warnStyle.Render("  unrecognized answer " + answer))
	}
}
