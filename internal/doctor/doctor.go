// Package doctor provides health checks for a pgsite project.
//
// The doctor command validates that the content pipeline is properly set
// up by checking the annotated schema, the generated pgsite.toml
// configuration, and the database state.
//
// Example usage:
//
//	d := doctor.New(db, "schema.sql", "pgsite.toml")
//	report, err := d.Run(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	report.Print(os.Stdout, true) // verbose=true
package doctor

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/tobyms/pgsite/pkg/analyzer"
	"github.com/tobyms/pgsite/pkg/emitter"
	"github.com/tobyms/pgsite/pkg/parser"
	"github.com/tobyms/pgsite/pkg/schema"
	"github.com/tobyms/pgsite/pkg/settings"
	"github.com/tobyms/pgsite/pkg/sqlgen"
)

// Status represents the result of a health check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical issue that will cause failures.
	StatusFail
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns a status indicator symbol for terminal output.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// CheckResult represents the outcome of a single health check.
type CheckResult struct {
	// Category groups related checks (e.g., "Schema", "Configuration").
	Category string

	// Name is a short identifier for the check.
	Name string

	// Status is the check outcome.
	Status Status

	// Message is a human-readable description of the result.
	Message string

	// Details provides additional information for verbose output.
	Details string

	// FixHint suggests how to resolve issues.
	FixHint string
}

// Report contains all health check results.
type Report struct {
	Checks []CheckResult

	// Summary counts.
	Passed   int
	Warnings int
	Errors   int
}

// AddCheck adds a check result and updates summary counts.
func (r *Report) AddCheck(check CheckResult) {
	r.Checks = append(r.Checks, check)
	switch check.Status {
	case StatusPass:
		r.Passed++
	case StatusWarn:
		r.Warnings++
	case StatusFail:
		r.Errors++
	}
}

// Print writes the report to the given writer.
func (r *Report) Print(w io.Writer, verbose bool) {
	// Group checks by category
	categories := make(map[string][]CheckResult)
	var categoryOrder []string
	for _, check := range r.Checks {
		if _, exists := categories[check.Category]; !exists {
			categoryOrder = append(categoryOrder, check.Category)
		}
		categories[check.Category] = append(categories[check.Category], check)
	}

	// Print each category
	for _, cat := range categoryOrder {
		_, _ = fmt.Fprintf(w, "\n%s\n", cat)
		for _, check := range categories[cat] {
			_, _ = fmt.Fprintf(w, "  %s %s\n", check.Status.Symbol(), check.Message)
			if verbose && check.Details != "" {
				// Indent details
				for _, line := range strings.Split(check.Details, "\n") {
					_, _ = fmt.Fprintf(w, "      %s\n", line)
				}
			}
			if check.Status != StatusPass && check.FixHint != "" {
				_, _ = fmt.Fprintf(w, "      Fix: %s\n", check.FixHint)
			}
		}
	}

	// Print summary
	_, _ = fmt.Fprintf(w, "\nSummary: %d passed, %d warnings, %d errors\n",
		r.Passed, r.Warnings, r.Errors)
}

// HasErrors returns true if any check failed.
func (r *Report) HasErrors() bool {
	return r.Errors > 0
}

// Doctor performs health checks on a pgsite project.
type Doctor struct {
	db           *sql.DB
	schemaPath   string
	settingsPath string

	// Cached data from checks (populated during Run)
	tables []*schema.Table
	rels   []schema.Relationship
}

// New creates a new Doctor instance. db may be nil, in which case the
// database checks are skipped.
func New(db *sql.DB, schemaPath, settingsPath string) *Doctor {
	return &Doctor{
		db:           db,
		schemaPath:   schemaPath,
		settingsPath: settingsPath,
	}
}

// Run executes all health checks and returns a report.
func (d *Doctor) Run(ctx context.Context) (*Report, error) {
	report := &Report{}

	d.checkSchemaFile(report)
	d.checkSettings(report)
	if d.db != nil {
		if err := d.checkDatabase(ctx, report); err != nil {
			return nil, fmt.Errorf("checking database: %w", err)
		}
	}

	return report, nil
}

// checkSchemaFile validates that the schema file exists, parses, and
// contains at least one content object.
func (d *Doctor) checkSchemaFile(report *Report) {
	if _, err := os.Stat(d.schemaPath); err != nil {
		report.AddCheck(CheckResult{
			Category: "Schema",
			Name:     "exists",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Schema file not found at %s", d.schemaPath),
			FixHint:  "Create an annotated .sql schema or point --schema at one",
		})
		return
	}
	report.AddCheck(CheckResult{
		Category: "Schema",
		Name:     "exists",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Schema file exists at %s", d.schemaPath),
	})

	tables, err := parser.ParseFile(d.schemaPath)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: "Schema",
			Name:     "parses",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Schema does not parse: %v", err),
			FixHint:  "Each table must carry at most one @page/@collection/@attribute/@junction annotation",
		})
		return
	}
	d.tables = tables
	d.rels = analyzer.Analyze(tables)

	counts := make(map[schema.Kind]int)
	var names []string
	for _, t := range tables {
		counts[t.Kind]++
		names = append(names, fmt.Sprintf("%s (%s)", t.Name, t.Kind))
	}
	report.AddCheck(CheckResult{
		Category: "Schema",
		Name:     "parses",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Parsed %d tables", len(tables)),
		Details:  strings.Join(names, "\n"),
	})

	if counts[schema.KindPage]+counts[schema.KindCollection] == 0 {
		report.AddCheck(CheckResult{
			Category: "Schema",
			Name:     "content",
			Status:   StatusWarn,
			Message:  "No @page or @collection tables found",
			FixHint:  "Annotate a table, or run pgsite classify to do it interactively",
		})
	}

	if n := counts[schema.KindUnmarked]; n > 0 {
		report.AddCheck(CheckResult{
			Category: "Schema",
			Name:     "unmarked",
			Status:   StatusWarn,
			Message:  fmt.Sprintf("%d tables are unannotated", n),
			FixHint:  "Run pgsite classify to assign kinds",
		})
	}
}

// checkSettings validates the generated pgsite.toml against the schema.
func (d *Doctor) checkSettings(report *Report) {
	s, err := settings.Load(d.settingsPath)
	if err != nil {
		report.AddCheck(CheckResult{
			Category: "Configuration",
			Name:     "loads",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Settings do not load: %v", err),
		})
		return
	}

	if s.Path == "" || len(s.Objects()) == 0 {
		report.AddCheck(CheckResult{
			Category: "Configuration",
			Name:     "present",
			Status:   StatusWarn,
			Message:  "No generated configuration found",
			FixHint:  "Run pgsite generate -o pgsite.toml",
		})
		return
	}
	report.AddCheck(CheckResult{
		Category: "Configuration",
		Name:     "present",
		Status:   StatusPass,
		Message:  fmt.Sprintf("Loaded %s (%s)", s.Path, strings.Join(s.Objects(), ", ")),
	})

	for _, name := range s.Objects() {
		if s.ReadSQL(name) == "" {
			report.AddCheck(CheckResult{
				Category: "Configuration",
				Name:     "read_sql",
				Status:   StatusWarn,
				Message:  fmt.Sprintf("Object %q has insert statements but no read statement", name),
				FixHint:  "Regenerate the configuration with pgsite generate",
			})
		}
	}

	d.checkStaleness(report, s)
}

// checkStaleness regenerates the insert statements from the parsed
// schema and compares them with the configured ones.
func (d *Doctor) checkStaleness(report *Report, s *settings.Settings) {
	if d.tables == nil {
		return
	}

	ordered := analyzer.Order(d.tables, d.rels)
	fresh := make(map[string]bool)
	for _, q := range sqlgen.Inserts(ordered, d.rels) {
		fresh[emitter.CleanStatement(q)] = true
	}

	var stale []string
	for _, name := range s.Objects() {
		for _, q := range s.InsertSQL(name) {
			if !fresh[emitter.CleanStatement(q)] {
				stale = append(stale, q)
			}
		}
	}

	if len(stale) == 0 {
		report.AddCheck(CheckResult{
			Category: "Configuration",
			Name:     "current",
			Status:   StatusPass,
			Message:  "Configured statements match the schema",
		})
		return
	}
	sort.Strings(stale)
	report.AddCheck(CheckResult{
		Category: "Configuration",
		Name:     "current",
		Status:   StatusWarn,
		Message:  fmt.Sprintf("%d configured statements do not match the schema", len(stale)),
		Details:  strings.Join(stale, "\n"),
		FixHint:  "Regenerate the configuration with pgsite generate",
	})
}

// checkDatabase verifies connectivity and that every parsed table exists.
func (d *Doctor) checkDatabase(ctx context.Context, report *Report) error {
	if err := d.db.PingContext(ctx); err != nil {
		report.AddCheck(CheckResult{
			Category: "Database",
			Name:     "connect",
			Status:   StatusFail,
			Message:  fmt.Sprintf("Cannot connect: %v", err),
			FixHint:  "Check --db or the database section of pgsite.yaml",
		})
		return nil
	}
	report.AddCheck(CheckResult{
		Category: "Database",
		Name:     "connect",
		Status:   StatusPass,
		Message:  "Connected",
	})

	for _, t := range d.tables {
		var exists bool
		err := d.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
			t.TableName).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking table %s: %w", t.TableName, err)
		}
		if !exists {
			report.AddCheck(CheckResult{
				Category: "Database",
				Name:     "tables",
				Status:   StatusFail,
				Message:  fmt.Sprintf("Table %s does not exist", t.TableName),
				FixHint:  "Apply the schema DDL to the database",
			})
			continue
		}

		var rows int64
		if err := d.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT count(*) FROM %s", t.TableName)).Scan(&rows); err != nil {
			rows = -1
		}
		report.AddCheck(CheckResult{
			Category: "Database",
			Name:     "tables",
			Status:   StatusPass,
			Message:  fmt.Sprintf("Table %s exists", t.TableName),
			Details:  fmt.Sprintf("%d rows", rows),
		})
	}
	return nil
}
