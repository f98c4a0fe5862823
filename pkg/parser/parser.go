// Package parser extracts annotated table definitions from SQL source.
//
// The parser recognizes an annotation comment immediately preceding a
// CREATE TABLE statement:
//
//	-- @page [parent]
//	-- @collection [parent]
//	-- @attribute [parent]
//	-- @junction [parent]
//
// The optional parent name may be bare or single/double quoted. Annotation
// keywords are case-insensitive. Tables without an annotation are still
// parsed and classified as unmarked so the analyzer can reclassify them
// later (for example as an auto-detected junction).
//
// Individual columns may carry trailing markers:
//
//	internal_note TEXT,   -- ignore
//	name VARCHAR(255),    -- @unique
//	label VARCHAR(64)     -- @aggregate
//
// "-- ignore" excludes the column from generated queries, "-- @aggregate"
// marks it for array aggregation in collection reads, and "-- @unique"
// drives the upsert clause on attribute inserts.
//
// Parsing is lenient: a malformed CREATE TABLE body simply does not match
// and the table is omitted from the annotated results. The one hard error
// is a table carrying more than one annotation, which is reported as
// ErrConflictingAnnotations rather than letting scan order pick a winner.
package parser

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/tobyms/pgsite/pkg/schema"
)

// ErrConflictingAnnotations is returned when a single table matches more
// than one annotation kind.
var ErrConflictingAnnotations = errors.New("conflicting annotations")

// annotationKinds lists the annotation keywords in scan order.
var annotationKinds = []schema.Kind{
	schema.KindPage,
	schema.KindCollection,
	schema.KindJunction,
	schema.KindAttribute,
}

// createTableBody matches "CREATE TABLE [IF NOT EXISTS] name ( ... );".
// The body match is lazy, ending at the first ");". Exotic bodies fall out
// of the annotated set instead of failing the parse.
const createTableBody = `CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?(\w+)\s*\((.*?)\)\s*;`

var allTablesPattern = regexp.MustCompile(`(?is)` + createTableBody)

// annotationPatterns maps each kind to its compiled pattern. Group 1 is
// the optional parent name, group 2 the table name, group 3 the body.
// Other comment lines may sit between the annotation and the CREATE TABLE;
// this is what lets the conflict pass see stacked annotations claiming the
// same table.
var annotationPatterns = func() map[schema.Kind]*regexp.Regexp {
	m := make(map[schema.Kind]*regexp.Regexp, len(annotationKinds))
	for _, k := range annotationKinds {
		m[k] = regexp.MustCompile(
			`(?is)--[ \t]*@` + string(k) + `(?:[ \t]+['"]?(\w+)['"]?)?[ \t]*\r?\n(?:\s*--[^\n]*\r?\n)*\s*` + createTableBody,
		)
	}
	return m
}()

var (
	markerIgnore    = regexp.MustCompile(`(?i)--\s*ignore\b`)
	markerAggregate = regexp.MustCompile(`(?i)--\s*@aggregate\b`)
	markerUnique    = regexp.MustCompile(`(?i)--\s*@unique\b`)
	trailingComment = regexp.MustCompile(`--.*`)
)

// constraintKeywords are tokens that start a constraint definition rather
// than a column definition.
var constraintKeywords = map[string]bool{
	"PRIMARY":    true,
	"FOREIGN":    true,
	"UNIQUE":     true,
	"CHECK":      true,
	"CONSTRAINT": true,
}

// ParseFile reads a .sql file and parses it.
func ParseFile(path string) ([]*schema.Table, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path is from trusted source
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return Parse(string(content))
}

// Parse extracts the ordered list of table objects from SQL source text.
//
// Annotated tables appear first, grouped by annotation kind in scan order
// (pages, collections, junctions, attributes), followed by unmarked tables
// in source order. Final insertion order is decided later by the
// dependency sort, so the grouping here only affects stability.
func Parse(sqlContent string) ([]*schema.Table, error) {
	// First pass: detect tables claimed by more than one annotation.
	claimed := make(map[string]schema.Kind)
	for _, kind := range annotationKinds {
		for _, m := range annotationPatterns[kind].FindAllStringSubmatch(sqlContent, -1) {
			tableName := m[2]
			if prev, ok := claimed[tableName]; ok {
				return nil, fmt.Errorf("%w: table %q is marked both @%s and @%s",
					ErrConflictingAnnotations, tableName, prev, kind)
			}
			claimed[tableName] = kind
		}
	}

	var tables []*schema.Table
	for _, kind := range annotationKinds {
		for _, m := range annotationPatterns[kind].FindAllStringSubmatch(sqlContent, -1) {
			tables = append(tables, buildTable(kind, m[1], m[2], m[3]))
		}
	}

	// Unmarked tables: everything the annotation patterns did not claim.
	for _, m := range allTablesPattern.FindAllStringSubmatch(sqlContent, -1) {
		tableName := m[1]
		if _, ok := claimed[tableName]; ok {
			continue
		}
		tables = append(tables, buildTable(schema.KindUnmarked, "", tableName, m[2]))
	}

	return tables, nil
}

func buildTable(kind schema.Kind, parent, tableName, body string) *schema.Table {
	t := &schema.Table{
		Name:             tableName,
		Kind:             kind,
		TableName:        tableName,
		ParentCollection: parent,
	}
	if kind == schema.KindCollection {
		t.CollectionName = tableName
	}
	t.Columns, t.IgnoredColumns, t.AggregateColumns, t.UniqueColumns = parseColumns(body)
	return t
}

// parseColumns extracts column names from a column-definition block.
//
// The block is processed line by line so trailing markers can be
// attributed to the column defined on that line; within a line, comma
// splitting separates multiple definitions. The first token of each
// definition is the column name; constraint keywords and duplicates are
// dropped, and first-seen order is preserved.
func parseColumns(body string) (cols, ignored, aggregated, unique []string) {
	seen := make(map[string]bool)

	for _, line := range strings.Split(body, "\n") {
		hasIgnore := markerIgnore.MatchString(line)
		hasAggregate := markerAggregate.MatchString(line)
		hasUnique := markerUnique.MatchString(line)

		code := trailingComment.ReplaceAllString(line, "")

		var lineCols []string
		for _, part := range strings.Split(code, ",") {
			part = strings.Trim(strings.TrimSpace(part), "()")
			fields := strings.Fields(part)
			if len(fields) == 0 {
				continue
			}
			name := fields[0]
			if constraintKeywords[strings.ToUpper(name)] {
				continue
			}
			if seen[name] {
				continue
			}
			seen[name] = true
			cols = append(cols, name)
			lineCols = append(lineCols, name)
		}

		if len(lineCols) == 0 {
			continue
		}
		// A marker applies to the column defined on its line. With one
		// definition per line (the common layout) that is unambiguous;
		// with several, the last one wins.
		marked := lineCols[len(lineCols)-1]
		if hasIgnore {
			ignored = append(ignored, marked)
		}
		if hasAggregate {
			aggregated = append(aggregated, marked)
		}
		if hasUnique {
			unique = append(unique, marked)
		}
	}

	return cols, ignored, aggregated, unique
}
