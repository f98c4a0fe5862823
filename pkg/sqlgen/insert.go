// Package sqlgen renders parameterized INSERT and SELECT statements from
// analyzed table objects.
//
// Statements use {field}-style named placeholders that the ingest layer
// resolves against content front matter (and against ids captured from
// earlier RETURNING clauses) at execution time.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/tobyms/pgsite/pkg/schema"
)

// Inserts generates one INSERT statement per table, in the order given.
// Tables with no insertable columns produce no statement.
func Inserts(tables []*schema.Table, rels []schema.Relationship) []string {
	queries := make([]string, 0, len(tables))
	for _, t := range tables {
		if q := Insert(t, rels); q != "" {
			queries = append(queries, q)
		}
	}
	return queries
}

// Insert generates a single parameterized INSERT statement.
//
// Column handling:
//   - ignored columns are excluded
//   - the id column is excluded: it is database-generated and captured
//     through the RETURNING clause instead
//   - a junction FK column becomes a reference to the id of the object it
//     connects ({posts_id}), resolved through the junction metadata
//   - a column matching a foreign-key edge becomes a reference to the
//     target's id ({author_id} -> {authors_id})
//   - everything else is a plain {column} placeholder bound from content
//
// Attribute tables with a declared unique column render an upsert so
// re-inserting lookup values (tags, categories) stays idempotent. Any
// other table with an id column appends RETURNING id so later statements
// can reference the generated identifier.
func Insert(t *schema.Table, rels []schema.Relationship) string {
	cols := make([]string, 0, len(t.Columns))
	for _, col := range t.InsertColumns() {
		if col == "id" {
			continue
		}
		cols = append(cols, col)
	}
	if len(cols) == 0 {
		return ""
	}

	values := make([]string, len(cols))
	for i, col := range cols {
		values[i] = placeholder(t, col, rels)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "-- Insert %s: %s\n", capitalize(string(t.Kind)), t.Name)
	fmt.Fprintf(&b, "INSERT INTO %s (%s)\nVALUES (%s)",
		t.TableName, strings.Join(cols, ", "), strings.Join(values, ", "))

	switch {
	case t.Kind == schema.KindAttribute && len(t.UniqueColumns) > 0:
		u := t.UniqueColumns[0]
		fmt.Fprintf(&b, "\nON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s\nRETURNING id", u, u, u)
	case t.HasColumn("id"):
		b.WriteString("\nRETURNING id")
	}

	b.WriteString(";")
	return b.String()
}

// placeholder resolves the value placeholder for one column.
func placeholder(t *schema.Table, col string, rels []schema.Relationship) string {
	if t.Kind == schema.KindJunction {
		for _, r := range rels {
			if r.ManyToMany() && r.Junction != nil &&
				r.Junction.Table == t.Name && r.Junction.SourceFKColumn == col {
				return fmt.Sprintf("{%s_id}", r.Source)
			}
		}
		// Single-FK junctions degrade to a plain foreign-key edge.
		for _, r := range rels {
			if r.Kind == schema.RelForeignKey && r.Source == t.Name && r.Column == col {
				return fmt.Sprintf("{%s_id}", r.Target)
			}
		}
		return fmt.Sprintf("{%s}", col)
	}

	for _, r := range rels {
		if r.Kind == schema.RelForeignKey && r.Source == t.Name && r.Column == col {
			return fmt.Sprintf("{%s_id}", r.Target)
		}
	}
	return fmt.Sprintf("{%s}", col)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
