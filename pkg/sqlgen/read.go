package sqlgen

import (
	"fmt"
	"strings"

	"github.com/tobyms/pgsite/pkg/schema"
)

// Reads generates one SELECT statement per table, keyed by object name.
func Reads(tables []*schema.Table, rels []schema.Relationship) map[string]string {
	queries := make(map[string]string, len(tables))
	for _, t := range tables {
		if q := Read(t, tables, rels); q != "" {
			queries[t.Name] = q
		}
	}
	return queries
}

// Read generates a SELECT statement for one table.
//
// Pages fetch a single row by {id} placeholder; collections and
// attributes fetch every row, ordered by a date column when one exists
// and by id otherwise. Foreign keys and many-to-many edges become LEFT
// JOINs. Junction tables are read flat, with no joins.
//
// Duplicate-row avoidance for collections joined through a junction:
// when the join target marks @aggregate columns, the query groups by all
// of the collection's own columns and folds the marked columns into
// arrays; otherwise DISTINCT ON (id) keeps one row per member.
func Read(t *schema.Table, tables []*schema.Table, rels []schema.Relationship) string {
	if t.Kind == schema.KindJunction {
		return junctionRead(t)
	}

	tableFor := make(map[string]*schema.Table, len(tables))
	for _, o := range tables {
		tableFor[o.Name] = o
	}

	var fks, m2m []schema.Relationship
	for _, r := range rels {
		if r.Source != t.Name {
			continue
		}
		switch {
		case r.Kind == schema.RelForeignKey:
			fks = append(fks, r)
		case r.ManyToMany():
			m2m = append(m2m, r)
		}
	}

	ownCols := make([]string, 0, len(t.Columns))
	for _, col := range t.InsertColumns() {
		ownCols = append(ownCols, fmt.Sprintf("%s.%s", t.TableName, col))
	}

	// Aggregate expressions from many-to-many targets marked @aggregate.
	var aggExprs []string
	for _, r := range m2m {
		target := tableFor[r.Target]
		if target == nil {
			continue
		}
		for _, col := range target.AggregateColumns {
			if target.Ignored(col) {
				continue
			}
			aggExprs = append(aggExprs, fmt.Sprintf("array_agg(DISTINCT %s.%s) AS %s_%s",
				target.TableName, col, target.TableName, col))
		}
	}

	isCollection := t.Kind == schema.KindCollection
	useGroup := isCollection && len(aggExprs) > 0
	useDistinct := isCollection && len(m2m) > 0 && !useGroup

	var parts []string
	switch {
	case useGroup:
		parts = append(parts, fmt.Sprintf("SELECT %s, %s",
			strings.Join(ownCols, ", "), strings.Join(aggExprs, ", ")))
	case useDistinct:
		parts = append(parts, fmt.Sprintf("SELECT DISTINCT ON (%s.id) %s",
			t.TableName, strings.Join(ownCols, ", ")))
	default:
		parts = append(parts, fmt.Sprintf("SELECT %s", strings.Join(ownCols, ", ")))
	}

	parts = append(parts, fmt.Sprintf("FROM %s", t.TableName))

	for _, fk := range fks {
		targetTable := fk.Target
		if o := tableFor[fk.Target]; o != nil {
			targetTable = o.TableName
		}
		parts = append(parts, fmt.Sprintf("LEFT JOIN %s ON %s.%s = %s.id",
			targetTable, t.TableName, fk.Column, targetTable))
	}

	// Join each junction once even when it links more than two tables.
	joinedJunctions := make(map[string]bool)
	for _, r := range m2m {
		if r.Junction == nil {
			continue
		}
		targetTable := r.Target
		if o := tableFor[r.Target]; o != nil {
			targetTable = o.TableName
		}
		if !joinedJunctions[r.Junction.Table] {
			joinedJunctions[r.Junction.Table] = true
			parts = append(parts, fmt.Sprintf("LEFT JOIN %s ON %s.id = %s.%s",
				r.Junction.Table, t.TableName, r.Junction.Table, r.Junction.SourceFKColumn))
		}
		parts = append(parts, fmt.Sprintf("LEFT JOIN %s ON %s.%s = %s.id",
			targetTable, r.Junction.Table, r.Junction.TargetFKColumn, targetTable))
	}

	if t.Kind == schema.KindPage {
		parts = append(parts, fmt.Sprintf("WHERE %s.id = {id};", t.TableName))
		return strings.Join(parts, " ")
	}

	if useGroup {
		parts = append(parts, fmt.Sprintf("GROUP BY %s", strings.Join(ownCols, ", ")))
	}
	parts = append(parts, multiRowOrder(t, useDistinct))
	return strings.Join(parts, " ")
}

// multiRowOrder picks the ORDER BY clause for collection/attribute reads.
// DISTINCT ON requires the distinct key to lead the ordering.
func multiRowOrder(t *schema.Table, distinctOnID bool) string {
	hasDate := t.HasColumn("date")
	switch {
	case distinctOnID && hasDate:
		return fmt.Sprintf("ORDER BY %s.id, %s.date DESC;", t.TableName, t.TableName)
	case distinctOnID:
		return fmt.Sprintf("ORDER BY %s.id;", t.TableName)
	case hasDate:
		return fmt.Sprintf("ORDER BY %s.date DESC;", t.TableName)
	case t.HasColumn("id"):
		return fmt.Sprintf("ORDER BY %s.id;", t.TableName)
	}
	return ";"
}

func junctionRead(t *schema.Table) string {
	cols := make([]string, 0, len(t.Columns))
	for _, col := range t.InsertColumns() {
		cols = append(cols, fmt.Sprintf("%s.%s", t.TableName, col))
	}
	return fmt.Sprintf("SELECT %s FROM %s;", strings.Join(cols, ", "), t.TableName)
}
