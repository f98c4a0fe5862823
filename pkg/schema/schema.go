// Package schema defines the record types shared by the pgsite pipeline.
//
// A parsed .sql file becomes a list of Table values; the analyzer derives
// Relationship values from them. Both are plain data: they are rebuilt from
// scratch on every run and carry no identity beyond their names.
package schema

import "fmt"

// Kind classifies a table by its annotation (or lack of one).
type Kind string

const (
	// KindPage is a single-row content entity rendered as one document.
	KindPage Kind = "page"
	// KindCollection is a multi-row content entity whose members are
	// individually rendered.
	KindCollection Kind = "collection"
	// KindAttribute is a lookup table (tags, categories) attached to
	// pages or collections.
	KindAttribute Kind = "attribute"
	// KindJunction is a many-to-many linking table between two tables.
	KindJunction Kind = "junction"
	// KindUnmarked is a table with no recognized annotation. Unmarked
	// tables are kept because the analyzer may reclassify them (for
	// example as an auto-detected junction).
	KindUnmarked Kind = "unmarked"
)

// ParseKind converts a user-supplied string (singular or plural) to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "page", "pages":
		return KindPage, nil
	case "collection", "collections":
		return KindCollection, nil
	case "attribute", "attributes":
		return KindAttribute, nil
	case "junction", "junctions":
		return KindJunction, nil
	case "unmarked":
		return KindUnmarked, nil
	}
	return "", fmt.Errorf("unknown object type %q", s)
}

// Table is one parsed CREATE TABLE statement.
//
// Columns holds unique column names in source order; constraint keywords
// (PRIMARY, FOREIGN, ...) never appear in it.
type Table struct {
	// Name is the logical object name. Defaults to the physical table
	// name; collections may carry a distinct collection name.
	Name string

	Kind Kind

	// TableName is the physical table name.
	TableName string

	Columns []string

	// ParentCollection is the optional parent named in the annotation,
	// or assigned by the analyzer for attributes reachable through a
	// single junction. Shared lookups keep it empty.
	ParentCollection string

	// CollectionName is set for collections (defaults to TableName).
	CollectionName string

	// IgnoredColumns are excluded from all generated queries
	// (per-column "-- ignore" marker).
	IgnoredColumns []string

	// AggregateColumns are targets for array aggregation in collection
	// reads (per-column "-- @aggregate" marker).
	AggregateColumns []string

	// UniqueColumns drive the upsert clause on attribute inserts
	// (per-column "-- @unique" marker).
	UniqueColumns []string
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Ignored reports whether name carries the "-- ignore" marker.
func (t *Table) Ignored(name string) bool {
	for _, c := range t.IgnoredColumns {
		if c == name {
			return true
		}
	}
	return false
}

// Aggregated reports whether name carries the "-- @aggregate" marker.
func (t *Table) Aggregated(name string) bool {
	for _, c := range t.AggregateColumns {
		if c == name {
			return true
		}
	}
	return false
}

// InsertColumns returns the columns that participate in generated queries,
// preserving source order.
func (t *Table) InsertColumns() []string {
	if len(t.IgnoredColumns) == 0 {
		return t.Columns
	}
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if !t.Ignored(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// RelKind classifies an inferred relationship.
type RelKind string

const (
	// RelForeignKey is a column on the source referencing the target's id.
	RelForeignKey RelKind = "foreign_key"
	// RelManyToMany connects two pages/collections through a junction.
	RelManyToMany RelKind = "many_to_many"
	// RelManyToManyAttribute connects a page/collection to an attribute
	// (or unmarked lookup) through a junction.
	RelManyToManyAttribute RelKind = "many_to_many_attribute"
	// RelContains links a collection to a page it lists (item_* columns).
	RelContains RelKind = "contains"
)

// JunctionMeta records how a many-to-many edge is routed.
type JunctionMeta struct {
	Table          string `json:"junction_table"`
	SourceFKColumn string `json:"source_fk_column"`
	TargetFKColumn string `json:"target_fk_column"`
}

// Relationship is one inferred edge between two table objects. Edges are
// derived, never persisted; the analyzer recomputes them on every pass.
type Relationship struct {
	Kind   RelKind `json:"type"`
	Source string  `json:"source"`
	Target string  `json:"target"`

	// Column is the foreign-key column on the source side.
	Column string `json:"column"`

	// Junction is set for many-to-many edges.
	Junction *JunctionMeta `json:"junction,omitempty"`
}

// ManyToMany reports whether the edge routes through a junction table.
func (r Relationship) ManyToMany() bool {
	return r.Kind == RelManyToMany || r.Kind == RelManyToManyAttribute
}
