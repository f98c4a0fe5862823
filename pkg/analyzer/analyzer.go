// Package analyzer infers relationships between parsed table objects and
// orders them by insertion dependency.
//
// The analysis is heuristic and best-effort: it is driven by naming
// convention (the _id/_ref/_fk column suffixes) and column-count
// thresholds, not by real database constraint metadata. Misclassification
// is expected and recoverable, not an error; the classify command exists
// to correct it interactively.
package analyzer

import (
	"regexp"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/tobyms/pgsite/pkg/schema"
)

// fkSuffix matches the column suffixes treated as foreign-key shaped.
var fkSuffix = regexp.MustCompile(`(?i)(_id|_ref|_fk)$`)

// maxJunctionColumns is the column-count threshold for auto-detecting a
// junction: two or more FK-shaped columns and at most this many columns
// total means the table exists only to link two others.
const maxJunctionColumns = 4

// Analyze infers the relationship edges between tables.
//
// As a side effect it reclassifies unmarked tables that look like pure
// junctions, and assigns a parent collection to attribute tables reachable
// through exactly one junction. Attributes referenced by two or more
// junctions are shared lookups and keep no parent.
func Analyze(tables []*schema.Table) []schema.Relationship {
	detectJunctions(tables)

	var rels []schema.Relationship
	for _, t := range tables {
		if t.Kind == schema.KindJunction {
			rels = append(rels, junctionRels(t, tables)...)
			continue
		}

		for _, col := range t.Columns {
			if target := inferTarget(col, tables); target != "" {
				rels = append(rels, schema.Relationship{
					Kind:   schema.RelForeignKey,
					Source: t.Name,
					Target: target,
					Column: col,
				})
			}
		}

		if t.Kind == schema.KindCollection {
			rels = append(rels, containsRels(t, tables)...)
		}
	}

	assignParents(tables, rels)
	return rels
}

// detectJunctions reclassifies unmarked tables that have at least two
// FK-shaped columns and few columns overall.
func detectJunctions(tables []*schema.Table) {
	for _, t := range tables {
		if t.Kind != schema.KindUnmarked || len(t.Columns) > maxJunctionColumns {
			continue
		}
		fks := 0
		for _, col := range t.Columns {
			if inferTarget(col, tables) != "" {
				fks++
			}
		}
		if fks >= 2 {
			t.Kind = schema.KindJunction
		}
	}
}

type fkColumn struct {
	column string
	target string
}

// junctionRels extracts many-to-many edges from a junction table.
//
// A junction with two or more resolved FK columns yields a pair of edges
// (one per direction) for every combination of targets, each carrying the
// junction metadata. A junction with a single FK column degrades to a
// plain foreign key edge from the junction itself.
func junctionRels(junction *schema.Table, tables []*schema.Table) []schema.Relationship {
	var fks []fkColumn
	for _, col := range junction.Columns {
		if target := inferTarget(col, tables); target != "" {
			fks = append(fks, fkColumn{column: col, target: target})
		}
	}

	if len(fks) == 1 {
		return []schema.Relationship{{
			Kind:   schema.RelForeignKey,
			Source: junction.Name,
			Target: fks[0].target,
			Column: fks[0].column,
		}}
	}

	kinds := make(map[string]schema.Kind, len(tables))
	for _, t := range tables {
		kinds[t.Name] = t.Kind
	}

	var rels []schema.Relationship
	for i, a := range fks {
		for _, b := range fks[i+1:] {
			kind := junctionRelKind(kinds[a.target], kinds[b.target])
			rels = append(rels,
				schema.Relationship{
					Kind:   kind,
					Source: a.target,
					Target: b.target,
					Column: a.column,
					Junction: &schema.JunctionMeta{
						Table:          junction.Name,
						SourceFKColumn: a.column,
						TargetFKColumn: b.column,
					},
				},
				schema.Relationship{
					Kind:   kind,
					Source: b.target,
					Target: a.target,
					Column: b.column,
					Junction: &schema.JunctionMeta{
						Table:          junction.Name,
						SourceFKColumn: b.column,
						TargetFKColumn: a.column,
					},
				},
			)
		}
	}
	return rels
}

// junctionRelKind picks the edge kind for a junction connection. Anything
// touching an attribute (or an unmarked table inferred as one) is a
// many_to_many_attribute; page/collection pairs are plain many_to_many.
func junctionRelKind(a, b schema.Kind) schema.RelKind {
	if a == schema.KindAttribute || a == schema.KindUnmarked ||
		b == schema.KindAttribute || b == schema.KindUnmarked {
		return schema.RelManyToManyAttribute
	}
	return schema.RelManyToMany
}

// containsRels finds pages a collection lists via item_* / *_item columns.
func containsRels(collection *schema.Table, tables []*schema.Table) []schema.Relationship {
	var rels []schema.Relationship
	for _, col := range collection.Columns {
		if !strings.HasPrefix(col, "item_") && !strings.HasSuffix(col, "_item") {
			continue
		}
		for _, t := range tables {
			if t.Kind != schema.KindPage {
				continue
			}
			if strings.Contains(strings.ToLower(col), strings.ToLower(t.Name)) {
				rels = append(rels, schema.Relationship{
					Kind:   schema.RelContains,
					Source: collection.Name,
					Target: t.Name,
					Column: col,
				})
			}
		}
	}
	return rels
}

// assignParents gives parentless attribute tables the collection or page
// they connect to, when that connection is unambiguous. An attribute
// referenced through two or more distinct junctions is a shared lookup
// (a tags table used by several collections) and must not be claimed by
// any single parent.
func assignParents(tables []*schema.Table, rels []schema.Relationship) {
	junctions := make(map[string]map[string]bool) // attribute name -> junction tables
	partner := make(map[string]string)            // attribute name -> connected object

	for _, r := range rels {
		if r.Kind != schema.RelManyToManyAttribute || r.Junction == nil {
			continue
		}
		if junctions[r.Target] == nil {
			junctions[r.Target] = make(map[string]bool)
		}
		junctions[r.Target][r.Junction.Table] = true
		partner[r.Target] = r.Source
	}

	for _, t := range tables {
		if t.Kind != schema.KindAttribute && t.Kind != schema.KindUnmarked {
			continue
		}
		if t.ParentCollection != "" {
			continue
		}
		if len(junctions[t.Name]) == 1 {
			t.ParentCollection = partner[t.Name]
		}
	}
}

// inferTarget resolves a foreign-key-shaped column to the table it
// references, or "" when the column does not look like a foreign key or
// no table matches.
//
// Resolution order: exact match on the stripped base name, then
// singular/plural variants, then substring or prefix containment with the
// shortest matching name winning (so "tag_id" prefers "tags" over
// "posts_tags").
func inferTarget(column string, tables []*schema.Table) string {
	loc := fkSuffix.FindStringIndex(column)
	if loc == nil {
		return ""
	}
	base := strings.ToLower(column[:loc[0]])
	if base == "" {
		return ""
	}

	for _, t := range tables {
		if strings.EqualFold(t.TableName, base) || strings.EqualFold(t.Name, base) {
			return t.Name
		}
	}

	plural := strings.ToLower(inflect.Pluralize(base))
	singular := strings.ToLower(inflect.Singularize(base))
	for _, t := range tables {
		tl := strings.ToLower(t.TableName)
		nl := strings.ToLower(t.Name)
		if tl == plural || nl == plural || tl == singular || nl == singular {
			return t.Name
		}
		if strings.ToLower(inflect.Singularize(tl)) == base {
			return t.Name
		}
	}

	var best string
	for _, t := range tables {
		tl := strings.ToLower(t.TableName)
		nl := strings.ToLower(t.Name)
		if strings.Contains(tl, base) || strings.Contains(nl, base) ||
			strings.HasPrefix(tl, base) || strings.HasPrefix(nl, base) {
			if best == "" || len(t.Name) < len(best) {
				best = t.Name
			}
		}
	}
	return best
}
