package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobyms/pgsite/pkg/schema"
)

func names(tables []*schema.Table) []string {
	out := make([]string, len(tables))
	for i, t := range tables {
		out[i] = t.Name
	}
	return out
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func TestOrderTargetsBeforeSources(t *testing.T) {
	tables := blogTables()
	rels := Analyze(tables)
	ordered := names(Order(tables, rels))

	require.Len(t, ordered, 4)
	assert.Less(t, indexOf(ordered, "authors"), indexOf(ordered, "posts"),
		"referenced table must be inserted before the referencing one")
	assert.Less(t, indexOf(ordered, "posts"), indexOf(ordered, "post_tags"))
	assert.Less(t, indexOf(ordered, "tags"), indexOf(ordered, "post_tags"))
}

func TestOrderJunctionLast(t *testing.T) {
	// The junction insert binds ids captured from both endpoint inserts,
	// so it has to run after them regardless of input order.
	tables := []*schema.Table{
		{Name: "post_tags", Kind: schema.KindJunction, TableName: "post_tags",
			Columns: []string{"post_id", "tag_id"}},
		{Name: "posts", Kind: schema.KindCollection, TableName: "posts",
			Columns: []string{"id", "title"}},
		{Name: "tags", Kind: schema.KindAttribute, TableName: "tags",
			Columns: []string{"id", "name"}},
	}
	rels := Analyze(tables)
	ordered := names(Order(tables, rels))

	assert.Equal(t, "post_tags", ordered[len(ordered)-1])
}

func TestOrderDeterministic(t *testing.T) {
	tables := blogTables()
	rels := Analyze(tables)

	first := names(Order(tables, rels))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, names(Order(tables, rels)))
	}
}

func TestOrderNoRelationships(t *testing.T) {
	tables := []*schema.Table{
		{Name: "a", TableName: "a"},
		{Name: "b", TableName: "b"},
		{Name: "c", TableName: "c"},
	}
	ordered := names(Order(tables, nil))
	assert.Equal(t, []string{"a", "b", "c"}, ordered)
}

func TestOrderCycleTerminates(t *testing.T) {
	tables := []*schema.Table{
		{Name: "a", TableName: "a", Columns: []string{"id", "b_id"}},
		{Name: "b", TableName: "b", Columns: []string{"id", "a_id"}},
	}
	rels := []schema.Relationship{
		{Kind: schema.RelForeignKey, Source: "a", Target: "b", Column: "b_id"},
		{Kind: schema.RelForeignKey, Source: "b", Target: "a", Column: "a_id"},
	}

	ordered := Order(tables, rels)
	require.Len(t, ordered, 2)
	assert.ElementsMatch(t, []string{"a", "b"}, names(ordered))
}

func TestOrderIgnoresUnknownTargets(t *testing.T) {
	tables := []*schema.Table{
		{Name: "posts", TableName: "posts"},
	}
	rels := []schema.Relationship{
		{Kind: schema.RelForeignKey, Source: "posts", Target: "missing", Column: "missing_id"},
	}

	ordered := Order(tables, rels)
	require.Len(t, ordered, 1)
	assert.Equal(t, "posts", ordered[0].Name)
}
