package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobyms/pgsite/pkg/schema"
)

func blogTables() []*schema.Table {
	return []*schema.Table{
		{Name: "posts", Kind: schema.KindCollection, TableName: "posts", CollectionName: "posts",
			Columns: []string{"id", "title", "date", "content", "author_id"}},
		{Name: "authors", Kind: schema.KindAttribute, TableName: "authors",
			Columns: []string{"id", "name"}},
		{Name: "tags", Kind: schema.KindAttribute, TableName: "tags",
			Columns: []string{"id", "name"}},
		{Name: "post_tags", Kind: schema.KindUnmarked, TableName: "post_tags",
			Columns: []string{"post_id", "tag_id"}},
	}
}

func TestAnalyzeDetectsJunction(t *testing.T) {
	tables := blogTables()
	rels := Analyze(tables)

	// post_tags has two FK-shaped columns and only two columns total, so
	// it is reclassified from unmarked to junction.
	assert.Equal(t, schema.KindJunction, tables[3].Kind)

	var m2m []schema.Relationship
	for _, r := range rels {
		if r.ManyToMany() {
			m2m = append(m2m, r)
		}
	}
	require.Len(t, m2m, 2)

	forward := m2m[0]
	assert.Equal(t, schema.RelManyToManyAttribute, forward.Kind)
	assert.Equal(t, "posts", forward.Source)
	assert.Equal(t, "tags", forward.Target)
	require.NotNil(t, forward.Junction)
	assert.Equal(t, "post_tags", forward.Junction.Table)
	assert.Equal(t, "post_id", forward.Junction.SourceFKColumn)
	assert.Equal(t, "tag_id", forward.Junction.TargetFKColumn)

	backward := m2m[1]
	assert.Equal(t, "tags", backward.Source)
	assert.Equal(t, "posts", backward.Target)
	assert.Equal(t, "tag_id", backward.Junction.SourceFKColumn)
}

func TestAnalyzeForeignKey(t *testing.T) {
	tables := blogTables()
	rels := Analyze(tables)

	var fk *schema.Relationship
	for i, r := range rels {
		if r.Kind == schema.RelForeignKey && r.Source == "posts" {
			fk = &rels[i]
		}
	}
	require.NotNil(t, fk)
	assert.Equal(t, "authors", fk.Target)
	assert.Equal(t, "author_id", fk.Column)
}

func TestAnalyzeAssignsParent(t *testing.T) {
	tables := blogTables()
	Analyze(tables)

	// tags connects to posts through exactly one junction.
	assert.Equal(t, "posts", tables[2].ParentCollection)
}

func TestAnalyzeSharedLookupKeepsNoParent(t *testing.T) {
	tables := []*schema.Table{
		{Name: "posts", Kind: schema.KindCollection, TableName: "posts",
			Columns: []string{"id", "title"}},
		{Name: "projects", Kind: schema.KindCollection, TableName: "projects",
			Columns: []string{"id", "title"}},
		{Name: "tags", Kind: schema.KindAttribute, TableName: "tags",
			Columns: []string{"id", "name"}},
		{Name: "post_tags", Kind: schema.KindJunction, TableName: "post_tags",
			Columns: []string{"post_id", "tag_id"}},
		{Name: "project_tags", Kind: schema.KindJunction, TableName: "project_tags",
			Columns: []string{"project_id", "tag_id"}},
	}

	Analyze(tables)
	assert.Empty(t, tables[2].ParentCollection, "a lookup shared by two junctions must stay parentless")
}

func TestAnalyzeExplicitParentPreserved(t *testing.T) {
	tables := blogTables()
	tables[2].ParentCollection = "projects"
	Analyze(tables)
	assert.Equal(t, "projects", tables[2].ParentCollection)
}

func TestAnalyzeSingleFKJunction(t *testing.T) {
	tables := []*schema.Table{
		{Name: "posts", Kind: schema.KindCollection, TableName: "posts",
			Columns: []string{"id", "title"}},
		{Name: "post_meta", Kind: schema.KindJunction, TableName: "post_meta",
			Columns: []string{"post_id", "key", "value"}},
	}

	rels := Analyze(tables)
	require.Len(t, rels, 1)
	assert.Equal(t, schema.RelForeignKey, rels[0].Kind)
	assert.Equal(t, "post_meta", rels[0].Source)
	assert.Equal(t, "posts", rels[0].Target)
	assert.Nil(t, rels[0].Junction)
}

func TestAnalyzeContains(t *testing.T) {
	tables := []*schema.Table{
		{Name: "gallery", Kind: schema.KindCollection, TableName: "gallery",
			Columns: []string{"id", "item_artwork"}},
		{Name: "artwork", Kind: schema.KindPage, TableName: "artwork",
			Columns: []string{"id", "title"}},
	}

	rels := Analyze(tables)

	var contains []schema.Relationship
	for _, r := range rels {
		if r.Kind == schema.RelContains {
			contains = append(contains, r)
		}
	}
	require.Len(t, contains, 1)
	assert.Equal(t, "gallery", contains[0].Source)
	assert.Equal(t, "artwork", contains[0].Target)
	assert.Equal(t, "item_artwork", contains[0].Column)
}

func TestAnalyzeWideTableNotJunction(t *testing.T) {
	tables := []*schema.Table{
		{Name: "posts", Kind: schema.KindCollection, TableName: "posts",
			Columns: []string{"id", "title"}},
		{Name: "tags", Kind: schema.KindAttribute, TableName: "tags",
			Columns: []string{"id", "name"}},
		{Name: "audit", Kind: schema.KindUnmarked, TableName: "audit",
			Columns: []string{"id", "post_id", "tag_id", "actor", "action", "at"}},
	}

	Analyze(tables)
	assert.Equal(t, schema.KindUnmarked, tables[2].Kind)
}

func TestInferTarget(t *testing.T) {
	tables := []*schema.Table{
		{Name: "posts", TableName: "posts"},
		{Name: "tags", TableName: "tags"},
		{Name: "posts_tags", TableName: "posts_tags"},
		{Name: "author", TableName: "author"},
	}

	tests := []struct {
		column string
		want   string
	}{
		{"posts_id", "posts"},    // exact match
		{"post_id", "posts"},     // pluralized match
		{"tag_id", "tags"},       // pluralized match
		{"tag_ref", "tags"},      // _ref suffix
		{"tag_fk", "tags"},       // _fk suffix
		{"author_id", "author"},  // singular table
		{"authors_id", "author"}, // singularized match
		{"title", ""},            // no FK suffix
		{"_id", ""},              // empty base
		{"unknown_id", ""},       // no table matches
	}

	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			assert.Equal(t, tt.want, inferTarget(tt.column, tables))
		})
	}
}

func TestInferTargetPrefersShortestName(t *testing.T) {
	tables := []*schema.Table{
		{Name: "authors_books", TableName: "authors_books"},
		{Name: "authors", TableName: "authors"},
	}
	// Substring containment matches both; the shorter name wins.
	assert.Equal(t, "authors", inferTarget("auth_id", tables))
}
