package emitter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobyms/pgsite/pkg/schema"
)

func sampleTables() []*schema.Table {
	return []*schema.Table{
		{Name: "tags", Kind: schema.KindAttribute, TableName: "tags",
			Columns: []string{"id", "name"}, UniqueColumns: []string{"name"}},
		{Name: "posts", Kind: schema.KindCollection, TableName: "posts", CollectionName: "posts",
			Columns: []string{"id", "title"}},
	}
}

func TestMainObject(t *testing.T) {
	tests := []struct {
		name   string
		tables []*schema.Table
		want   string
	}{
		{
			name:   "collection wins",
			tables: sampleTables(),
			want:   "posts",
		},
		{
			name: "page when no collection",
			tables: []*schema.Table{
				{Name: "tags", Kind: schema.KindAttribute},
				{Name: "about", Kind: schema.KindPage},
			},
			want: "about",
		},
		{
			name: "first object as fallback",
			tables: []*schema.Table{
				{Name: "tags", Kind: schema.KindAttribute},
				{Name: "links", Kind: schema.KindJunction},
			},
			want: "tags",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MainObject(tt.tables)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Name)
		})
	}

	assert.Nil(t, MainObject(nil))
}

func TestTOML(t *testing.T) {
	inserts := []string{
		"-- Insert Attribute: tags\nINSERT INTO tags (name)\nVALUES ({name});",
		"-- Insert Collection: posts\nINSERT INTO posts (title)\nVALUES ({title});",
	}
	reads := map[string]string{
		"posts": "SELECT posts.id, posts.title FROM posts ORDER BY posts.id;",
	}

	out, err := TOML(sampleTables(), inserts, reads)
	require.NoError(t, err)

	assert.Contains(t, out, "[tool.pgsite]")
	assert.Contains(t, out, "insert_sql")
	// Comments are stripped and statements collapsed to one line.
	assert.Contains(t, out, "INSERT INTO tags (name) VALUES ({name});")
	assert.NotContains(t, out, "-- Insert")
	assert.Contains(t, out, "SELECT posts.id, posts.title FROM posts ORDER BY posts.id;")
}

func TestTOMLNoObjects(t *testing.T) {
	_, err := TOML(nil, nil, nil)
	require.Error(t, err)
}

func TestSQL(t *testing.T) {
	out := SQL([]string{"INSERT INTO a (x)\nVALUES ({x});", "INSERT INTO b (y)\nVALUES ({y});"})
	assert.Equal(t, "INSERT INTO a (x)\nVALUES ({x});\n\nINSERT INTO b (y)\nVALUES ({y});\n", out)
}

func TestJSON(t *testing.T) {
	tables := sampleTables()
	rels := []schema.Relationship{
		{Kind: schema.RelManyToManyAttribute, Source: "posts", Target: "tags", Column: "post_id",
			Junction: &schema.JunctionMeta{Table: "post_tags", SourceFKColumn: "post_id", TargetFKColumn: "tag_id"}},
	}
	inserts := []string{"INSERT INTO tags (name) VALUES ({name});"}
	reads := map[string]string{"posts": "SELECT posts.id FROM posts;"}

	out, err := JSON(tables, rels, inserts, reads)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))

	objects, ok := doc["objects"].([]any)
	require.True(t, ok)
	require.Len(t, objects, 2)

	first := objects[0].(map[string]any)
	assert.Equal(t, "tags", first["name"])
	assert.Equal(t, "attribute", first["type"])
	attrs := first["attributes"].(map[string]any)
	assert.Equal(t, []any{"name"}, attrs["unique_columns"])

	relDocs := doc["relationships"].([]any)
	require.Len(t, relDocs, 1)
	rel := relDocs[0].(map[string]any)
	assert.Equal(t, "many_to_many_attribute", rel["type"])
	junction := rel["junction"].(map[string]any)
	assert.Equal(t, "post_tags", junction["junction_table"])
}

func TestJSONEmptyRelationships(t *testing.T) {
	out, err := JSON(sampleTables(), nil, nil, nil)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, []any{}, doc["relationships"])
}

func TestCleanStatement(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips comment lines",
			in:   "-- Insert Collection: posts\nINSERT INTO posts (title)\nVALUES ({title});",
			want: "INSERT INTO posts (title) VALUES ({title});",
		},
		{
			name: "drops blank lines",
			in:   "INSERT INTO a (x)\n\nVALUES ({x});",
			want: "INSERT INTO a (x) VALUES ({x});",
		},
		{
			name: "comment only",
			in:   "-- nothing here",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanStatement(tt.in))
		})
	}
}
