package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"page", KindPage},
		{"pages", KindPage},
		{"collection", KindCollection},
		{"collections", KindCollection},
		{"attribute", KindAttribute},
		{"attributes", KindAttribute},
		{"junction", KindJunction},
		{"junctions", KindJunction},
		{"unmarked", KindUnmarked},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKind("widget")
	require.Error(t, err)
}

func TestTableColumnHelpers(t *testing.T) {
	table := &Table{
		Name:             "posts",
		TableName:        "posts",
		Columns:          []string{"id", "title", "secret", "label"},
		IgnoredColumns:   []string{"secret"},
		AggregateColumns: []string{"label"},
	}

	assert.True(t, table.HasColumn("title"))
	assert.False(t, table.HasColumn("missing"))
	assert.True(t, table.Ignored("secret"))
	assert.False(t, table.Ignored("title"))
	assert.True(t, table.Aggregated("label"))
	assert.False(t, table.Aggregated("title"))
	assert.Equal(t, []string{"id", "title", "label"}, table.InsertColumns())
}

func TestInsertColumnsNoIgnores(t *testing.T) {
	table := &Table{Columns: []string{"id", "title"}}
	assert.Equal(t, []string{"id", "title"}, table.InsertColumns())
}

func TestRelationshipManyToMany(t *testing.T) {
	assert.True(t, Relationship{Kind: RelManyToMany}.ManyToMany())
	assert.True(t, Relationship{Kind: RelManyToManyAttribute}.ManyToMany())
	assert.False(t, Relationship{Kind: RelForeignKey}.ManyToMany())
	assert.False(t, Relationship{Kind: RelContains}.ManyToMany())
}
