package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameterize(t *testing.T) {
	stmt, args, err := Parameterize(
		"INSERT INTO posts (title, content) VALUES ({title}, {content});",
		map[string]any{"title": "First", "content": "body"},
	)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO posts (title, content) VALUES ($1, $2);", stmt)
	assert.Equal(t, []any{"First", "body"}, args)
}

func TestParameterizeRepeatedPlaceholder(t *testing.T) {
	// Each occurrence gets its own positional parameter.
	stmt, args, err := Parameterize(
		"INSERT INTO t (a, b) VALUES ({x}, {x});",
		map[string]any{"x": 1},
	)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2);", stmt)
	assert.Equal(t, []any{1, 1}, args)
}

func TestParameterizeMissingField(t *testing.T) {
	_, _, err := Parameterize(
		"INSERT INTO posts (title) VALUES ({title});",
		map[string]any{},
	)
	require.Error(t, err)

	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "title", missing.Field)
}

func TestParameterizeReportsFirstMissing(t *testing.T) {
	_, _, err := Parameterize(
		"INSERT INTO t (a, b) VALUES ({a}, {b});",
		map[string]any{},
	)
	var missing *MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "a", missing.Field)
}

func TestParameterizeNoPlaceholders(t *testing.T) {
	stmt, args, err := Parameterize("SELECT 1;", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;", stmt)
	assert.Empty(t, args)
}

func TestFields(t *testing.T) {
	fields := Fields("INSERT INTO t (a, b, c) VALUES ({b}, {a}, {b});")
	assert.Equal(t, []string{"a", "b"}, fields)
}
