// Package reader executes configured read statements and shapes the rows
// into page attributes for rendering.
package reader

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is the subset of database operations the reader needs.
// Satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Attrs runs a read query and maps the result to page attributes.
//
// One row: the columns become the attributes directly. Several rows: the
// raw rows are attached under "data" and, for convenience, every column
// also appears as a list of its per-row values. No rows: an empty map.
func Attrs(ctx context.Context, q Querier, query string, args ...any) (map[string]any, error) {
	rows, err := Rows(ctx, q, query, args...)
	if err != nil {
		return nil, err
	}

	switch len(rows) {
	case 0:
		return map[string]any{}, nil
	case 1:
		return rows[0], nil
	}

	attrs := map[string]any{"data": rows}
	for col := range rows[0] {
		values := make([]any, len(rows))
		for i, row := range rows {
			values[i] = row[col]
		}
		attrs[col] = values
	}
	return attrs, nil
}

// Rows runs a query and returns every row as a column-keyed map.
func Rows(ctx context.Context, q Querier, query string, args ...any) ([]map[string]any, error) {
	res, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing read query: %w", err)
	}
	defer func() { _ = res.Close() }()

	cols, err := res.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading result columns: %w", err)
	}

	var rows []map[string]any
	for res.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := res.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalize(values[i])
		}
		rows = append(rows, row)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return rows, nil
}

// normalize converts driver byte slices to strings so attributes are
// directly usable in templates.
func normalize(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}
