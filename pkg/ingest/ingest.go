// Package ingest executes generated insert templates against PostgreSQL,
// binding {field} placeholders from content front matter.
//
// Substitution is deliberately best-effort rather than strictly
// validated: a statement referencing a field the content does not carry
// is skipped, and a missing field backed by a list value (tags, say)
// broadens into one execution per element. Ids captured from RETURNING
// clauses are fed back into the field set as <table>_id so later
// statements in the dependency order can reference them.
//
// Each statement runs inside its own savepoint, so a constraint violation
// on one insert rolls back that statement alone and the batch continues.
// The ingestor therefore expects to run inside a caller-owned
// transaction.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
)

// Execer is the subset of database operations the ingestor needs.
// Satisfied by *sql.Tx (the normal case) and *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	insertTablePattern = regexp.MustCompile(`(?i)INSERT\s+INTO\s+(\w+)`)
	returningIDPattern = regexp.MustCompile(`(?i)\bRETURNING\s+id\b`)
)

// savepointName isolates each template statement inside the batch
// transaction.
const savepointName = "pgsite_stmt"

// Skip records a statement left out because of a missing field.
type Skip struct {
	Statement string
	Field     string
}

// Failure records a statement rolled back after a database error.
type Failure struct {
	Statement string
	Err       error
}

// Result summarizes one ingestion batch.
type Result struct {
	Executed int
	Skipped  []Skip
	Failed   []Failure
}

// Ingestor runs insert templates for one content document.
type Ingestor struct {
	DB Execer

	// Logf, when set, receives progress output.
	Logf func(format string, args ...any)
}

// New returns an Ingestor bound to db.
func New(db Execer) *Ingestor {
	return &Ingestor{DB: db}
}

func (in *Ingestor) logf(format string, args ...any) {
	if in.Logf != nil {
		in.Logf(format, args...)
	}
}

// Run executes the templates in order against the document fields.
//
// The fields map is not modified; captured ids accumulate in a working
// copy that lives for the duration of the batch. Database errors on
// individual statements are collected in the result, not returned; the
// returned error is reserved for failures of the savepoint machinery
// itself, which indicate the surrounding transaction is unusable.
func (in *Ingestor) Run(ctx context.Context, templates []string, fields map[string]any) (*Result, error) {
	working := make(map[string]any, len(fields))
	for k, v := range fields {
		working[k] = v
	}

	res := &Result{}
	for _, tmpl := range templates {
		if err := in.runTemplate(ctx, tmpl, working, res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// runTemplate resolves one template against the working fields and
// executes it, broadening list values into loops where needed.
func (in *Ingestor) runTemplate(ctx context.Context, tmpl string, working map[string]any, res *Result) error {
	stmt, args, err := Parameterize(tmpl, working)
	if err != nil {
		missing, ok := err.(*MissingFieldError)
		if !ok {
			return err
		}
		listField, items := broadenSource(working, missing.Field)
		if listField == "" {
			in.logf("skipping statement (no field %q)", missing.Field)
			res.Skipped = append(res.Skipped, Skip{Statement: tmpl, Field: missing.Field})
			return nil
		}
		in.logf("broadening {%s} over %d values of %q", missing.Field, len(items), listField)
		return in.runLoop(ctx, tmpl, working, res, missing.Field, items)
	}

	// A list-valued argument also broadens: one execution per element.
	// This covers junction inserts referencing the id list captured from
	// an upserted attribute loop.
	if field, items := listArg(tmpl, args); field != "" {
		return in.runLoop(ctx, tmpl, working, res, field, items)
	}

	return in.exec(ctx, tmpl, stmt, args, working, res)
}

// runLoop executes a template once per element, binding each element to
// field. Ids captured across iterations accumulate into a list.
func (in *Ingestor) runLoop(ctx context.Context, tmpl string, working map[string]any, res *Result, field string, items []any) error {
	saved, hadSaved := working[field]
	var capturedKey string
	var captured []any

	for _, item := range items {
		working[field] = item
		stmt, args, err := Parameterize(tmpl, working)
		if err != nil {
			// Another field is also missing; skip the whole loop.
			missing := err.(*MissingFieldError)
			res.Skipped = append(res.Skipped, Skip{Statement: tmpl, Field: missing.Field})
			break
		}
		before := snapshotIDs(working)
		if err := in.exec(ctx, tmpl, stmt, args, working, res); err != nil {
			return err
		}
		if key, id, ok := newID(before, working); ok {
			capturedKey = key
			captured = append(captured, id)
		}
	}

	if hadSaved {
		working[field] = saved
	} else {
		delete(working, field)
	}
	if capturedKey != "" {
		if len(captured) == 1 {
			working[capturedKey] = captured[0]
		} else {
			working[capturedKey] = captured
		}
	}
	return nil
}

// exec runs one fully-resolved statement inside a savepoint. Statements
// with a RETURNING id clause capture the id into the working fields as
// <table>_id.
func (in *Ingestor) exec(ctx context.Context, tmpl, stmt string, args []any, working map[string]any, res *Result) error {
	if _, err := in.DB.ExecContext(ctx, "SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("creating savepoint: %w", err)
	}

	var execErr error
	if returningIDPattern.MatchString(stmt) {
		var id int64
		execErr = in.DB.QueryRowContext(ctx, stmt, args...).Scan(&id)
		if execErr == nil {
			if table := insertTable(tmpl); table != "" {
				working[table+"_id"] = id
			}
		}
	} else {
		_, execErr = in.DB.ExecContext(ctx, stmt, args...)
	}

	if execErr != nil {
		if _, err := in.DB.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepointName); err != nil {
			return fmt.Errorf("rolling back savepoint: %w", err)
		}
		in.logf("statement failed, rolled back: %v", execErr)
		res.Failed = append(res.Failed, Failure{Statement: tmpl, Err: execErr})
		return nil
	}

	if _, err := in.DB.ExecContext(ctx, "RELEASE SAVEPOINT "+savepointName); err != nil {
		return fmt.Errorf("releasing savepoint: %w", err)
	}
	res.Executed++
	return nil
}

// insertTable extracts the target table name from an INSERT template.
func insertTable(tmpl string) string {
	m := insertTablePattern.FindStringSubmatch(tmpl)
	if m == nil {
		return ""
	}
	return m[1]
}

// broadenSource finds the list to iterate when field is missing: the
// field itself if it is list-valued, else the first list-valued field in
// the document (sorted for determinism).
func broadenSource(working map[string]any, field string) (string, []any) {
	if items, ok := working[field].([]any); ok {
		return field, items
	}
	keys := make([]string, 0, len(working))
	for k := range working {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if items, ok := working[k].([]any); ok {
			return k, items
		}
	}
	return "", nil
}

// listArg reports the first placeholder whose bound value is a list.
func listArg(tmpl string, args []any) (string, []any) {
	matches := placeholderPattern.FindAllStringSubmatch(tmpl, -1)
	for i, arg := range args {
		if items, ok := arg.([]any); ok && i < len(matches) {
			return matches[i][1], items
		}
	}
	return "", nil
}

// snapshotIDs copies the *_id entries of the working fields.
func snapshotIDs(working map[string]any) map[string]any {
	ids := map[string]any{}
	for k, v := range working {
		if len(k) > 3 && k[len(k)-3:] == "_id" {
			ids[k] = v
		}
	}
	return ids
}

// newID reports an *_id entry added or changed since the snapshot.
func newID(before, working map[string]any) (string, any, bool) {
	for k, v := range working {
		if len(k) <= 3 || k[len(k)-3:] != "_id" {
			continue
		}
		if _, isList := v.([]any); isList {
			continue
		}
		if prev, ok := before[k]; !ok || prev != v {
			return k, v, true
		}
	}
	return "", nil, false
}
