package ingest

import (
	"fmt"
	"regexp"
	"sort"
)

// placeholderPattern matches {field}-style named placeholders.
var placeholderPattern = regexp.MustCompile(`\{(\w+)\}`)

// MissingFieldError reports a placeholder with no matching field. The
// ingestor treats it as a signal to skip the statement or to broaden a
// list-valued field into a loop, not as a fatal error.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("no field for placeholder {%s}", e.Field)
}

// Parameterize converts a {field}-templated statement into a positional
// $N-parameterized statement plus its argument list. Each placeholder
// occurrence becomes its own parameter, in left-to-right order.
func Parameterize(template string, data map[string]any) (string, []any, error) {
	var args []any
	var missing *MissingFieldError

	stmt := placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		field := m[1 : len(m)-1]
		v, ok := data[field]
		if !ok {
			if missing == nil {
				missing = &MissingFieldError{Field: field}
			}
			return m
		}
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	})

	if missing != nil {
		return "", nil, missing
	}
	return stmt, args, nil
}

// Fields returns the distinct placeholder names in a template, sorted.
func Fields(template string) []string {
	seen := map[string]bool{}
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		seen[m[1]] = true
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
