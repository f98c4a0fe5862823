package doctor

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tobyms/pgsite/pkg/analyzer"
	"github.com/tobyms/pgsite/pkg/emitter"
	"github.com/tobyms/pgsite/pkg/parser"
	"github.com/tobyms/pgsite/pkg/settings"
	"github.com/tobyms/pgsite/pkg/sqlgen"
)

const testSchema = `
-- @collection
CREATE TABLE posts (
    id SERIAL PRIMARY KEY,
    title VARCHAR(255),
    content TEXT
);

-- @attribute
CREATE TABLE tags (
    id SERIAL PRIMARY KEY,
    name VARCHAR(64) UNIQUE -- @unique
);

CREATE TABLE post_tags (
    post_id INTEGER REFERENCES posts(id),
    tag_id INTEGER REFERENCES tags(id)
);
`

// writeProject writes the schema and a freshly generated pgsite.toml into
// a temp dir and returns both paths.
func writeProject(t *testing.T) (schemaPath, settingsPath string) {
	t.Helper()
	dir := t.TempDir()

	schemaPath = filepath.Join(dir, "schema.sql")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testSchema), 0o644))

	tables, err := parser.Parse(testSchema)
	require.NoError(t, err)
	rels := analyzer.Analyze(tables)
	ordered := analyzer.Order(tables, rels)

	out, err := emitter.TOML(ordered, sqlgen.Inserts(ordered, rels), sqlgen.Reads(ordered, rels))
	require.NoError(t, err)

	settingsPath = filepath.Join(dir, settings.ConfigName)
	require.NoError(t, os.WriteFile(settingsPath, []byte(out), 0o644))
	return schemaPath, settingsPath
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "pass", StatusPass.String())
	assert.Equal(t, "warn", StatusWarn.String())
	assert.Equal(t, "fail", StatusFail.String())
	assert.Equal(t, "✓", StatusPass.Symbol())
	assert.Equal(t, "⚠", StatusWarn.Symbol())
	assert.Equal(t, "✗", StatusFail.Symbol())
}

func TestReportCounts(t *testing.T) {
	r := &Report{}
	r.AddCheck(CheckResult{Status: StatusPass})
	r.AddCheck(CheckResult{Status: StatusPass})
	r.AddCheck(CheckResult{Status: StatusWarn})
	r.AddCheck(CheckResult{Status: StatusFail})

	assert.Equal(t, 2, r.Passed)
	assert.Equal(t, 1, r.Warnings)
	assert.Equal(t, 1, r.Errors)
	assert.True(t, r.HasErrors())
}

func TestReportPrint(t *testing.T) {
	r := &Report{}
	r.AddCheck(CheckResult{
		Category: "Schema",
		Status:   StatusPass,
		Message:  "Schema file exists",
		Details:  "3 tables",
	})
	r.AddCheck(CheckResult{
		Category: "Database",
		Status:   StatusFail,
		Message:  "Cannot connect",
		FixHint:  "Check --db",
	})

	var buf bytes.Buffer
	r.Print(&buf, false)
	out := buf.String()

	assert.Contains(t, out, "Schema")
	assert.Contains(t, out, "✓ Schema file exists")
	assert.Contains(t, out, "✗ Cannot connect")
	assert.Contains(t, out, "Fix: Check --db")
	assert.Contains(t, out, "Summary: 1 passed, 0 warnings, 1 errors")
	assert.NotContains(t, out, "3 tables", "details hidden unless verbose")

	buf.Reset()
	r.Print(&buf, true)
	assert.Contains(t, buf.String(), "3 tables")
}

func TestRunHealthyProject(t *testing.T) {
	schemaPath, settingsPath := writeProject(t)

	report, err := New(nil, schemaPath, settingsPath).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.HasErrors())
	assert.Zero(t, report.Warnings, "post_tags is reclassified as a junction, not left unmarked")
	var messages []string
	for _, c := range report.Checks {
		messages = append(messages, c.Message)
	}
	joined := strings.Join(messages, "\n")
	assert.Contains(t, joined, "Parsed 3 tables")
	assert.Contains(t, joined, "Configured statements match the schema")
}

func TestRunMissingSchema(t *testing.T) {
	_, settingsPath := writeProject(t)

	report, err := New(nil, filepath.Join(t.TempDir(), "nope.sql"), settingsPath).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.HasErrors())
	assert.Equal(t, StatusFail, report.Checks[0].Status)
	assert.NotEmpty(t, report.Checks[0].FixHint)
}

func TestRunConflictingAnnotations(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.sql")
	bad := "-- @page\n-- @collection\nCREATE TABLE about (\n  id SERIAL\n);\n"
	require.NoError(t, os.WriteFile(schemaPath, []byte(bad), 0o644))

	report, err := New(nil, schemaPath, filepath.Join(dir, settings.ConfigName)).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.HasErrors())
}

func TestRunStaleSettings(t *testing.T) {
	schemaPath, settingsPath := writeProject(t)

	raw := `[tool.pgsite]
insert_sql.posts = ["INSERT INTO posts (slug) VALUES ({slug})"]
`
	require.NoError(t, os.WriteFile(settingsPath, []byte(raw), 0o644))

	report, err := New(nil, schemaPath, settingsPath).Run(context.Background())
	require.NoError(t, err)

	var stale *CheckResult
	for i, c := range report.Checks {
		if c.Name == "current" {
			stale = &report.Checks[i]
		}
	}
	require.NotNil(t, stale)
	assert.Equal(t, StatusWarn, stale.Status)
	assert.Contains(t, stale.Details, "INSERT INTO posts (slug)")
}

func TestRunNoContentTables(t *testing.T) {
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.sql")
	lookupOnly := "-- @attribute\nCREATE TABLE tags (\n  id SERIAL,\n  name VARCHAR(64)\n);\n"
	require.NoError(t, os.WriteFile(schemaPath, []byte(lookupOnly), 0o644))

	// No pgsite.toml anywhere on the discovery path.
	chdir(t, dir)
	report, err := New(nil, schemaPath, "").Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.HasErrors())
	var found bool
	for _, c := range report.Checks {
		if c.Status == StatusWarn && strings.Contains(c.Message, "No @page or @collection") {
			found = true
		}
	}
	assert.True(t, found)
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
