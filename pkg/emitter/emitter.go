// Package emitter packages generated statements into output documents:
// a TOML configuration consumed by the runtime, a JSON analysis document
// for machine consumption, or plain concatenated SQL.
package emitter

import (
	"encoding/json"
	"fmt"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/tobyms/pgsite/pkg/schema"
)

// tomlDocument is the [tool.pgsite] namespace the settings loader reads.
type tomlDocument struct {
	Tool struct {
		Pgsite struct {
			InsertSQL map[string][]string `toml:"insert_sql"`
			ReadSQL   map[string]string   `toml:"read_sql,omitempty"`
		} `toml:"pgsite"`
	} `toml:"tool"`
}

// MainObject picks the object the configuration is keyed by: the first
// collection if one exists, else the first page, else the first object.
func MainObject(tables []*schema.Table) *schema.Table {
	if len(tables) == 0 {
		return nil
	}
	for _, t := range tables {
		if t.Kind == schema.KindCollection {
			return t
		}
	}
	for _, t := range tables {
		if t.Kind == schema.KindPage {
			return t
		}
	}
	return tables[0]
}

// TOML renders the configuration document. The insert statements (already
// in dependency order) are attached as an ordered list under the main
// object's name, together with its read statement when one exists.
func TOML(ordered []*schema.Table, inserts []string, reads map[string]string) (string, error) {
	main := MainObject(ordered)
	if main == nil {
		return "", fmt.Errorf("no objects to emit")
	}

	cleaned := make([]string, 0, len(inserts))
	for _, q := range inserts {
		if c := CleanStatement(q); c != "" {
			cleaned = append(cleaned, c)
		}
	}

	var doc tomlDocument
	doc.Tool.Pgsite.InsertSQL = map[string][]string{main.Name: cleaned}
	if read, ok := reads[main.Name]; ok {
		doc.Tool.Pgsite.ReadSQL = map[string]string{main.Name: read}
	}

	out, err := toml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshaling TOML config: %w", err)
	}
	return string(out), nil
}

// SQL renders the plain-SQL output format: the insert statements
// concatenated in dependency order, comments intact.
func SQL(inserts []string) string {
	return strings.Join(inserts, "\n\n") + "\n"
}

// analysisDocument is the machine-readable output format.
type analysisDocument struct {
	Objects       []objectDoc           `json:"objects"`
	Relationships []schema.Relationship `json:"relationships"`
	InsertSQL     []string              `json:"insert_sql"`
	ReadSQL       map[string]string     `json:"read_sql"`
}

type objectDoc struct {
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Table      string         `json:"table"`
	Columns    []string       `json:"columns"`
	Attributes map[string]any `json:"attributes"`
}

// JSON renders the parsed objects, inferred relationships, and generated
// statements as an indented JSON document.
func JSON(ordered []*schema.Table, rels []schema.Relationship, inserts []string, reads map[string]string) ([]byte, error) {
	doc := analysisDocument{
		Relationships: rels,
		InsertSQL:     inserts,
		ReadSQL:       reads,
	}
	if doc.Relationships == nil {
		doc.Relationships = []schema.Relationship{}
	}
	for _, t := range ordered {
		attrs := map[string]any{}
		if t.ParentCollection != "" {
			attrs["parent_collection"] = t.ParentCollection
		}
		if t.CollectionName != "" {
			attrs["collection_name"] = t.CollectionName
		}
		if len(t.IgnoredColumns) > 0 {
			attrs["ignored_columns"] = t.IgnoredColumns
		}
		if len(t.AggregateColumns) > 0 {
			attrs["aggregate_columns"] = t.AggregateColumns
		}
		if len(t.UniqueColumns) > 0 {
			attrs["unique_columns"] = t.UniqueColumns
		}
		doc.Objects = append(doc.Objects, objectDoc{
			Name:       t.Name,
			Type:       string(t.Kind),
			Table:      t.TableName,
			Columns:    t.Columns,
			Attributes: attrs,
		})
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling analysis document: %w", err)
	}
	return out, nil
}

// CleanStatement strips "--" comment lines and collapses a statement onto
// one line for embedding in the TOML config.
func CleanStatement(q string) string {
	var parts []string
	for _, line := range strings.Split(q, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}
