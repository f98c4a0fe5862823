// Package content splits markdown documents into YAML front matter and
// body text. Front matter fields feed the {field} placeholders of the
// generated insert templates.
package content

import (
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/yaml"
)

const fence = "---"

// Document is one markdown content file.
type Document struct {
	// Fields holds the front-matter values. YAML is decoded through a
	// JSON round trip, so scalars arrive as string/float64/bool and
	// sequences as []any.
	Fields map[string]any

	// Body is the markdown text below the front matter.
	Body string
}

// Split separates YAML front matter from the body. Input without a
// leading "---" fence has no front matter: the fields map is empty and
// the whole input is the body.
func Split(raw []byte) (*Document, error) {
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")

	doc := &Document{Fields: map[string]any{}}
	if !strings.HasPrefix(text, fence+"\n") {
		doc.Body = text
		return doc, nil
	}

	rest := text[len(fence)+1:]

	var header, body string
	switch {
	case rest == fence || strings.HasPrefix(rest, fence+"\n"):
		// Empty front matter: the closing fence follows immediately.
		body = strings.TrimPrefix(strings.TrimPrefix(rest, fence), "\n")
	default:
		idx := strings.Index(rest, "\n"+fence)
		if idx < 0 {
			return nil, fmt.Errorf("front matter: missing closing %q fence", fence)
		}
		header = rest[:idx]
		body = strings.TrimPrefix(rest[idx+len(fence)+1:], "\n")
	}

	if strings.TrimSpace(header) != "" {
		if err := yaml.Unmarshal([]byte(header), &doc.Fields); err != nil {
			return nil, fmt.Errorf("front matter: %w", err)
		}
	}
	doc.Body = body
	return doc, nil
}

// LoadFile reads and splits one markdown file.
func LoadFile(path string) (*Document, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is from trusted source
	if err != nil {
		return nil, fmt.Errorf("reading content file: %w", err)
	}
	doc, err := Split(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}
