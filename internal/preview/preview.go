// Package preview renders a stored work as a readable document: Markdown
// built from the index levels and version content, HTML from that Markdown,
// and a heading outline parsed back out of it.
package preview

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/dgallion1/corpusload/internal/library"
	"github.com/yuin/goldmark"
)

// Renderer converts stored segment HTML into Markdown.
type Renderer struct {
	converter *md.Converter
}

// NewRenderer returns a Renderer using GitHub-flavored output.
func NewRenderer() *Renderer {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Renderer{converter: converter}
}

// Markdown renders v under the headings described by idx. Containers get
// one heading level each, titled from the schema when it names them and
// "<Level> <n>" otherwise. Empty containers and gap slots are omitted but
// keep their numbers.
func (r *Renderer) Markdown(idx library.Index, v library.Version) (string, error) {
	content, err := normalize(v.Chapter)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# " + idx.Title + "\n\n")
	if v.VersionTitle != "" {
		fmt.Fprintf(&b, "_%s", v.VersionTitle)
		if v.Language != "" {
			fmt.Fprintf(&b, " (%s)", v.Language)
		}
		b.WriteString("_\n\n")
	}

	top, ok := content.([]any)
	if !ok {
		return "", fmt.Errorf("chapter of %q is %T, want an array", v.Title, v.Chapter)
	}
	schema := idx.Schema
	if err := r.container(&b, top, idx.Levels, &schema, 2); err != nil {
		return "", fmt.Errorf("render %q: %w", v.Title, err)
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

func (r *Renderer) container(b *strings.Builder, items []any, levels []string, schema *library.SchemaNode, heading int) error {
	if len(levels) <= 1 {
		for _, it := range items {
			s, ok := it.(string)
			if !ok {
				return fmt.Errorf("expected text at %s level, got %T", levelName(levels), it)
			}
			if s == "" {
				continue
			}
			text, err := r.converter.ConvertString(s)
			if err != nil {
				return fmt.Errorf("convert segment: %w", err)
			}
			if text = strings.TrimSpace(text); text != "" {
				b.WriteString(text + "\n\n")
			}
		}
		return nil
	}

	for i, it := range items {
		sub, ok := it.([]any)
		if !ok {
			if s, isText := it.(string); isText && s == "" {
				continue
			}
			return fmt.Errorf("expected %s array, got %T", levels[0], it)
		}
		if empty(sub) {
			continue
		}
		var child *library.SchemaNode
		title := fmt.Sprintf("%s %d", levels[0], i+1)
		if schema != nil && i < len(schema.Nodes) {
			child = &schema.Nodes[i]
			if child.Title != "" {
				title = child.Title
			}
		}
		b.WriteString(strings.Repeat("#", min(heading, 6)) + " " + title + "\n\n")
		if err := r.container(b, sub, levels[1:], child, heading+1); err != nil {
			return err
		}
	}
	return nil
}

// HTML renders the Markdown preview of v to HTML.
func (r *Renderer) HTML(idx library.Index, v library.Version) (string, error) {
	src, err := r.Markdown(idx, v)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	return buf.String(), nil
}

// normalize brings typed slices such as [][][]string into the []any shape a
// decoded version has.
func normalize(chapter any) (any, error) {
	if _, ok := chapter.([]any); ok {
		return chapter, nil
	}
	raw, err := json.Marshal(chapter)
	if err != nil {
		return nil, fmt.Errorf("encode chapter: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode chapter: %w", err)
	}
	return out, nil
}

func empty(items []any) bool {
	for _, it := range items {
		switch v := it.(type) {
		case string:
			if v != "" {
				return false
			}
		case []any:
			if !empty(v) {
				return false
			}
		}
	}
	return true
}

func levelName(levels []string) string {
	if len(levels) == 0 {
		return "leaf"
	}
	return levels[0]
}
