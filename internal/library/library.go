// Package library defines what an import hands to the text-library platform
// and the sinks that persist it.
package library

import (
	"context"
	"errors"
	"time"

	"github.com/dgallion1/corpusload/internal/doctree"
)

// ErrNotFound is returned by readers when a title has no stored entry.
var ErrNotFound = errors.New("not found")

// SchemaNode describes one titled node of an index's structure.
type SchemaNode struct {
	Title        string       `json:"title"`
	HeTitle      string       `json:"he_title,omitempty"`
	SectionNames []string     `json:"section_names,omitempty"`
	Nodes        []SchemaNode `json:"nodes,omitempty"`
}

// Index is the structure descriptor of a work.
type Index struct {
	Title      string     `json:"title"`
	Categories []string   `json:"categories"`
	Levels     []string   `json:"levels"`
	Schema     SchemaNode `json:"schema"`
}

// Version is the content of a work: a jagged array whose depth matches the
// index's Levels.
type Version struct {
	Title         string    `json:"title"`
	VersionTitle  string    `json:"version_title"`
	VersionSource string    `json:"version_source"`
	Language      string    `json:"language"`
	Chapter       any       `json:"chapter"`
	ContentHash   string    `json:"content_hash,omitempty"`
	ImportID      string    `json:"import_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Term is a named vocabulary entry, such as a section name.
type Term struct {
	Name    string `json:"name"`
	Scheme  string `json:"scheme"`
	Title   string `json:"title"`
	HeTitle string `json:"he_title"`
}

// Category is one node of the subject taxonomy. Path ends with the
// category's own name.
type Category struct {
	Path    []string `json:"path"`
	Title   string   `json:"title"`
	HeTitle string   `json:"he_title"`
}

// LastPath returns the category's own name.
func (c Category) LastPath() string {
	if len(c.Path) == 0 {
		return ""
	}
	return c.Path[len(c.Path)-1]
}

// Sink persists import results. Every Replace call removes the prior
// entries it covers before writing, so repeated runs converge.
type Sink interface {
	// ReplaceIndex deletes any index titled idx.Title and writes idx.
	ReplaceIndex(ctx context.Context, idx Index) error
	// ReplaceVersion deletes every version of v.Title and writes v.
	ReplaceVersion(ctx context.Context, v Version) error
	// ReplaceTerms deletes every term in scheme and writes terms.
	ReplaceTerms(ctx context.Context, scheme string, terms []Term) error
	// ReplaceCategories deletes the whole taxonomy and writes cats.
	ReplaceCategories(ctx context.Context, cats []Category) error
}

// Reader reads back what a Sink stored.
type Reader interface {
	ListIndexes(ctx context.Context) ([]Index, error)
	GetIndex(ctx context.Context, title string) (Index, error)
	GetVersion(ctx context.Context, title string) (Version, error)
	ListCategories(ctx context.Context) ([]Category, error)
}

// FlatSchema is a single untitled-children node declaring every level, as
// used for works whose sections are addressed by number only.
func FlatSchema(title, hePrefix string, levels []string) SchemaNode {
	return SchemaNode{Title: title, HeTitle: hePrefix + title, SectionNames: levels}
}

// NestedSchema mirrors the container levels of root: each node declares
// the level name of its children, and titled child nodes are kept down to
// the last level.
func NestedSchema(root *doctree.Node, hePrefix string, levels []string) SchemaNode {
	s := SchemaNode{Title: root.Title, HeTitle: hePrefix + root.Title}
	if len(levels) > 0 {
		s.SectionNames = levels[:1]
	}
	if len(levels) > 1 {
		for _, c := range root.Children {
			if c.Kind == doctree.Container {
				s.Nodes = append(s.Nodes, NestedSchema(c, hePrefix, levels[1:]))
			}
		}
	}
	return s
}
