package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// DirSink writes each record as an indented JSON file under a directory.
// It is used for dry runs and for diffing imports.
type DirSink struct {
	dir string
	mu  sync.Mutex
}

func NewDirSink(dir string) (*DirSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sink dir: %w", err)
	}
	return &DirSink{dir: dir}, nil
}

func (s *DirSink) ReplaceIndex(_ context.Context, idx Index) error {
	return s.replace(Slug(idx.Title)+".index.json", idx)
}

func (s *DirSink) ReplaceVersion(_ context.Context, v Version) error {
	return s.replace(Slug(v.Title)+".version.json", v)
}

func (s *DirSink) ReplaceTerms(_ context.Context, scheme string, terms []Term) error {
	return s.replace("terms."+Slug(scheme)+".json", terms)
}

func (s *DirSink) ReplaceCategories(_ context.Context, cats []Category) error {
	return s.replace("categories.json", cats)
}

func (s *DirSink) replace(name string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Slug turns a title into a file-safe name.
func Slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	if slug := strings.TrimSuffix(b.String(), "-"); slug != "" {
		return slug
	}
	return "untitled"
}
