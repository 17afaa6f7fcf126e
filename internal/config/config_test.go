package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "LIBRARY_URL", "CORPUSLOAD_DB", "HTTP_TIMEOUT", "WORKER_COUNT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("expected default port 8090, got %q", cfg.Port)
	}
	if cfg.DBPath != "corpusload.db" {
		t.Errorf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %v", cfg.HTTPTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("WORKER_COUNT", "-3")
	t.Setenv("CORPUSLOAD_DEBUG", "true")
	t.Setenv("CORPUSLOAD_SEARCH_INDEX", "segments.bleve")
	cfg := Load()
	if cfg.Port != "9000" || cfg.HTTPTimeout != 5*time.Second || cfg.SearchIndexPath != "segments.bleve" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.WorkerCount != 2 {
		t.Errorf("non-positive worker count should fall back, got %d", cfg.WorkerCount)
	}
	if !cfg.Debug {
		t.Error("expected debug on")
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{DBPath: "x.db", LibraryURL: "ftp://example.com"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-http library URL")
	}
	cfg.LibraryURL = "https://library.example.com"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing library API key")
	}
	cfg.LibraryAPIKey = "k"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := cfg.ValidateServe(); err == nil {
		t.Error("serve should require CORPUSLOAD_API_KEY")
	}
}

func TestLoadProfile_EmptyPathIsDefault(t *testing.T) {
	p, err := LoadProfile("")
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if !reflect.DeepEqual(p, DefaultProfile()) {
		t.Errorf("expected default profile, got %+v", p)
	}
}

func TestLoadProfile_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	yml := `
prose:
  title: Symposium
  milestone:
    tag: milestone
    attr: unit
    value: section
drama:
  excluded_titles: []
  line_format: indented
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Prose.Title != "Symposium" || p.Prose.Milestone.Value != "section" {
		t.Errorf("prose overrides lost: %+v", p.Prose)
	}
	if p.Prose.Version.Title != "Perseus" {
		t.Errorf("expected default version title, got %q", p.Prose.Version.Title)
	}
	if len(p.Drama.ExcludedTitles) != 0 {
		t.Errorf("explicit empty exclusion list should be kept, got %v", p.Drama.ExcludedTitles)
	}
	if p.Drama.LineFormat != "indented" {
		t.Errorf("expected indented, got %q", p.Drama.LineFormat)
	}
	if len(p.Taxonomy.Categories) != 7 {
		t.Errorf("expected default taxonomy, got %d roots", len(p.Taxonomy.Categories))
	}
}

func TestLoadProfile_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"levels.yaml": "prose:\n  levels: [Book, Page]\n",
		"format.yaml": "drama:\n  line_format: fancy\n",
		"syntax.yaml": "prose: [\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadProfile(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := LoadProfile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
