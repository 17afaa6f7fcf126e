package watch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"
)

func quietLog() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type collector struct {
	mu    sync.Mutex
	paths []string
	seen  chan string
}

func newCollector() *collector {
	return &collector{seen: make(chan string, 16)}
}

func (c *collector) add(path string) {
	c.mu.Lock()
	c.paths = append(c.paths, path)
	c.mu.Unlock()
	c.seen <- path
}

func TestMatch(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, nil, func(string) {}, quietLog())
	if err != nil {
		t.Fatal(err)
	}
	cases := map[string]bool{
		filepath.Join(root, "republic.xml"):            true,
		filepath.Join(root, "drama", "plays.json"):     true,
		filepath.Join(root, "notes.txt"):               false,
		filepath.Join(root, "drama", "plays.json.tmp"): false,
		"plato/laws.xml":                               true,
	}
	for path, want := range cases {
		if got := w.Match(path); got != want {
			t.Errorf("Match(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestNew_RejectsBadPattern(t *testing.T) {
	if _, err := New(t.TempDir(), []string{"[a-"}, func(string) {}, quietLog()); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func TestSync_ReportsExistingFiles(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "drama"), 0o755)
	for _, name := range []string{"republic.xml", "drama/plays.json", "readme.md"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	c := newCollector()
	w, err := New(root, nil, c.add, quietLog())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	sort.Strings(c.paths)
	want := []string{filepath.Join(root, "drama", "plays.json"), filepath.Join(root, "republic.xml")}
	if len(c.paths) != 2 || c.paths[0] != want[0] || c.paths[1] != want[1] {
		t.Errorf("unexpected synced paths %v", c.paths)
	}
}

func TestRun_ReportsNewFileOnceAfterWrites(t *testing.T) {
	root := t.TempDir()
	c := newCollector()
	w, err := New(root, []string{"**/*.json"}, c.add, quietLog(), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	select {
	case <-w.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not start")
	}

	path := filepath.Join(root, "plays.json")
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("[]"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	os.WriteFile(filepath.Join(root, "ignored.xml"), []byte("x"), 0o644)

	select {
	case got := <-c.seen:
		if got != path {
			t.Errorf("reported %q, want %q", got, path)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("file was never reported")
	}
	select {
	case extra := <-c.seen:
		t.Errorf("unexpected second report %q", extra)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run: %v", err)
	}
}
