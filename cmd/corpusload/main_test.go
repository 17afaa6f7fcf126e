package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/corpusload/internal/library"
)

const playsJSON = `[
{"type":"act","line_id":1,"play_name":"Macbeth","speech_number":"","line_number":"","speaker":"","text_entry":"ACT I"},
{"type":"scene","line_id":2,"play_name":"Macbeth","speech_number":"","line_number":"","speaker":"","text_entry":"SCENE I. A desert place."},
{"type":"line","line_id":3,"play_name":"Macbeth","speech_number":1,"line_number":"1.1.1","speaker":"First Witch","text_entry":"When shall we three meet again"}
]`

func TestImportDramaToDir(t *testing.T) {
	t.Setenv("LIBRARY_URL", "")
	t.Setenv("CORPUSLOAD_PROFILE", "")
	dir := t.TempDir()
	in := filepath.Join(dir, "plays.json")
	if err := os.WriteFile(in, []byte(playsJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"import", "drama", in, "--out-dir", out})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("import: %v\n%s", err, buf.String())
	}
	if !strings.Contains(buf.String(), "Macbeth") {
		t.Errorf("summary does not mention Macbeth:\n%s", buf.String())
	}

	raw, err := os.ReadFile(filepath.Join(out, "macbeth.index.json"))
	if err != nil {
		t.Fatalf("index file: %v", err)
	}
	var idx library.Index
	if err := json.Unmarshal(raw, &idx); err != nil {
		t.Fatal(err)
	}
	if idx.Title != "Macbeth" || len(idx.Levels) != 3 {
		t.Errorf("unexpected index %+v", idx)
	}
	if _, err := os.Stat(filepath.Join(out, "macbeth.version.json")); err != nil {
		t.Errorf("version file: %v", err)
	}
}

func TestImportRejectsUnknownKind(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"import", "poetry", "x.json"})
	if err := rootCmd.Execute(); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestImportThenSearchAndReindex(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LIBRARY_URL", "")
	t.Setenv("CORPUSLOAD_PROFILE", "")
	t.Setenv("CORPUSLOAD_DB", filepath.Join(dir, "lib.db"))
	t.Setenv("CORPUSLOAD_SEARCH_INDEX", filepath.Join(dir, "segments.bleve"))
	importOutDir = ""
	in := filepath.Join(dir, "plays.json")
	if err := os.WriteFile(in, []byte(playsJSON), 0o644); err != nil {
		t.Fatal(err)
	}

	run := func(args ...string) string {
		t.Helper()
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs(args)
		if err := rootCmd.Execute(); err != nil {
			t.Fatalf("%v: %v\n%s", args, err, buf.String())
		}
		return buf.String()
	}

	run("import", "drama", in)

	out := run("search", "three", "meet")
	if !strings.Contains(out, "Macbeth") || !strings.Contains(out, "1.1.1") {
		t.Errorf("unexpected search output:\n%s", out)
	}

	out = run("reindex")
	if !strings.Contains(out, "Works: 1") || !strings.Contains(out, "(1 segments)") {
		t.Errorf("unexpected reindex output:\n%s", out)
	}

	out = run("search", "--work", "Hamlet", "three")
	if !strings.Contains(out, "No segments match") {
		t.Errorf("work filter ignored:\n%s", out)
	}
}
