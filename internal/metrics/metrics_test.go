package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/corpusload/internal/diag"
	"github.com/dgallion1/corpusload/internal/pipeline"
)

func TestObserveJob(t *testing.T) {
	m := New()
	r := diag.NewReport(nil)
	r.Addf(diag.KindExcluded, "Pericles", "", "excluded title")
	r.AddOverflow(diag.Overflow{Unit: "Hamlet 1.1", Slot: 3, Capacity: 2, Text: "x"})

	snap := pipeline.JobSnapshot{
		Kind:   pipeline.KindDrama,
		Status: pipeline.StatusPartial,
		Progress: pipeline.Progress{Results: []pipeline.WorkResult{
			{Title: "Hamlet", Status: pipeline.WorkStored},
			{Title: "Macbeth", Status: pipeline.WorkFailed},
		}},
	}
	m.ObserveJob(snap, r, 250*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	out := string(body)

	for _, want := range []string{
		`corpusload_import_jobs_total{kind="drama",status="partial"} 1`,
		`corpusload_works_total{kind="drama",status="stored"} 1`,
		`corpusload_works_total{kind="drama",status="failed"} 1`,
		`corpusload_diagnostics_total{kind="excluded"} 1`,
		`corpusload_diagnostics_total{kind="slot_overflow"} 1`,
		`corpusload_slot_overflows_total 1`,
		`corpusload_import_duration_seconds_count{kind="drama"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in metrics output", want)
		}
	}
}

func TestObserveJob_NilReport(t *testing.T) {
	m := New()
	m.ObserveJob(pipeline.JobSnapshot{Kind: pipeline.KindProse, Status: pipeline.StatusFailed}, nil, time.Second)
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	if len(families) == 0 {
		t.Error("expected gathered metric families")
	}
}
