package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgallion1/corpusload/internal/config"
	"github.com/dgallion1/corpusload/internal/diag"
)

type doneObserver chan JobSnapshot

func (d doneObserver) ObserveJob(snap JobSnapshot, _ *diag.Report, _ time.Duration) {
	d <- snap
}

func testConfig() config.Config {
	return config.Config{WorkerCount: 2, MaxQueueSize: 1, MaxConcurrentStore: 2, JobTTL: time.Hour}
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	st := openStore(t)
	done := make(doneObserver, 2)
	orch := NewOrchestrator(testConfig(), config.DefaultProfile(), st, quietLog(), WithObserver(done))
	orch.Start(context.Background())
	defer orch.Stop()

	job := NewJob(KindDrama, "plays.json", []byte(dramaJSON))
	if err := orch.SubmitWait(context.Background(), job); err != nil {
		t.Fatalf("SubmitWait: %v", err)
	}
	select {
	case snap := <-done:
		if snap.ID != job.ID || snap.Status != StatusCompleted {
			t.Errorf("unexpected snapshot %+v", snap)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("job never finished")
	}
	if orch.GetJob(job.ID) != job {
		t.Error("job not retrievable by id")
	}
}

func TestOrchestrator_SubmitFailsWhenQueueFull(t *testing.T) {
	orch := NewOrchestrator(testConfig(), config.DefaultProfile(), openStore(t), quietLog())
	// Not started, so nothing drains the queue.
	if err := orch.Submit(NewJob(KindDrama, "a.json", nil)); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	full := NewJob(KindDrama, "b.json", nil)
	if err := orch.Submit(full); err == nil {
		t.Fatal("expected queue full error")
	}
	if got := full.Snapshot(); got.Status != StatusFailed || got.Phase != "queue_full" {
		t.Errorf("unexpected rejected job state %q/%q", got.Status, got.Phase)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	waiting := NewJob(KindDrama, "c.json", nil)
	if err := orch.SubmitWait(ctx, waiting); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if got := waiting.Snapshot().Status; got != StatusFailed {
		t.Errorf("expected cancelled job to be failed, got %q", got)
	}
}
