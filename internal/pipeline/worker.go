package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/corpusload/internal/config"
	"github.com/dgallion1/corpusload/internal/diag"
	"github.com/dgallion1/corpusload/internal/library"
)

// Indexer receives every work after it has been stored.
type Indexer interface {
	IndexWork(ctx context.Context, idx library.Index, v library.Version) (int, error)
}

// Observer is told about every finished job.
type Observer interface {
	ObserveJob(snap JobSnapshot, report *diag.Report, elapsed time.Duration)
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithIndexer feeds stored works to ix.
func WithIndexer(ix Indexer) WorkerOption {
	return func(w *Worker) { w.indexer = ix }
}

// WithObserver reports finished jobs to o.
func WithObserver(o Observer) WorkerOption {
	return func(w *Worker) { w.observer = o }
}

// Worker processes a single import job.
type Worker struct {
	sink     library.Sink
	profile  config.Profile
	log      *slog.Logger
	indexer  Indexer
	observer Observer

	maxConcurrentStore int
}

func NewWorker(sink library.Sink, profile config.Profile, log *slog.Logger, maxStore int, opts ...WorkerOption) *Worker {
	if maxStore <= 0 {
		maxStore = 1
	}
	w := &Worker{
		sink:               sink,
		profile:            profile,
		log:                log,
		maxConcurrentStore: maxStore,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process builds every work in the job's file and stores each one. A work
// is written only after it is fully built; a failed work leaves the stored
// copy of that title untouched.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "kind", job.Kind, "filename", job.Filename)
	if w.observer != nil {
		start := time.Now()
		defer func() { w.observer.ObserveJob(job.Snapshot(), job.Report(), time.Since(start)) }()
	}

	// Phase 1: Build
	job.SetStatus(StatusBuilding, "building")
	data := job.FileData()
	job.setContentHash(ContentHashHex(data))

	report := diag.NewReport(log)
	var works []Work
	var err error
	switch job.Kind {
	case KindProse:
		works, err = ProseWorks(data, w.profile, report)
	case KindDrama:
		works, err = DramaWorks(data, w.profile, report)
	default:
		err = fmt.Errorf("unknown corpus kind %q", job.Kind)
	}
	if k, ok := diag.KindOf(err); ok {
		report.Add(diag.Diagnostic{Kind: k, Unit: job.Filename, Detail: err.Error()})
	}
	job.SetReport(report)
	if err != nil {
		log.Error("build failed", "error", err)
		job.AddError(fmt.Sprintf("build: %s", err))
		job.SetStatus(StatusFailed, "building")
		return
	}

	job.SetTotalWorks(len(works))
	log.Info("built works", "works", len(works), "diagnostics", report.Len(), "overflows", len(report.Overflows()))
	if len(works) == 0 {
		job.AddError("no works produced")
		job.SetStatus(StatusFailed, "building")
		return
	}

	// Phase 2: Store, bounded concurrency across titles.
	job.SetStatus(StatusStoring, "storing")
	sem := make(chan struct{}, w.maxConcurrentStore)
	results := make(chan WorkResult, len(works))
	for _, wk := range works {
		sem <- struct{}{}
		go func(wk Work) {
			defer func() { <-sem }()
			results <- w.storeWork(ctx, job, wk)
		}(wk)
	}

	var stored, unchanged, failed int
	for range works {
		r := <-results
		job.AddResult(r)
		switch r.Status {
		case WorkStored:
			stored++
			log.Info("stored work", "title", r.Title, "leaves", r.Leaves)
		case WorkUnchanged:
			unchanged++
			log.Info("work unchanged, skipping", "title", r.Title)
		default:
			failed++
			log.Error("store failed", "title", r.Title, "error", r.Error)
			job.AddError(fmt.Sprintf("store %s: %s", r.Title, r.Error))
		}
	}

	switch {
	case failed > 0 && stored+unchanged > 0:
		job.SetStatus(StatusPartial, "done")
	case failed > 0:
		job.SetStatus(StatusFailed, "storing")
	case stored == 0:
		job.SetStatus(StatusUnchanged, "done")
	default:
		job.SetStatus(StatusCompleted, "done")
	}
	log.Info("import finished", "status", job.Snapshot().Status, "stored", stored, "unchanged", unchanged, "failed", failed)
}

// storeWork replaces the index and then the version of one title.
func (w *Worker) storeWork(ctx context.Context, job *Job, wk Work) WorkResult {
	res := WorkResult{Title: wk.Index.Title, Leaves: wk.Leaves}
	wk.Version.ImportID = job.ID

	if !job.Force && w.unchanged(ctx, wk) {
		res.Status = WorkUnchanged
		return res
	}
	if err := w.sink.ReplaceIndex(ctx, wk.Index); err != nil {
		res.Status = WorkFailed
		res.Error = "index: " + err.Error()
		return res
	}
	if err := w.sink.ReplaceVersion(ctx, wk.Version); err != nil {
		res.Status = WorkFailed
		res.Error = "version: " + err.Error()
		return res
	}
	res.Status = WorkStored

	if w.indexer != nil {
		n, err := w.indexer.IndexWork(ctx, wk.Index, wk.Version)
		if err != nil {
			w.log.Warn("search indexing failed", "job_id", job.ID, "title", wk.Index.Title, "error", err)
			job.AddError(fmt.Sprintf("search index %s: %s", wk.Index.Title, err))
		} else {
			w.log.Debug("indexed segments", "job_id", job.ID, "title", wk.Index.Title, "segments", n)
		}
	}
	return res
}

// unchanged reports whether the sink already holds this exact index and
// version content. Sinks that cannot be read back are always written.
func (w *Worker) unchanged(ctx context.Context, wk Work) bool {
	r, ok := w.sink.(library.Reader)
	if !ok {
		return false
	}
	v, err := r.GetVersion(ctx, wk.Index.Title)
	if err != nil || v.ContentHash != wk.Version.ContentHash || v.VersionTitle != wk.Version.VersionTitle {
		return false
	}
	idx, err := r.GetIndex(ctx, wk.Index.Title)
	if err != nil {
		return false
	}
	have, err1 := json.Marshal(idx)
	want, err2 := json.Marshal(wk.Index)
	return err1 == nil && err2 == nil && bytes.Equal(have, want)
}
