package pipeline

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/corpusload/internal/diag"
)

// Kind selects the importer for a job.
type Kind string

const (
	KindProse Kind = "prose"
	KindDrama Kind = "drama"
)

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindProse, KindDrama:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown corpus kind %q (want prose or drama)", s)
}

// Ext is the file extension a corpus of this kind arrives with.
func (k Kind) Ext() string {
	if k == KindDrama {
		return ".json"
	}
	return ".xml"
}

// KindForFile picks the kind from a file name's extension.
func KindForFile(name string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml":
		return KindProse, nil
	case ".json":
		return KindDrama, nil
	}
	return "", fmt.Errorf("cannot tell corpus kind of %q (want .xml or .json)", name)
}

// JobStatus represents the state of an import job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusBuilding  JobStatus = "building"
	StatusStoring   JobStatus = "storing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
	StatusUnchanged JobStatus = "unchanged"
)

// WorkStatus is the outcome for one title within a job.
type WorkStatus string

const (
	WorkStored    WorkStatus = "stored"
	WorkUnchanged WorkStatus = "unchanged"
	WorkFailed    WorkStatus = "failed"
)

// WorkResult records what happened to one title.
type WorkResult struct {
	Title  string     `json:"title"`
	Status WorkStatus `json:"status"`
	Leaves int        `json:"leaves"`
	Error  string     `json:"error,omitempty"`
}

// Job tracks the state of a single corpus file import.
type Job struct {
	mu sync.Mutex

	ID       string `json:"job_id"`
	Kind     Kind   `json:"kind"`
	Filename string `json:"filename"`
	// Force stores every work even when its content hash is unchanged.
	Force bool `json:"force"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	report   *diag.Report
	errors   []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalWorks  int          `json:"total_works"`
	WorksStored int          `json:"works_stored"`
	Diagnostics int          `json:"diagnostics"`
	Overflows   int          `json:"overflows"`
	Results     []WorkResult `json:"results"`
	Errors      []string     `json:"errors"`
}

// NewJob returns a queued job over data.
func NewJob(kind Kind, filename string, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        NewID(),
		Kind:      kind,
		Filename:  filename,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

func (j *Job) setContentHash(h string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ContentHash = h
}

// SetTotalWorks records how many titles the file produced.
func (j *Job) SetTotalWorks(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalWorks = n
	j.UpdatedAt = time.Now()
}

// AddResult records the outcome for one title.
func (j *Job) AddResult(r WorkResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Results = append(j.Progress.Results, r)
	if r.Status == WorkStored {
		j.Progress.WorksStored++
	}
	j.UpdatedAt = time.Now()
}

// SetReport attaches the diagnostics collected while building.
func (j *Job) SetReport(r *diag.Report) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report = r
	j.Progress.Diagnostics = r.Len()
	j.Progress.Overflows = len(r.Overflows())
	j.UpdatedAt = time.Now()
}

// Report returns the job's diagnostics, or nil before building.
func (j *Job) Report() *diag.Report {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.report
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Kind        Kind      `json:"kind"`
	Filename    string    `json:"filename"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	results := append([]WorkResult{}, j.Progress.Results...)
	p := j.Progress
	p.Errors = errs
	p.Results = results
	return JobSnapshot{
		ID:          j.ID,
		Kind:        j.Kind,
		Filename:    j.Filename,
		Status:      j.Status,
		Phase:       j.Phase,
		ContentHash: j.ContentHash,
		Progress:    p,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
