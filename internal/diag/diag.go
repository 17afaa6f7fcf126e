// Package diag collects the non-fatal problems found while restructuring a
// corpus so a run can finish with a best-effort result.
package diag

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Sentinel errors for the diagnostic kinds.
var (
	ErrMalformedInput   = errors.New("malformed input")
	ErrUnexpectedRecord = errors.New("unexpected record shape")
	ErrSlotOverflow     = errors.New("slot out of range")
	ErrExcluded         = errors.New("excluded unit")
	ErrEmptyUnit        = errors.New("empty unit")
)

// Kind classifies a Diagnostic.
type Kind string

const (
	KindMalformedInput   Kind = "malformed_input"
	KindUnexpectedRecord Kind = "unexpected_record"
	KindSlotOverflow     Kind = "slot_overflow"
	KindExcluded         Kind = "excluded"
	KindEmptyUnit        Kind = "empty_unit"
)

// Kinds lists every kind in reporting order.
var Kinds = []Kind{
	KindMalformedInput,
	KindUnexpectedRecord,
	KindSlotOverflow,
	KindExcluded,
	KindEmptyUnit,
}

// KindOf returns the kind whose sentinel err wraps.
func KindOf(err error) (Kind, bool) {
	for _, k := range Kinds {
		if errors.Is(err, k.Err()) {
			return k, true
		}
	}
	return "", false
}

// Err returns the sentinel error for k.
func (k Kind) Err() error {
	switch k {
	case KindMalformedInput:
		return ErrMalformedInput
	case KindUnexpectedRecord:
		return ErrUnexpectedRecord
	case KindSlotOverflow:
		return ErrSlotOverflow
	case KindExcluded:
		return ErrExcluded
	case KindEmptyUnit:
		return ErrEmptyUnit
	}
	return fmt.Errorf("unknown diagnostic kind %q", string(k))
}

// Diagnostic is one reported problem. Unit names the work or container the
// problem was found in; Position locates it (a record id, a slot, a path).
type Diagnostic struct {
	Kind     Kind   `json:"kind"`
	Unit     string `json:"unit,omitempty"`
	Position string `json:"position,omitempty"`
	Detail   string `json:"detail"`
}

func (d Diagnostic) Error() string {
	if d.Position != "" {
		return fmt.Sprintf("%s: %s at %s: %s", d.Kind, d.Unit, d.Position, d.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, d.Unit, d.Detail)
}

// Unwrap lets errors.Is match the kind's sentinel.
func (d Diagnostic) Unwrap() error {
	return d.Kind.Err()
}

// Overflow is a line whose computed slot fell outside the allocated output.
// Its text is kept here rather than written into the array.
type Overflow struct {
	Unit     string `json:"unit"`
	Slot     int    `json:"slot"`
	Capacity int    `json:"capacity"`
	Text     string `json:"text"`
}

// Report accumulates diagnostics for one run. A nil *Report discards
// everything, so builders can be used without one.
type Report struct {
	mu        sync.Mutex
	log       *slog.Logger
	items     []Diagnostic
	overflows []Overflow
}

// NewReport returns a Report that also logs each diagnostic at Warn level.
// log may be nil.
func NewReport(log *slog.Logger) *Report {
	return &Report{log: log}
}

// Add records d.
func (r *Report) Add(d Diagnostic) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.items = append(r.items, d)
	r.mu.Unlock()
	if r.log != nil {
		r.log.Warn("diagnostic",
			"kind", string(d.Kind),
			"unit", d.Unit,
			"position", d.Position,
			"detail", d.Detail,
		)
	}
}

// Addf is a shorthand for Add with a formatted detail.
func (r *Report) Addf(kind Kind, unit, position, format string, args ...any) {
	r.Add(Diagnostic{Kind: kind, Unit: unit, Position: position, Detail: fmt.Sprintf(format, args...)})
}

// AddOverflow records an out-of-range slot together with the text that
// could not be placed.
func (r *Report) AddOverflow(o Overflow) {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.overflows = append(r.overflows, o)
	r.mu.Unlock()
	r.Add(Diagnostic{
		Kind:     KindSlotOverflow,
		Unit:     o.Unit,
		Position: fmt.Sprintf("%d/%d", o.Slot, o.Capacity),
		Detail:   o.Text,
	})
}

// Items returns a copy of the collected diagnostics in arrival order.
func (r *Report) Items() []Diagnostic {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.items))
	copy(out, r.items)
	return out
}

// Overflows returns a copy of the overflow entries.
func (r *Report) Overflows() []Overflow {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Overflow, len(r.overflows))
	copy(out, r.overflows)
	return out
}

// Count returns the number of diagnostics of the given kind.
func (r *Report) Count(kind Kind) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.items {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the total number of diagnostics.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
