package pipeline

import (
	"context"
	"fmt"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/logger"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
	"github.com/KaramelBytes/salespipe-cli/internal/steps"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Session is one user's pipeline state. It is not safe for concurrent use;
// a session processes one command at a time.
type Session struct {
	ID string

	raw       *dataset.Dataset
	current   *dataset.Dataset
	pointer   int
	snapshots *SnapshotStore
	summaries map[int]steps.Summary

	mapping    schema.Mapping
	mapped     bool
	threshold  float64
	sampleRows int

	runningAll bool
	lastErr    error
}

// Option configures a Session.
type Option func(*Session)

// WithThreshold sets the step 2 missing-value threshold.
func WithThreshold(t float64) Option { return func(s *Session) { s.threshold = t } }

// WithSampleRows sets the step 1 null-row sample size.
func WithSampleRows(n int) Option { return func(s *Session) { s.sampleRows = n } }

// NewSession returns an empty session.
func NewSession(opts ...Option) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		snapshots:  NewSnapshotStore(),
		summaries:  map[int]steps.Summary{},
		threshold:  steps.DefaultThreshold,
		sampleRows: steps.DefaultSampleRows,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Session) log() *zap.SugaredLogger {
	return logger.With("session", s.ID)
}

// Load installs ds as the raw dataset and resets all pipeline state.
func (s *Session) Load(ds *dataset.Dataset) error {
	if ds == nil || ds.Rows() == 0 {
		return ErrEmptyDataset
	}
	s.raw = ds.Clone()
	s.current = ds.Clone()
	s.pointer = 0
	s.snapshots.Clear()
	s.snapshots.Put(0, s.raw)
	s.summaries = map[int]steps.Summary{}
	s.mapping = schema.Mapping{}
	s.mapped = false
	s.lastErr = nil
	s.log().Infow("dataset loaded", "rows", ds.Rows(), "columns", ds.Width())
	return nil
}

// Loaded reports whether raw data is present.
func (s *Session) Loaded() bool { return s.raw != nil }

// ProposeMapping returns a default draft for the raw columns.
func (s *Session) ProposeMapping() (*schema.Draft, error) {
	if !s.Loaded() {
		return nil, ErrNotLoaded
	}
	return schema.ProposeMapping(s.raw.Names(), schema.Canonical), nil
}

// ApplyMapping confirms draft and unlocks the steps. It is rejected once the
// pipeline has advanced past step 0.
func (s *Session) ApplyMapping(d *schema.Draft) error {
	if !s.Loaded() {
		return ErrNotLoaded
	}
	if s.pointer > 0 {
		return ErrRemapAfterAdvance
	}
	m, err := schema.ConfirmMapping(d, schema.Critical)
	if err != nil {
		return err
	}
	s.mapping = m
	s.mapped = true
	s.log().Infow("mapping applied", "mapped", m.Len())
	return nil
}

// Mapped reports whether a mapping has been confirmed.
func (s *Session) Mapped() bool { return s.mapped }

// Mapping returns the confirmed mapping.
func (s *Session) Mapping() schema.Mapping { return s.mapping }

// Reset restores the raw dataset and clears steps, summaries and the mapping.
func (s *Session) Reset() error {
	if !s.Loaded() {
		return ErrNotLoaded
	}
	return s.Load(s.raw)
}

// SetThreshold changes the step 2 threshold for subsequent runs.
func (s *Session) SetThreshold(t float64) error {
	if t < 0 || t > 100 {
		return fmt.Errorf("%w: got %v", steps.ErrThresholdRange, t)
	}
	s.threshold = t
	return nil
}

// Threshold is the step 2 missing-value threshold in percent.
func (s *Session) Threshold() float64 { return s.threshold }

// RunStep executes step n on the current dataset. On success the summary and
// snapshot n are stored, snapshots after n are discarded, and the pointer
// moves to n. On failure nothing changes and a *TransformError is returned.
func (s *Session) RunStep(ctx context.Context, n int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n < 1 || n > steps.Last {
		return fmt.Errorf("%w: %d", ErrUnknownStep, n)
	}
	if !s.Loaded() {
		return ErrNotLoaded
	}
	if !s.mapped {
		return ErrMappingNotApplied
	}
	out, sum, err := steps.Run(n, s.current.Clone(), steps.Params{
		Threshold:  s.threshold,
		Mapping:    s.mapping,
		SampleRows: s.sampleRows,
	})
	if err != nil {
		s.lastErr = &TransformError{Step: n, Err: err}
		s.log().Warnw("step failed", "step", n, "error", err)
		return s.lastErr
	}
	if stale := s.snapshots.TruncateAfter(n); len(stale) > 0 {
		for _, k := range stale {
			delete(s.summaries, k)
		}
		s.log().Debugw("discarded stale snapshots", "after", n, "steps", stale)
	}
	s.summaries[n] = sum
	s.snapshots.Put(n, out)
	s.current = out
	s.pointer = n
	s.lastErr = nil
	s.log().Debugw("step finished", "step", n, "rows", out.Rows(), "columns", out.Width())
	return nil
}

// RunAll restarts from the raw dataset and runs steps 1..7, stopping at the
// first failure without rolling back completed steps.
func (s *Session) RunAll(ctx context.Context) error {
	if !s.Loaded() {
		return ErrNotLoaded
	}
	if !s.mapped {
		return ErrMappingNotApplied
	}
	s.runningAll = true
	defer func() { s.runningAll = false }()

	s.current = s.raw.Clone()
	s.pointer = 0
	s.snapshots.Clear()
	s.snapshots.Put(0, s.current)
	s.summaries = map[int]steps.Summary{}
	for n := 1; n <= steps.Last; n++ {
		if err := s.RunStep(ctx, n); err != nil {
			return err
		}
	}
	s.log().Infow("pipeline complete", "rows", s.current.Rows())
	return nil
}

// RunningAll reports whether RunAll is in progress.
func (s *Session) RunningAll() bool { return s.runningAll }

// Undo restores the nearest snapshot below the current pointer. After a
// forward jump (step 5 run from step 0) that is the state the jump started from.
func (s *Session) Undo() error {
	if s.pointer == 0 {
		return ErrAtInitialState
	}
	n, ok := s.snapshots.Below(s.pointer)
	if !ok {
		return ErrAtInitialState
	}
	prev, _ := s.snapshots.Get(n)
	s.current = prev
	s.pointer = n
	s.log().Infow("undo", "pointer", s.pointer)
	return nil
}

// Pointer is the highest completed step reflected in the current dataset.
func (s *Session) Pointer() int { return s.pointer }

// Current returns a copy of the working dataset.
func (s *Session) Current() *dataset.Dataset {
	if s.current == nil {
		return nil
	}
	return s.current.Clone()
}

// Raw returns a copy of the loaded dataset.
func (s *Session) Raw() *dataset.Dataset {
	if s.raw == nil {
		return nil
	}
	return s.raw.Clone()
}

// Snapshot returns a copy of snapshot n.
func (s *Session) Snapshot(n int) (*dataset.Dataset, bool) { return s.snapshots.Get(n) }

// SnapshotSteps lists stored snapshot indexes.
func (s *Session) SnapshotSteps() []int { return s.snapshots.Steps() }

// Summary returns the stored summary of step n.
func (s *Session) Summary(n int) (steps.Summary, bool) {
	sum, ok := s.summaries[n]
	return sum, ok
}

// LastError is the error marker left by the most recent failed step, if any.
func (s *Session) LastError() error { return s.lastErr }

// Complete reports whether step 7 is reflected in the current dataset.
func (s *Session) Complete() bool { return s.pointer == steps.Last }

// Status is a read-only view of the session for display.
type Status struct {
	ID        string
	Loaded    bool
	Mapped    bool
	Pointer   int
	Rows      int
	Columns   int
	Threshold float64
	Snapshots []int
	LastError error
}

// Status reports the session state.
func (s *Session) Status() Status {
	st := Status{
		ID:        s.ID,
		Loaded:    s.Loaded(),
		Mapped:    s.mapped,
		Pointer:   s.pointer,
		Threshold: s.threshold,
		Snapshots: s.snapshots.Steps(),
		LastError: s.lastErr,
	}
	if s.current != nil {
		st.Rows, st.Columns = s.current.Rows(), s.current.Width()
	}
	return st
}
