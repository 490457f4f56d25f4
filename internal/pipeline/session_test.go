package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
	"github.com/KaramelBytes/salespipe-cli/internal/schema"
	"github.com/KaramelBytes/salespipe-cli/internal/steps"
	"github.com/google/go-cmp/cmp"
)

// rawSales has 100 rows, 10 null amounts, and a 60%-null Notes column.
func rawSales() *dataset.Dataset {
	n := 100
	date := make([]dataset.Value, n)
	amount := make([]dataset.Value, n)
	order := make([]dataset.Value, n)
	notes := make([]dataset.Value, n)
	for i := 0; i < n; i++ {
		date[i] = dataset.String(fmt.Sprintf("%02d-15-22", i%3+4))
		if i%10 != 0 {
			amount[i] = dataset.Number(float64(i))
		}
		order[i] = dataset.String(fmt.Sprintf("o-%d", i))
		if i%5 >= 3 {
			notes[i] = dataset.String("gift")
		}
	}
	return dataset.MustNew(
		dataset.NewColumn("Date", dataset.KindString, date...),
		dataset.NewColumn("Amount", dataset.KindNumeric, amount...),
		dataset.NewColumn("Order ID", dataset.KindString, order...),
		dataset.NewColumn("Notes", dataset.KindString, notes...),
	)
}

func mappedSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := NewSession(opts...)
	if err := s.Load(rawSales()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, err := s.ProposeMapping()
	if err != nil {
		t.Fatalf("ProposeMapping: %v", err)
	}
	if err := s.ApplyMapping(d); err != nil {
		t.Fatalf("ApplyMapping: %v", err)
	}
	return s
}

func TestLoadRejectsEmpty(t *testing.T) {
	s := NewSession()
	if err := s.Load(dataset.Empty()); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
	if s.Loaded() {
		t.Fatalf("empty dataset should not be loaded")
	}
}

func TestStepsRequireMapping(t *testing.T) {
	s := NewSession()
	if err := s.Load(rawSales()); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := s.RunStep(ctx, 1); !errors.Is(err, ErrMappingNotApplied) {
		t.Fatalf("RunStep: expected ErrMappingNotApplied, got %v", err)
	}
	if err := s.RunAll(ctx); !errors.Is(err, ErrMappingNotApplied) {
		t.Fatalf("RunAll: expected ErrMappingNotApplied, got %v", err)
	}
	d := schema.ProposeMapping([]string{"Amount"}, schema.Canonical)
	if err := s.ApplyMapping(d); !errors.Is(err, schema.ErrMissingCriticalColumn) {
		t.Fatalf("expected missing critical column, got %v", err)
	}
	if s.Mapped() {
		t.Fatalf("failed mapping must not unlock steps")
	}
}

func TestStepOneIsNoOp(t *testing.T) {
	s := mappedSession(t)
	before := s.Current()
	if err := s.RunStep(context.Background(), 1); err != nil {
		t.Fatalf("RunStep: %v", err)
	}
	if !s.Current().Equal(before) {
		t.Fatalf("step 1 changed the dataset")
	}
	if s.Pointer() != 1 {
		t.Fatalf("pointer = %d", s.Pointer())
	}
}

func TestUndoRestoresPreviousDataset(t *testing.T) {
	s := mappedSession(t)
	ctx := context.Background()
	for n := 1; n <= 3; n++ {
		before := s.Current()
		if err := s.RunStep(ctx, n); err != nil {
			t.Fatalf("RunStep(%d): %v", n, err)
		}
		if err := s.Undo(); err != nil {
			t.Fatalf("Undo: %v", err)
		}
		if !s.Current().Equal(before) {
			t.Fatalf("undo after step %d did not restore the dataset", n)
		}
		if s.Pointer() != n-1 {
			t.Fatalf("pointer = %d, want %d", s.Pointer(), n-1)
		}
		if err := s.RunStep(ctx, n); err != nil {
			t.Fatalf("re-run %d: %v", n, err)
		}
	}
}

func TestUndoAtInitialState(t *testing.T) {
	s := mappedSession(t)
	if err := s.Undo(); !errors.Is(err, ErrAtInitialState) {
		t.Fatalf("expected ErrAtInitialState, got %v", err)
	}
	if s.Pointer() != 0 {
		t.Fatalf("pointer moved: %d", s.Pointer())
	}
}

func TestUndoAfterForwardJump(t *testing.T) {
	s := mappedSession(t)
	ctx := context.Background()
	if err := s.RunStep(ctx, 5); err != nil {
		t.Fatalf("RunStep(5): %v", err)
	}
	if err := s.Undo(); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if s.Pointer() != 0 {
		t.Fatalf("pointer = %d, want 0", s.Pointer())
	}
	if !s.Current().Equal(rawSales()) {
		t.Fatalf("undo did not restore the raw dataset")
	}
	if err := s.Undo(); !errors.Is(err, ErrAtInitialState) {
		t.Fatalf("expected ErrAtInitialState, got %v", err)
	}

	// 0 -> 2 -> 6: undo walks back through the stored states.
	for _, n := range []int{2, 6} {
		if err := s.RunStep(ctx, n); err != nil {
			t.Fatalf("RunStep(%d): %v", n, err)
		}
	}
	for _, want := range []int{2, 0} {
		if err := s.Undo(); err != nil {
			t.Fatalf("Undo: %v", err)
		}
		if s.Pointer() != want {
			t.Fatalf("pointer = %d, want %d", s.Pointer(), want)
		}
	}
}

func TestUndoDoesNotAliasSnapshot(t *testing.T) {
	s := mappedSession(t)
	ctx := context.Background()
	_ = s.RunStep(ctx, 1)
	_ = s.RunStep(ctx, 2)
	if err := s.Undo(); err != nil {
		t.Fatal(err)
	}
	col, _ := s.current.Column("Amount")
	col.Values[1] = dataset.Number(-1)
	snap, _ := s.Snapshot(1)
	if snap.Equal(s.current) {
		t.Fatalf("snapshot shares storage with the working dataset")
	}
}

func TestRunAllMatchesManualSequence(t *testing.T) {
	ctx := context.Background()
	auto := mappedSession(t)
	if err := auto.RunAll(ctx); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if auto.Pointer() != steps.Last || !auto.Complete() {
		t.Fatalf("pointer = %d", auto.Pointer())
	}

	manual := mappedSession(t)
	for n := 1; n <= steps.Last; n++ {
		if err := manual.RunStep(ctx, n); err != nil {
			t.Fatalf("RunStep(%d): %v", n, err)
		}
	}
	a, _ := auto.Snapshot(steps.Last)
	m, _ := manual.Snapshot(steps.Last)
	if !a.Equal(m) {
		t.Fatalf("run-all and manual runs disagree")
	}
	// Notes is 60% null and gets dropped at the default 10% threshold.
	if a.HasColumn("Notes") {
		t.Fatalf("Notes should be dropped: %v", a.Names())
	}
	if a.Rows() != 90 {
		t.Fatalf("rows = %d, want 90", a.Rows())
	}
	if diff := cmp.Diff([]int{0, 1, 2, 3, 4, 5, 6, 7}, auto.SnapshotSteps()); diff != "" {
		t.Fatalf("snapshots (-want +got):\n%s", diff)
	}
}

func TestRunAllRestartsFromRaw(t *testing.T) {
	ctx := context.Background()
	s := mappedSession(t)
	if err := s.RunAll(ctx); err != nil {
		t.Fatal(err)
	}
	first := s.Current()
	if err := s.RunAll(ctx); err != nil {
		t.Fatalf("second RunAll: %v", err)
	}
	if !s.Current().Equal(first) {
		t.Fatalf("run-all is not repeatable")
	}
}

func TestRerunInvalidatesDownstreamSnapshots(t *testing.T) {
	ctx := context.Background()
	s := mappedSession(t)
	if err := s.RunAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.SetThreshold(70); err != nil {
		t.Fatal(err)
	}
	// Back to step 1 state, then re-run step 2 with the new threshold.
	for s.Pointer() > 1 {
		if err := s.Undo(); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.RunStep(ctx, 2); err != nil {
		t.Fatalf("RunStep(2): %v", err)
	}
	if diff := cmp.Diff([]int{0, 1, 2}, s.SnapshotSteps()); diff != "" {
		t.Fatalf("stale snapshots kept (-want +got):\n%s", diff)
	}
	if _, ok := s.Summary(3); ok {
		t.Fatalf("stale summary for step 3 kept")
	}
	if !s.Current().HasColumn("Notes") {
		t.Fatalf("Notes should survive a 70%% threshold")
	}
}

func TestFailedStepLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := mappedSession(t)
	if err := s.RunStep(ctx, 1); err != nil {
		t.Fatal(err)
	}
	// Bypass SetThreshold validation to force a transform failure.
	s.threshold = 150
	before := s.Current()
	err := s.RunStep(ctx, 2)
	var te *TransformError
	if !errors.As(err, &te) || te.Step != 2 {
		t.Fatalf("expected TransformError for step 2, got %v", err)
	}
	if !errors.Is(err, steps.ErrThresholdRange) {
		t.Fatalf("cause not wrapped: %v", err)
	}
	if s.Pointer() != 1 || !s.Current().Equal(before) || s.SnapshotSteps()[len(s.SnapshotSteps())-1] != 1 {
		t.Fatalf("state changed after failure: pointer=%d snapshots=%v", s.Pointer(), s.SnapshotSteps())
	}
	if s.LastError() == nil {
		t.Fatalf("error marker not recorded")
	}
	s.threshold = 10
	if err := s.RunStep(ctx, 2); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if s.LastError() != nil {
		t.Fatalf("marker not cleared on success")
	}
}

func TestApplyMappingRejectsSharedSource(t *testing.T) {
	s := NewSession()
	if err := s.Load(rawSales()); err != nil {
		t.Fatal(err)
	}
	d, err := s.ProposeMapping()
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Assign(schema.OrderID, "Amount"); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyMapping(d); !errors.Is(err, schema.ErrDuplicateSource) {
		t.Fatalf("expected ErrDuplicateSource, got %v", err)
	}
	if s.Mapped() {
		t.Fatalf("mapping confirmed despite shared source")
	}
	if err := s.RunStep(context.Background(), 3); !errors.Is(err, ErrMappingNotApplied) {
		t.Fatalf("expected ErrMappingNotApplied, got %v", err)
	}
}

func TestRunAllStopsOnFailureWithoutRollback(t *testing.T) {
	s := mappedSession(t)
	s.threshold = -1
	err := s.RunAll(context.Background())
	var te *TransformError
	if !errors.As(err, &te) || te.Step != 2 {
		t.Fatalf("expected failure at step 2, got %v", err)
	}
	if s.Pointer() != 1 {
		t.Fatalf("pointer = %d, want 1", s.Pointer())
	}
	if s.RunningAll() {
		t.Fatalf("run-all flag left set")
	}
}

func TestRemapRejectedAfterAdvance(t *testing.T) {
	ctx := context.Background()
	s := mappedSession(t)
	if err := s.RunStep(ctx, 1); err != nil {
		t.Fatal(err)
	}
	d, _ := s.ProposeMapping()
	if err := s.ApplyMapping(d); !errors.Is(err, ErrRemapAfterAdvance) {
		t.Fatalf("expected ErrRemapAfterAdvance, got %v", err)
	}
	if err := s.Reset(); err != nil {
		t.Fatal(err)
	}
	if s.Mapped() || s.Pointer() != 0 {
		t.Fatalf("reset did not clear state")
	}
	if err := s.ApplyMapping(d); err != nil {
		t.Fatalf("mapping after reset: %v", err)
	}
}

func TestRunStepValidatesNumberAndContext(t *testing.T) {
	s := mappedSession(t)
	if err := s.RunStep(context.Background(), 8); !errors.Is(err, ErrUnknownStep) {
		t.Fatalf("expected ErrUnknownStep, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.RunStep(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSnapshotStore(t *testing.T) {
	st := NewSnapshotStore()
	if st.Highest() != -1 {
		t.Fatalf("empty Highest = %d", st.Highest())
	}
	ds := rawSales()
	for i := 0; i <= 4; i++ {
		st.Put(i, ds)
	}
	if removed := st.TruncateAfter(2); !cmp.Equal(removed, []int{3, 4}) {
		t.Fatalf("removed = %v", removed)
	}
	if st.Highest() != 2 || st.Has(3) {
		t.Fatalf("truncate failed: %v", st.Steps())
	}
	if n, ok := st.Below(2); !ok || n != 1 {
		t.Fatalf("Below(2) = %d, %v", n, ok)
	}
	if _, ok := st.Below(0); ok {
		t.Fatalf("Below(0) found a snapshot")
	}
	got, _ := st.Get(2)
	col, _ := got.Column("Order ID")
	col.Values[0] = dataset.String("changed")
	again, _ := st.Get(2)
	if !again.Equal(ds) {
		t.Fatalf("Get returned shared storage")
	}
}
