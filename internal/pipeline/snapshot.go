package pipeline

import (
	"sort"

	"github.com/KaramelBytes/salespipe-cli/internal/dataset"
)

// SnapshotStore keeps one dataset copy per completed step index.
// Stored values are never handed out directly.
type SnapshotStore struct {
	byStep map[int]*dataset.Dataset
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{byStep: map[int]*dataset.Dataset{}}
}

// Put stores a copy of ds under step, replacing any previous entry.
func (s *SnapshotStore) Put(step int, ds *dataset.Dataset) {
	s.byStep[step] = ds.Clone()
}

// Get returns a copy of the snapshot for step.
func (s *SnapshotStore) Get(step int) (*dataset.Dataset, bool) {
	ds, ok := s.byStep[step]
	if !ok {
		return nil, false
	}
	return ds.Clone(), true
}

func (s *SnapshotStore) Has(step int) bool {
	_, ok := s.byStep[step]
	return ok
}

// Highest returns the largest stored index, or -1 when empty.
func (s *SnapshotStore) Highest() int {
	h := -1
	for k := range s.byStep {
		if k > h {
			h = k
		}
	}
	return h
}

// Below returns the largest stored index smaller than step.
func (s *SnapshotStore) Below(step int) (int, bool) {
	best, ok := -1, false
	for k := range s.byStep {
		if k < step && k > best {
			best, ok = k, true
		}
	}
	return best, ok
}

// Steps lists stored indexes in ascending order.
func (s *SnapshotStore) Steps() []int {
	out := make([]int, 0, len(s.byStep))
	for k := range s.byStep {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// TruncateAfter deletes every snapshot with index greater than step and
// returns the removed indexes.
func (s *SnapshotStore) TruncateAfter(step int) []int {
	var removed []int
	for k := range s.byStep {
		if k > step {
			delete(s.byStep, k)
			removed = append(removed, k)
		}
	}
	sort.Ints(removed)
	return removed
}

// Clear removes every snapshot.
func (s *SnapshotStore) Clear() { s.byStep = map[int]*dataset.Dataset{} }
