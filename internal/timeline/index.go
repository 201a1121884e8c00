package timeline

import (
	"sort"
	"sync"
)

// index holds the intervals of one (product, marketplace) key sorted by Start.
// Members never overlap, so any overlap with a candidate must involve one of
// its neighbours in sort order.
type index struct {
	mu        sync.RWMutex
	intervals []Interval
	dead      bool // reclaimed by the store; inserters must look the key up again
}

// position returns the first slot whose Start is not before start.
func (ix *index) position(iv Interval) int {
	return sort.Search(len(ix.intervals), func(i int) bool {
		return !ix.intervals[i].Start.Before(iv.Start)
	})
}

// conflicts must be called with mu held.
func (ix *index) conflicts(iv Interval, pos int) []int64 {
	var ids []int64
	if pos > 0 && ix.intervals[pos-1].overlaps(iv) {
		ids = append(ids, ix.intervals[pos-1].ID)
	}
	if pos < len(ix.intervals) && ix.intervals[pos].overlaps(iv) {
		ids = append(ids, ix.intervals[pos].ID)
	}
	return ids
}

// insertLocked must be called with mu held for writing.
func (ix *index) insertLocked(iv Interval) error {
	pos := ix.position(iv)
	if ids := ix.conflicts(iv, pos); len(ids) > 0 {
		return &ConflictError{ID: iv.ID, Conflicts: ids}
	}
	ix.intervals = append(ix.intervals, Interval{})
	copy(ix.intervals[pos+1:], ix.intervals[pos:])
	ix.intervals[pos] = iv
	return nil
}

// removeLocked must be called with mu held for writing.
func (ix *index) removeLocked(id int64) (Interval, bool) {
	for i, iv := range ix.intervals {
		if iv.ID == id {
			ix.intervals = append(ix.intervals[:i], ix.intervals[i+1:]...)
			return iv, true
		}
	}
	return Interval{}, false
}

func (ix *index) scan(w Window) []Interval {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	// The first candidate is the last interval starting before w.Start; every
	// earlier one ends no later than that interval starts.
	first := sort.Search(len(ix.intervals), func(i int) bool {
		return !ix.intervals[i].Start.Before(w.Start)
	})
	if first > 0 {
		first--
	}

	var out []Interval
	for _, iv := range ix.intervals[first:] {
		if !iv.Start.Before(w.End) {
			break
		}
		if w.contains(iv) {
			out = append(out, iv)
		}
	}
	return out
}

func (ix *index) snapshot() []Interval {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]Interval, len(ix.intervals))
	copy(out, ix.intervals)
	return out
}
