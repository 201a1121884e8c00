package timeline

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Store owns every per-key index. Indexes are created on first insert and
// reclaimed once their last interval is deleted. Different keys never block
// each other on writes.
type Store struct {
	mu      sync.RWMutex
	indexes map[Key]*index

	idMu sync.Mutex
	ids  map[int64]Key

	lastID     atomic.Int64
	generation atomic.Uint64
}

func NewStore() *Store {
	return &Store{
		indexes: make(map[Key]*index),
		ids:     make(map[int64]Key),
	}
}

// Insert validates iv and adds it to its key's index. It fails with
// *InvalidIntervalError or *ConflictError and leaves the store unchanged.
func (s *Store) Insert(iv Interval) error {
	if err := iv.Validate(); err != nil {
		return err
	}
	iv = iv.normalized()

	for {
		ix := s.indexFor(iv.Key())
		ix.mu.Lock()
		if ix.dead {
			ix.mu.Unlock()
			continue
		}
		err := s.insertLocked(ix, iv)
		empty := len(ix.intervals) == 0
		ix.mu.Unlock()
		if err != nil {
			if empty {
				s.reclaim(iv.Key())
			}
			return err
		}
		s.observeID(iv.ID)
		s.generation.Add(1)
		return nil
	}
}

func (s *Store) insertLocked(ix *index, iv Interval) error {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	if _, taken := s.ids[iv.ID]; taken {
		return &ConflictError{ID: iv.ID, Conflicts: []int64{iv.ID}}
	}
	if err := ix.insertLocked(iv); err != nil {
		return err
	}
	s.ids[iv.ID] = iv.Key()
	return nil
}

// BulkInsert inserts each interval independently. The returned slice holds
// one entry per input; nil means the interval was stored.
func (s *Store) BulkInsert(intervals []Interval) []error {
	errs := make([]error, len(intervals))
	for i, iv := range intervals {
		errs[i] = s.Insert(iv)
	}
	return errs
}

// Delete removes the interval with the given ID and returns it.
func (s *Store) Delete(id int64) (Interval, error) {
	s.idMu.Lock()
	key, ok := s.ids[id]
	s.idMu.Unlock()
	if !ok {
		return Interval{}, &NotFoundError{ID: id}
	}

	ix := s.lookup(key)
	if ix == nil {
		return Interval{}, &NotFoundError{ID: id}
	}

	ix.mu.Lock()
	s.idMu.Lock()
	removed, found := ix.removeLocked(id)
	if found {
		delete(s.ids, id)
	}
	s.idMu.Unlock()
	empty := len(ix.intervals) == 0
	ix.mu.Unlock()

	if !found {
		return Interval{}, &NotFoundError{ID: id}
	}
	s.generation.Add(1)
	if empty {
		s.reclaim(key)
	}
	return removed, nil
}

// Get returns the interval with the given ID.
func (s *Store) Get(id int64) (Interval, bool) {
	s.idMu.Lock()
	key, ok := s.ids[id]
	s.idMu.Unlock()
	if !ok {
		return Interval{}, false
	}
	ix := s.lookup(key)
	if ix == nil {
		return Interval{}, false
	}
	for _, iv := range ix.snapshot() {
		if iv.ID == id {
			return iv, true
		}
	}
	return Interval{}, false
}

// Scan returns the intervals of key that intersect w, ordered by Start.
// An unknown key yields an empty result.
func (s *Store) Scan(key Key, w Window) []Interval {
	ix := s.lookup(key)
	if ix == nil {
		return nil
	}
	return ix.scan(w)
}

// All returns every stored interval ordered by ID.
func (s *Store) All() []Interval {
	s.mu.RLock()
	indexes := make([]*index, 0, len(s.indexes))
	for _, ix := range s.indexes {
		indexes = append(indexes, ix)
	}
	s.mu.RUnlock()

	var out []Interval
	for _, ix := range indexes {
		out = append(out, ix.snapshot()...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of stored intervals.
func (s *Store) Len() int {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return len(s.ids)
}

// ProductIDs returns every product with at least one interval, ascending.
func (s *Store) ProductIDs() []int64 {
	s.mu.RLock()
	seen := make(map[int64]struct{})
	for k := range s.indexes {
		seen[k.ProductID] = struct{}{}
	}
	s.mu.RUnlock()
	return sortedIDs(seen)
}

// MarketplaceIDs returns the marketplaces that have sold productID, ascending.
func (s *Store) MarketplaceIDs(productID int64) []int64 {
	s.mu.RLock()
	seen := make(map[int64]struct{})
	for k := range s.indexes {
		if k.ProductID == productID {
			seen[k.MarketplaceID] = struct{}{}
		}
	}
	s.mu.RUnlock()
	return sortedIDs(seen)
}

// NextID reserves an identifier above every ID seen so far.
func (s *Store) NextID() int64 {
	return s.lastID.Add(1)
}

// SeedID makes NextID continue after id, e.g. the highest persisted ID.
func (s *Store) SeedID(id int64) {
	s.observeID(id)
}

// Generation changes on every successful mutation.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

func (s *Store) observeID(id int64) {
	for {
		cur := s.lastID.Load()
		if id <= cur || s.lastID.CompareAndSwap(cur, id) {
			return
		}
	}
}

func (s *Store) lookup(key Key) *index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexes[key]
}

func (s *Store) indexFor(key Key) *index {
	if ix := s.lookup(key); ix != nil {
		return ix
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ix, ok := s.indexes[key]
	if !ok {
		ix = &index{}
		s.indexes[key] = ix
	}
	return ix
}

func (s *Store) reclaim(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ix, ok := s.indexes[key]
	if !ok {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if len(ix.intervals) == 0 {
		ix.dead = true
		delete(s.indexes, key)
	}
}

func sortedIDs(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
