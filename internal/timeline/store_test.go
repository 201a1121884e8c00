package timeline

import (
	"errors"
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func interval(id int64, start, end int, price int64) Interval {
	return Interval{
		ID:            id,
		ProductID:     1,
		MarketplaceID: 1,
		Price:         decimal.NewFromInt(price),
		Start:         day(start),
		End:           day(end),
	}
}

var key11 = Key{ProductID: 1, MarketplaceID: 1}

func TestStore_ScenarioA_SingleInterval(t *testing.T) {
	s := NewStore()
	if err := s.Insert(interval(1, 1, 10, 10)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	w, err := NewWindow(day(1), day(10))
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	series := Build(s.Scan(key11, w), w)
	if len(series) != 9 {
		t.Fatalf("expected 9 days, got %d", len(series))
	}
	for i, dp := range series {
		if !dp.Date.Equal(day(i + 1)) {
			t.Errorf("entry %d: expected %s, got %s", i, day(i+1).Format(DateFormat), dp.Date.Format(DateFormat))
		}
		if !dp.Price.Equal(decimal.NewFromInt(10)) {
			t.Errorf("entry %d: expected price 10, got %s", i, dp.Price)
		}
	}
}

func TestStore_ScenarioB_AdjacentIntervals(t *testing.T) {
	s := NewStore()
	if err := s.Insert(interval(1, 1, 5, 10)); err != nil {
		t.Fatalf("insert 1: %v", err)
	}
	if err := s.Insert(interval(2, 5, 10, 12)); err != nil {
		t.Fatalf("insert 2: %v", err)
	}

	w, _ := NewWindow(day(1), day(10))
	series := Build(s.Scan(key11, w), w)
	if len(series) != 9 {
		t.Fatalf("expected 9 days, got %d", len(series))
	}
	for i, dp := range series {
		want := decimal.NewFromInt(10)
		if dp.Date.Day() >= 5 {
			want = decimal.NewFromInt(12)
		}
		if !dp.Price.Equal(want) {
			t.Errorf("entry %d (%s): expected %s, got %s", i, dp.Date.Format(DateFormat), want, dp.Price)
		}
	}
}

func TestStore_ScenarioC_ConflictLeavesIndexUnchanged(t *testing.T) {
	s := NewStore()
	if err := s.Insert(interval(1, 1, 10, 10)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	before := s.All()

	err := s.Insert(interval(2, 5, 6, 20))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !reflect.DeepEqual(conflict.Conflicts, []int64{1}) {
		t.Errorf("expected conflict with [1], got %v", conflict.Conflicts)
	}
	if !reflect.DeepEqual(before, s.All()) {
		t.Error("expected index to be unchanged after conflict")
	}
	if _, ok := s.Get(2); ok {
		t.Error("expected rejected interval to be absent")
	}
}

func TestStore_ScenarioD_InvalidWindow(t *testing.T) {
	_, err := NewWindow(day(10), day(1))
	var rangeErr *InvalidRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected InvalidRangeError, got %v", err)
	}
}

func TestStore_ConflictReportsBothNeighbours(t *testing.T) {
	s := NewStore()
	_ = s.Insert(interval(1, 1, 5, 10))
	_ = s.Insert(interval(2, 8, 12, 10))

	err := s.Insert(interval(3, 4, 9, 10))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if !reflect.DeepEqual(conflict.Conflicts, []int64{1, 2}) {
		t.Errorf("expected conflicts [1 2], got %v", conflict.Conflicts)
	}
}

func TestStore_DuplicateIDRejected(t *testing.T) {
	s := NewStore()
	_ = s.Insert(interval(1, 1, 5, 10))

	dup := interval(1, 10, 12, 10)
	dup.MarketplaceID = 2
	var conflict *ConflictError
	if err := s.Insert(dup); !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError for duplicate id, got %v", err)
	}
	if got := s.MarketplaceIDs(1); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("expected marketplaces [1], got %v", got)
	}
}

func TestStore_FailedInsertLeavesNoIndex(t *testing.T) {
	s := NewStore()
	if err := s.Insert(interval(1, 1, 5, 10)); err != nil {
		t.Fatal(err)
	}
	dup := interval(1, 1, 5, 10)
	dup.ProductID = 2
	if err := s.Insert(dup); err == nil {
		t.Fatal("expected duplicate id error")
	}
	if got := s.ProductIDs(); !reflect.DeepEqual(got, []int64{1}) {
		t.Errorf("expected products [1], got %v", got)
	}
}

func TestStore_InvalidIntervalRejected(t *testing.T) {
	s := NewStore()
	cases := []Interval{
		interval(1, 5, 5, 10),
		interval(2, 6, 5, 10),
		interval(0, 1, 2, 10),
		{ID: 3, ProductID: 1, MarketplaceID: 1, Price: decimal.NewFromInt(-1), Start: day(1), End: day(2)},
	}
	for _, iv := range cases {
		var invalid *InvalidIntervalError
		if err := s.Insert(iv); !errors.As(err, &invalid) {
			t.Errorf("interval %d: expected InvalidIntervalError, got %v", iv.ID, err)
		}
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d intervals", s.Len())
	}
}

func TestStore_DeleteRoundTrip(t *testing.T) {
	s := NewStore()
	_ = s.Insert(interval(1, 1, 5, 10))
	_ = s.Insert(interval(2, 10, 15, 11))
	before := s.All()

	if err := s.Insert(interval(3, 5, 10, 12)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	removed, err := s.Delete(3)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if removed.ID != 3 {
		t.Errorf("expected removed id 3, got %d", removed.ID)
	}
	if !reflect.DeepEqual(before, s.All()) {
		t.Errorf("expected %v after round trip, got %v", before, s.All())
	}
}

func TestStore_DeleteUnknown(t *testing.T) {
	s := NewStore()
	var notFound *NotFoundError
	if _, err := s.Delete(42); !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestStore_EmptyIndexReclaimed(t *testing.T) {
	s := NewStore()
	_ = s.Insert(interval(1, 1, 5, 10))
	if _, err := s.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ids := s.ProductIDs(); len(ids) != 0 {
		t.Errorf("expected no products after reclaim, got %v", ids)
	}
	if err := s.Insert(interval(2, 1, 5, 10)); err != nil {
		t.Fatalf("insert after reclaim: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 interval, got %d", s.Len())
	}
}

func TestStore_ScanUnknownKey(t *testing.T) {
	s := NewStore()
	w, _ := NewWindow(day(1), day(10))
	if got := s.Scan(Key{ProductID: 9, MarketplaceID: 9}, w); len(got) != 0 {
		t.Errorf("expected empty scan, got %v", got)
	}
}

func TestStore_ScanReturnsOnlyIntersecting(t *testing.T) {
	s := NewStore()
	_ = s.Insert(interval(1, 1, 3, 10))
	_ = s.Insert(interval(2, 3, 6, 11))
	_ = s.Insert(interval(3, 8, 12, 12))
	_ = s.Insert(interval(4, 20, 25, 13))

	w, _ := NewWindow(day(4), day(9))
	got := s.Scan(key11, w)
	ids := make([]int64, len(got))
	for i, iv := range got {
		ids[i] = iv.ID
	}
	if !reflect.DeepEqual(ids, []int64{2, 3}) {
		t.Errorf("expected [2 3], got %v", ids)
	}
}

func TestStore_NextIDAfterSeed(t *testing.T) {
	s := NewStore()
	s.SeedID(41)
	if id := s.NextID(); id != 42 {
		t.Errorf("expected 42, got %d", id)
	}
	_ = s.Insert(interval(100, 1, 2, 1))
	if id := s.NextID(); id != 101 {
		t.Errorf("expected 101, got %d", id)
	}
}

func TestStore_GenerationChangesOnMutation(t *testing.T) {
	s := NewStore()
	g0 := s.Generation()
	_ = s.Insert(interval(1, 1, 2, 1))
	g1 := s.Generation()
	if g1 == g0 {
		t.Error("expected generation to change after insert")
	}
	_ = s.Insert(interval(2, 1, 2, 1)) // conflict
	if s.Generation() != g1 {
		t.Error("expected generation unchanged after rejected insert")
	}
	_, _ = s.Delete(1)
	if s.Generation() == g1 {
		t.Error("expected generation to change after delete")
	}
}

func TestStore_BulkInsertPartialSuccess(t *testing.T) {
	s := NewStore()
	errs := s.BulkInsert([]Interval{
		interval(1, 1, 5, 10),
		interval(2, 3, 7, 10),
		interval(3, 5, 9, 10),
	})
	if errs[0] != nil || errs[2] != nil {
		t.Fatalf("expected items 0 and 2 to succeed, got %v", errs)
	}
	var conflict *ConflictError
	if !errors.As(errs[1], &conflict) {
		t.Fatalf("expected conflict for item 1, got %v", errs[1])
	}
	if s.Len() != 2 {
		t.Errorf("expected 2 stored intervals, got %d", s.Len())
	}
}

// Random inserts must never leave two intervals of one key covering the same day.
func TestStore_NonOverlapInvariant(t *testing.T) {
	s := NewStore()
	rng := rand.New(rand.NewSource(7))
	for id := int64(1); id <= 500; id++ {
		start := rng.Intn(60) + 1
		iv := Interval{
			ID:            id,
			ProductID:     int64(rng.Intn(2) + 1),
			MarketplaceID: int64(rng.Intn(2) + 1),
			Price:         decimal.NewFromInt(int64(rng.Intn(100))),
			Start:         day(1).AddDate(0, 0, start),
			End:           day(1).AddDate(0, 0, start+rng.Intn(5)+1),
		}
		_ = s.Insert(iv)
	}

	w, _ := NewWindow(day(1), day(1).AddDate(0, 0, 80))
	for _, p := range s.ProductIDs() {
		for _, m := range s.MarketplaceIDs(p) {
			seen := make(map[time.Time]bool)
			for _, dp := range Build(s.Scan(Key{ProductID: p, MarketplaceID: m}, w), w) {
				if seen[dp.Date] {
					t.Fatalf("key %d/%d: day %s covered twice", p, m, dp.Date.Format(DateFormat))
				}
				seen[dp.Date] = true
			}
		}
	}
}

func TestStore_ConcurrentOverlappingInserts(t *testing.T) {
	s := NewStore()
	const writers = 32

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if err := s.Insert(interval(id, 1, 10, id)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}(int64(i + 1))
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("expected exactly 1 successful insert, got %d", succeeded)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 stored interval, got %d", s.Len())
	}
}

func TestStore_ConcurrentInsertDeleteAcrossKeys(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for m := int64(1); m <= 8; m++ {
		wg.Add(1)
		go func(m int64) {
			defer wg.Done()
			for i := int64(0); i < 50; i++ {
				id := m*1000 + i
				iv := Interval{ID: id, ProductID: 1, MarketplaceID: m, Price: decimal.NewFromInt(1), Start: day(1), End: day(2)}
				if err := s.Insert(iv); err != nil {
					t.Errorf("insert %d: %v", id, err)
					return
				}
				if _, err := s.Delete(id); err != nil {
					t.Errorf("delete %d: %v", id, err)
					return
				}
			}
		}(m)
	}
	wg.Wait()

	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d", s.Len())
	}
}
