package item

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
	"github.com/ahmethakanbesel/price-tracker/internal/job"
	"github.com/ahmethakanbesel/price-tracker/internal/timeline"
)

type mockRepo struct {
	mu        sync.Mutex
	items     map[int64]timeline.Interval
	createErr error
	deleteErr error
	listErr   error

	// When set, Delete signals deleting and waits for release before
	// returning deleteErr.
	deleting chan struct{}
	release  chan struct{}
}

func newMockRepo(items ...timeline.Interval) *mockRepo {
	m := &mockRepo{items: make(map[int64]timeline.Interval)}
	for _, iv := range items {
		m.items[iv.ID] = iv
	}
	return m
}

func (m *mockRepo) Create(_ context.Context, iv timeline.Interval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.items[iv.ID] = iv
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if m.deleting != nil {
		close(m.deleting)
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.items, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, f Filter) ([]timeline.Interval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []timeline.Interval
	for _, iv := range m.items {
		if f.ProductID != nil && iv.ProductID != *f.ProductID {
			continue
		}
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRepo) ProductIDs(_ context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[int64]bool{}
	var ids []int64
	for _, iv := range m.items {
		if !seen[iv.ProductID] {
			seen[iv.ProductID] = true
			ids = append(ids, iv.ProductID)
		}
	}
	return ids, nil
}

func (m *mockRepo) MaxID(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var maxID int64
	for id := range m.items {
		maxID = max(maxID, id)
	}
	return maxID, nil
}

func (m *mockRepo) has(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[id]
	return ok
}

type mockSubmitter struct {
	kind    job.Kind
	payload any
}

func (m *mockSubmitter) Submit(_ context.Context, kind job.Kind, payload any) (*job.Job, error) {
	m.kind, m.payload = kind, payload
	return &job.Job{ID: 1, Kind: kind, Status: job.StatusPending}, nil
}

func request(id int64, start, end, price string) CreateItemRequest {
	return CreateItemRequest{
		ID:            id,
		ProductID:     1,
		MarketplaceID: 1,
		Price:         decimal.RequireFromString(price),
		DateStart:     start,
		DateEnd:       end,
	}
}

func stored(id int64, product int64, start, end time.Time) timeline.Interval {
	return timeline.Interval{ID: id, ProductID: product, MarketplaceID: 1, Price: decimal.NewFromInt(10), Start: start, End: end}
}

func expectCode(t *testing.T, err error, code apperror.Code) {
	t.Helper()
	ae, ok := apperror.As(err)
	if !ok {
		t.Fatalf("expected AppError %s, got %v", code, err)
	}
	if ae.Code() != code {
		t.Fatalf("expected %s, got %s", code, ae.Code())
	}
}

func TestInsert_PersistsAndAllocatesID(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(timeline.NewStore(), repo)
	ctx := context.Background()

	got, err := svc.Insert(ctx, request(0, "2024-01-01", "2024-01-05", "99.90"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 1 {
		t.Errorf("expected allocated ID 1, got %d", got.ID)
	}
	if !repo.has(1) {
		t.Error("expected item to be persisted")
	}

	got, err = svc.Insert(ctx, request(0, "2024-01-05", "2024-01-09", "89.90"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != 2 {
		t.Errorf("expected allocated ID 2, got %d", got.ID)
	}
}

func TestInsert_Conflict(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(timeline.NewStore(), repo)
	ctx := context.Background()

	if _, err := svc.Insert(ctx, request(10, "2024-01-01", "2024-01-10", "1")); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Insert(ctx, request(11, "2024-01-05", "2024-01-15", "2"))
	expectCode(t, err, apperror.Conflict)

	var conflict *timeline.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatal("expected engine conflict in chain")
	}
	if len(conflict.Conflicts) != 1 || conflict.Conflicts[0] != 10 {
		t.Errorf("expected conflicts [10], got %v", conflict.Conflicts)
	}
	if repo.has(11) {
		t.Error("rejected item must not be persisted")
	}
}

func TestInsert_Invalid(t *testing.T) {
	svc := NewService(timeline.NewStore(), newMockRepo())
	ctx := context.Background()

	cases := []CreateItemRequest{
		request(1, "2024-01-05", "2024-01-05", "1"),
		request(1, "2024-01-05", "2024-01-01", "1"),
		request(1, "2024/01/05", "2024-01-09", "1"),
		request(1, "2024-01-01", "2024-01-09", "-1"),
		{ProductID: 0, MarketplaceID: 1, DateStart: "2024-01-01", DateEnd: "2024-01-02"},
	}
	for i, req := range cases {
		_, err := svc.Insert(ctx, req)
		if err == nil {
			t.Errorf("case %d: expected error", i)
			continue
		}
		expectCode(t, err, apperror.BadRequest)
	}
}

func TestInsert_RollsBackOnPersistFailure(t *testing.T) {
	repo := newMockRepo()
	repo.createErr = errors.New("disk full")
	store := timeline.NewStore()
	svc := NewService(store, repo)

	_, err := svc.Insert(context.Background(), request(5, "2024-01-01", "2024-01-05", "1"))
	if err == nil {
		t.Fatal("expected error")
	}
	if store.Len() != 0 {
		t.Errorf("expected store to be rolled back, got %d items", store.Len())
	}
	if _, err := svc.Insert(context.Background(), request(6, "2024-01-02", "2024-01-03", "1")); !errors.Is(err, repo.createErr) {
		t.Errorf("expected overlapping insert to reach the repository after rollback, got %v", err)
	}
}

func TestBulkInsert_PartialSuccess(t *testing.T) {
	svc := NewService(timeline.NewStore(), newMockRepo())

	summary := svc.BulkInsert(context.Background(), []CreateItemRequest{
		request(1, "2024-01-01", "2024-01-05", "1"),
		request(2, "2024-01-03", "2024-01-08", "2"),
		request(3, "2024-01-05", "2024-01-08", "3"),
		request(4, "bad", "2024-01-08", "3"),
	})

	if summary.Inserted != 2 || summary.Failed != 2 {
		t.Fatalf("expected 2 inserted / 2 failed, got %d / %d", summary.Inserted, summary.Failed)
	}
	if summary.Results[1].Error == nil || summary.Results[1].Error.Code != apperror.Conflict {
		t.Errorf("expected conflict for item 1, got %+v", summary.Results[1].Error)
	}
	if got := summary.Results[1].Error.Conflicts; len(got) != 1 || got[0] != 1 {
		t.Errorf("expected conflicts [1], got %v", got)
	}
	if summary.Results[2].Item == nil || summary.Results[2].Item.ID != 3 {
		t.Errorf("expected item 3 stored, got %+v", summary.Results[2])
	}
	if summary.Results[3].Error.Code != apperror.BadRequest {
		t.Errorf("expected bad request for item 3, got %s", summary.Results[3].Error.Code)
	}
}

func TestDelete(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(timeline.NewStore(), repo)
	ctx := context.Background()

	if _, err := svc.Insert(ctx, request(1, "2024-01-01", "2024-01-05", "1")); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if repo.has(1) {
		t.Error("expected item removed from repository")
	}

	expectCode(t, svc.Delete(ctx, 1), apperror.NotFound)
	expectCode(t, svc.Delete(ctx, 0), apperror.BadRequest)
}

func TestDelete_KeepsItemOnPersistFailure(t *testing.T) {
	repo := newMockRepo()
	store := timeline.NewStore()
	svc := NewService(store, repo)
	ctx := context.Background()

	if _, err := svc.Insert(ctx, request(1, "2024-01-01", "2024-01-05", "1")); err != nil {
		t.Fatal(err)
	}
	repo.deleteErr = errors.New("connection reset")
	if err := svc.Delete(ctx, 1); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := store.Get(1); !ok {
		t.Error("expected item kept in store")
	}
	if !repo.has(1) {
		t.Error("expected item kept in repository")
	}
}

func TestDelete_FailedPersistBlocksOverlappingInsert(t *testing.T) {
	repo := newMockRepo()
	store := timeline.NewStore()
	svc := NewService(store, repo)
	ctx := context.Background()

	if _, err := svc.Insert(ctx, request(1, "2024-01-01", "2024-01-10", "1")); err != nil {
		t.Fatal(err)
	}

	repo.deleteErr = errors.New("connection reset")
	repo.deleting = make(chan struct{})
	repo.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- svc.Delete(ctx, 1) }()
	<-repo.deleting

	_, err := svc.Insert(ctx, request(2, "2024-01-05", "2024-01-06", "2"))
	expectCode(t, err, apperror.Conflict)

	close(repo.release)
	if err := <-done; err == nil {
		t.Fatal("expected delete error")
	}

	if !repo.has(1) || repo.has(2) {
		t.Errorf("expected repository to hold only item 1, got 1=%v 2=%v", repo.has(1), repo.has(2))
	}
	if _, ok := store.Get(1); !ok {
		t.Error("expected item 1 in store")
	}
	if _, ok := store.Get(2); ok {
		t.Error("expected item 2 absent from store")
	}

	restarted := timeline.NewStore()
	if err := NewService(restarted, repo).Rehydrate(ctx); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if restarted.Len() != 1 {
		t.Errorf("expected 1 item after restart, got %d", restarted.Len())
	}
}

func TestGet_And_List(t *testing.T) {
	svc := NewService(timeline.NewStore(), newMockRepo())
	ctx := context.Background()

	_, _ = svc.Insert(ctx, request(2, "2024-01-01", "2024-01-05", "1"))
	other := request(1, "2024-01-01", "2024-01-05", "1")
	other.MarketplaceID = 2
	_, _ = svc.Insert(ctx, other)

	got, err := svc.Get(ctx, 2)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.DateEnd != "2024-01-05" {
		t.Errorf("expected dateEnd 2024-01-05, got %s", got.DateEnd)
	}
	_, err = svc.Get(ctx, 99)
	expectCode(t, err, apperror.NotFound)

	all, _ := svc.List(ctx, ListItemsRequest{})
	if len(all) != 2 || all[0].ID != 1 {
		t.Errorf("expected items ordered by ID, got %v", all)
	}
	filtered, _ := svc.List(ctx, ListItemsRequest{MarketplaceID: 2})
	if len(filtered) != 1 || filtered[0].ID != 1 {
		t.Errorf("expected only item 1, got %v", filtered)
	}
}

func TestRehydrate(t *testing.T) {
	d := func(day int) time.Time { return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC) }
	repo := newMockRepo(
		stored(3, 1, d(1), d(5)),
		stored(8, 1, d(5), d(9)),
		stored(9, 1, d(6), d(7)), // overlaps 8, skipped
		stored(4, 2, d(1), d(5)),
	)
	store := timeline.NewStore()
	svc := NewService(store, repo)

	if err := svc.Rehydrate(context.Background()); err != nil {
		t.Fatalf("rehydrate: %v", err)
	}
	if store.Len() != 3 {
		t.Errorf("expected 3 items loaded, got %d", store.Len())
	}
	if id := store.NextID(); id != 10 {
		t.Errorf("expected next ID 10, got %d", id)
	}
}

func TestRehydrate_ListError(t *testing.T) {
	repo := newMockRepo(stored(1, 1, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)))
	repo.listErr = errors.New("boom")
	svc := NewService(timeline.NewStore(), repo)

	if err := svc.Rehydrate(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestQueueImport(t *testing.T) {
	svc := NewService(timeline.NewStore(), newMockRepo())
	ctx := context.Background()

	_, err := svc.QueueImport(ctx, []CreateItemRequest{request(1, "2024-01-01", "2024-01-02", "1")})
	expectCode(t, err, apperror.BadRequest)

	sub := &mockSubmitter{}
	svc.SetSubmitter(sub)
	j, err := svc.QueueImport(ctx, []CreateItemRequest{request(1, "2024-01-01", "2024-01-02", "1")})
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if j.Status != job.StatusPending || sub.kind != job.KindItemImport {
		t.Errorf("expected pending item import, got %s / %s", j.Status, sub.kind)
	}
}

func TestProcess(t *testing.T) {
	svc := NewService(timeline.NewStore(), newMockRepo())
	j := &job.Job{
		Kind: job.KindItemImport,
		Payload: `[
			{"id":1,"productId":1,"marketplaceId":1,"price":"10","dateStart":"2024-01-01","dateEnd":"2024-01-05"},
			{"id":2,"productId":1,"marketplaceId":1,"price":"11","dateStart":"2024-01-04","dateEnd":"2024-01-06"}
		]`,
	}

	if err := svc.Process(context.Background(), j); err != nil {
		t.Fatalf("process: %v", err)
	}
	if j.RecordsCount != 1 || j.FailedCount != 1 {
		t.Errorf("expected 1/1, got %d/%d", j.RecordsCount, j.FailedCount)
	}
	if j.Error == "" {
		t.Error("expected first failure to be recorded")
	}

	bad := &job.Job{Kind: job.KindItemImport, Payload: `{`}
	if err := svc.Process(context.Background(), bad); err == nil {
		t.Error("expected decode error")
	}
}
