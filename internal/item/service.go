package item

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
	"github.com/ahmethakanbesel/price-tracker/internal/job"
	"github.com/ahmethakanbesel/price-tracker/internal/timeline"
)

const lockStripes = 64

// Submitter queues background work. Implemented by *job.Service.
type Submitter interface {
	Submit(ctx context.Context, kind job.Kind, payload any) (*job.Job, error)
}

// Service is the write path into the interval store. Every accepted mutation
// is mirrored to the repository before the call returns.
//
// Inserts reach the store first and a failed mirror removes the item again,
// so readers and concurrent inserts may briefly see an item that is rolled
// back. Deletes reach the repository first and leave the store untouched
// when it fails.
type Service struct {
	store *timeline.Store
	repo  Repository
	jobs  Submitter

	// Serialises store+repository work per item ID so an insert and a
	// delete of the same ID cannot reach the repository out of order.
	locks [lockStripes]sync.Mutex
}

func NewService(store *timeline.Store, repo Repository) *Service {
	return &Service{store: store, repo: repo}
}

// SetSubmitter enables asynchronous imports.
func (s *Service) SetSubmitter(jobs Submitter) { s.jobs = jobs }

func (s *Service) lock(id int64) func() {
	m := &s.locks[uint64(id)%lockStripes]
	m.Lock()
	return m.Unlock
}

// Rehydrate loads every persisted item into the store and seeds the ID
// sequence. Rows that no longer fit (e.g. overlapping data written by
// another tool) are skipped and logged.
func (s *Service) Rehydrate(ctx context.Context) error {
	productIDs, err := s.repo.ProductIDs(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate: %w", err)
	}

	loaded := make([][]timeline.Interval, len(productIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, productID := range productIDs {
		g.Go(func() error {
			items, err := s.repo.List(gctx, Filter{ProductID: &productID})
			if err != nil {
				return fmt.Errorf("load product %d: %w", productID, err)
			}
			loaded[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rehydrate: %w", err)
	}

	var inserted, skipped int
	for _, items := range loaded {
		for i, err := range s.store.BulkInsert(items) {
			if err != nil {
				skipped++
				slog.Warn("rehydrate: skipping stored item", "id", items[i].ID, "error", err)
				continue
			}
			inserted++
		}
	}

	maxID, err := s.repo.MaxID(ctx)
	if err != nil {
		return fmt.Errorf("rehydrate: %w", err)
	}
	s.store.SeedID(maxID)

	slog.Info("rehydrated item store", "products", len(productIDs), "items", inserted, "skipped", skipped)
	return nil
}

// Insert validates req and stores it. A zero ID is replaced with the next
// free one.
func (s *Service) Insert(ctx context.Context, req CreateItemRequest) (*ItemResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := req.ID
	if id == 0 {
		id = s.store.NextID()
	}
	iv := req.toInterval(id)

	unlock := s.lock(iv.ID)
	defer unlock()

	if err := s.store.Insert(iv); err != nil {
		var conflict *timeline.ConflictError
		if errors.As(err, &conflict) {
			slog.Info("rejected conflicting item", "id", iv.ID, "conflicts", conflict.Conflicts)
		}
		return nil, classify(err)
	}

	if err := s.repo.Create(ctx, iv); err != nil {
		if _, rbErr := s.store.Delete(iv.ID); rbErr != nil {
			slog.Error("roll back item insert", "id", iv.ID, "error", rbErr)
		}
		return nil, fmt.Errorf("persist item %d: %w", iv.ID, err)
	}

	resp := NewItemResponse(iv)
	return &resp, nil
}

// BulkInsert inserts each request independently. Earlier successes are
// kept when a later item fails.
func (s *Service) BulkInsert(ctx context.Context, reqs []CreateItemRequest) ImportSummary {
	results := make([]Result, len(reqs))
	for i, req := range reqs {
		results[i].Index = i
		item, err := s.Insert(ctx, req)
		if err != nil {
			results[i].Err = err
			results[i].Error = newResultError(err)
			continue
		}
		results[i].Item = item
	}

	summary := summarize(results)
	slog.Info("imported items", "inserted", summary.Inserted, "failed", summary.Failed)
	return summary
}

// QueueImport stores reqs as a pending import job for the worker pool.
func (s *Service) QueueImport(ctx context.Context, reqs []CreateItemRequest) (*job.Job, error) {
	if s.jobs == nil {
		return nil, apperror.New(apperror.BadRequest, "asynchronous import is not enabled")
	}
	if len(reqs) == 0 {
		return nil, apperror.New(apperror.BadRequest, "no items to import")
	}
	return s.jobs.Submit(ctx, job.KindItemImport, reqs)
}

// Process implements job.Processor for item import jobs.
func (s *Service) Process(ctx context.Context, j *job.Job) error {
	var reqs []CreateItemRequest
	if err := json.Unmarshal([]byte(j.Payload), &reqs); err != nil {
		return fmt.Errorf("decode import payload: %w", err)
	}

	summary := s.BulkInsert(ctx, reqs)
	j.RecordsCount = summary.Inserted
	j.FailedCount = summary.Failed
	for _, r := range summary.Results {
		if r.Err != nil {
			j.Error = fmt.Sprintf("item %d: %s", r.Index, r.Error.Message)
			break
		}
	}
	return ctx.Err()
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return apperror.New(apperror.BadRequest, "invalid item id")
	}

	unlock := s.lock(id)
	defer unlock()

	if _, ok := s.store.Get(id); !ok {
		return classify(&timeline.NotFoundError{ID: id})
	}

	// The item keeps its slot in the store until the repository has dropped it.
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("persist item delete %d: %w", id, err)
	}
	if _, err := s.store.Delete(id); err != nil {
		return classify(err)
	}

	slog.Info("deleted item", "id", id)
	return nil
}

func (s *Service) Get(_ context.Context, id int64) (*ItemResponse, error) {
	if id <= 0 {
		return nil, apperror.New(apperror.BadRequest, "invalid item id")
	}
	iv, ok := s.store.Get(id)
	if !ok {
		return nil, classify(&timeline.NotFoundError{ID: id})
	}
	resp := NewItemResponse(iv)
	return &resp, nil
}

// List returns stored items ordered by ID, optionally narrowed to a product
// and marketplace.
func (s *Service) List(_ context.Context, req ListItemsRequest) ([]ItemResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	out := []ItemResponse{}
	for _, iv := range s.store.All() {
		if req.ProductID != 0 && iv.ProductID != req.ProductID {
			continue
		}
		if req.MarketplaceID != 0 && iv.MarketplaceID != req.MarketplaceID {
			continue
		}
		out = append(out, NewItemResponse(iv))
	}
	return out, nil
}

// classify maps engine errors onto application error codes, keeping the
// engine error reachable.
func classify(err error) error {
	var (
		invalidRange    *timeline.InvalidRangeError
		invalidInterval *timeline.InvalidIntervalError
		conflict        *timeline.ConflictError
		notFound        *timeline.NotFoundError
	)
	switch {
	case errors.As(err, &invalidRange), errors.As(err, &invalidInterval):
		return apperror.Wrap(apperror.BadRequest, err)
	case errors.As(err, &conflict):
		return apperror.Wrap(apperror.Conflict, err)
	case errors.As(err, &notFound):
		return apperror.Wrap(apperror.NotFound, err)
	default:
		return err
	}
}
