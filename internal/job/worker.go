package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Processor executes a claimed job. It may fill in RecordsCount and
// FailedCount; the pool records the final status.
type Processor interface {
	Process(ctx context.Context, j *Job) error
}

// WorkerPool runs a fixed number of goroutines that claim pending jobs and
// dispatch them to the processor registered for their kind.
type WorkerPool struct {
	repo         Repository
	workers      int
	notify       chan struct{}
	pollInterval time.Duration

	mu         sync.RWMutex
	processors map[Kind]Processor
}

func NewWorkerPool(repo Repository, workers int) *WorkerPool {
	if workers <= 0 {
		workers = 1
	}
	return &WorkerPool{
		repo:         repo,
		workers:      workers,
		notify:       make(chan struct{}, 1),
		pollInterval: 5 * time.Second,
		processors:   make(map[Kind]Processor),
	}
}

// Handle registers p for jobs of the given kind.
func (wp *WorkerPool) Handle(kind Kind, p Processor) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	wp.processors[kind] = p
}

// Notify wakes idle workers to check for pending jobs. Non-blocking.
func (wp *WorkerPool) Notify() {
	select {
	case wp.notify <- struct{}{}:
	default:
	}
}

// Run starts worker goroutines and blocks until ctx is cancelled and all
// workers have drained.
func (wp *WorkerPool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := range wp.workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			wp.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (wp *WorkerPool) loop(ctx context.Context, id int) {
	ticker := time.NewTicker(wp.pollInterval)
	defer ticker.Stop()

	for {
		wp.drain(ctx, id)

		select {
		case <-ctx.Done():
			return
		case <-wp.notify:
		case <-ticker.C:
		}
	}
}

func (wp *WorkerPool) drain(ctx context.Context, id int) {
	for {
		if ctx.Err() != nil {
			return
		}

		j, err := wp.repo.ClaimPending(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("worker: claim pending", "worker", id, "error", err)
			return
		}
		if j == nil {
			return
		}

		slog.Info("worker: processing job", "worker", id, "job", j.ID, "kind", j.Kind)
		wp.run(ctx, id, j)
	}
}

func (wp *WorkerPool) run(ctx context.Context, worker int, j *Job) {
	wp.mu.RLock()
	p, ok := wp.processors[j.Kind]
	wp.mu.RUnlock()

	var err error
	if !ok {
		err = fmt.Errorf("no processor for job kind %q", j.Kind)
	} else {
		err = p.Process(ctx, j)
	}

	if err != nil {
		if ctx.Err() != nil {
			// Left running; RecoverStale re-queues it on the next start.
			return
		}
		slog.Error("worker: process job", "worker", worker, "job", j.ID, "error", err)
		j.Status = StatusFailed
		j.Error = err.Error()
	} else {
		j.Status = StatusCompleted
	}

	if err := wp.repo.Update(ctx, j); err != nil {
		slog.Error("worker: update job", "worker", worker, "job", j.ID, "error", err)
	}
}
