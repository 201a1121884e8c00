package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

type Service struct {
	repo   Repository
	notify func() // optional: wake worker pool
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetNotify sets a callback invoked when a new pending job is created.
func (s *Service) SetNotify(fn func()) { s.notify = fn }

// Submit stores a pending job carrying payload as JSON.
func (s *Service) Submit(ctx context.Context, kind Kind, payload any) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}

	j := &Job{Kind: kind, Payload: string(data), Status: StatusPending}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	slog.Info("queued job", "job", j.ID, "kind", kind)

	if s.notify != nil {
		s.notify()
	}
	return j, nil
}

func (s *Service) RecoverStaleJobs(ctx context.Context) error {
	n, err := s.repo.RecoverStale(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Info("re-queued interrupted jobs", "count", n)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, req GetJobRequest) (*Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, req.ID)
}

func (s *Service) List(ctx context.Context, req ListJobsRequest) ([]Job, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, req.Kind, req.Status)
}
