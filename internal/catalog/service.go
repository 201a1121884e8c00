package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) GetCategory(ctx context.Context, id int64) (*Category, error) {
	if err := validateID(id, "category"); err != nil {
		return nil, err
	}
	return s.repo.GetCategory(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c := &Category{Name: strings.TrimSpace(req.Name)}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, err
	}
	slog.Info("created category", "id", c.ID, "name", c.Name)
	return c, nil
}

// ImportCategories validates the whole batch before creating anything.
func (s *Service) ImportCategories(ctx context.Context, reqs []CreateCategoryRequest) ([]Category, error) {
	for i, req := range reqs {
		if err := req.Validate(); err != nil {
			return nil, apperror.New(err.Code(), fmt.Sprintf("category %d: %s", i, err.Message()))
		}
	}
	out := make([]Category, 0, len(reqs))
	for _, req := range reqs {
		c, err := s.CreateCategory(ctx, req)
		if err != nil {
			return out, err
		}
		out = append(out, *c)
	}
	return out, nil
}

func (s *Service) RenameCategory(ctx context.Context, req RenameCategoryRequest) (*Category, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.RenameCategory(ctx, req.ID, strings.TrimSpace(req.Name)); err != nil {
		return nil, err
	}
	return s.repo.GetCategory(ctx, req.ID)
}

func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if err := validateID(id, "category"); err != nil {
		return err
	}
	if err := s.repo.DeleteCategory(ctx, id); err != nil {
		return err
	}
	slog.Info("deleted category", "id", id)
	return nil
}

func (s *Service) ListProducts(ctx context.Context) ([]Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*Product, error) {
	if err := validateID(id, "product"); err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) CreateProduct(ctx context.Context, req CreateProductRequest) (*Product, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.CategoryID != nil {
		if _, err := s.repo.GetCategory(ctx, *req.CategoryID); err != nil {
			if ae, ok := apperror.As(err); ok && ae.Code() == apperror.NotFound {
				return nil, apperror.New(apperror.BadRequest, fmt.Sprintf("unknown category %d", *req.CategoryID))
			}
			return nil, err
		}
	}
	p := &Product{Name: strings.TrimSpace(req.Name), CategoryID: req.CategoryID}
	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, err
	}
	slog.Info("created product", "id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Service) ImportProducts(ctx context.Context, reqs []CreateProductRequest) ([]Product, error) {
	for i, req := range reqs {
		if err := req.Validate(); err != nil {
			return nil, apperror.New(err.Code(), fmt.Sprintf("product %d: %s", i, err.Message()))
		}
	}
	out := make([]Product, 0, len(reqs))
	for _, req := range reqs {
		p, err := s.CreateProduct(ctx, req)
		if err != nil {
			return out, err
		}
		out = append(out, *p)
	}
	return out, nil
}

func (s *Service) ListMarketplaces(ctx context.Context) ([]Marketplace, error) {
	return s.repo.ListMarketplaces(ctx)
}

func (s *Service) GetMarketplace(ctx context.Context, id int64) (*Marketplace, error) {
	if err := validateID(id, "marketplace"); err != nil {
		return nil, err
	}
	return s.repo.GetMarketplace(ctx, id)
}

func (s *Service) CreateMarketplace(ctx context.Context, req CreateMarketplaceRequest) (*Marketplace, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	m := &Marketplace{Name: strings.TrimSpace(req.Name)}
	if err := s.repo.CreateMarketplace(ctx, m); err != nil {
		return nil, err
	}
	slog.Info("created marketplace", "id", m.ID, "name", m.Name)
	return m, nil
}

func (s *Service) ImportMarketplaces(ctx context.Context, reqs []CreateMarketplaceRequest) ([]Marketplace, error) {
	for i, req := range reqs {
		if err := req.Validate(); err != nil {
			return nil, apperror.New(err.Code(), fmt.Sprintf("marketplace %d: %s", i, err.Message()))
		}
	}
	out := make([]Marketplace, 0, len(reqs))
	for _, req := range reqs {
		m, err := s.CreateMarketplace(ctx, req)
		if err != nil {
			return out, err
		}
		out = append(out, *m)
	}
	return out, nil
}

// ProductName resolves a product label for reports.
func (s *Service) ProductName(ctx context.Context, id int64) (string, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

// MarketplaceName resolves a marketplace label for reports.
func (s *Service) MarketplaceName(ctx context.Context, id int64) (string, error) {
	m, err := s.repo.GetMarketplace(ctx, id)
	if err != nil {
		return "", err
	}
	return m.Name, nil
}
