package catalog

import "context"

// Repository returns *apperror.AppError with code NOT_FOUND for unknown IDs
// and CONFLICT for duplicate names.
type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id int64) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	RenameCategory(ctx context.Context, id int64, name string) error
	DeleteCategory(ctx context.Context, id int64) error

	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListProducts(ctx context.Context) ([]Product, error)

	CreateMarketplace(ctx context.Context, m *Marketplace) error
	GetMarketplace(ctx context.Context, id int64) (*Marketplace, error)
	ListMarketplaces(ctx context.Context) ([]Marketplace, error)
}
