package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
	domain "github.com/ahmethakanbesel/price-tracker/internal/catalog"
	"github.com/ahmethakanbesel/price-tracker/internal/platform/sqldb"
)

type Repository struct {
	db *sqldb.DB
}

func NewRepository(db *sqldb.DB) *Repository {
	return &Repository{db: db}
}

func now() (time.Time, string) {
	t := time.Now().UTC().Truncate(time.Second)
	return t, t.Format(time.RFC3339)
}

// insert runs an INSERT ... RETURNING id whose last argument is created_at.
func (r *Repository) insert(ctx context.Context, what, name, query string, args ...any) (int64, time.Time, error) {
	created, createdStr := now()
	args = append(args, createdStr)

	var id int64
	if err := r.db.QueryRowContext(ctx, r.db.Rebind(query), args...).Scan(&id); err != nil {
		if sqldb.IsUniqueViolation(err) {
			return 0, time.Time{}, apperror.New(apperror.Conflict, fmt.Sprintf("%s %q already exists", what, name))
		}
		return 0, time.Time{}, fmt.Errorf("create %s: %w", what, err)
	}
	return id, created, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c *domain.Category) error {
	id, created, err := r.insert(ctx, "category", c.Name,
		`INSERT INTO categories (name, created_at) VALUES (?, ?) RETURNING id`, c.Name)
	if err != nil {
		return err
	}
	c.ID, c.CreatedAt = id, created
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (*domain.Category, error) {
	const query = `SELECT id, name, created_at FROM categories WHERE id = ?`

	c := &domain.Category{}
	var createdStr string
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), id).Scan(&c.ID, &c.Name, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "category not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		var createdStr string
		if err := rows.Scan(&c.ID, &c.Name, &createdStr); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) RenameCategory(ctx context.Context, id int64, name string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE categories SET name = ? WHERE id = ?`), name, id)
	if err != nil {
		if sqldb.IsUniqueViolation(err) {
			return apperror.New(apperror.Conflict, fmt.Sprintf("category %q already exists", name))
		}
		return fmt.Errorf("rename category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "category not found")
	}
	return nil
}

func (r *Repository) DeleteCategory(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM categories WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "category not found")
	}
	return nil
}

func (r *Repository) CreateProduct(ctx context.Context, p *domain.Product) error {
	var categoryID sql.NullInt64
	if p.CategoryID != nil {
		categoryID = sql.NullInt64{Int64: *p.CategoryID, Valid: true}
	}
	id, created, err := r.insert(ctx, "product", p.Name,
		`INSERT INTO products (name, category_id, created_at) VALUES (?, ?, ?) RETURNING id`, p.Name, categoryID)
	if err != nil {
		return err
	}
	p.ID, p.CreatedAt = id, created
	return nil
}

func (r *Repository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	const query = `SELECT id, name, category_id, created_at FROM products WHERE id = ?`

	row := r.db.QueryRowContext(ctx, r.db.Rebind(query), id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "product not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r *Repository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, category_id, created_at FROM products ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	p := &domain.Product{}
	var categoryID sql.NullInt64
	var createdStr string
	if err := s.Scan(&p.ID, &p.Name, &categoryID, &createdStr); err != nil {
		return nil, err
	}
	if categoryID.Valid {
		id := categoryID.Int64
		p.CategoryID = &id
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return p, nil
}

func (r *Repository) CreateMarketplace(ctx context.Context, m *domain.Marketplace) error {
	id, created, err := r.insert(ctx, "marketplace", m.Name,
		`INSERT INTO marketplaces (name, created_at) VALUES (?, ?) RETURNING id`, m.Name)
	if err != nil {
		return err
	}
	m.ID, m.CreatedAt = id, created
	return nil
}

func (r *Repository) GetMarketplace(ctx context.Context, id int64) (*domain.Marketplace, error) {
	const query = `SELECT id, name, created_at FROM marketplaces WHERE id = ?`

	m := &domain.Marketplace{}
	var createdStr string
	err := r.db.QueryRowContext(ctx, r.db.Rebind(query), id).Scan(&m.ID, &m.Name, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "marketplace not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get marketplace: %w", err)
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return m, nil
}

func (r *Repository) ListMarketplaces(ctx context.Context) ([]domain.Marketplace, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM marketplaces ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list marketplaces: %w", err)
	}
	defer func() { _ = rows.Close() }()

	marketplaces := []domain.Marketplace{}
	for rows.Next() {
		var m domain.Marketplace
		var createdStr string
		if err := rows.Scan(&m.ID, &m.Name, &createdStr); err != nil {
			return nil, fmt.Errorf("scan marketplace: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		marketplaces = append(marketplaces, m)
	}
	return marketplaces, rows.Err()
}
