package item

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
	domain "github.com/ahmethakanbesel/price-tracker/internal/item"
	"github.com/ahmethakanbesel/price-tracker/internal/platform/sqldb"
	"github.com/ahmethakanbesel/price-tracker/internal/timeline"
)

type Repository struct {
	db *sqldb.DB
}

func NewRepository(db *sqldb.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, iv timeline.Interval) error {
	const query = `INSERT INTO items (id, product_id, marketplace_id, price, date_start, date_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		iv.ID, iv.ProductID, iv.MarketplaceID, iv.Price.String(),
		iv.Start.Format(timeline.DateFormat), iv.End.Format(timeline.DateFormat),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if sqldb.IsUniqueViolation(err) {
			return apperror.New(apperror.Conflict, fmt.Sprintf("item %d already stored", iv.ID))
		}
		return fmt.Errorf("create item: %w", err)
	}
	return nil
}

// Delete removes the row if present. A missing row is not an error.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM items WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, f domain.Filter) ([]timeline.Interval, error) {
	query := `SELECT id, product_id, marketplace_id, price, date_start, date_end FROM items WHERE 1=1`

	var args []any
	if f.ProductID != nil {
		query += " AND product_id = ?"
		args = append(args, *f.ProductID)
	}
	if f.MarketplaceID != nil {
		query += " AND marketplace_id = ?"
		args = append(args, *f.MarketplaceID)
	}
	if f.Window != nil {
		// Dates are stored as YYYY-MM-DD, so text comparison orders them.
		query += " AND date_start < ? AND date_end > ?"
		args = append(args, f.Window.End.Format(timeline.DateFormat), f.Window.Start.Format(timeline.DateFormat))
	}
	query += " ORDER BY product_id, marketplace_id, date_start"

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := []timeline.Interval{}
	for rows.Next() {
		var iv timeline.Interval
		var priceStr, startStr, endStr string
		if err := rows.Scan(&iv.ID, &iv.ProductID, &iv.MarketplaceID, &priceStr, &startStr, &endStr); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if iv.Price, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("parse price of item %d: %w", iv.ID, err)
		}
		if iv.Start, err = time.Parse(timeline.DateFormat, startStr); err != nil {
			return nil, fmt.Errorf("parse date_start of item %d: %w", iv.ID, err)
		}
		if iv.End, err = time.Parse(timeline.DateFormat, endStr); err != nil {
			return nil, fmt.Errorf("parse date_end of item %d: %w", iv.ID, err)
		}
		items = append(items, iv)
	}

	return items, rows.Err()
}

func (r *Repository) ProductIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT product_id FROM items ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("list item products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) MaxID(ctx context.Context) (int64, error) {
	var id int64
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM items`).Scan(&id); err != nil {
		return 0, fmt.Errorf("max item id: %w", err)
	}
	return id, nil
}
