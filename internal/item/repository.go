package item

import (
	"context"

	"github.com/ahmethakanbesel/price-tracker/internal/timeline"
)

// Filter narrows List; nil fields match everything.
type Filter struct {
	ProductID     *int64
	MarketplaceID *int64
	Window        *timeline.Window
}

// Repository is the durable copy of the interval store. The store is rebuilt
// from it at startup and every accepted mutation is mirrored to it.
type Repository interface {
	Create(ctx context.Context, iv timeline.Interval) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f Filter) ([]timeline.Interval, error)
	ProductIDs(ctx context.Context) ([]int64, error)
	MaxID(ctx context.Context) (int64, error)
}
