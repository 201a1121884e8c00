package report

import (
	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
	"github.com/ahmethakanbesel/price-tracker/internal/timeline"
)

// DynamicRequest asks for a product's price dynamic. A zero MarketplaceID
// means every marketplace that sold the product.
type DynamicRequest struct {
	ProductID     int64
	MarketplaceID int64
	Window        timeline.Window
}

func (r DynamicRequest) Validate() *apperror.AppError {
	if r.ProductID <= 0 {
		return apperror.New(apperror.BadRequest, "productId is required")
	}
	if r.MarketplaceID < 0 {
		return apperror.New(apperror.BadRequest, "invalid marketplaceId")
	}
	return validateWindow(r.Window)
}

// CompareRequest asks for a price comparison. A zero ProductID means every
// known product.
type CompareRequest struct {
	ProductID int64
	Window    timeline.Window
}

func (r CompareRequest) Validate() *apperror.AppError {
	if r.ProductID < 0 {
		return apperror.New(apperror.BadRequest, "invalid productId")
	}
	return validateWindow(r.Window)
}

func validateWindow(w timeline.Window) *apperror.AppError {
	if err := timeline.ValidateWindow(w.Start, w.End); err != nil {
		return apperror.Wrap(apperror.BadRequest, err)
	}
	return nil
}
