package item

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/price-tracker/internal/apperror"
	"github.com/ahmethakanbesel/price-tracker/internal/timeline"
)

// CreateItemRequest describes one price-validity record. DateEnd is exclusive:
// the price applies up to, but not including, that day.
type CreateItemRequest struct {
	ID            int64           `json:"id,omitempty"`
	ProductID     int64           `json:"productId"`
	MarketplaceID int64           `json:"marketplaceId"`
	Price         decimal.Decimal `json:"price"`
	DateStart     string          `json:"dateStart"`
	DateEnd       string          `json:"dateEnd"`
}

func (r CreateItemRequest) Validate() *apperror.AppError {
	if r.ID < 0 {
		return apperror.New(apperror.BadRequest, "id must not be negative")
	}
	if r.ProductID <= 0 {
		return apperror.New(apperror.BadRequest, "productId is required")
	}
	if r.MarketplaceID <= 0 {
		return apperror.New(apperror.BadRequest, "marketplaceId is required")
	}
	if r.Price.IsNegative() {
		return apperror.New(apperror.BadRequest, "price must not be negative")
	}
	start, end, err := r.dates()
	if err != nil {
		return err
	}
	if verr := timeline.ValidateInterval(start, end); verr != nil {
		return apperror.Wrap(apperror.BadRequest, verr)
	}
	return nil
}

func (r CreateItemRequest) dates() (time.Time, time.Time, *apperror.AppError) {
	start, err := time.Parse(timeline.DateFormat, r.DateStart)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.New(apperror.BadRequest, "invalid dateStart format, expected YYYY-MM-DD")
	}
	end, err := time.Parse(timeline.DateFormat, r.DateEnd)
	if err != nil {
		return time.Time{}, time.Time{}, apperror.New(apperror.BadRequest, "invalid dateEnd format, expected YYYY-MM-DD")
	}
	return start, end, nil
}

// toInterval converts a validated request. id is used when the request
// carries none.
func (r CreateItemRequest) toInterval(id int64) timeline.Interval {
	start, end, _ := r.dates()
	if r.ID != 0 {
		id = r.ID
	}
	return timeline.Interval{
		ID:            id,
		ProductID:     r.ProductID,
		MarketplaceID: r.MarketplaceID,
		Price:         r.Price,
		Start:         start,
		End:           end,
	}
}

type ItemResponse struct {
	ID            int64           `json:"id"`
	ProductID     int64           `json:"productId"`
	MarketplaceID int64           `json:"marketplaceId"`
	Price         decimal.Decimal `json:"price"`
	DateStart     string          `json:"dateStart"`
	DateEnd       string          `json:"dateEnd"`
}

func NewItemResponse(iv timeline.Interval) ItemResponse {
	return ItemResponse{
		ID:            iv.ID,
		ProductID:     iv.ProductID,
		MarketplaceID: iv.MarketplaceID,
		Price:         iv.Price,
		DateStart:     iv.Start.Format(timeline.DateFormat),
		DateEnd:       iv.End.Format(timeline.DateFormat),
	}
}

// Result is the outcome of one item in a bulk import.
type Result struct {
	Index int           `json:"index"`
	Item  *ItemResponse `json:"item,omitempty"`
	Error *ResultError  `json:"error,omitempty"`
	Err   error         `json:"-"`
}

type ResultError struct {
	Code      apperror.Code `json:"code"`
	Message   string        `json:"message"`
	Conflicts []int64       `json:"conflicts,omitempty"`
}

func newResultError(err error) *ResultError {
	re := &ResultError{Code: apperror.Internal, Message: err.Error()}
	if ae, ok := apperror.As(err); ok {
		re.Code = ae.Code()
		re.Message = ae.Message()
	}
	var conflict *timeline.ConflictError
	if errors.As(err, &conflict) {
		re.Conflicts = conflict.Conflicts
	}
	return re
}

type ImportSummary struct {
	Inserted int64    `json:"inserted"`
	Failed   int64    `json:"failed"`
	Results  []Result `json:"results"`
}

func summarize(results []Result) ImportSummary {
	s := ImportSummary{Results: results}
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
		} else {
			s.Inserted++
		}
	}
	return s
}

type ListItemsRequest struct {
	ProductID     int64
	MarketplaceID int64
}

func (r ListItemsRequest) Validate() *apperror.AppError {
	if r.ProductID < 0 || r.MarketplaceID < 0 {
		return apperror.New(apperror.BadRequest, "ids must not be negative")
	}
	return nil
}
