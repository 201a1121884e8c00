package timeline

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateFormat = "2006-01-02"

// Interval is a price valid for one product on one marketplace over [Start, End).
type Interval struct {
	ID            int64
	ProductID     int64
	MarketplaceID int64
	Price         decimal.Decimal
	Start         time.Time
	End           time.Time
}

func (iv Interval) Key() Key {
	return Key{ProductID: iv.ProductID, MarketplaceID: iv.MarketplaceID}
}

// Validate checks the window shape and rejects negative prices.
func (iv Interval) Validate() error {
	if iv.ID <= 0 {
		return &InvalidIntervalError{Start: iv.Start, End: iv.End, Reason: "id must be positive"}
	}
	if err := ValidateInterval(iv.Start, iv.End); err != nil {
		return err
	}
	if iv.Price.IsNegative() {
		return &InvalidIntervalError{Start: iv.Start, End: iv.End, Reason: "price must not be negative"}
	}
	return nil
}

func (iv Interval) overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// normalized returns a copy with both bounds truncated to UTC calendar days.
func (iv Interval) normalized() Interval {
	iv.Start = Day(iv.Start)
	iv.End = Day(iv.End)
	return iv
}

// Key identifies one per-(product, marketplace) index.
type Key struct {
	ProductID     int64
	MarketplaceID int64
}

// Window is a half-open query range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow validates and normalizes a half-open window.
func NewWindow(start, end time.Time) (Window, error) {
	if err := ValidateWindow(start, end); err != nil {
		return Window{}, err
	}
	return Window{Start: Day(start), End: Day(end)}, nil
}

// WindowFromInclusive builds a window from a user-facing inclusive end date.
// The exclusive bound is lastDay + 1 day.
func WindowFromInclusive(firstDay, lastDay time.Time) (Window, error) {
	return NewWindow(firstDay, Day(lastDay).AddDate(0, 0, 1))
}

func (w Window) contains(iv Interval) bool {
	return w.Start.Before(w.End) && iv.Start.Before(w.End) && w.Start.Before(iv.End)
}

// Days is the number of calendar days covered by w.
func (w Window) Days() int {
	if !w.Start.Before(w.End) {
		return 0
	}
	return int(w.End.Sub(w.Start).Hours()/24 + 0.5)
}

func (w Window) String() string {
	return w.Start.Format(DateFormat) + ".." + w.End.Format(DateFormat)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ValidateWindow fails when end is earlier than start.
func ValidateWindow(start, end time.Time) error {
	if Day(end).Before(Day(start)) {
		return &InvalidRangeError{Start: start, End: end}
	}
	return nil
}

// ValidateInterval fails when end is not strictly after start.
func ValidateInterval(start, end time.Time) error {
	if !Day(end).After(Day(start)) {
		return &InvalidIntervalError{Start: start, End: end, Reason: "end must be after start"}
	}
	return nil
}

type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: end %s is before start %s",
		e.End.Format(DateFormat), e.Start.Format(DateFormat))
}

type InvalidIntervalError struct {
	Start  time.Time
	End    time.Time
	Reason string
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval %s..%s: %s",
		e.Start.Format(DateFormat), e.End.Format(DateFormat), e.Reason)
}

// ConflictError reports the stored intervals an insert collided with.
type ConflictError struct {
	ID        int64
	Conflicts []int64
}

func (e *ConflictError) Error() string {
	ids := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		ids[i] = strconv.FormatInt(c, 10)
	}
	return fmt.Sprintf("interval %d conflicts with %s", e.ID, strings.Join(ids, ", "))
}

type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("interval %d not found", e.ID)
}
