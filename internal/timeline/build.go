package timeline

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPrice is the price known for one calendar day.
type DailyPrice struct {
	Date  time.Time
	Price decimal.Decimal
}

// Build expands intervals, as returned by Store.Scan for w, into one entry per
// covered day inside w. Days without an interval are omitted. The bounds of w
// are truncated to whole days.
func Build(intervals []Interval, w Window) []DailyPrice {
	w = Window{Start: Day(w.Start), End: Day(w.End)}
	out := make([]DailyPrice, 0, min(w.Days(), coveredDays(intervals)))
	for _, iv := range intervals {
		from, to := iv.Start, iv.End
		if from.Before(w.Start) {
			from = w.Start
		}
		if to.After(w.End) {
			to = w.End
		}
		for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
			out = append(out, DailyPrice{Date: d, Price: iv.Price})
		}
	}
	return out
}

func coveredDays(intervals []Interval) int {
	n := 0
	for _, iv := range intervals {
		n += Window{Start: iv.Start, End: iv.End}.Days()
	}
	return n
}
