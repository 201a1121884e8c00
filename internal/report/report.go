package report

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/price-tracker/internal/timeline"
)

type PricePoint struct {
	Date  string          `json:"date"`
	Price decimal.Decimal `json:"price"`
}

func newPricePoints(days []timeline.DailyPrice) []PricePoint {
	points := make([]PricePoint, len(days))
	for i, d := range days {
		points[i] = PricePoint{Date: d.Date.Format(timeline.DateFormat), Price: d.Price}
	}
	return points
}

// DynamicReport is the day-by-day price of one product on one marketplace.
type DynamicReport struct {
	ProductID       int64        `json:"productId"`
	ProductName     string       `json:"productName"`
	MarketplaceID   int64        `json:"marketplaceId"`
	MarketplaceName string       `json:"marketplaceName"`
	Prices          []PricePoint `json:"prices"`
}

// ComparisonReport lays out one product's price series per marketplace.
type ComparisonReport struct {
	ProductID    int64             `json:"productId"`
	ProductName  string            `json:"productName"`
	Marketplaces MarketplaceSeries `json:"marketplaces"`
}

type Series struct {
	MarketplaceID int64
	Marketplace   string
	Prices        []PricePoint
}

// MarketplaceSeries encodes as a JSON object keyed by marketplace label,
// keeping insertion order.
type MarketplaceSeries []Series

func (m MarketplaceSeries) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Marketplace)
		if err != nil {
			return nil, err
		}
		prices := s.Prices
		if prices == nil {
			prices = []PricePoint{}
		}
		value, err := json.Marshal(prices)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *MarketplaceSeries) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("marketplaces: expected object, got %v", tok)
	}

	out := MarketplaceSeries{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("marketplaces: expected key, got %v", tok)
		}
		var prices []PricePoint
		if err := dec.Decode(&prices); err != nil {
			return fmt.Errorf("marketplaces: %s: %w", label, err)
		}
		out = append(out, Series{Marketplace: label, Prices: prices})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

// Get returns the series for a marketplace label.
func (m MarketplaceSeries) Get(label string) ([]PricePoint, bool) {
	for _, s := range m {
		if s.Marketplace == label {
			return s.Prices, true
		}
	}
	return nil, false
}
