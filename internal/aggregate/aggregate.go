package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/guarzo/sorcledger/internal/model"
)

// CatalogStats are the catalog price fields formatted to two decimals.
// Aggregation never fails: missing values degrade to "0.00".
type CatalogStats struct {
	Low    string
	Mid    string
	High   string
	Market string
}

// Catalog coerces nullable catalog prices to 0.0 and substitutes mid for a
// zero market price.
func Catalog(p model.PricePoint) CatalogStats {
	low := deref(p.Low)
	mid := deref(p.Mid)
	high := deref(p.High)
	market := deref(p.Market)
	if market.IsZero() {
		market = mid
	}
	return CatalogStats{
		Low:    low.StringFixed(2),
		Mid:    mid.StringFixed(2),
		High:   high.StringFixed(2),
		Market: market.StringFixed(2),
	}
}

// MarketStats are the aggregated marketplace prices for one (card, variant)
// pair, formatted to two decimals.
type MarketStats struct {
	Market     string // blended market price
	AvgSold    string // median of sold observations
	AvgCurrent string // median of current asking prices
	Completed  string // median of the union of both observation lists
}

// Market aggregates sold and current price observations. Medians are used
// for outlier robustness. The blended market price is the mean of the two
// medians when both are positive, otherwise whichever is positive,
// otherwise zero. No observations is not an error.
func Market(sold, current []float64) MarketStats {
	medSold := Median(sold)
	medCurrent := Median(current)

	var market decimal.Decimal
	switch {
	case medSold.IsPositive() && medCurrent.IsPositive():
		market = medSold.Add(medCurrent).Div(decimal.NewFromInt(2))
	case medSold.IsPositive():
		market = medSold
	case medCurrent.IsPositive():
		market = medCurrent
	}

	union := make([]float64, 0, len(sold)+len(current))
	union = append(union, sold...)
	union = append(union, current...)

	return MarketStats{
		Market:     market.StringFixed(2),
		AvgSold:    medSold.StringFixed(2),
		AvgCurrent: medCurrent.StringFixed(2),
		Completed:  Median(union).StringFixed(2),
	}
}

// Median returns the median of a price list, zero for an empty list. The
// input slice is not modified.
func Median(prices []float64) decimal.Decimal {
	if len(prices) == 0 {
		return decimal.Zero
	}
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return decimal.NewFromFloat(sorted[mid])
	}
	a := decimal.NewFromFloat(sorted[mid-1])
	b := decimal.NewFromFloat(sorted[mid])
	return a.Add(b).Div(decimal.NewFromInt(2))
}

func deref(p *float64) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*p)
}
