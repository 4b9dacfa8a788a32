package market

import (
	"github.com/etnz/dca/coingecko"
	"github.com/shopspring/decimal"
)

// HistoryStats summarizes a price history.
type HistoryStats struct {
	Points        int
	Low, High     decimal.Decimal
	First, Last   decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.NullDecimal // absent when First is zero
}

// NewHistoryStats computes statistics over points, assumed oldest first.
// It returns false for an empty history.
func NewHistoryStats(points []coingecko.Point) (HistoryStats, bool) {
	if len(points) == 0 {
		return HistoryStats{}, false
	}
	s := HistoryStats{
		Points: len(points),
		Low:    points[0].Price,
		High:   points[0].Price,
		First:  points[0].Price,
		Last:   points[len(points)-1].Price,
	}
	for _, p := range points[1:] {
		if p.Price.LessThan(s.Low) {
			s.Low = p.Price
		}
		if p.Price.GreaterThan(s.High) {
			s.High = p.Price
		}
	}
	s.Change = s.Last.Sub(s.First)
	if !s.First.IsZero() {
		s.ChangePercent = decimal.NewNullDecimal(s.Change.Div(s.First).Mul(decimal.NewFromInt(100)))
	}
	return s, true
}
