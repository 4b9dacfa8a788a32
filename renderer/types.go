package renderer

import (
	"time"

	"github.com/etnz/dca"
	"github.com/etnz/dca/coingecko"
	"github.com/etnz/dca/market"
)

// Summary is the data of a summary report.
type Summary struct {
	dca.Summary
	Currency    string // valuation currency
	Privacy     bool   // hide holdings, keep prices and ratios
	GeneratedAt time.Time
	PriceAt     time.Time // time of the live price, zero if none
	PriceError  string    // last price fetch error, if any
	History     *History  // nil when unavailable
	Purchases   []dca.Entry
}

// NewSummary builds a summary report of entries at the tracker's current price.
func NewSummary(entries []dca.Entry, q market.Quote, goalSats int64, privacy bool) *Summary {
	s := &Summary{
		Summary:     dca.Summarize(entries, q.Price, goalSats),
		Currency:    q.Currency,
		Privacy:     privacy,
		GeneratedAt: time.Now(),
		PriceAt:     q.At,
		Purchases:   entries,
	}
	if s.Currency == "" {
		s.Currency = dca.DefaultCurrency
	}
	if q.Err != nil {
		s.PriceError = q.Err.Error()
	}
	return s
}

// Entries is the data of a purchases listing.
type Entries struct {
	Currency  string
	Privacy   bool
	Purchases []dca.Entry
}

// Price is the data of a price report.
type Price struct {
	market.Quote
}

// History is the data of a 24h price report.
type History struct {
	Currency string
	Stats    market.HistoryStats
	Hourly   []coingecko.Point
}

// NewHistory summarizes points, oldest first. It returns nil for an empty history.
func NewHistory(points []coingecko.Point, currency string) *History {
	stats, ok := market.NewHistoryStats(points)
	if !ok {
		return nil
	}
	return &History{Currency: currency, Stats: stats, Hourly: hourly(points)}
}

// hourly keeps the last point of each hour.
func hourly(points []coingecko.Point) []coingecko.Point {
	var out []coingecko.Point
	for _, p := range points {
		if n := len(out); n > 0 && out[n-1].At.Truncate(time.Hour).Equal(p.At.Truncate(time.Hour)) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}
