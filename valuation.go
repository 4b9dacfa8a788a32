package dca

import (
	"slices"

	"github.com/shopspring/decimal"
)

// This file contains the valuation engine: pure functions over a snapshot of the
// ledger and, optionally, a live price. A live price is a decimal.NullDecimal, so
// that "no price yet" is never confused with a zero price.

// SatsPerBTC is the number of satoshis in one bitcoin.
const SatsPerBTC = 100_000_000

// Width, in USD, of allocation buckets.
var (
	DefaultBucketSize = decimal.NewFromInt(10_000)
	MinBucketSize     = decimal.NewFromInt(1)
)

// TotalBTC returns the bitcoin held across entries.
func TotalBTC(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// TotalCost returns the USD spent across entries, the cost basis.
func TotalCost(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Cost())
	}
	return total
}

// AverageCost returns the average price paid per bitcoin, or zero when no bitcoin
// has been acquired.
func AverageCost(entries []Entry) decimal.Decimal {
	btc := TotalBTC(entries)
	if !btc.IsPositive() {
		return decimal.Zero
	}
	return TotalCost(entries).Div(btc)
}

// CurrentValue returns the market value of the bitcoin held at the live price.
// It is invalid when there is no live price.
func CurrentValue(entries []Entry, live decimal.NullDecimal) decimal.NullDecimal {
	if !live.Valid {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(live.Decimal.Mul(TotalBTC(entries)))
}

// PnL returns the unrealized profit (or loss when negative) at the live price.
// It is invalid when there is no live price.
func PnL(entries []Entry, live decimal.NullDecimal) decimal.NullDecimal {
	value := CurrentValue(entries, live)
	if !value.Valid {
		return value
	}
	return decimal.NewNullDecimal(value.Decimal.Sub(TotalCost(entries)))
}

// PnLPercent returns PnL as a percentage of the cost basis. It is invalid when there
// is no live price or no cost basis.
func PnLPercent(entries []Entry, live decimal.NullDecimal) decimal.NullDecimal {
	pnl := PnL(entries, live)
	cost := TotalCost(entries)
	if !pnl.Valid || !cost.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(pnl.Decimal.Div(cost).Mul(decimal.NewFromInt(100)))
}

// BTCToSats converts bitcoin to satoshis, rounding half away from zero: 0.000000005
// BTC is 1 sat, and -0.000000005 BTC is -1 sat.
func BTCToSats(btc decimal.Decimal) int64 {
	return btc.Shift(8).Round(0).IntPart()
}

// SatsToBTC converts satoshis to bitcoin.
func SatsToBTC(sats int64) decimal.Decimal {
	return decimal.NewFromInt(sats).Shift(-8)
}

// Bucket aggregates the entries bought at a price in [Lower, Upper).
type Bucket struct {
	Lower decimal.Decimal `json:"lowerUsd"`
	Upper decimal.Decimal `json:"upperUsd"`
	BTC   decimal.Decimal `json:"btc"`  // bitcoin bought in this price range
	Buys  int             `json:"buys"` // number of entries
}

// AllocationBuckets groups entries by purchase price into buckets of 'size' USD.
//
// Only buckets with at least one entry are returned, sorted by price. A price on a
// bucket boundary belongs to the upper bucket. Prices that are not positive or above
// MaxPrice are left out. A size below MinBucketSize means DefaultBucketSize.
func AllocationBuckets(entries []Entry, size decimal.Decimal) []Bucket {
	if inRange("size", size, MaxPrice) != nil || size.LessThan(MinBucketSize) {
		size = DefaultBucketSize
	}
	index := make(map[int64]*Bucket)
	var keys []int64
	for _, e := range entries {
		if inRange("price", e.Price, MaxPrice) != nil {
			continue
		}
		k := e.Price.Div(size).Floor().IntPart()
		b, ok := index[k]
		if !ok {
			lower := size.Mul(decimal.NewFromInt(k))
			b = &Bucket{Lower: lower, Upper: lower.Add(size), BTC: decimal.Zero}
			index[k] = b
			keys = append(keys, k)
		}
		b.BTC = b.BTC.Add(e.Amount)
		b.Buys++
	}
	slices.Sort(keys)

	buckets := make([]Bucket, 0, len(keys))
	for _, k := range keys {
		buckets = append(buckets, *index[k])
	}
	return buckets
}

// StackingProgress returns the fraction of goalSats already stacked, in [0, 1].
// Goals below one sat count as one sat.
func StackingProgress(entries []Entry, goalSats int64) float64 {
	goalSats = max(goalSats, 1)
	progress := float64(BTCToSats(TotalBTC(entries))) / float64(goalSats)
	return min(progress, 1.0)
}

// Summary gathers every metric of a ledger snapshot at a live price.
type Summary struct {
	Entries     int             `json:"entries"`
	TotalBTC    decimal.Decimal `json:"totalBtc"`
	Sats        int64           `json:"sats"`
	TotalCost   decimal.Decimal `json:"totalCostUsd"`
	AverageCost decimal.Decimal `json:"averageCostUsd"`

	Price        decimal.NullDecimal `json:"priceUsd"` // live price, if any
	CurrentValue decimal.NullDecimal `json:"currentValueUsd"`
	PnL          decimal.NullDecimal `json:"pnlUsd"`
	PnLPercent   decimal.NullDecimal `json:"pnlPercent"`

	Goal     int64    `json:"goal"` // in sats
	Progress float64  `json:"progress"`
	Buckets  []Bucket `json:"buckets"`
}

// Summarize computes the Summary of entries at the live price, for a goal in sats.
func Summarize(entries []Entry, live decimal.NullDecimal, goalSats int64) Summary {
	btc := TotalBTC(entries)
	return Summary{
		Entries:      len(entries),
		TotalBTC:     btc,
		Sats:         BTCToSats(btc),
		TotalCost:    TotalCost(entries),
		AverageCost:  AverageCost(entries),
		Price:        live,
		CurrentValue: CurrentValue(entries, live),
		PnL:          PnL(entries, live),
		PnLPercent:   PnLPercent(entries, live),
		Goal:         goalSats,
		Progress:     StackingProgress(entries, goalSats),
		Buckets:      AllocationBuckets(entries, DefaultBucketSize),
	}
}
