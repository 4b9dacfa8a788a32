package dca

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

// D is a helper for test to create decimals from const.
func D(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// P is a helper for test to create a live price.
func P(s string) decimal.NullDecimal { return decimal.NewNullDecimal(D(s)) }

// E is a helper for test to create an entry bought on 2024-01-01.
func E(amount, price string) Entry {
	return NewEntry(D(amount), D(price), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

// equalDecimals makes go-cmp compare decimals by value.
var equalDecimals = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

// fixClock sets the package clock for the duration of the test.
func fixClock(t *testing.T, at time.Time) {
	t.Helper()
	old := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = old })
}
