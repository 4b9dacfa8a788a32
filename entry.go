package dca

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// now is the clock used for default timestamps. Tests replace it.
var now = time.Now

// Entry records a single bitcoin purchase.
//
// Entries are values: editing an entry means replacing every field but the ID.
type Entry struct {
	ID        string
	Amount    decimal.Decimal // bitcoin acquired
	Price     decimal.Decimal // USD paid per whole bitcoin
	Timestamp time.Time
}

// NewEntry creates an entry with a fresh id. A zero 'at' means now.
//
// NewEntry does not validate amount and price, see Entry.Validate.
func NewEntry(amount, price decimal.Decimal, at time.Time) Entry {
	if at.IsZero() {
		at = now()
	}
	return Entry{ID: NewID(), Amount: amount, Price: price, Timestamp: at}
}

// NewID returns a fresh, unique entry identifier.
func NewID() string { return uuid.NewString() }

// parseID returns the canonical form of s, or false if s is not an identifier.
func parseID(s string) (string, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// Cost returns the USD spent on this entry.
func (e Entry) Cost() decimal.Decimal { return e.Amount.Mul(e.Price) }

// Sats returns the entry amount in satoshis.
func (e Entry) Sats() int64 { return BTCToSats(e.Amount) }

// Bounds of the amounts and prices accepted from users and imports.
var (
	MaxAmount = decimal.NewFromInt(21_000_000)     // every bitcoin there will ever be
	MaxPrice  = decimal.NewFromInt(10_000_000_000) // USD per bitcoin
)

// Decimal exponents outside [-maxExponent, maxExponent] are rejected before any
// arithmetic, which would expand them digit by digit.
const maxExponent = 18

// Validate checks the rules applied to entries coming from users or imports.
func (e Entry) Validate() error {
	if err := validate(e.Amount, e.Price); err != nil {
		return err
	}
	return validateTime(e.Timestamp)
}

func validate(amount, price decimal.Decimal) error {
	if err := inRange("amount", amount, MaxAmount); err != nil {
		return err
	}
	return inRange("price", price, MaxPrice)
}

// inRange checks that d is in (0, max] with a reasonable exponent.
func inRange(name string, d, max decimal.Decimal) error {
	if exp := d.Exponent(); exp < -maxExponent || exp > maxExponent {
		return fmt.Errorf("%w: %s has too many digits", ErrInvalidInput, name)
	}
	if !d.IsPositive() {
		return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidInput, name, d)
	}
	if d.GreaterThan(max) {
		return fmt.Errorf("%w: %s must not exceed %s, got %s", ErrInvalidInput, name, max, d)
	}
	return nil
}

// Timestamps are stored with nanosecond resolution in an int64.
var (
	minTime = time.Unix(0, math.MinInt64)
	maxTime = time.Unix(0, math.MaxInt64)
)

func validateTime(t time.Time) error {
	if t.Before(minTime) || t.After(maxTime) {
		return fmt.Errorf("%w: time %v is out of range", ErrInvalidInput, t)
	}
	return nil
}

// UnixSeconds returns t as fractional seconds since the Unix epoch.
func UnixSeconds(t time.Time) decimal.Decimal {
	return decimal.NewFromInt(t.Unix()).Add(decimal.New(int64(t.Nanosecond()), -9))
}

// FromUnixSeconds is the inverse of UnixSeconds, with nanosecond resolution.
// Seconds outside the years 1678 to 2262 are ErrInvalidInput: they are usually
// milliseconds.
func FromUnixSeconds(s decimal.Decimal) (time.Time, error) {
	if exp := s.Exponent(); exp < -maxExponent || exp > maxExponent {
		return time.Time{}, fmt.Errorf("%w: timestamp has too many digits", ErrInvalidInput)
	}
	if s.LessThan(UnixSeconds(minTime)) || s.GreaterThan(UnixSeconds(maxTime)) {
		return time.Time{}, fmt.Errorf("%w: timestamp %s is out of range", ErrInvalidInput, s)
	}
	whole := s.Truncate(0)
	return time.Unix(whole.IntPart(), s.Sub(whole).Shift(9).Round(0).IntPart()), nil
}
