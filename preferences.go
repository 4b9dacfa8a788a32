package dca

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/etnz/dca/store"
)

// Stacking goal bounds, in sats.
const (
	DefaultGoal int64 = 1_000_000
	MinGoal     int64 = 100_000
	MaxGoal     int64 = 21_000_000 * SatsPerBTC // every bitcoin there will ever be
)

// DefaultCurrency is the currency used to fetch and display the spot price.
const DefaultCurrency = "usd"

// Store keys of the preferences.
const (
	goalKey     = "goal"
	currencyKey = "currency"
	privacyKey  = "privacy"
)

// Preferences are the user settings persisted next to the ledger. They are
// independent of the ledger content.
type Preferences struct {
	store store.Store
}

// NewPreferences returns the preferences persisted in s.
func NewPreferences(s store.Store) *Preferences {
	return &Preferences{store: s}
}

// Goal returns the stacking goal in sats, DefaultGoal if none was set.
func (p *Preferences) Goal(ctx context.Context) (int64, error) {
	v, err := p.get(ctx, goalKey)
	if err != nil || v == "" {
		return DefaultGoal, err
	}
	goal, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return DefaultGoal, nil
	}
	return clampGoal(goal), nil
}

// SetGoal sets the stacking goal, clamped to [MinGoal, MaxGoal], and returns the
// goal actually stored.
func (p *Preferences) SetGoal(ctx context.Context, sats int64) (int64, error) {
	sats = clampGoal(sats)
	return sats, p.set(ctx, goalKey, strconv.FormatInt(sats, 10))
}

// AdjustGoal adds delta sats (possibly negative) to the goal, clamped to
// [MinGoal, MaxGoal].
func (p *Preferences) AdjustGoal(ctx context.Context, delta int64) (int64, error) {
	goal, err := p.Goal(ctx)
	if err != nil {
		return goal, err
	}
	switch {
	case delta > 0 && goal > math.MaxInt64-delta:
		goal = MaxGoal
	case delta < 0 && goal < math.MinInt64-delta:
		goal = MinGoal
	default:
		goal += delta
	}
	return p.SetGoal(ctx, goal)
}

func clampGoal(sats int64) int64 { return min(max(sats, MinGoal), MaxGoal) }

// Currency returns the lowercase currency code for spot prices.
func (p *Preferences) Currency(ctx context.Context) (string, error) {
	v, err := p.get(ctx, currencyKey)
	if err != nil || v == "" {
		return DefaultCurrency, err
	}
	return v, nil
}

// SetCurrency sets the currency for spot prices. Unknown ISO 4217 codes are rejected.
func (p *Preferences) SetCurrency(ctx context.Context, code string) error {
	if !IsCurrency(code) {
		return fmt.Errorf("%w: unknown currency %q", ErrInvalidInput, code)
	}
	return p.set(ctx, currencyKey, strings.ToLower(code))
}

// Privacy reports whether amounts should be hidden in reports.
func (p *Preferences) Privacy(ctx context.Context) (bool, error) {
	v, err := p.get(ctx, privacyKey)
	if err != nil || v == "" {
		return false, err
	}
	on, _ := strconv.ParseBool(v)
	return on, nil
}

// SetPrivacy turns the privacy mode on or off.
func (p *Preferences) SetPrivacy(ctx context.Context, on bool) error {
	return p.set(ctx, privacyKey, strconv.FormatBool(on))
}

// get returns the value of key, "" if it was never set.
func (p *Preferences) get(ctx context.Context, key string) (string, error) {
	v, err := p.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("cannot read preference %q: %w", key, err)
	}
	return strings.TrimSpace(string(v)), nil
}

func (p *Preferences) set(ctx context.Context, key, value string) error {
	if err := p.store.Set(ctx, key, []byte(value)); err != nil {
		return fmt.Errorf("cannot write preference %q: %w", key, err)
	}
	return nil
}
