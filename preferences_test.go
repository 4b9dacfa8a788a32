package dca

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/dca/store"
)

func TestPreferences_Goal(t *testing.T) {
	ctx := context.Background()
	p := NewPreferences(store.NewMemory())

	if got, err := p.Goal(ctx); err != nil || got != DefaultGoal {
		t.Errorf("Goal() = %d, %v, want the default %d", got, err, DefaultGoal)
	}
	testCases := []struct {
		set, want int64
	}{
		{5_000_000, 5_000_000},
		{1, MinGoal},
		{-10, MinGoal},
		{MaxGoal + 1, MaxGoal},
	}
	for _, tc := range testCases {
		got, err := p.SetGoal(ctx, tc.set)
		if err != nil || got != tc.want {
			t.Errorf("SetGoal(%d) = %d, %v, want %d", tc.set, got, err, tc.want)
		}
		if stored, _ := p.Goal(ctx); stored != tc.want {
			t.Errorf("Goal() after SetGoal(%d) = %d, want %d", tc.set, stored, tc.want)
		}
	}
}

func TestPreferences_AdjustGoal(t *testing.T) {
	ctx := context.Background()
	p := NewPreferences(store.NewMemory())

	testCases := []struct {
		delta, want int64
	}{
		{100_000, 1_100_000},
		{-1_000_000, 100_000},
		{-1, MinGoal},
		{1 << 62, MaxGoal},
		{1 << 62, MaxGoal},
		{-(1 << 62), MinGoal},
	}
	for _, tc := range testCases {
		if got, err := p.AdjustGoal(ctx, tc.delta); err != nil || got != tc.want {
			t.Errorf("AdjustGoal(%d) = %d, %v, want %d", tc.delta, got, err, tc.want)
		}
	}
}

func TestPreferences_GoalCorrupt(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	s.Set(ctx, goalKey, []byte("lots"))
	if got, err := NewPreferences(s).Goal(ctx); err != nil || got != DefaultGoal {
		t.Errorf("Goal() with a corrupt value = %d, %v, want the default", got, err)
	}
}

func TestPreferences_Currency(t *testing.T) {
	ctx := context.Background()
	p := NewPreferences(store.NewMemory())

	if got, _ := p.Currency(ctx); got != DefaultCurrency {
		t.Errorf("Currency() = %q, want %q", got, DefaultCurrency)
	}
	if err := p.SetCurrency(ctx, "EUR"); err != nil {
		t.Fatalf("SetCurrency(EUR) unexpected error = %v", err)
	}
	if got, _ := p.Currency(ctx); got != "eur" {
		t.Errorf("Currency() = %q, want eur", got)
	}
	if err := p.SetCurrency(ctx, "doge"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("SetCurrency(doge) error = %v, want ErrInvalidInput", err)
	}
}

func TestPreferences_Privacy(t *testing.T) {
	ctx := context.Background()
	p := NewPreferences(store.NewMemory())
	if on, _ := p.Privacy(ctx); on {
		t.Error("Privacy() is on by default")
	}
	p.SetPrivacy(ctx, true)
	if on, _ := p.Privacy(ctx); !on {
		t.Error("Privacy() = false after SetPrivacy(true)")
	}
}
