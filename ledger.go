package dca

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/etnz/dca/store"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ledgerKey is the store key holding the whole ledger.
const ledgerKey = "ledger"

// Ledger is the ordered list of purchases.
//
// Ids are unique within a ledger. Every mutation is persisted as a whole before it
// becomes visible; when persisting fails the ledger is left unchanged. Mutations are
// serialized, and readers only ever get copies (see Snapshot).
type Ledger struct {
	mu      sync.RWMutex
	entries []Entry
	store   store.Store // nil means memory only
}

// NewLedger creates an empty ledger persisted to s. A nil s keeps the ledger in memory.
func NewLedger(s store.Store) *Ledger {
	return &Ledger{entries: make([]Entry, 0), store: s}
}

// OpenLedger loads the ledger persisted in s. A store that has no ledger yet
// yields an empty ledger.
func OpenLedger(ctx context.Context, s store.Store) (*Ledger, error) {
	l := NewLedger(s)
	data, err := s.Get(ctx, ledgerKey)
	if errors.Is(err, store.ErrNotFound) {
		log.Debug().Msg("no ledger persisted yet, starting empty")
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read ledger: %w", err)
	}
	entries, err := DecodeJSONLenient(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot decode ledger: %w", err)
	}
	l.entries = uniqueIDs(entries)
	log.Debug().Int("entries", len(l.entries)).Msg("ledger loaded")
	return l, nil
}

// Len returns the number of entries.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Snapshot returns a copy of the entries, in ledger order.
func (l *Ledger) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.entries)
}

// Entry returns the entry with this id.
func (l *Ledger) Entry(id string) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.index(id)
	if i < 0 {
		return Entry{}, false
	}
	return l.entries[i], true
}

// Add records a purchase of amount bitcoin at price USD each. A zero 'at' means now.
func (l *Ledger) Add(ctx context.Context, amount, price decimal.Decimal, at time.Time) (Entry, error) {
	e := NewEntry(amount, price, at)
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.commit(ctx, append(slices.Clone(l.entries), e)); err != nil {
		return Entry{}, err
	}
	log.Debug().Str("id", e.ID).Stringer("amount", e.Amount).Stringer("price", e.Price).Msg("entry added")
	return e, nil
}

// Edit replaces every field of the entry 'id'. A zero 'at' keeps the current timestamp.
func (l *Ledger) Edit(ctx context.Context, id string, amount, price decimal.Decimal, at time.Time) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.index(id)
	if i < 0 {
		return Entry{}, fmt.Errorf("cannot edit %q: %w", id, ErrNotFound)
	}
	e := l.entries[i]
	e.Amount, e.Price = amount, price
	if !at.IsZero() {
		e.Timestamp = at
	}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}

	next := slices.Clone(l.entries)
	next[i] = e
	if err := l.commit(ctx, next); err != nil {
		return Entry{}, err
	}
	log.Debug().Str("id", e.ID).Msg("entry edited")
	return e, nil
}

// Delete removes the entry 'id'. Deleting a missing entry is a no-op.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	_, err := l.DeleteMany(ctx, id)
	return err
}

// DeleteMany removes all entries whose id is in ids, at once, and returns how many
// entries were removed. Either all of them are removed or none.
func (l *Ledger) DeleteMany(ctx context.Context, ids ...string) (int, error) {
	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	next := slices.DeleteFunc(slices.Clone(l.entries), func(e Entry) bool { return remove[e.ID] })
	removed := len(l.entries) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := l.commit(ctx, next); err != nil {
		return 0, err
	}
	log.Debug().Int("removed", removed).Msg("entries deleted")
	return removed, nil
}

// ReplaceAll discards the current entries and adopts 'entries' as they are.
//
// Amounts and prices are not validated again, imports validate upstream. Duplicated
// ids get a fresh id so that ids remain unique.
func (l *Ledger) ReplaceAll(ctx context.Context, entries []Entry) error {
	next := uniqueIDs(slices.Clone(entries))

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.commit(ctx, next); err != nil {
		return err
	}
	log.Debug().Int("entries", len(next)).Msg("ledger replaced")
	return nil
}

// Merge appends the entries whose id is not already in the ledger, and returns how
// many were appended.
func (l *Ledger) Merge(ctx context.Context, entries []Entry) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := slices.Clone(l.entries)
	seen := make(map[string]bool, len(next))
	for _, e := range next {
		seen[e.ID] = true
	}
	for _, e := range entries {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		next = append(next, e)
	}
	added := len(next) - len(l.entries)
	if added == 0 {
		return 0, nil
	}
	if err := l.commit(ctx, next); err != nil {
		return 0, err
	}
	log.Debug().Int("added", added).Msg("entries merged")
	return added, nil
}

// commit persists next and then makes it the current list of entries.
//
// The caller must hold the write lock.
func (l *Ledger) commit(ctx context.Context, next []Entry) error {
	if l.store != nil {
		var buf bytes.Buffer
		if err := EncodeJSON(&buf, next); err != nil {
			return fmt.Errorf("cannot encode ledger: %w", err)
		}
		if err := l.store.Set(ctx, ledgerKey, buf.Bytes()); err != nil {
			return fmt.Errorf("cannot persist ledger: %w", err)
		}
	}
	l.entries = next
	return nil
}

// index returns the position of the entry 'id' or -1. The caller must hold a lock.
func (l *Ledger) index(id string) int {
	return slices.IndexFunc(l.entries, func(e Entry) bool { return e.ID == id })
}

// uniqueIDs gives a fresh id to every entry whose id was already used, or empty.
func uniqueIDs(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.ID == "" || seen[e.ID] {
			old := e.ID
			entries[i].ID = NewID()
			log.Debug().Str("id", old).Str("new", entries[i].ID).Msg("duplicated entry id renamed")
		}
		seen[entries[i].ID] = true
	}
	return entries
}
