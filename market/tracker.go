// Package market keeps track of the bitcoin market price.
//
// A Tracker owns the "current price" slot consumed by valuations. It is fed by a
// Source, refreshed on demand or periodically, and never touches the ledger: a failed
// fetch keeps the last known price and is reported by LastError.
package market

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/etnz/dca/coingecko"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DefaultInterval is both the refresh period of Run and the throttle window of Refresh.
const DefaultInterval = 60 * time.Second

// Source supplies prices. *coingecko.Client implements it.
type Source interface {
	Spot(ctx context.Context, currency string) (decimal.Decimal, error)
	History(ctx context.Context, currency string) ([]coingecko.Point, error)
}

// Quote is a snapshot of the price slot.
type Quote struct {
	Currency string
	Price    decimal.NullDecimal // absent until a fetch succeeds
	At       time.Time           // time of the last successful fetch
	Err      error               // last fetch error, nil after a success
}

// Tracker holds the last known spot price of a Source in one currency.
// It is safe for concurrent use.
type Tracker struct {
	src      Source
	currency string
	interval time.Duration
	metrics  *Metrics
	now      func() time.Time

	fetch sync.Mutex // serializes fetches

	mu      sync.RWMutex
	price   decimal.NullDecimal
	at      time.Time
	lastErr error
	subs    map[chan Quote]struct{}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithInterval sets the refresh period and throttle window.
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithMetrics sets the collectors updated by the tracker.
func WithMetrics(m *Metrics) Option { return func(t *Tracker) { t.metrics = m } }

// NewTracker returns a tracker of src prices in currency.
func NewTracker(src Source, currency string, opts ...Option) *Tracker {
	t := &Tracker{
		src:      src,
		currency: strings.ToLower(currency),
		interval: DefaultInterval,
		now:      time.Now,
		subs:     make(map[chan Quote]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.metrics == nil {
		t.metrics = NewMetrics(nil)
	}
	return t
}

// Currency returns the tracked currency code, lowercase.
func (t *Tracker) Currency() string { return t.currency }

// Quote returns the current state of the price slot.
func (t *Tracker) Quote() Quote {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.quote()
}

func (t *Tracker) quote() Quote {
	return Quote{Currency: t.currency, Price: t.price, At: t.at, Err: t.lastErr}
}

// Price returns the last known price, absent if no fetch ever succeeded.
func (t *Tracker) Price() decimal.NullDecimal {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.price
}

// LastError returns the error of the last fetch, nil if it succeeded.
func (t *Tracker) LastError() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastErr
}

// Restore seeds the price slot with a previously saved quote, so that a recent
// price is not fetched again. Quotes in another currency, without a price, or older
// than the current slot are ignored.
func (t *Tracker) Restore(q Quote) bool {
	if !q.Price.Valid || !strings.EqualFold(q.Currency, t.currency) {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !q.At.After(t.at) {
		return false
	}
	t.price, t.at = q.Price, q.At
	return true
}

// Refresh fetches the spot price.
//
// Unless force is set, it is a no-op returning false when the last successful fetch
// is more recent than the tracker interval. On error the last known price is kept.
func (t *Tracker) Refresh(ctx context.Context, force bool) (bool, error) {
	t.fetch.Lock()
	defer t.fetch.Unlock()

	if !force && t.fresh() {
		t.metrics.Skipped.Inc()
		log.Debug().Str("currency", t.currency).Msg("price is recent, refresh skipped")
		return false, nil
	}

	start := t.now()
	price, err := t.src.Spot(ctx, t.currency)
	t.metrics.FetchDuration.WithLabelValues("spot").Observe(t.now().Sub(start).Seconds())

	t.mu.Lock()
	if err != nil {
		t.lastErr = err
		t.metrics.Fetches.WithLabelValues("spot", "error").Inc()
		log.Warn().Err(err).Str("currency", t.currency).Msg("price refresh failed")
	} else {
		t.price = decimal.NewNullDecimal(price)
		t.at = t.now()
		t.lastErr = nil
		t.metrics.Fetches.WithLabelValues("spot", "ok").Inc()
		t.metrics.Price.WithLabelValues(t.currency).Set(price.InexactFloat64())
		t.metrics.LastSuccess.Set(float64(t.at.Unix()))
		log.Debug().Str("currency", t.currency).Stringer("price", price).Msg("price refreshed")
	}
	q := t.quote()
	t.publish(q)
	t.mu.Unlock()
	return err == nil, err
}

// fresh reports whether the last success is within the interval.
func (t *Tracker) fresh() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.at.IsZero() && t.now().Sub(t.at) < t.interval
}

// History fetches the last 24 hours of prices. It does not affect the price slot.
func (t *Tracker) History(ctx context.Context) ([]coingecko.Point, error) {
	start := t.now()
	points, err := t.src.History(ctx, t.currency)
	t.metrics.FetchDuration.WithLabelValues("history").Observe(t.now().Sub(start).Seconds())
	if err != nil {
		t.metrics.Fetches.WithLabelValues("history", "error").Inc()
		return nil, err
	}
	t.metrics.Fetches.WithLabelValues("history", "ok").Inc()
	return points, nil
}

// Run refreshes the price now, unless it is recent, and then every interval until
// ctx is done.
// Fetch errors are recorded, not returned. Run returns ctx.Err().
func (t *Tracker) Run(ctx context.Context) error {
	log.Debug().Str("currency", t.currency).Dur("interval", t.interval).Msg("price tracking started")
	defer log.Debug().Str("currency", t.currency).Msg("price tracking stopped")

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	// a recent price is reused at startup, ticks always fetch.
	force := false
	for {
		if _, err := t.Refresh(ctx, force); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		force = true
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Subscribe returns a channel receiving a Quote after every fetch attempt, and a
// function to unsubscribe. Slow subscribers only get the latest quote.
func (t *Tracker) Subscribe() (<-chan Quote, func()) {
	ch := make(chan Quote, 1)
	t.mu.Lock()
	t.subs[ch] = struct{}{}
	t.mu.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, ch)
			t.mu.Unlock()
		})
	}
}

// publish sends q to subscribers. t.mu must be held.
func (t *Tracker) publish(q Quote) {
	for ch := range t.subs {
		select {
		case <-ch: // drop the stale quote
		default:
		}
		select {
		case ch <- q:
		default:
		}
	}
}
