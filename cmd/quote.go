package cmd

import (
	"context"
	"encoding/json"
	"time"

	"github.com/etnz/dca/market"
	"github.com/etnz/dca/store"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// savedQuote is the stored form of the last price, so that consecutive commands
// share the refresh throttling.
type savedQuote struct {
	Price decimal.Decimal `json:"price"`
	At    time.Time       `json:"at"`
}

func quoteKey(currency string) string { return "quote." + currency }

// loadQuote returns the last saved quote in currency.
func loadQuote(ctx context.Context, s store.Store, currency string) (market.Quote, bool) {
	data, err := s.Get(ctx, quoteKey(currency))
	if err != nil {
		return market.Quote{}, false
	}
	var q savedQuote
	if err := json.Unmarshal(data, &q); err != nil {
		log.Debug().Err(err).Msg("ignoring corrupted saved quote")
		return market.Quote{}, false
	}
	return market.Quote{Currency: currency, Price: decimal.NewNullDecimal(q.Price), At: q.At}, true
}

// saveQuote stores q if it has a price. Failures are only logged, a quote can be
// fetched again.
func saveQuote(ctx context.Context, s store.Store, q market.Quote) {
	if !q.Price.Valid {
		return
	}
	data, err := json.Marshal(savedQuote{Price: q.Price.Decimal, At: q.At})
	if err == nil {
		err = s.Set(ctx, quoteKey(q.Currency), data)
	}
	if err != nil {
		log.Warn().Err(err).Msg("cannot save the last price")
	}
}
