package renderer

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/etnz/dca"
	"github.com/shopspring/decimal"
)

// hidden replaces holdings in privacy mode.
const hidden = "****"

// unavailable replaces values that need a live price when there is none.
const unavailable = "unavailable"

const barWidth = 20

// funcs returns the template functions for a report in currency.
//
// In privacy mode, holdings (btc, sats, money, signed) are hidden while prices and
// ratios are still shown.
func funcs(currency string, privacy bool) template.FuncMap {
	mask := func(s string) string {
		if privacy {
			return hidden
		}
		return s
	}
	price := func(d decimal.Decimal) string { return dca.FormatMoney(d, currency) }
	return template.FuncMap{
		"price": price,
		"priceIn": func(d decimal.Decimal, code string) string { return dca.FormatMoney(d, code) },
		"signedIn": func(d decimal.Decimal, code string) string {
			return dca.FormatSignedMoney(d, code)
		},
		"money":  func(d decimal.Decimal) string { return mask(dca.FormatMoney(d, currency)) },
		"signed": func(d decimal.Decimal) string { return mask(dca.FormatSignedMoney(d, currency)) },
		"optPrice": func(d decimal.NullDecimal) string {
			if !d.Valid {
				return unavailable
			}
			return price(d.Decimal)
		},
		"optMoney": func(d decimal.NullDecimal) string {
			if !d.Valid {
				return unavailable
			}
			return mask(dca.FormatMoney(d.Decimal, currency))
		},
		"optSigned": func(d decimal.NullDecimal) string {
			if !d.Valid {
				return unavailable
			}
			return mask(dca.FormatSignedMoney(d.Decimal, currency))
		},
		"optPct":  optPercent,
		"btc":     func(d decimal.Decimal) string { return mask(dca.FormatBTC(d)) },
		"sats":    func(n int64) string { return mask(dca.FormatSats(n)) },
		"goal":    dca.FormatSats,
		"percent": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
		"bar":     progressBar,
		"date":    func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04 UTC") },
		"hour":    func(t time.Time) string { return t.UTC().Format("15:04") },
		"shortID": shortID,
	}
}

// optPercent formats a signed percentage with 2 decimals, "n/a" when absent.
func optPercent(d decimal.NullDecimal) string {
	if !d.Valid {
		return "n/a"
	}
	s := d.Decimal.StringFixed(2) + "%"
	if d.Decimal.IsPositive() {
		return "+" + s
	}
	return s
}

// progressBar draws a fraction in [0,1] as a fixed width bar.
func progressBar(f float64) string {
	n := int(f*barWidth + 0.5)
	n = min(max(n, 0), barWidth)
	return "`[" + strings.Repeat("#", n) + strings.Repeat(".", barWidth-n) + "]`"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
