package dca

import (
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// currency returns the go-money currency for code, never nil.
func currency(code string) money.Currency {
	// to get a never nil currency I need to call the Money constructor
	return *money.New(0, strings.ToUpper(code)).Currency()
}

// IsCurrency reports whether code is a known ISO 4217 currency code.
func IsCurrency(code string) bool {
	return money.GetCurrency(strings.ToUpper(code)) != nil
}

// FormatMoney formats value in the currency code, rounded to the currency minor
// unit, e.g. "$1,234.56".
func FormatMoney(value decimal.Decimal, code string) string {
	cur := currency(code)
	minor := value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// FormatSignedMoney is FormatMoney with an explicit sign for gains.
func FormatSignedMoney(value decimal.Decimal, code string) string {
	if value.IsPositive() {
		return "+" + FormatMoney(value, code)
	}
	return FormatMoney(value, code)
}

// FormatBTC formats a bitcoin amount with its 8 decimals, e.g. "0.01000000 BTC".
func FormatBTC(btc decimal.Decimal) string {
	return btc.StringFixed(8) + " BTC"
}

// FormatSats formats a satoshi amount with thousands separators, e.g. "1,000,000 sats".
func FormatSats(sats int64) string {
	s := strconv.FormatInt(sats, 10)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String() + " sats"
	}
	return b.String() + " sats"
}
