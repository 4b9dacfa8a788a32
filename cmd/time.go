package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/etnz/dca"
	"github.com/shopspring/decimal"
)

// timeLayouts are the accepted date formats, in local time unless a zone is given.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseTime parses a purchase time: a date, a date and time, RFC 3339, or seconds
// since the Unix epoch. An empty string returns the zero time.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return dca.FromUnixSeconds(d)
	}
	return time.Time{}, fmt.Errorf("invalid time %q, use YYYY-MM-DD, YYYY-MM-DD HH:MM, RFC 3339 or Unix seconds", s)
}

// parseAmount parses a positive decimal flag value. An empty string returns a zero
// decimal and false.
func parseAmount(name, s string) (decimal.Decimal, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, "_", ""))
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return d, true, nil
}
