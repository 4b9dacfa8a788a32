package dca

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// csvHeader is the first row written by EncodeCSV.
var csvHeader = []string{"id", "amount_btc", "price_usd", "timestamp"}

// EncodeCSV writes entries as CSV with a header row. Amounts have 8 decimals, prices
// 2 and timestamps are whole seconds since the Unix epoch. Numbers always use a
// period as decimal separator.
func EncodeCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("cannot write CSV header: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.ID,
			e.Amount.StringFixed(8),
			e.Price.StringFixed(2),
			UnixSeconds(e.Timestamp).StringFixed(0),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("cannot write CSV row for %q: %w", e.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeCSV reads entries from CSV, skipping the rows it cannot use.
//
// The header row is optional, it is detected by the "amount_btc" text in the first
// row. Rows with less than four fields, or whose amount or price is not positive or
// out of bounds (see MaxAmount and MaxPrice), are skipped. An invalid id is replaced
// by a fresh one and an invalid or out of range timestamp by the current time. Only
// read errors are returned.
func DecodeCSV(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	at := now()
	entries := make([]Entry, 0)
	for row := 0; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			log.Debug().Err(err).Msg("skipping unreadable CSV row")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cannot read CSV: %w", err)
		}
		if row == 0 && strings.Contains(strings.Join(record, ","), "amount_btc") {
			continue
		}
		e, ok := csvEntry(record, at)
		if !ok {
			log.Debug().Int("row", row).Strs("record", record).Msg("skipping invalid CSV row")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// csvEntry parses one data row.
func csvEntry(record []string, at time.Time) (Entry, bool) {
	if len(record) < 4 {
		return Entry{}, false
	}
	field := func(i int) string { return strings.TrimSpace(record[i]) }

	amount, err := decimal.NewFromString(field(1))
	if err != nil {
		return Entry{}, false
	}
	price, err := decimal.NewFromString(field(2))
	if err != nil || validate(amount, price) != nil {
		return Entry{}, false
	}
	id, ok := parseID(field(0))
	if !ok {
		id = NewID()
	}
	if seconds, err := decimal.NewFromString(field(3)); err == nil {
		if t, err := FromUnixSeconds(seconds); err == nil {
			at = t
		}
	}
	return Entry{ID: id, Amount: amount, Price: price, Timestamp: at}, true
}
