package dca

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// The JSON format is an array of objects:
//
//	[{"id":"5f0c…","amountBtc":0.01,"priceUsd":42000,"timestamp":1700000000.5}]
//
// where timestamp is in seconds since the Unix epoch.

// MarshalJSON always writes the four fields, in a stable order.
func (e Entry) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("id", e.ID)
	w.Append("amountBtc", e.Amount)
	w.Append("priceUsd", e.Price)
	w.Append("timestamp", UnixSeconds(e.Timestamp))
	return w.MarshalJSON()
}

// UnmarshalJSON is strict: every field must be present with the right type, and
// the id must be a valid identifier.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return errors.New("entry must be an object")
	}
	s, ok := jsonString(fields["id"])
	if !ok {
		return errors.New("field \"id\" must be a string")
	}
	id, ok := parseID(s)
	if !ok {
		return fmt.Errorf("invalid id %q", s)
	}
	var numbers [3]decimal.Decimal
	for i, key := range []string{"amountBtc", "priceUsd", "timestamp"} {
		if numbers[i], ok = jsonNumber(fields[key]); !ok {
			return fmt.Errorf("field %q must be a number", key)
		}
	}
	at, err := FromUnixSeconds(numbers[2])
	if err != nil {
		return err
	}
	*e = Entry{ID: id, Amount: numbers[0], Price: numbers[1], Timestamp: at}
	return nil
}

// EncodeJSON writes entries as a JSON array.
func EncodeJSON(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal entries: %w", err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write entries: %w", err)
	}
	return nil
}

// DecodeJSON reads a JSON array of entries, failing on the first invalid entry.
func DecodeJSON(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("cannot decode JSON entries: %w", err)
	}
	return entries, nil
}

// DecodeJSONLenient reads a JSON array of entries written by any version of the
// tool.
//
// Missing or mistyped fields get a default instead of failing: a fresh id, a zero
// amount or price, and the current time for the timestamp (older exports had no
// timestamp). Out of range timestamps, usually milliseconds, also get the current
// time. Array items that are not objects are skipped. Only a document that is
// not a JSON array is an error.
func DecodeJSONLenient(r io.Reader) ([]Entry, error) {
	var items []json.RawMessage
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("cannot decode JSON array: %w", err)
	}
	at := now()
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(item, &fields); err != nil || fields == nil {
			continue
		}
		e := Entry{Amount: decimal.Zero, Price: decimal.Zero, Timestamp: at}
		if s, ok := jsonString(fields["id"]); ok {
			e.ID, _ = parseID(s)
		}
		if e.ID == "" {
			e.ID = NewID()
		}
		if d, ok := jsonNumber(fields["amountBtc"]); ok {
			e.Amount = d
		}
		if d, ok := jsonNumber(fields["priceUsd"]); ok {
			e.Price = d
		}
		if d, ok := jsonNumber(fields["timestamp"]); ok {
			if t, err := FromUnixSeconds(d); err == nil {
				e.Timestamp = t
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// jsonString returns raw as a string if it is a JSON string.
func jsonString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// jsonNumber returns raw as a decimal if it is a JSON number. Numbers in strings
// are a type mismatch.
func jsonNumber(raw json.RawMessage) (decimal.Decimal, bool) {
	if len(raw) == 0 {
		return decimal.Zero, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return decimal.Zero, false
	}
	n, ok := v.(json.Number)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(n.String())
	return d, err == nil
}
