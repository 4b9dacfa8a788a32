package dca

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// this file contains functions to handle the import/export formats.

// Format is an interchange format for entries.
type Format int

const (
	// FormatJSON is a JSON array of entries, the format of backups.
	FormatJSON Format = iota
	// FormatCSV is a CSV file with a header row, for spreadsheets.
	FormatCSV
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// Extension returns the file extension for the format, including the dot.
func (f Format) Extension() string { return "." + f.String() }

// ParseFormat parses a format name, case insensitive.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return 0, fmt.Errorf("unknown format %q, expecting json or csv", s)
	}
}

// Export writes entries to w in format f.
func Export(w io.Writer, entries []Entry, f Format) error {
	switch f {
	case FormatJSON:
		return EncodeJSON(w, entries)
	case FormatCSV:
		return EncodeCSV(w, entries)
	default:
		return fmt.Errorf("cannot export to format %v", f)
	}
}

// DecodeImport decodes data of unknown format.
//
// JSON is tried first, then CSV. The first format yielding at least one entry with a
// positive amount and price wins, invalid entries are dropped. If no format yields
// an entry it returns ErrUnrecognizedFormat.
func DecodeImport(data []byte) ([]Entry, Format, error) {
	if entries, err := DecodeJSONLenient(bytes.NewReader(data)); err == nil {
		entries = slices.DeleteFunc(entries, func(e Entry) bool { return e.Validate() != nil })
		if len(entries) > 0 {
			return entries, FormatJSON, nil
		}
	}

	text := bytes.TrimPrefix(data, []byte("\ufeff"))
	if utf8.Valid(text) {
		if entries, err := DecodeCSV(bytes.NewReader(text)); err == nil && len(entries) > 0 {
			return entries, FormatCSV, nil
		}
	}
	return nil, 0, ErrUnrecognizedFormat
}

// ImportMode selects how imported entries are combined with the ledger.
type ImportMode int

const (
	// ImportReplace discards the current ledger and adopts the imported entries.
	// This is destructive, it is meant to restore a backup.
	ImportReplace ImportMode = iota
	// ImportMerge appends the imported entries whose id is not in the ledger yet.
	ImportMerge
)

// ImportResult reports what an import did.
type ImportResult struct {
	Format  Format
	Decoded int // entries decoded from the data
	Adopted int // entries that made it into the ledger
}

// Import decodes data, in any supported format, into the ledger according to mode.
//
// When data cannot be decoded the error is ErrUnrecognizedFormat and the ledger is
// left untouched.
func (l *Ledger) Import(ctx context.Context, data []byte, mode ImportMode) (ImportResult, error) {
	entries, format, err := DecodeImport(data)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Format: format, Decoded: len(entries)}

	switch mode {
	case ImportMerge:
		res.Adopted, err = l.Merge(ctx, entries)
	default:
		err = l.ReplaceAll(ctx, entries)
		res.Adopted = len(entries)
	}
	if err != nil {
		return ImportResult{}, err
	}
	log.Debug().Stringer("format", format).Int("decoded", res.Decoded).Int("adopted", res.Adopted).Msg("import done")
	return res, nil
}
