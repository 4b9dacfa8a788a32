package dca

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestEncodeCSV(t *testing.T) {
	e := Entry{
		ID:        "0b7d2c2e-54b5-4d38-9f3e-5a1c8e4f2a10",
		Amount:    D("0.01"),
		Price:     D("42000.5"),
		Timestamp: time.Unix(1700000000, 0),
	}
	var b bytes.Buffer
	if err := EncodeCSV(&b, []Entry{e}); err != nil {
		t.Fatalf("EncodeCSV() unexpected error = %v", err)
	}
	want := "id,amount_btc,price_usd,timestamp\n" +
		"0b7d2c2e-54b5-4d38-9f3e-5a1c8e4f2a10,0.01000000,42000.50,1700000000\n"
	if got := b.String(); got != want {
		t.Errorf("EncodeCSV() = %q, want %q", got, want)
	}
}

func TestCSV_RoundTrip(t *testing.T) {
	entries := []Entry{
		{ID: NewID(), Amount: D("0.123456789"), Price: D("30000.456"), Timestamp: time.Unix(1700000000, 0)},
		{ID: NewID(), Amount: D("1"), Price: D("61000"), Timestamp: time.Unix(1710000000, 0)},
	}
	var b bytes.Buffer
	if err := EncodeCSV(&b, entries); err != nil {
		t.Fatal(err)
	}
	got, err := DecodeCSV(&b)
	if err != nil {
		t.Fatalf("DecodeCSV() unexpected error = %v", err)
	}
	// amounts and prices come back at the CSV precision.
	want := []Entry{
		{ID: entries[0].ID, Amount: D("0.12345679"), Price: D("30000.46"), Timestamp: entries[0].Timestamp},
		{ID: entries[1].ID, Amount: D("1"), Price: D("61000"), Timestamp: entries[1].Timestamp},
	}
	if diff := cmp.Diff(want, got, equalDecimals); diff != "" {
		t.Errorf("CSV round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeCSV_SkipsInvalidRows(t *testing.T) {
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	fixClock(t, at)
	const id = "0b7d2c2e-54b5-4d38-9f3e-5a1c8e4f2a10"
	doc := strings.Join([]string{
		"id,amount_btc,price_usd,timestamp",
		id + ",0.1,30000,1700000000",      // valid
		"x,0.2,31000",                     // too few fields
		"x,abc,31000,1700000000",          // amount is not a number
		"x,0.2,-5,1700000000",             // negative price
		"x,0,31000,1700000000",            // zero amount
		"not-an-id,0.3,32000,1700000000",  // valid, fresh id
		id + ",0.4,33000,yesterday",       // valid, current time
		"",                                // empty line
		"x,0.5,34000,1700000000,extra",    // valid, extra field ignored
		"x,1e5000000,31000,1700000000",    // amount has too many digits
		"x,21000001,31000,1700000000",     // more bitcoins than there will ever be
		"x,0.1,1e5000000,1700000000",      // price has too many digits
		"x,0.6,35000,1700000000000",       // valid, milliseconds are the current time
	}, "\n")

	got, err := DecodeCSV(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("DecodeCSV() unexpected error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("DecodeCSV() = %d entries, want 5: %v", len(got), got)
	}
	if got[0].ID != id || !got[0].Amount.Equal(D("0.1")) {
		t.Errorf("DecodeCSV()[0] = %+v", got[0])
	}
	if got[1].ID == "not-an-id" || !got[1].Amount.Equal(D("0.3")) {
		t.Errorf("DecodeCSV()[1] = %+v, want a fresh id", got[1])
	}
	if !got[2].Timestamp.Equal(at) {
		t.Errorf("DecodeCSV()[2].Timestamp = %v, want the current time", got[2].Timestamp)
	}
	if !got[3].Price.Equal(D("34000")) {
		t.Errorf("DecodeCSV()[3] = %+v", got[3])
	}
	if !got[4].Amount.Equal(D("0.6")) || !got[4].Timestamp.Equal(at) {
		t.Errorf("DecodeCSV()[4] = %+v, want the current time", got[4])
	}
}

func TestDecodeCSV_Header(t *testing.T) {
	const row = "0b7d2c2e-54b5-4d38-9f3e-5a1c8e4f2a10,0.1,30000,1700000000"
	testCases := []struct {
		name string
		doc  string
		want int
	}{
		{"with header", "id,amount_btc,price_usd,timestamp\n" + row, 1},
		{"without header", row + "\n" + row, 2},
		{"header only", "id,amount_btc,price_usd,timestamp\n", 0},
		{"spaces", " id, amount_btc, price_usd, timestamp\n" + row, 1},
	}
	for _, tc := range testCases {
		got, err := DecodeCSV(strings.NewReader(tc.doc))
		if err != nil {
			t.Errorf("%s: DecodeCSV() unexpected error = %v", tc.name, err)
			continue
		}
		if len(got) != tc.want {
			t.Errorf("%s: DecodeCSV() = %d entries, want %d", tc.name, len(got), tc.want)
		}
	}
}
