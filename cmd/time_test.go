package cmd

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "", want: time.Time{}},
		{in: "2024-01-15", want: time.Date(2024, 1, 15, 0, 0, 0, 0, time.Local)},
		{in: "2024-01-15 09:30", want: time.Date(2024, 1, 15, 9, 30, 0, 0, time.Local)},
		{in: "2024-01-15T09:30", want: time.Date(2024, 1, 15, 9, 30, 0, 0, time.Local)},
		{in: "2024-01-15 09:30:15", want: time.Date(2024, 1, 15, 9, 30, 15, 0, time.Local)},
		{in: "2024-01-15T09:30:00Z", want: time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)},
		{in: "1704067200", want: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{in: "1704067200.5", want: time.Date(2024, 1, 1, 0, 0, 0, 500_000_000, time.UTC)},
		{in: "1704067200000", wantErr: true},
		{in: "1e5000000", wantErr: true},
		{in: "yesterday", wantErr: true},
		{in: "2024-13-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTime(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTime(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTime(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		set     bool
		wantErr bool
	}{
		{in: "", want: "0"},
		{in: "0.0125", want: "0.0125", set: true},
		{in: " 64_000 ", want: "64000", set: true},
		{in: "-1", want: "-1", set: true},
		{in: "1,5", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, set, err := parseAmount("amount", tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAmount(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if set != tt.set || !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("parseAmount(%q) = %v, %v, want %v, %v", tt.in, got, set, tt.want, tt.set)
			}
		})
	}
}

func TestParseSats(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "1000000", want: 1_000_000},
		{in: "1_000_000", want: 1_000_000},
		{in: "1,000,000", want: 1_000_000},
		{in: "-5", wantErr: true},
		{in: "0.5", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseSats(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSats(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseSats(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
