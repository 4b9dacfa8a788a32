package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/etnz/dca"
	"github.com/etnz/dca/coingecko"
	"github.com/etnz/dca/market"
	"github.com/etnz/dca/store"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

type fakeSource struct {
	mu    sync.Mutex
	price decimal.Decimal
	err   error
}

func (f *fakeSource) Spot(ctx context.Context, currency string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.price, f.err
}

func (f *fakeSource) History(ctx context.Context, currency string) ([]coingecko.Point, error) {
	return nil, errors.New("no history")
}

// newTestServer returns a server over an empty memory ledger priced by src.
func newTestServer(t *testing.T, src market.Source) (*Server, *dca.Ledger) {
	t.Helper()
	st := store.NewMemory()
	ledger := dca.NewLedger(st)
	reg := prometheus.NewRegistry()
	tracker := market.NewTracker(src, "usd", market.WithMetrics(market.NewMetrics(reg)))
	s := New(ledger, dca.NewPreferences(st), tracker, reg)
	t.Cleanup(s.Close)
	return s, ledger
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decode decodes a JSON response keeping numbers exact.
func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	dec := json.NewDecoder(rec.Body)
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		t.Fatalf("cannot decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

// number checks that the JSON value v is the decimal want.
func number(t *testing.T, name string, v any, want string) {
	t.Helper()
	n, ok := v.(json.Number)
	if !ok {
		t.Errorf("%s = %v (%T), want %s", name, v, v, want)
		return
	}
	if got := decimal.RequireFromString(n.String()); !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %v, want %s", name, got, want)
	}
}

func TestEntriesAPI(t *testing.T) {
	s, ledger := newTestServer(t, &fakeSource{})

	rec := do(t, s, http.MethodPost, "/api/entries", `{"amountBtc":0.5,"priceUsd":40000,"timestamp":1704067200}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/entries = %d %s", rec.Code, rec.Body)
	}
	created := decode(t, rec)
	id, _ := created["id"].(string)
	number(t, "timestamp", created["timestamp"], "1704067200")
	if ledger.Len() != 1 {
		t.Fatalf("ledger has %d entries, want 1", ledger.Len())
	}

	rec = do(t, s, http.MethodGet, "/api/entries/"+id, "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET entry = %d", rec.Code)
	}
	number(t, "amountBtc", decode(t, rec)["amountBtc"], "0.5")

	rec = do(t, s, http.MethodPut, "/api/entries/"+id, `{"amountBtc":0.25,"priceUsd":42000}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT entry = %d %s", rec.Code, rec.Body)
	}
	edited := decode(t, rec)
	number(t, "amountBtc", edited["amountBtc"], "0.25")
	number(t, "timestamp", edited["timestamp"], "1704067200")

	rec = do(t, s, http.MethodGet, "/api/entries", "")
	entries, err := dca.DecodeJSON(rec.Body)
	if err != nil || len(entries) != 1 || entries[0].ID != id {
		t.Errorf("GET /api/entries = %v, %v", entries, err)
	}

	if rec := do(t, s, http.MethodDelete, "/api/entries/"+id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE entry = %d", rec.Code)
	}
	if ledger.Len() != 0 {
		t.Errorf("ledger has %d entries after delete, want 0", ledger.Len())
	}
}

func TestEntriesAPI_Errors(t *testing.T) {
	s, ledger := newTestServer(t, &fakeSource{})
	tests := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodPost, "/api/entries", `{"amountBtc":0,"priceUsd":40000}`, http.StatusBadRequest},
		{http.MethodPost, "/api/entries", `{"amountBtc":1,"priceUsd":-1}`, http.StatusBadRequest},
		{http.MethodPost, "/api/entries", `not json`, http.StatusBadRequest},
		{http.MethodPost, "/api/entries", `{"amountBtc":1e5000000,"priceUsd":40000}`, http.StatusBadRequest},
		{http.MethodPost, "/api/entries", `{"amountBtc":1,"priceUsd":40000,"timestamp":1700000000000}`, http.StatusBadRequest},
		{http.MethodGet, "/api/entries/missing", "", http.StatusNotFound},
		{http.MethodPut, "/api/entries/missing", `{"amountBtc":1,"priceUsd":1}`, http.StatusNotFound},
		{http.MethodDelete, "/api/entries/missing", "", http.StatusNotFound},
		{http.MethodGet, "/nowhere", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := do(t, s, tt.method, tt.target, tt.body)
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.target, rec.Code, tt.want)
		}
		if _, ok := decode(t, rec)["error"]; !ok {
			t.Errorf("%s %s has no error message", tt.method, tt.target)
		}
	}
	if ledger.Len() != 0 {
		t.Errorf("ledger has %d entries, want 0", ledger.Len())
	}
}

func TestSummaryAPI(t *testing.T) {
	s, ledger := newTestServer(t, &fakeSource{price: decimal.NewFromInt(50000)})
	ledger.Add(context.Background(), decimal.RequireFromString("0.5"), decimal.NewFromInt(40000), time.Time{})

	rec := do(t, s, http.MethodGet, "/api/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/summary = %d", rec.Code)
	}
	m := decode(t, rec)
	number(t, "totalBtc", m["totalBtc"], "0.5")
	number(t, "totalCostUsd", m["totalCostUsd"], "20000")
	number(t, "currentValueUsd", m["currentValueUsd"], "25000")
	number(t, "pnlUsd", m["pnlUsd"], "5000")
	number(t, "pnlPercent", m["pnlPercent"], "25")
	number(t, "sats", m["sats"], "50000000")
}

func TestSummaryAPI_NoPrice(t *testing.T) {
	s, ledger := newTestServer(t, &fakeSource{err: errors.New("offline")})
	ledger.Add(context.Background(), decimal.NewFromInt(1), decimal.NewFromInt(60000), time.Time{})

	m := decode(t, do(t, s, http.MethodGet, "/api/summary", ""))
	for _, k := range []string{"priceUsd", "currentValueUsd", "pnlUsd", "pnlPercent"} {
		if v, ok := m[k]; !ok || v != nil {
			t.Errorf("%s = %v, want null", k, v)
		}
	}
	quote, _ := m["quote"].(map[string]any)
	if quote["error"] != "offline" {
		t.Errorf("quote = %v, want error offline", quote)
	}
}

func TestPriceAPI(t *testing.T) {
	src := &fakeSource{price: decimal.NewFromInt(50000)}
	s, _ := newTestServer(t, src)

	if m := decode(t, do(t, s, http.MethodGet, "/api/price", "")); m["price"] != nil {
		t.Errorf("price before refresh = %v, want null", m["price"])
	}
	m := decode(t, do(t, s, http.MethodPost, "/api/price/refresh", ""))
	if m["refreshed"] != true {
		t.Errorf("refreshed = %v, want true", m["refreshed"])
	}
	number(t, "price", m["price"], "50000")

	m = decode(t, do(t, s, http.MethodPost, "/api/price/refresh", ""))
	if m["refreshed"] != false {
		t.Errorf("second refresh = %v, want throttled", m["refreshed"])
	}
	m = decode(t, do(t, s, http.MethodPost, "/api/price/refresh?force=true", ""))
	if m["refreshed"] != true {
		t.Errorf("forced refresh = %v, want true", m["refreshed"])
	}
}

func TestGoalAPI(t *testing.T) {
	s, _ := newTestServer(t, &fakeSource{})

	number(t, "goal", decode(t, do(t, s, http.MethodGet, "/api/goal", ""))["goal"], "1000000")
	number(t, "goal", decode(t, do(t, s, http.MethodPut, "/api/goal", `{"goal":5000000}`))["goal"], "5000000")
	number(t, "goal", decode(t, do(t, s, http.MethodPut, "/api/goal", `{"delta":-1000000}`))["goal"], "4000000")
	number(t, "goal", decode(t, do(t, s, http.MethodPut, "/api/goal", `{"goal":1}`))["goal"], "100000")

	for _, body := range []string{`{}`, `{"goal":1,"delta":1}`, `nope`} {
		if rec := do(t, s, http.MethodPut, "/api/goal", body); rec.Code != http.StatusBadRequest {
			t.Errorf("PUT /api/goal %s = %d, want 400", body, rec.Code)
		}
	}
}

func TestImportExportAPI(t *testing.T) {
	s, ledger := newTestServer(t, &fakeSource{})
	csv := "id,amount_btc,price_usd,timestamp\n" +
		"0f8fad5b-d9cb-469f-a165-70867728950e,0.10000000,30000.00,1704067200\n" +
		"bad,row\n"

	rec := do(t, s, http.MethodPost, "/api/import", csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/import = %d %s", rec.Code, rec.Body)
	}
	m := decode(t, rec)
	if m["format"] != "csv" {
		t.Errorf("format = %v, want csv", m["format"])
	}
	number(t, "adopted", m["adopted"], "1")
	if ledger.Len() != 1 {
		t.Errorf("ledger has %d entries, want 1", ledger.Len())
	}

	rec = do(t, s, http.MethodGet, "/api/export?format=csv", "")
	if got := rec.Body.String(); got != csv[:strings.Index(csv, "bad")] {
		t.Errorf("export = %q", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}

	if rec := do(t, s, http.MethodPost, "/api/import?mode=merge", "\x00\x01"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("import of garbage = %d, want 422", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/import?mode=append", csv); rec.Code != http.StatusBadRequest {
		t.Errorf("import with unknown mode = %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/export?format=xml", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("export as xml = %d, want 400", rec.Code)
	}
	if ledger.Len() != 1 {
		t.Errorf("ledger has %d entries after failed imports, want 1", ledger.Len())
	}
}

func TestSummaryPage(t *testing.T) {
	s, ledger := newTestServer(t, &fakeSource{price: decimal.NewFromInt(50000)})
	ledger.Add(context.Background(), decimal.RequireFromString("0.5"), decimal.NewFromInt(40000), time.Time{})

	rec := do(t, s, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"<h1>Stack Summary</h1>", "<table>", "$25,000.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("page does not contain %q:\n%s", want, body)
		}
	}
}

func TestMetrics(t *testing.T) {
	s, _ := newTestServer(t, &fakeSource{price: decimal.NewFromInt(50000)})
	do(t, s, http.MethodPost, "/api/price/refresh", "")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`stacker_price_fetches_total{kind="spot",result="ok"} 1`,
		`stacker_btc_price{currency="usd"} 50000`,
	} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("metrics do not contain %q", want)
		}
	}
}

func TestPriceStream(t *testing.T) {
	s, _ := newTestServer(t, &fakeSource{price: decimal.NewFromInt(50000)})
	ts := httptest.NewServer(s)
	defer ts.Close()

	if s.Tracking() {
		t.Fatal("tracking before any viewer")
	}
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/price"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var q struct {
			Currency string              `json:"currency"`
			Price    decimal.NullDecimal `json:"price"`
		}
		if err := conn.ReadJSON(&q); err != nil {
			t.Fatalf("ReadJSON() = %v", err)
		}
		if q.Price.Valid {
			if !q.Price.Decimal.Equal(decimal.NewFromInt(50000)) || q.Currency != "usd" {
				t.Errorf("quote = %+v", q)
			}
			break
		}
	}
	if !s.Tracking() || s.Viewers() != 1 {
		t.Errorf("Tracking() = %v, Viewers() = %d, want true, 1", s.Tracking(), s.Viewers())
	}

	conn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for s.Viewers() != 0 || s.Tracking() {
		if time.Now().After(deadline) {
			t.Fatalf("Tracking() = %v, Viewers() = %d after the viewer left", s.Tracking(), s.Viewers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
