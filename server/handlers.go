package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/etnz/dca"
	"github.com/etnz/dca/market"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// maxImportSize bounds import request bodies.
const maxImportSize = 10 << 20

// entryRequest is the body of entry creation and edition. A missing timestamp
// means now on creation and unchanged on edition.
type entryRequest struct {
	AmountBTC decimal.Decimal  `json:"amountBtc"`
	PriceUSD  decimal.Decimal  `json:"priceUsd"`
	Timestamp *decimal.Decimal `json:"timestamp,omitempty"`
}

func (r entryRequest) at() (time.Time, error) {
	if r.Timestamp == nil {
		return time.Time{}, nil
	}
	return dca.FromUnixSeconds(*r.Timestamp)
}

// quoteResponse is the JSON form of a market.Quote.
type quoteResponse struct {
	Currency string              `json:"currency"`
	Price    decimal.NullDecimal `json:"price"`
	At       *time.Time          `json:"at,omitempty"`
	Error    string              `json:"error,omitempty"`
}

func newQuoteResponse(q market.Quote) quoteResponse {
	r := quoteResponse{Currency: q.Currency, Price: q.Price}
	if !q.At.IsZero() {
		at := q.At.UTC()
		r.At = &at
	}
	if q.Err != nil {
		r.Error = q.Err.Error()
	}
	return r
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	var b bytes.Buffer
	if err := dca.EncodeJSON(&b, s.ledger.Snapshot()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Write(b.Bytes())
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, ok := s.ledger.Entry(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, dca.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid entry: %w", err))
		return
	}
	at, err := req.at()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	e, err := s.ledger.Add(r.Context(), req.AmountBTC, req.PriceUSD, at)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleEditEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid entry: %w", err))
		return
	}
	at, err := req.at()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	e, err := s.ledger.Edit(r.Context(), mux.Vars(r)["id"], req.AmountBTC, req.PriceUSD, at)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	n, err := s.ledger.DeleteMany(r.Context(), id)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("cannot delete %q: %w", id, dca.ErrNotFound))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// quote returns the tracker quote, refreshing it if it is stale.
func (s *Server) quote(r *http.Request) market.Quote {
	if _, err := s.tracker.Refresh(r.Context(), false); err != nil {
		log.Debug().Err(err).Msg("using the last known price")
	}
	return s.tracker.Quote()
}

// summary values the ledger at the tracker price.
func (s *Server) summary(r *http.Request) (dca.Summary, market.Quote, error) {
	goal, err := s.prefs.Goal(r.Context())
	if err != nil {
		return dca.Summary{}, market.Quote{}, err
	}
	q := s.quote(r)
	return dca.Summarize(s.ledger.Snapshot(), q.Price, goal), q, nil
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, q, err := s.summary(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		dca.Summary
		Quote quoteResponse `json:"quote"`
	}{sum, newQuoteResponse(q)})
}

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newQuoteResponse(s.tracker.Quote()))
}

func (s *Server) handleRefreshPrice(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	refreshed, err := s.tracker.Refresh(r.Context(), force)
	if err != nil {
		// the last known price is still served.
		log.Warn().Err(err).Msg("price refresh failed")
	}
	writeJSON(w, http.StatusOK, struct {
		Refreshed bool `json:"refreshed"`
		quoteResponse
	}{refreshed, newQuoteResponse(s.tracker.Quote())})
}

type goalResponse struct {
	Goal     int64   `json:"goal"`
	Progress float64 `json:"progress"`
}

func (s *Server) writeGoal(w http.ResponseWriter, r *http.Request, goal int64) {
	writeJSON(w, http.StatusOK, goalResponse{Goal: goal, Progress: dca.StackingProgress(s.ledger.Snapshot(), goal)})
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	goal, err := s.prefs.Goal(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeGoal(w, r, goal)
}

// handleSetGoal sets the goal ({"goal": n}) or adjusts it ({"delta": n}).
func (s *Server) handleSetGoal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal  *int64 `json:"goal"`
		Delta *int64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Goal == nil) == (req.Delta == nil) {
		writeError(w, http.StatusBadRequest, errors.New("expected exactly one of goal or delta"))
		return
	}
	var goal int64
	var err error
	if req.Goal != nil {
		goal, err = s.prefs.SetGoal(r.Context(), *req.Goal)
	} else {
		goal, err = s.prefs.AdjustGoal(r.Context(), *req.Delta)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeGoal(w, r, goal)
}

// handleImport imports the request body. Query mode=merge keeps existing entries,
// the default replaces them.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	mode := dca.ImportReplace
	switch m := r.URL.Query().Get("mode"); m {
	case "", "replace":
	case "merge":
		mode = dca.ImportMerge
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown import mode %q", m))
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	res, err := s.ledger.Import(r.Context(), data, mode)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Format  string `json:"format"`
		Decoded int    `json:"decoded"`
		Adopted int    `json:"adopted"`
	}{res.Format.String(), res.Decoded, res.Adopted})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	f := dca.FormatJSON
	if q := r.URL.Query().Get("format"); q != "" {
		var err error
		if f, err = dca.ParseFormat(q); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	var b bytes.Buffer
	if err := dca.Export(&b, s.ledger.Snapshot(), f); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if f == dca.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "dca"+f.Extension()))
	w.Write(b.Bytes())
}

// writeLedgerError maps ledger errors to HTTP status codes.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dca.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, dca.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, dca.ErrUnrecognizedFormat):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", code).Msg("request failed")
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("cannot write response")
	}
}
