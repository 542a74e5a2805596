package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/watchbuyer/watchbuyer/pkg/evaluate"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace/chrono24"
	"github.com/watchbuyer/watchbuyer/pkg/marketplace/ebay"
	"github.com/watchbuyer/watchbuyer/pkg/storage"
)

// priceResponse is a single marketplace answer. A zero LowestCents comes with
// either Message (nothing qualified) or Error (the lookup failed).
type priceResponse struct {
	marketplace.Result
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func emptyPrice(source string) priceResponse {
	return priceResponse{Result: marketplace.Result{Source: source, Currency: "USD"}}
}

type chrono24Request struct {
	Chrono24URL  string `json:"chrono24Url"`
	HTMLFallback string `json:"htmlFallback"`
}

type ebayRequest struct {
	Brand           string   `json:"brand"`
	Reference       string   `json:"reference"`
	Country         string   `json:"country"`
	RequiredPhrases []string `json:"requiredPhrases"`
}

type decisionRequest struct {
	MSRPCents        int64               `json:"msrpCents"`
	BrandDiscountBps int64               `json:"brandDiscountBps"`
	EBay             *marketplace.Result `json:"ebay"`
	Chrono24         *marketplace.Result `json:"chrono24"`
}

type evaluateRequest struct {
	Brand            string `json:"brand"`
	Reference        string `json:"reference"`
	Country          string `json:"country"`
	MSRPCents        *int64 `json:"msrpCents"`
	BrandDiscountBps *int64 `json:"brandDiscountBps"`
	Chrono24URL      string `json:"chrono24Url"`
	HTMLFallback     string `json:"htmlFallback"`
}

type evaluateResponse struct {
	*evaluate.Decision
	Recorded *storage.Evaluation `json:"recorded,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChrono24Price(w http.ResponseWriter, r *http.Request) {
	var req chrono24Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := emptyPrice(chrono24.Name)
	if strings.TrimSpace(req.Chrono24URL) == "" && req.HTMLFallback == "" {
		resp.Error = "Provide chrono24Url or htmlFallback"
		writeJSON(w, http.StatusOK, resp)
		return
	}

	res, err := s.chrono24.Lowest(r.Context(), marketplace.Query{
		PageURL:  req.Chrono24URL,
		PageHTML: req.HTMLFallback,
	})
	s.metrics.observeLookup(chrono24.Name, res != nil, err)
	switch {
	case err != nil:
		s.log.Warnf("chrono24 lookup failed: %v", err)
		resp.Error = err.Error()
	case res == nil:
		resp.Message = "No US + Box + Papers listings found"
	default:
		resp.Result = *res
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEBayPrice(w http.ResponseWriter, r *http.Request) {
	var req ebayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := emptyPrice(ebay.Name)
	if s.ebay == nil {
		resp.Error = ebay.ErrMissingCredentials.Error()
		writeJSON(w, http.StatusOK, resp)
		return
	}

	q := marketplace.Query{
		Brand:           req.Brand,
		Reference:       req.Reference,
		Country:         req.Country,
		RequiredPhrases: req.RequiredPhrases,
	}
	var (
		res *marketplace.Result
		err error
	)
	if err = s.ebay.Authenticate(r.Context(), s.ebayAuth); err == nil {
		res, err = s.ebay.Lowest(r.Context(), q)
	}
	s.metrics.observeLookup(ebay.Name, res != nil, err)
	switch {
	case err != nil:
		s.log.Warnf("ebay lookup failed for %s: %v", q.Keywords(), err)
		resp.Error = err.Error()
	case res == nil:
		resp.Message = "No eBay listings matched"
	default:
		resp.Result = *res
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, evaluate.Decide(req.MSRPCents, req.BrandDiscountBps, req.EBay, req.Chrono24))
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Brand = strings.TrimSpace(req.Brand)
	req.Reference = strings.TrimSpace(req.Reference)
	if req.Brand == "" || req.Reference == "" {
		writeError(w, http.StatusBadRequest, "brand and reference are required")
		return
	}

	msrp, discount, err := s.resolveTargets(r, req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrNotFound) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	q := marketplace.Query{
		Brand:     req.Brand,
		Reference: req.Reference,
		Country:   req.Country,
		PageURL:   req.Chrono24URL,
		PageHTML:  req.HTMLFallback,
	}
	d := evaluate.Run(r.Context(), evaluate.Config{
		Sources:          s.sources(),
		Auth:             s.ebayAuth,
		Query:            q,
		MSRPCents:        msrp,
		BrandDiscountBps: discount,
		Log:              s.log,
		OnSourceDone: func(source string, res *marketplace.Result, err error) {
			s.metrics.observeLookup(source, res != nil, err)
		},
	})

	resp := evaluateResponse{Decision: d}
	if s.db != nil {
		rec, err := s.db.RecordEvaluation(r.Context(), d.Evaluation(q))
		if err != nil {
			s.log.Errorf("Recording evaluation for %s: %v", q.Keywords(), err)
		} else {
			resp.Recorded = rec
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveTargets takes MSRP and discount from the request, falling back to
// the stored watch for any value left out.
func (s *Server) resolveTargets(r *http.Request, req evaluateRequest) (int64, int64, error) {
	if req.MSRPCents != nil && req.BrandDiscountBps != nil {
		return *req.MSRPCents, *req.BrandDiscountBps, nil
	}
	if s.db == nil {
		return 0, 0, fmt.Errorf("msrpCents and brandDiscountBps are required: %w", storage.ErrNotFound)
	}
	watch, err := s.db.GetWatch(r.Context(), req.Brand, req.Reference)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return 0, 0, fmt.Errorf("no stored watch for %s %s: %w", req.Brand, req.Reference, err)
		}
		return 0, 0, err
	}
	msrp, discount := watch.MSRPCents, watch.BrandDiscountBps
	if req.MSRPCents != nil {
		msrp = *req.MSRPCents
	}
	if req.BrandDiscountBps != nil {
		discount = *req.BrandDiscountBps
	}
	return msrp, discount, nil
}

func (s *Server) sources() []marketplace.Source {
	var out []marketplace.Source
	if s.ebay != nil {
		out = append(out, s.ebay)
	}
	return append(out, s.chrono24)
}

func (s *Server) handleListWatches(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	watches, err := s.db.ListWatches(r.Context(), r.URL.Query().Get("brand"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if watches == nil {
		watches = []storage.Watch{}
	}
	writeJSON(w, http.StatusOK, watches)
}

func (s *Server) handleUpsertWatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	var watch storage.Watch
	if err := decodeJSON(w, r, &watch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stored, err := s.db.UpsertWatch(r.Context(), watch)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidWatch) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleGetWatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id, ok := watchID(w, r)
	if !ok {
		return
	}
	watch, err := s.db.GetWatchByID(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, watch)
}

func (s *Server) handleDeleteWatch(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	id, ok := watchID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteWatch(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	opts := storage.HistoryOptions{
		Brand:     r.URL.Query().Get("brand"),
		Reference: r.URL.Query().Get("reference"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = limit
	}
	evals, err := s.db.ListRecentEvaluations(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if evals == nil {
		evals = []storage.Evaluation{}
	}
	writeJSON(w, http.StatusOK, evals)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	stats, err := s.db.GetStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if stats == nil {
		stats = []storage.BrandStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSeed(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w) {
		return
	}
	watch, err := s.db.SeedDefaults(r.Context())
	if err != nil {
		s.log.Errorf("Seeding watches: %v", err)
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "result": watch})
}

func (s *Server) requireDB(w http.ResponseWriter) bool {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "no database configured")
		return false
	}
	return true
}

func watchID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid watch id")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
