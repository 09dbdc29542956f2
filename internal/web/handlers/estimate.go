package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/rate-estimator/internal/estimator"
	"github.com/rate-estimator/internal/pricing"
	"github.com/rate-estimator/internal/rates"
)

// Pricer is the estimation surface the handlers call.
type Pricer interface {
	EstimateTieredRate(ctx context.Context, distance, volume float64, role, operation string) (rates.Quote, error)
	EstimateRegressionCost(ctx context.Context, strategy pricing.Strategy, req estimator.Request) pricing.CostResult
	LookupCachedRate(ctx context.Context, origin, destination, equipment string) (pricing.Price, bool, error)
	Quote(ctx context.Context, req pricing.QuoteRequest) pricing.QuoteResult
	EstimateByLocation(ctx context.Context, req pricing.LocationRequest) pricing.CostResult
}

// EstimateHandler serves the synchronous estimation endpoints.
type EstimateHandler struct {
	Pricer Pricer
	Log    *zap.Logger
}

// TieredRequest is the body of POST /api/estimate/tiered.
type TieredRequest struct {
	Distance  float64 `json:"distance"`
	Volume    float64 `json:"volume"`
	Role      string  `json:"role"`
	Operation string  `json:"operation"`
}

// RegressionRequest is the body of POST /api/estimate/regression.
type RegressionRequest struct {
	Strategy string `json:"strategy,omitempty"`
	estimator.Request
}

// Tiered prices a domestic move from the tiered table. An unmatched move is
// a 200 with rateType UNKNOWN.
func (h *EstimateHandler) Tiered(w http.ResponseWriter, r *http.Request) {
	var req TieredRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Role == "" || req.Operation == "" {
		writeError(w, http.StatusBadRequest, "role and operation are required")
		return
	}

	q, err := h.Pricer.EstimateTieredRate(r.Context(), req.Distance, req.Volume, req.Role, req.Operation)
	if err != nil {
		h.unavailable(w, "tiered estimate", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Regression predicts a freight cost. Unpriceable requests are answered
// with 422 and the reason in the body.
func (h *EstimateHandler) Regression(w http.ResponseWriter, r *http.Request) {
	var req RegressionRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	strategy, err := pricing.ParseStrategy(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := h.Pricer.EstimateRegressionCost(r.Context(), strategy, req.Request)
	status := http.StatusOK
	if !res.Priced() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

// Cached returns the observed rate for origin, destination and equipment
// given as query parameters.
func (h *EstimateHandler) Cached(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	origin, destination, equipment := q.Get("origin"), q.Get("destination"), q.Get("equipment")
	if origin == "" || destination == "" || equipment == "" {
		writeError(w, http.StatusBadRequest, "origin, destination and equipment are required")
		return
	}

	p, ok, err := h.Pricer.LookupCachedRate(r.Context(), origin, destination, equipment)
	if err != nil {
		h.unavailable(w, "cached rate", err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "No observed rate for this route and equipment")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Quote prices the selected services of a move. Per-service failures are
// reported in the body, so the status is 200 unless the body is malformed.
func (h *EstimateHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req pricing.QuoteRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, h.Pricer.Quote(r.Context(), req))
}

// Location prices a move between two addresses.
func (h *EstimateHandler) Location(w http.ResponseWriter, r *http.Request) {
	var req pricing.LocationRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res := h.Pricer.EstimateByLocation(r.Context(), req)
	status := http.StatusOK
	if !res.Priced() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, res)
}

func (h *EstimateHandler) unavailable(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, estimator.ErrNoModel) {
		writeError(w, http.StatusServiceUnavailable, "Rates have not been trained yet")
		return
	}
	h.Log.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "Internal error")
}
