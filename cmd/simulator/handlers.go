package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"finality-sim-go/internal/models"
	"finality-sim-go/internal/pricefeed"
	"finality-sim-go/internal/sim"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log    *zap.Logger
	engine *sim.Engine
	feed   pricefeed.Feed
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, engine *sim.Engine, feed pricefeed.Feed) *APIHandler {
	return &APIHandler{log: log, engine: engine, feed: feed}
}

// placeOrderRequest is the JSON body for POST /api/orders.
type placeOrderRequest struct {
	Side         string  `json:"side"`
	Kind         string  `json:"kind"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	FinalityMode string  `json:"finality_mode"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StateHandler returns the read-only store snapshot: balance, pending queue,
// history and the latest status message.
func (h *APIHandler) StateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Store().State())
}

// PlaceOrderHandler creates a new pending order.
func (h *APIHandler) PlaceOrderHandler(w http.ResponseWriter, r *http.Request) {
	var body placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	req, err := buildOrderRequest(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ord, err := h.engine.PlaceOrder(req)
	switch {
	case errors.Is(err, sim.ErrInvalidQuantity), errors.Is(err, sim.ErrInvalidPrice):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, sim.ErrInsufficientBalance):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case err != nil:
		h.log.Error("Order placement failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	default:
		writeJSON(w, http.StatusCreated, ord)
	}
}

// CancelOrderHandler cancels a pending order. Cancellation of an order that
// is already settling (or unknown) is a silent no-op, so the response is 204
// either way.
func (h *APIHandler) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	h.engine.CancelOrder(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}

// StatsHandler returns the soft finality outcome statistics.
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Store().SoftStats())
}

// CandlesHandler returns the reference chart data.
func (h *APIHandler) CandlesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.feed.Candles())
}

// HealthHandler reports liveness.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

// buildOrderRequest maps and validates the wire-level request onto the
// intake contract. Kind defaults to market and finality to soft, matching
// the demo UI's initial selections.
func buildOrderRequest(body placeOrderRequest) (sim.OrderRequest, error) {
	req := sim.OrderRequest{
		Quantity:   body.Quantity,
		LimitPrice: body.Price,
	}

	switch models.Side(body.Side) {
	case models.SideBuy, models.SideSell:
		req.Side = models.Side(body.Side)
	default:
		return sim.OrderRequest{}, errors.New("side must be \"buy\" or \"sell\"")
	}

	switch models.Kind(body.Kind) {
	case models.KindMarket, models.KindLimit:
		req.Kind = models.Kind(body.Kind)
	case "":
		req.Kind = models.KindMarket
	default:
		return sim.OrderRequest{}, errors.New("kind must be \"market\" or \"limit\"")
	}

	switch models.FinalityMode(body.FinalityMode) {
	case models.FinalitySoft, models.FinalityHard:
		req.FinalityMode = models.FinalityMode(body.FinalityMode)
	case "":
		req.FinalityMode = models.FinalitySoft
	default:
		return sim.OrderRequest{}, errors.New("finality_mode must be \"soft\" or \"hard\"")
	}

	return req, nil
}
