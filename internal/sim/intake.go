package sim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"finality-sim-go/internal/models"
	"github.com/google/uuid"
)

// Validation errors reported by PlaceOrder. All are detected synchronously;
// a failed placement leaves no partial state behind.
var (
	ErrInvalidQuantity     = errors.New("quantity must be a positive number")
	ErrInvalidPrice        = errors.New("limit price must be a positive number")
	ErrInsufficientBalance = errors.New("insufficient balance for this order")
)

// OrderRequest carries the user intent to place an order.
type OrderRequest struct {
	Side         models.Side
	Kind         models.Kind
	Quantity     float64
	LimitPrice   float64
	FinalityMode models.FinalityMode
}

// PlaceOrder validates the request and enqueues a pending order. Market
// orders are stamped with the given reference price; limit orders use the
// requested limit price. The balance is not touched here - debits and
// credits happen in the settlement loop.
func (s *Store) PlaceOrder(req OrderRequest, referencePrice float64) (models.Order, error) {
	if math.IsNaN(req.Quantity) || req.Quantity <= 0 {
		return models.Order{}, fmt.Errorf("invalid quantity %f: %w", req.Quantity, ErrInvalidQuantity)
	}

	price := referencePrice
	if req.Kind == models.KindLimit {
		if math.IsNaN(req.LimitPrice) || req.LimitPrice <= 0 {
			return models.Order{}, fmt.Errorf("invalid limit price %f: %w", req.LimitPrice, ErrInvalidPrice)
		}
		price = req.LimitPrice
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Side == models.SideBuy && req.Quantity*price > s.balance {
		s.message = "Insufficient balance for this order"
		return models.Order{}, fmt.Errorf("order value %.2f exceeds balance %.2f: %w",
			req.Quantity*price, s.balance, ErrInsufficientBalance)
	}

	ord := &models.Order{
		ID:           uuid.NewString(),
		Side:         req.Side,
		Kind:         req.Kind,
		Price:        price,
		Quantity:     req.Quantity,
		FinalityMode: req.FinalityMode,
		Status:       models.StatusPending,
		CreatedAt:    time.Now(),
	}
	s.pending = append(s.pending, ord)

	return *ord, nil
}

// CancelOrder removes a still-pending order from the queue and retires it as
// cancelled. Orders already dequeued by the settlement loop (or unknown ids)
// are left alone and ok=false is returned; there is no balance effect either
// way, since a pending order was never debited or credited.
func (s *Store) CancelOrder(id string) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, o := range s.pending {
		if o.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return models.Order{}, false
	}

	ord := s.pending[idx]
	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
	ord.Status = models.StatusCancelled
	s.pushHistoryLocked(ord)
	s.message = "Order successfully cancelled by user"

	return *ord, true
}
