package sim

import (
	"fmt"
	"sync"

	"finality-sim-go/internal/models"
)

// HistoryCap bounds the recent-order history kept for display.
const HistoryCap = 5

// Store owns all mutable simulation state: the account balance, the pending
// order queue, the bounded recent history and the latest status message.
// The balance is only ever touched by the settlement methods (ExecuteNext,
// Resolve); intake and cancellation never move money.
//
// The original demo ran on a single UI thread. Here order placement and
// cancellation arrive from HTTP handler goroutines while settlement runs on
// the engine goroutine, so a single mutex guards everything.
type Store struct {
	mu         sync.Mutex
	balance    float64
	pending    []*models.Order
	history    []*models.Order // most recent first, len <= HistoryCap
	message    string
	processing map[string]struct{}

	// All-time soft finality tally. History is capped, so rates computed
	// only over the visible window would forget old outcomes.
	softPermanent int
	softReverted  int
}

// NewStore creates a store with the given starting balance.
func NewStore(initialBalance float64) *Store {
	return &Store{
		balance:    initialBalance,
		processing: make(map[string]struct{}),
	}
}

// State is a read-only snapshot of the store for the presentation layer.
type State struct {
	Balance float64        `json:"balance"`
	Pending []models.Order `json:"pending_orders"`
	History []models.Order `json:"history"`
	Message string         `json:"latest_message"`
}

// State returns a deep copy of the current store state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]models.Order, len(s.pending))
	for i, o := range s.pending {
		pending[i] = *o
	}
	history := make([]models.Order, len(s.history))
	for i, o := range s.history {
		history[i] = *o
	}

	return State{
		Balance: s.balance,
		Pending: pending,
		History: history,
		Message: s.message,
	}
}

// Balance returns the current account balance.
func (s *Store) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// Message returns the latest transient status message.
func (s *Store) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

// ExecuteNext dequeues the oldest pending order not already in flight,
// applies the balance change and snapshots the balances around it.
// It returns a copy of the now-executed order, or ok=false when the queue
// holds nothing to process.
func (s *Store) ExecuteNext() (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, o := range s.pending {
		if _, busy := s.processing[o.ID]; !busy {
			idx = i
			break
		}
	}
	if idx == -1 {
		return models.Order{}, false
	}

	ord := s.pending[idx]
	s.processing[ord.ID] = struct{}{}

	value := ord.Value()
	original := s.balance
	settled := original + value
	if ord.Side == models.SideBuy {
		settled = original - value
	}

	s.balance = settled
	ord.Status = models.StatusExecuted
	ord.OriginalBalance = original
	ord.SettledBalance = settled

	s.pending = append(s.pending[:idx], s.pending[idx+1:]...)
	s.pushHistoryLocked(ord)
	s.message = fmt.Sprintf("Order executed successfully (%s finality) - Balance updated to $%.2f",
		ord.FinalityMode, settled)

	// The marker only guards re-selection while the order is queued; once it
	// left the queue there is no path back in, so it can go immediately.
	delete(s.processing, ord.ID)

	return *ord, true
}

// Resolve finalizes an executed order. With revert the balance is restored to
// the snapshot taken at execution, otherwise the order becomes permanent and
// the balance stands. Resolving an id that is not an executed order in
// history is a no-op (ok=false).
func (s *Store) Resolve(id string, revert bool) (models.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ord *models.Order
	for _, o := range s.history {
		if o.ID == id {
			ord = o
			break
		}
	}
	if ord == nil || ord.Status != models.StatusExecuted {
		return models.Order{}, false
	}

	if revert {
		s.balance = ord.OriginalBalance
		ord.Status = models.StatusReverted
		s.message = fmt.Sprintf("Soft finality: Transaction reverted due to chain reorganization - Balance restored to $%.2f",
			ord.OriginalBalance)
	} else {
		ord.Status = models.StatusPermanent
		if ord.FinalityMode == models.FinalitySoft {
			s.message = fmt.Sprintf("Soft finality: Transaction confirmed permanently after network consensus - Final balance: $%.2f",
				ord.SettledBalance)
		} else {
			s.message = fmt.Sprintf("Hard finality: Transaction confirmed with cryptographic proof - Final balance: $%.2f",
				ord.SettledBalance)
		}
	}

	if ord.FinalityMode == models.FinalitySoft {
		if revert {
			s.softReverted++
		} else {
			s.softPermanent++
		}
	}

	return *ord, true
}

// pushHistoryLocked prepends the order to history unless its id is already
// present, truncating to HistoryCap. Entries already in history are updated
// in place through their shared pointer, never re-inserted.
func (s *Store) pushHistoryLocked(ord *models.Order) {
	for _, o := range s.history {
		if o.ID == ord.ID {
			return
		}
	}

	s.history = append([]*models.Order{ord}, s.history...)
	if len(s.history) > HistoryCap {
		s.history = s.history[:HistoryCap]
	}
}
