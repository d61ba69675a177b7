package sim

import (
	"context"
	"math/rand"
	"time"

	"finality-sim-go/internal/config"
	"finality-sim-go/internal/models"
	"finality-sim-go/internal/pricefeed"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Engine is the settlement loop. It drains the pending queue one order per
// tick, applies the balance change, and schedules the per-order finality
// resolution. Hard-finality orders always become permanent; soft-finality
// orders are reverted with the configured probability.
type Engine struct {
	logger *zap.Logger
	cfg    *config.Simulation
	store  *Store
	feed   pricefeed.Feed
	sched  Scheduler
	db     *gorm.DB // optional journal; nil disables persistence

	// rng draws the uniform value deciding soft finality outcomes.
	// Injectable so tests can force either branch.
	rng func() float64
}

// NewEngine creates a new settlement engine. db may be nil to disable the
// order journal.
func NewEngine(logger *zap.Logger, cfg *config.Simulation, store *Store, feed pricefeed.Feed, sched Scheduler, db *gorm.DB) *Engine {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Engine{
		logger: logger,
		cfg:    cfg,
		store:  store,
		feed:   feed,
		sched:  sched,
		db:     db,
		rng:    src.Float64,
	}
}

// Store exposes the engine's state store for read-only snapshots.
func (e *Engine) Store() *Store {
	return e.store
}

// PlaceOrder validates and enqueues a new order, stamping market orders with
// the feed's current reference price.
func (e *Engine) PlaceOrder(req OrderRequest) (models.Order, error) {
	ord, err := e.store.PlaceOrder(req, e.feed.CurrentPrice())
	if err != nil {
		e.logger.Warn("Order rejected",
			zap.String("side", string(req.Side)),
			zap.String("kind", string(req.Kind)),
			zap.Float64("quantity", req.Quantity),
			zap.Error(err))
		return models.Order{}, err
	}

	e.logger.Info("Order placed",
		zap.String("order_id", ord.ID),
		zap.String("side", string(ord.Side)),
		zap.String("kind", string(ord.Kind)),
		zap.Float64("price", ord.Price),
		zap.Float64("quantity", ord.Quantity),
		zap.String("finality", string(ord.FinalityMode)))
	return ord, nil
}

// CancelOrder cancels a still-pending order. Anything else is a silent no-op.
func (e *Engine) CancelOrder(id string) {
	ord, ok := e.store.CancelOrder(id)
	if !ok {
		e.logger.Debug("Cancellation ignored, order not pending", zap.String("order_id", id))
		return
	}

	e.logger.Info("Order cancelled", zap.String("order_id", ord.ID))
	e.journal(ord)
}

// Run drives the settlement loop until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	interval := time.Duration(e.cfg.TickInterval) * time.Second
	ticks, stop := e.sched.Tick(interval)
	defer stop()

	e.logger.Info("Starting settlement loop",
		zap.Duration("tick_interval", interval),
		zap.Float64("revert_chance", e.cfg.RevertChance))

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Stopping settlement loop...")
			return
		case <-ticks:
			e.settleNext()
		}
	}
}

// settleNext executes at most one pending order and schedules its resolution.
func (e *Engine) settleNext() {
	ord, ok := e.store.ExecuteNext()
	if !ok {
		return
	}

	l := e.logger.With(
		zap.String("order_id", ord.ID),
		zap.String("side", string(ord.Side)),
		zap.String("finality", string(ord.FinalityMode)),
	)
	l.Info("Order executed",
		zap.Float64("value", ord.Value()),
		zap.Float64("original_balance", ord.OriginalBalance),
		zap.Float64("settled_balance", ord.SettledBalance))

	delay := time.Duration(e.cfg.ResolveDelay) * time.Second
	e.sched.After(delay, func() {
		e.resolve(ord.ID, ord.FinalityMode)
	})
}

// resolve performs the delayed finality transition for one executed order.
// Multiple resolutions may run concurrently, each with its own random draw.
func (e *Engine) resolve(id string, mode models.FinalityMode) {
	revert := false
	if mode == models.FinalitySoft {
		revert = e.rng() < e.cfg.RevertChance
	}

	ord, ok := e.store.Resolve(id, revert)
	if !ok {
		// The order left history (or was never executed); nothing to do.
		e.logger.Debug("Resolution target not found, skipping", zap.String("order_id", id))
		return
	}

	l := e.logger.With(
		zap.String("order_id", ord.ID),
		zap.String("finality", string(ord.FinalityMode)),
	)
	if ord.Status == models.StatusReverted {
		l.Info("Order reverted, balance restored", zap.Float64("balance", ord.OriginalBalance))
	} else {
		l.Info("Order permanent", zap.Float64("balance", ord.SettledBalance))
	}

	e.journal(ord)
}

// journal persists a terminally-resolved order. Failures are logged and
// ignored; the in-memory store stays authoritative.
func (e *Engine) journal(ord models.Order) {
	if e.db == nil {
		return
	}

	record := models.SettledOrder{
		OrderID:         ord.ID,
		Side:            string(ord.Side),
		Kind:            string(ord.Kind),
		Price:           ord.Price,
		Quantity:        ord.Quantity,
		FinalityMode:    string(ord.FinalityMode),
		Outcome:         string(ord.Status),
		OriginalBalance: ord.OriginalBalance,
		SettledBalance:  ord.SettledBalance,
		PlacedAt:        ord.CreatedAt.Unix(),
		ResolvedAt:      time.Now().Unix(),
	}
	if err := e.db.Create(&record).Error; err != nil {
		e.logger.Error("Failed to journal resolved order",
			zap.String("order_id", ord.ID), zap.Error(err))
	}
}
