package sim

import (
	"context"
	"sync"
	"testing"
	"time"

	"finality-sim-go/internal/config"
	"finality-sim-go/internal/models"
	"finality-sim-go/internal/pricefeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fixedFeed serves a constant reference price.
type fixedFeed struct {
	price float64
}

func (f fixedFeed) CurrentPrice() float64       { return f.price }
func (f fixedFeed) Candles() []pricefeed.Candle { return nil }

// virtualScheduler records one-shot callbacks instead of arming timers, so
// tests decide exactly when resolutions fire.
type virtualScheduler struct {
	mu    sync.Mutex
	ticks chan time.Time
	due   []func()
}

func newVirtualScheduler() *virtualScheduler {
	return &virtualScheduler{ticks: make(chan time.Time)}
}

func (s *virtualScheduler) Tick(period time.Duration) (<-chan time.Time, func()) {
	return s.ticks, func() {}
}

func (s *virtualScheduler) After(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.due = append(s.due, fn)
}

// fire runs every queued callback and clears the queue.
func (s *virtualScheduler) fire() {
	s.mu.Lock()
	pending := s.due
	s.due = nil
	s.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

func (s *virtualScheduler) queued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.due)
}

// setupEngine builds an engine on a fresh store with a virtual scheduler and
// a fixed reference price of 85.42.
func setupEngine(t *testing.T, db *gorm.DB) (*Engine, *Store, *virtualScheduler) {
	t.Helper()

	cfg := &config.Simulation{
		InitialBalance: 50000,
		ReferencePrice: refPrice,
		TickInterval:   3,
		ResolveDelay:   2,
		RevertChance:   0.5,
	}
	store := NewStore(cfg.InitialBalance)
	sched := newVirtualScheduler()
	engine := NewEngine(zap.NewNop(), cfg, store, fixedFeed{price: refPrice}, sched, db)

	return engine, store, sched
}

func TestEngine_HardFinalityScenario(t *testing.T) {
	engine, store, sched := setupEngine(t, nil)
	// Force the random draw to the revert side to prove hard mode ignores it.
	engine.rng = func() float64 { return 0.0 }

	ord, err := engine.PlaceOrder(marketBuy(10, models.FinalityHard))
	require.NoError(t, err)
	assert.InDelta(t, 854.20, ord.Value(), 1e-9)

	// First tick: executed, balance debited.
	engine.settleNext()
	assert.InDelta(t, 49145.80, store.Balance(), 1e-9)
	assert.Equal(t, models.StatusExecuted, store.State().History[0].Status)

	// Resolution delay elapses: permanent, balance unchanged.
	sched.fire()
	assert.Equal(t, models.StatusPermanent, store.State().History[0].Status)
	assert.InDelta(t, 49145.80, store.Balance(), 1e-9)
}

func TestEngine_SoftFinalityRevert(t *testing.T) {
	engine, store, sched := setupEngine(t, nil)
	engine.rng = func() float64 { return 0.0 } // below revert chance -> revert

	_, err := engine.PlaceOrder(marketBuy(10, models.FinalitySoft))
	require.NoError(t, err)

	engine.settleNext()
	sched.fire()

	assert.Equal(t, models.StatusReverted, store.State().History[0].Status)
	assert.InDelta(t, 50000.0, store.Balance(), 1e-9, "revert must restore the original balance exactly")
}

func TestEngine_SoftFinalityPermanent(t *testing.T) {
	engine, store, sched := setupEngine(t, nil)
	engine.rng = func() float64 { return 0.99 } // above revert chance -> permanent

	_, err := engine.PlaceOrder(marketBuy(10, models.FinalitySoft))
	require.NoError(t, err)

	engine.settleNext()
	sched.fire()

	assert.Equal(t, models.StatusPermanent, store.State().History[0].Status)
	assert.InDelta(t, 49145.80, store.Balance(), 1e-9)
}

func TestEngine_OneOrderPerTick(t *testing.T) {
	engine, store, _ := setupEngine(t, nil)

	for i := 0; i < 3; i++ {
		_, err := engine.PlaceOrder(marketBuy(1, models.FinalityHard))
		require.NoError(t, err)
	}

	engine.settleNext()

	assert.Len(t, store.State().Pending, 2, "exactly one order is dequeued per tick")
	assert.Len(t, store.State().History, 1)
}

func TestEngine_ConcurrentInFlightResolutions(t *testing.T) {
	engine, store, sched := setupEngine(t, nil)
	engine.rng = func() float64 { return 0.99 }

	_, err := engine.PlaceOrder(marketBuy(1, models.FinalitySoft))
	require.NoError(t, err)
	_, err = engine.PlaceOrder(marketBuy(2, models.FinalitySoft))
	require.NoError(t, err)

	// Two ticks pass before either resolution delay elapses.
	engine.settleNext()
	engine.settleNext()
	assert.Equal(t, 2, sched.queued(), "both orders sit in flight with independent resolutions")

	sched.fire()

	for _, h := range store.State().History {
		assert.Equal(t, models.StatusPermanent, h.Status)
	}
}

func TestEngine_ResolutionAfterHistoryTruncationIsNoOp(t *testing.T) {
	engine, store, sched := setupEngine(t, nil)
	engine.rng = func() float64 { return 0.0 }

	_, err := engine.PlaceOrder(marketBuy(10, models.FinalitySoft))
	require.NoError(t, err)
	engine.settleNext()
	balanceAfter := store.Balance()

	// Push enough newer orders through to truncate the first out of history
	// before its resolution fires.
	for i := 0; i < HistoryCap; i++ {
		_, err := engine.PlaceOrder(marketBuy(1, models.FinalityHard))
		require.NoError(t, err)
		engine.settleNext()
	}
	balanceBeforeFire := store.Balance()

	sched.fire()

	// The truncated order's revert found nothing to act on; only the five
	// surviving hard orders resolved.
	assert.NotEqual(t, balanceAfter, balanceBeforeFire)
	assert.InDelta(t, balanceBeforeFire, store.Balance(), 1e-9)
}

func TestEngine_CancelBeforeTick(t *testing.T) {
	engine, store, _ := setupEngine(t, nil)

	ord, err := engine.PlaceOrder(marketBuy(10, models.FinalitySoft))
	require.NoError(t, err)

	engine.CancelOrder(ord.ID)
	engine.settleNext()

	assert.Equal(t, 50000.0, store.Balance())
	history := store.State().History
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusCancelled, history[0].Status)
}

func TestEngine_InsufficientBalanceRejected(t *testing.T) {
	engine, store, _ := setupEngine(t, nil)

	_, err := engine.PlaceOrder(marketBuy(1000, models.FinalityHard))

	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Empty(t, store.State().Pending)
	assert.Equal(t, 50000.0, store.Balance())
}

func TestEngine_JournalsResolvedAndCancelledOrders(t *testing.T) {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.SettledOrder{}))

	engine, _, sched := setupEngine(t, db)
	engine.rng = func() float64 { return 0.0 }

	settled, err := engine.PlaceOrder(marketBuy(10, models.FinalitySoft))
	require.NoError(t, err)
	engine.settleNext()
	sched.fire()

	cancelled, err := engine.PlaceOrder(marketBuy(1, models.FinalityHard))
	require.NoError(t, err)
	engine.CancelOrder(cancelled.ID)

	var records []models.SettledOrder
	require.NoError(t, db.Order("id").Find(&records).Error)
	require.Len(t, records, 2)

	assert.Equal(t, settled.ID, records[0].OrderID)
	assert.Equal(t, string(models.StatusReverted), records[0].Outcome)
	assert.InDelta(t, 50000.0, records[0].OriginalBalance, 1e-9)

	assert.Equal(t, cancelled.ID, records[1].OrderID)
	assert.Equal(t, string(models.StatusCancelled), records[1].Outcome)
}

func TestEngine_RunStopsOnContextCancel(t *testing.T) {
	engine, _, _ := setupEngine(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("engine did not stop after context cancellation")
	}
}

func TestEngine_RunProcessesTicks(t *testing.T) {
	engine, store, sched := setupEngine(t, nil)

	_, err := engine.PlaceOrder(marketBuy(1, models.FinalityHard))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go engine.Run(ctx)

	sched.ticks <- time.Now()

	assert.Eventually(t, func() bool {
		return len(store.State().History) == 1
	}, time.Second, 10*time.Millisecond)
}
