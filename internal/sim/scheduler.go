package sim

import "time"

// Scheduler abstracts the two timer primitives the settlement engine needs:
// a periodic tick driving the dequeue step and a one-shot delayed callback
// performing the finality resolution. Tests substitute a virtual scheduler
// to make both deterministic.
type Scheduler interface {
	// Tick returns a channel delivering periodic ticks and a stop function.
	Tick(period time.Duration) (<-chan time.Time, func())
	// After runs fn once after the given delay.
	After(d time.Duration, fn func())
}

type timerScheduler struct{}

// NewTimerScheduler returns a Scheduler backed by real timers.
func NewTimerScheduler() Scheduler {
	return timerScheduler{}
}

func (timerScheduler) Tick(period time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(period)
	return t.C, t.Stop
}

func (timerScheduler) After(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}
