package grimoire

import (
	"sync"
	"time"
)

type tickWaiter struct {
	remain int
	done   chan struct{}
}

// timerSet tracks every timer, ticker, and tick waiter a script created so
// disabling the script can stop them all.
type timerSet struct {
	mu          sync.Mutex
	timers      map[string][]*time.Timer
	tickerStops map[string][]chan struct{}
	tickWaiters map[string][]*tickWaiter
}

func newTimerSet() *timerSet {
	return &timerSet{
		timers:      map[string][]*time.Timer{},
		tickerStops: map[string][]chan struct{}{},
		tickWaiters: map[string][]*tickWaiter{},
	}
}

func (ts *timerSet) after(owner string, d time.Duration, fn func()) {
	t := time.AfterFunc(d, fn)
	ts.mu.Lock()
	ts.timers[owner] = append(ts.timers[owner], t)
	ts.mu.Unlock()
}

func (ts *timerSet) every(owner string, d time.Duration, fn func()) {
	stop := make(chan struct{})
	ts.mu.Lock()
	ts.tickerStops[owner] = append(ts.tickerStops[owner], stop)
	ts.mu.Unlock()
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stop:
				return
			}
		}
	}()
}

// sleepTicks blocks the calling goroutine until the host advances the
// given number of ticks.
func (ts *timerSet) sleepTicks(owner string, ticks int) {
	if ticks <= 0 {
		return
	}
	w := &tickWaiter{remain: ticks, done: make(chan struct{}, 1)}
	ts.mu.Lock()
	ts.tickWaiters[owner] = append(ts.tickWaiters[owner], w)
	ts.mu.Unlock()
	<-w.done
}

func (ts *timerSet) advanceTick() {
	ts.mu.Lock()
	for owner, list := range ts.tickWaiters {
		n := 0
		for _, w := range list {
			if w == nil {
				continue
			}
			w.remain--
			if w.remain <= 0 {
				select {
				case w.done <- struct{}{}:
				default:
				}
			} else {
				list[n] = w
				n++
			}
		}
		if n == 0 {
			delete(ts.tickWaiters, owner)
		} else {
			ts.tickWaiters[owner] = list[:n]
		}
	}
	ts.mu.Unlock()
}

// stopOwner stops owner's timers and tickers and releases anything blocked
// in sleepTicks.
func (ts *timerSet) stopOwner(owner string) {
	ts.mu.Lock()
	if list := ts.timers[owner]; len(list) > 0 {
		for _, t := range list {
			if t != nil {
				t.Stop()
			}
		}
	}
	delete(ts.timers, owner)
	if stops := ts.tickerStops[owner]; len(stops) > 0 {
		for _, ch := range stops {
			if ch != nil {
				close(ch)
			}
		}
	}
	delete(ts.tickerStops, owner)
	if waits := ts.tickWaiters[owner]; len(waits) > 0 {
		for _, w := range waits {
			if w != nil {
				select {
				case w.done <- struct{}{}:
				default:
				}
			}
		}
	}
	delete(ts.tickWaiters, owner)
	ts.mu.Unlock()
}

// Tick advances the host's cooperative clock by one game tick, waking
// scripts blocked in SleepTicks when their count runs out.
func (h *Host) Tick() {
	h.timers.advanceTick()
}
