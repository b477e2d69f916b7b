package session

import (
	"fmt"
	"sync"
	"time"

	"callscope/internal/event"
	"callscope/internal/loc"
)

// Heartbeat periodically emits liveness events so a hung host program
// can be told apart from an idle one: heartbeats that keep arriving
// without any return events mean the program is stuck.
type Heartbeat struct {
	interval time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	wg      sync.WaitGroup
	running bool
}

// newHeartbeat returns a heartbeat that stays inert when interval <= 0.
func newHeartbeat(interval time.Duration) *Heartbeat {
	return &Heartbeat{interval: interval}
}

// start launches the emitting goroutine. Safe to call on an inert
// heartbeat; restarting after stop is allowed.
func (h *Heartbeat) start(s *Session) {
	if h == nil || h.interval <= 0 || s == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	h.stopCh = make(chan struct{})

	h.wg.Add(1)
	go h.run(s, h.stopCh)
}

func (h *Heartbeat) run(s *Session, stopCh chan struct{}) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	seq := uint64(0)
	for {
		select {
		case <-ticker.C:
			seq++
			s.src.Emit(event.KindHeartbeat, loc.NoID, loc.Location{}, fmt.Sprintf("#%d", seq))
		case <-stopCh:
			return
		}
	}
}

// stop terminates the emitting goroutine and waits for it. Idempotent.
func (h *Heartbeat) stop() {
	if h == nil {
		return
	}

	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	stopCh := h.stopCh
	h.mu.Unlock()

	close(stopCh)
	h.wg.Wait()
}
