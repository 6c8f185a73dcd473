package upload

import (
	"sync"
	"time"
)

// Simulator advances a progress value on a fixed timer while a request is
// outstanding. One Simulator serves one attempt: once stopped it cannot be
// restarted.
type Simulator struct {
	interval time.Duration
	step     int
	cap      int

	mu       sync.Mutex
	started  bool
	stopped  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

func NewSimulator(interval time.Duration, step, cap int) *Simulator {
	return &Simulator{
		interval: interval,
		step:     step,
		cap:      cap,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start ticks from the initial value, calling onTick with each new value
// until the cap is reached or Stop is called. onTick must not call Stop.
func (s *Simulator) Start(initial int, onTick func(pct int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	go s.loop(initial, onTick)
}

func (s *Simulator) loop(pct int, onTick func(int)) {
	defer close(s.doneChan)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			// Stop wins over a tick that fired at the same time
			select {
			case <-s.stopChan:
				return
			default:
			}
			next := min(pct+s.step, s.cap)
			if next == pct {
				continue
			}
			pct = next
			onTick(pct)
		}
	}
}

// Stop cancels the timer and returns only after the tick goroutine has
// exited, so no callback runs once Stop returns. Safe to call repeatedly or
// before Start.
func (s *Simulator) Stop() {
	s.mu.Lock()
	if !s.stopped {
		s.stopped = true
		close(s.stopChan)
	}
	started := s.started
	s.mu.Unlock()

	if started {
		<-s.doneChan
	}
}

// Running reports whether the tick goroutine may still fire.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started && !s.stopped
}
