package service

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// idleEvicter is the part of ChallengeService the sweeper drives.
type idleEvicter interface {
	EvictIdle(cutoff time.Time) int
	SessionTTL() time.Duration
}

// SessionSweeper periodically evicts challenge sessions that went idle.
type SessionSweeper struct {
	logger   *zap.Logger
	sessions idleEvicter
	interval time.Duration
	now      func() time.Time
	stopChan chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewSessionSweeper creates a sweeper; interval defaults to 30 seconds.
func NewSessionSweeper(logger *zap.Logger, sessions idleEvicter, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &SessionSweeper{
		logger:   logger,
		sessions: sessions,
		interval: interval,
		now:      time.Now,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic sweep. It does nothing once started or stopped.
func (w *SessionSweeper) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.stopped {
		return
	}
	w.started = true
	go w.run()
}

// Stop stops the sweep and waits for the loop to exit. It is safe to call more than once.
func (w *SessionSweeper) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	started := w.started
	close(w.stopChan)
	w.mu.Unlock()

	if started {
		<-w.done
	}
}

func (w *SessionSweeper) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopChan:
			w.logger.Info("challenge session sweeper stopped")
			return
		}
	}
}

func (w *SessionSweeper) sweep() {
	cutoff := w.now().Add(-w.sessions.SessionTTL())
	if n := w.sessions.EvictIdle(cutoff); n > 0 {
		w.logger.Info("evicted idle challenge sessions",
			zap.Int("count", n),
			zap.Time("idle_before", cutoff),
		)
	}
}
