package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/metrics"
	"github.com/sifan077/LinkGate/internal/unlock"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for unknown, evicted or mismatched challenge sessions.
	ErrSessionNotFound = fmt.Errorf("challenge session %w", apperr.ErrNotFound)
	// ErrTooManySessions is returned when the instance already holds max sessions.
	ErrTooManySessions = fmt.Errorf("%w: too many live challenge sessions", apperr.ErrUnavailable)
	// ErrChallengesStopped is returned for sessions started after Stop.
	ErrChallengesStopped = fmt.Errorf("%w: challenge service is stopped", apperr.ErrUnavailable)
)

// ChallengeKind names the unlocker a session belongs to.
type ChallengeKind string

const (
	ChallengeCountdown ChallengeKind = unlock.VariantCountdown
	ChallengeSequence  ChallengeKind = unlock.VariantSequence
)

// ChallengeConfig bounds the session table.
type ChallengeConfig struct {
	SessionTTL    time.Duration
	MaxSessions   int
	SweepInterval time.Duration
	// TickInterval is one countdown second; tests shorten it.
	TickInterval time.Duration
}

// ChallengeDeps groups the collaborators of the challenge service.
type ChallengeDeps struct {
	Unlockers UnlockerService
	Sequences SequenceService
	Counters  CounterService
	Events    *EventRecorder
	Config    ChallengeConfig
	Logger    *zap.Logger
}

// CountdownStart is the public view of a freshly started countdown challenge.
type CountdownStart struct {
	SessionID uuid.UUID
	Unlocker  *model.UrlUnlocker
	Snapshot  unlock.Snapshot
}

// SequenceStart is the public view of a freshly started sequence challenge.
// The target sequence itself is never exposed.
type SequenceStart struct {
	SessionID uuid.UUID
	Unlocker  *model.SequenceUnlocker
	Snapshot  unlock.Snapshot
}

// ApplyResult is the outcome of one event plus the side channel URL to open in a new
// tab when the click threshold was reached.
type ApplyResult struct {
	unlock.Outcome
	OpenURL string
}

type challengeSession struct {
	kind     ChallengeKind
	targetID uuid.UUID
	strategy unlock.ChallengeStrategy
	openURL  string
	lastSeen time.Time
}

// ChallengeService holds live challenge instances, one per visitor session.
// Sessions are kept in process memory, so a visitor must reach the same instance.
type ChallengeService struct {
	unlockers UnlockerService
	sequences SequenceService
	counters  CounterService
	events    *EventRecorder
	cfg       ChallengeConfig
	logger    *zap.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[uuid.UUID]*challengeSession
	pending  int
	stopped  bool

	sweeper *SessionSweeper
}

// NewChallengeService returns a service whose countdown timers are bound to ctx.
func NewChallengeService(ctx context.Context, deps ChallengeDeps) *ChallengeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 15 * time.Minute
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 10000
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Second
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &ChallengeService{
		unlockers: deps.Unlockers,
		sequences: deps.Sequences,
		counters:  deps.Counters,
		events:    deps.Events,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[uuid.UUID]*challengeSession),
	}
	s.sweeper = NewSessionSweeper(logger, s, cfg.SweepInterval)
	return s
}

// Start launches the idle-session sweeper.
func (s *ChallengeService) Start() {
	s.sweeper.Start()
}

// Stop stops the sweeper and tears down every live session.
func (s *ChallengeService) Stop() {
	s.sweeper.Stop()
	s.cancel()

	s.mu.Lock()
	s.stopped = true
	live := s.sessions
	s.sessions = make(map[uuid.UUID]*challengeSession)
	s.mu.Unlock()

	for _, sess := range live {
		sess.strategy.Close()
	}
	metrics.ChallengeSessionsActive.Set(0)
}

// StartCountdown loads the unlocker, counts the visit and opens a click/countdown session.
func (s *ChallengeService) StartCountdown(ctx context.Context, id uuid.UUID, meta RequestMeta) (*CountdownStart, error) {
	u, err := s.unlockers.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.reserve(); err != nil {
		return nil, err
	}

	key := u.ID.String()
	strategy, err := unlock.NewCountdown(s.ctx, unlock.CountdownConfig{
		RequiredClicks: u.ClickCount,
		Seconds:        u.CountdownSeconds,
		Interval:       s.cfg.TickInterval,
	}, s.onUnlock(ChallengeCountdown, model.CounterUnlockerUnlocks, model.TargetUnlocker, key, meta))
	if err != nil {
		s.release()
		return nil, apperr.Invalid("unlocker", "%s", err.Error())
	}

	sid, err := s.register(ChallengeCountdown, u.ID, strategy, u.UnlockerURL)
	if err != nil {
		return nil, err
	}
	s.counters.IncrementAsync(model.CounterUnlockerVisits, key)
	s.events.Record(model.TargetUnlocker, key, model.KindVisit, meta)
	return &CountdownStart{SessionID: sid, Unlocker: u, Snapshot: strategy.Snapshot()}, nil
}

// StartSequence loads the sequence unlocker, counts the visit and opens a session.
func (s *ChallengeService) StartSequence(ctx context.Context, id uuid.UUID, meta RequestMeta) (*SequenceStart, error) {
	seq, err := s.sequences.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	target, err := unlock.ParseSequence(seq.Sequence)
	if err != nil {
		return nil, fmt.Errorf("sequence %s: stored target is invalid: %w", id, err)
	}
	if err := s.reserve(); err != nil {
		return nil, err
	}

	key := seq.ID.String()
	strategy, err := unlock.NewSequence(target,
		s.onUnlock(ChallengeSequence, model.CounterSequenceUnlocks, model.TargetSequence, key, meta))
	if err != nil {
		s.release()
		return nil, err
	}

	sid, err := s.register(ChallengeSequence, seq.ID, strategy, "")
	if err != nil {
		return nil, err
	}
	s.counters.IncrementAsync(model.CounterSequenceVisits, key)
	s.events.Record(model.TargetSequence, key, model.KindVisit, meta)
	return &SequenceStart{SessionID: sid, Unlocker: seq, Snapshot: strategy.Snapshot()}, nil
}

// onUnlock is the success side effect of one instance. It runs at most once, after
// the transition, and must not close the instance.
func (s *ChallengeService) onUnlock(kind ChallengeKind, counter model.CounterTarget, targetType, key string, meta RequestMeta) func() {
	return func() {
		metrics.UnlocksTotal.WithLabelValues(string(kind)).Inc()
		s.counters.IncrementAsync(counter, key)
		s.events.Record(targetType, key, model.KindUnlock, meta)
		s.logger.Debug("challenge unlocked", zap.String("kind", string(kind)), zap.String("target_id", key))
	}
}

// Apply feeds one visitor event to the session.
func (s *ChallengeService) Apply(sessionID uuid.UUID, kind ChallengeKind, targetID uuid.UUID, ev unlock.Event) (ApplyResult, error) {
	sess, err := s.lookup(sessionID, kind, targetID)
	if err != nil {
		return ApplyResult{}, err
	}
	out, err := sess.strategy.Apply(ev)
	res := ApplyResult{Outcome: out}
	switch {
	case errors.Is(err, unlock.ErrClosed):
		return res, ErrSessionNotFound
	case err != nil:
		return res, apperr.Invalid("event", "%s", err.Error())
	}
	if out.ThresholdReached {
		res.OpenURL = sess.openURL
	}
	return res, nil
}

// Snapshot returns the current state of the session.
func (s *ChallengeService) Snapshot(sessionID uuid.UUID, kind ChallengeKind, targetID uuid.UUID) (unlock.Snapshot, error) {
	sess, err := s.lookup(sessionID, kind, targetID)
	if err != nil {
		return unlock.Snapshot{}, err
	}
	return sess.strategy.Snapshot(), nil
}

// Active returns the number of live sessions.
func (s *ChallengeService) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *ChallengeService) lookup(sessionID uuid.UUID, kind ChallengeKind, targetID uuid.UUID) (*challengeSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || sess.kind != kind || sess.targetID != targetID {
		return nil, ErrSessionNotFound
	}
	sess.lastSeen = s.now()
	return sess, nil
}

// reserve claims a slot so that concurrent starts cannot overshoot MaxSessions.
func (s *ChallengeService) reserve() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrChallengesStopped
	}
	if len(s.sessions)+s.pending >= s.cfg.MaxSessions {
		return ErrTooManySessions
	}
	s.pending++
	return nil
}

func (s *ChallengeService) release() {
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
}

// register stores a reserved session. After Stop the instance is closed instead.
func (s *ChallengeService) register(kind ChallengeKind, targetID uuid.UUID, strategy unlock.ChallengeStrategy, openURL string) (uuid.UUID, error) {
	sid := uuid.New()
	s.mu.Lock()
	s.pending--
	if s.stopped {
		s.mu.Unlock()
		strategy.Close()
		return uuid.Nil, ErrChallengesStopped
	}
	s.sessions[sid] = &challengeSession{
		kind:     kind,
		targetID: targetID,
		strategy: strategy,
		openURL:  openURL,
		lastSeen: s.now(),
	}
	n := len(s.sessions)
	s.mu.Unlock()

	metrics.ChallengeSessionsActive.Set(float64(n))
	return sid, nil
}

// EvictIdle closes sessions not touched since before cutoff and returns how many went.
func (s *ChallengeService) EvictIdle(cutoff time.Time) int {
	var idle []*challengeSession

	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			idle = append(idle, sess)
			delete(s.sessions, id)
		}
	}
	n := len(s.sessions)
	s.mu.Unlock()

	// Close waits for ticker goroutines, so it runs outside the table lock.
	for _, sess := range idle {
		sess.strategy.Close()
	}
	metrics.ChallengeSessionsActive.Set(float64(n))
	return len(idle)
}

// SessionTTL is how long an untouched session is kept.
func (s *ChallengeService) SessionTTL() time.Duration {
	return s.cfg.SessionTTL
}
