package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sifan077/LinkGate/internal/app/apperr"
	"github.com/sifan077/LinkGate/internal/app/model"
	"github.com/sifan077/LinkGate/internal/unlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type challengeFixture struct {
	counterRepo *mockCounterRepository
	events      *mockClickEventRepository
	counters    CounterService
	recorder    *EventRecorder
	svc         *ChallengeService
	unlockerID  uuid.UUID
	sequenceID  uuid.UUID
}

func newChallengeFixture(t *testing.T, cfg ChallengeConfig, clicks, seconds int) *challengeFixture {
	t.Helper()
	f := &challengeFixture{
		counterRepo: &mockCounterRepository{},
		events:      &mockClickEventRepository{},
		unlockerID:  uuid.New(),
		sequenceID:  uuid.New(),
	}
	unlockers := &mockUnlockerRepository{
		getFn: func(_ context.Context, id uuid.UUID) (*model.UrlUnlocker, error) {
			if id != f.unlockerID {
				return nil, apperr.ErrNotFound
			}
			return &model.UrlUnlocker{
				ID:               id,
				DestinationURL:   "https://example.com/prize",
				UnlockerURL:      "https://sponsor.example.com",
				ClickCount:       clicks,
				CountdownSeconds: seconds,
			}, nil
		},
	}
	sequences := &mockSequenceRepository{
		getFn: func(_ context.Context, id uuid.UUID) (*model.SequenceUnlocker, error) {
			return &model.SequenceUnlocker{
				ID:             id,
				Sequence:       []string{"red", "blue", "green"},
				DestinationURL: "https://example.com/secret",
			}, nil
		},
	}
	f.counters = NewCounterService(f.counterRepo, time.Second, nil)
	f.recorder = NewEventRecorder(NewDirectSink(f.events), time.Second, nil)
	f.svc = NewChallengeService(context.Background(), ChallengeDeps{
		Unlockers: NewUnlockerService(unlockers, 0),
		Sequences: NewSequenceService(sequences, 0),
		Counters:  f.counters,
		Events:    f.recorder,
		Config:    cfg,
	})
	t.Cleanup(func() {
		f.svc.Stop()
		f.settle()
	})
	return f
}

func (f *challengeFixture) settle() {
	f.counters.Wait()
	f.recorder.Wait()
}

func TestChallengeService_CountdownUnlocksOnce(t *testing.T) {
	f := newChallengeFixture(t, ChallengeConfig{TickInterval: time.Millisecond}, 3, 5)
	ctx := context.Background()

	start, err := f.svc.StartCountdown(ctx, f.unlockerID, RequestMeta{IP: "10.0.0.9"})
	require.NoError(t, err)
	assert.Equal(t, unlock.StateIdle, start.Snapshot.State)
	assert.Equal(t, 3, start.Snapshot.RequiredClicks)

	opened := 0
	for range 4 {
		res, err := f.svc.Apply(start.SessionID, ChallengeCountdown, f.unlockerID, unlock.Click())
		require.NoError(t, err)
		if res.OpenURL != "" {
			opened++
			assert.Equal(t, "https://sponsor.example.com", res.OpenURL)
			assert.True(t, res.ThresholdReached)
		}
	}
	assert.Equal(t, 1, opened, "the side channel opens exactly on the threshold click")

	require.Eventually(t, func() bool {
		snap, err := f.svc.Snapshot(start.SessionID, ChallengeCountdown, f.unlockerID)
		return err == nil && snap.Unlocked()
	}, time.Second, 2*time.Millisecond)
	f.settle()

	key := f.unlockerID.String()
	assert.ElementsMatch(t, []string{
		"url_unlockers.visits:" + key,
		"url_unlockers.unlocks:" + key,
	}, f.counterRepo.recorded())

	kinds := map[string]int{}
	for _, e := range f.events.events() {
		kinds[e.Kind]++
		assert.Equal(t, model.TargetUnlocker, e.TargetType)
	}
	assert.Equal(t, map[string]int{model.KindVisit: 1, model.KindUnlock: 1}, kinds)
}

func TestChallengeService_SequenceMismatchResets(t *testing.T) {
	f := newChallengeFixture(t, ChallengeConfig{}, 1, 0)
	start, err := f.svc.StartSequence(context.Background(), f.sequenceID, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, 3, start.Snapshot.Length)

	press := func(c unlock.Color) ApplyResult {
		out, err := f.svc.Apply(start.SessionID, ChallengeSequence, f.sequenceID, unlock.Press(c))
		require.NoError(t, err)
		return out
	}
	press(unlock.Red)
	out := press(unlock.Green)
	assert.True(t, out.Reset)

	press(unlock.Red)
	press(unlock.Blue)
	out = press(unlock.Green)
	assert.True(t, out.Unlocked)
	f.settle()

	assert.Contains(t, f.counterRepo.recorded(), "sequence_unlockers.unlocks:"+f.sequenceID.String())
}

func TestChallengeService_SessionMismatchIsNotFound(t *testing.T) {
	f := newChallengeFixture(t, ChallengeConfig{}, 1, 10)
	start, err := f.svc.StartCountdown(context.Background(), f.unlockerID, RequestMeta{})
	require.NoError(t, err)

	_, err = f.svc.Apply(uuid.New(), ChallengeCountdown, f.unlockerID, unlock.Click())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Apply(start.SessionID, ChallengeSequence, f.unlockerID, unlock.Press(unlock.Red))
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Apply(start.SessionID, ChallengeCountdown, uuid.New(), unlock.Click())
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = f.svc.Apply(start.SessionID, ChallengeCountdown, f.unlockerID, unlock.Press(unlock.Red))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestChallengeService_UnknownUnlocker(t *testing.T) {
	f := newChallengeFixture(t, ChallengeConfig{}, 1, 0)
	_, err := f.svc.StartCountdown(context.Background(), uuid.New(), RequestMeta{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Zero(t, f.svc.Active())
}

func TestChallengeService_MaxSessions(t *testing.T) {
	f := newChallengeFixture(t, ChallengeConfig{MaxSessions: 2}, 1, 10)
	ctx := context.Background()

	for range 2 {
		_, err := f.svc.StartCountdown(ctx, f.unlockerID, RequestMeta{})
		require.NoError(t, err)
	}
	_, err := f.svc.StartCountdown(ctx, f.unlockerID, RequestMeta{})
	assert.ErrorIs(t, err, ErrTooManySessions)
	assert.Equal(t, 503, apperr.HTTPStatus(err))
	assert.Equal(t, 2, f.svc.Active())
}

func TestChallengeService_EvictIdleClosesSessions(t *testing.T) {
	f := newChallengeFixture(t, ChallengeConfig{}, 1, 60)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return base }

	stale, err := f.svc.StartCountdown(ctx, f.unlockerID, RequestMeta{})
	require.NoError(t, err)
	_, err = f.svc.Apply(stale.SessionID, ChallengeCountdown, f.unlockerID, unlock.Click())
	require.NoError(t, err)

	f.svc.now = func() time.Time { return base.Add(10 * time.Minute) }
	fresh, err := f.svc.StartCountdown(ctx, f.unlockerID, RequestMeta{})
	require.NoError(t, err)

	n := f.svc.EvictIdle(base.Add(5 * time.Minute))
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.svc.Active())

	_, err = f.svc.Snapshot(stale.SessionID, ChallengeCountdown, f.unlockerID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Snapshot(fresh.SessionID, ChallengeCountdown, f.unlockerID)
	assert.NoError(t, err)
}

func TestChallengeService_StopTearsDownSessions(t *testing.T) {
	f := newChallengeFixture(t, ChallengeConfig{SweepInterval: time.Millisecond}, 1, 60)
	f.svc.Start()

	start, err := f.svc.StartCountdown(context.Background(), f.unlockerID, RequestMeta{})
	require.NoError(t, err)
	_, err = f.svc.Apply(start.SessionID, ChallengeCountdown, f.unlockerID, unlock.Click())
	require.NoError(t, err)

	f.svc.Stop()
	assert.Zero(t, f.svc.Active())
	_, err = f.svc.Snapshot(start.SessionID, ChallengeCountdown, f.unlockerID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionSweeper_EvictsPastTTL(t *testing.T) {
	evicter := &fakeEvicter{ttl: time.Minute, cutoffs: make(chan time.Time, 8)}
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	sweeper := NewSessionSweeper(zapNop(), evicter, time.Millisecond)
	sweeper.now = func() time.Time { return now }
	sweeper.Start()
	defer sweeper.Stop()

	select {
	case cutoff := <-evicter.cutoffs:
		assert.Equal(t, now.Add(-time.Minute), cutoff)
	case <-time.After(time.Second):
		t.Fatal("sweeper never ran")
	}
}

func TestSessionSweeper_StopWithoutStart(t *testing.T) {
	sweeper := NewSessionSweeper(zapNop(), &fakeEvicter{}, 0)
	sweeper.Stop()
	sweeper.Stop()
}

type fakeEvicter struct {
	ttl     time.Duration
	cutoffs chan time.Time
}

func (f *fakeEvicter) EvictIdle(cutoff time.Time) int {
	select {
	case f.cutoffs <- cutoff:
	default:
	}
	return 0
}

func (f *fakeEvicter) SessionTTL() time.Duration { return f.ttl }

type closeRecorder struct {
	unlock.ChallengeStrategy
	closed atomic.Bool
}

func (c *closeRecorder) Close() { c.closed.Store(true) }

func TestChallengeService_RefusesSessionsAfterStop(t *testing.T) {
	f := newChallengeFixture(t, ChallengeConfig{}, 1, 0)
	f.svc.Stop()

	_, err := f.svc.StartCountdown(context.Background(), f.unlockerID, RequestMeta{})
	assert.ErrorIs(t, err, ErrChallengesStopped)
	assert.Equal(t, 503, apperr.HTTPStatus(err))
	_, err = f.svc.StartSequence(context.Background(), f.sequenceID, RequestMeta{})
	assert.ErrorIs(t, err, ErrChallengesStopped)

	f.settle()
	assert.Empty(t, f.counterRepo.recorded(), "no visit is counted for a refused session")
	assert.Zero(t, f.svc.Active())
}

func TestChallengeService_RegisterRacingStopClosesInstance(t *testing.T) {
	f := newChallengeFixture(t, ChallengeConfig{}, 1, 0)

	// A start that reserved its slot before Stop and registers after it.
	require.NoError(t, f.svc.reserve())
	f.svc.Stop()

	strategy := &closeRecorder{}
	_, err := f.svc.register(ChallengeCountdown, f.unlockerID, strategy, "")
	assert.ErrorIs(t, err, ErrChallengesStopped)
	assert.True(t, strategy.closed.Load())
	assert.Zero(t, f.svc.Active())
}

func TestSessionSweeper_ConcurrentStartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	sweeper := NewSessionSweeper(zapNop(), &fakeEvicter{cutoffs: make(chan time.Time, 1)}, time.Millisecond)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); sweeper.Start() }()
	go func() { defer wg.Done(); sweeper.Stop() }()
	wg.Wait()
	sweeper.Stop()

	// Start after Stop must not leave a loop running.
	sweeper.Start()
}
