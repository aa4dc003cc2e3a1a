package unlock

import (
	"slices"
	"sync"
)

// VariantSequence names the colour sequence challenge.
const VariantSequence = "sequence"

// Sequence compares a visitor's taps positionally against a target sequence.
// A mismatch discards the whole running input; no prefix is kept.
type Sequence struct {
	mu       sync.Mutex
	target   []Color
	progress []Color
	unlocked bool
	gate     *Gate
}

// NewSequence validates target and returns an idle challenge instance.
func NewSequence(target []Color, onSuccess func()) (*Sequence, error) {
	if err := ValidateSequence(target); err != nil {
		return nil, err
	}
	return &Sequence{
		target:   slices.Clone(target),
		progress: make([]Color, 0, len(target)),
		gate:     NewGate(onSuccess),
	}, nil
}

func (s *Sequence) Variant() string { return VariantSequence }

// Apply handles a Press event.
func (s *Sequence) Apply(ev Event) (Outcome, error) {
	if ev.Kind != EventPress {
		return Outcome{Snapshot: s.Snapshot()}, ErrUnsupportedEvent
	}
	if !ev.Color.Valid() {
		return Outcome{Snapshot: s.Snapshot()}, ErrInvalidColor
	}

	s.mu.Lock()
	if s.unlocked {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return Outcome{Snapshot: snap}, nil
	}

	out := Outcome{Accepted: true}
	idx := len(s.progress)
	if s.target[idx] != ev.Color {
		s.progress = s.progress[:0]
		out.Reset = true
	} else {
		s.progress = append(s.progress, ev.Color)
		if len(s.progress) == len(s.target) {
			s.unlocked = true
			out.Unlocked = true
		}
	}
	out.Snapshot = s.snapshotLocked()
	s.mu.Unlock()

	if out.Unlocked {
		s.gate.Fire()
	}
	return out, nil
}

func (s *Sequence) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close is a no-op; the sequence holds no timers.
func (s *Sequence) Close() {}

func (s *Sequence) snapshotLocked() Snapshot {
	state := StateIdle
	switch {
	case s.unlocked:
		state = StateUnlocked
	case len(s.progress) > 0:
		state = StateInProgress
	}
	return Snapshot{
		Variant:  VariantSequence,
		State:    state,
		Progress: len(s.progress),
		Length:   len(s.target),
	}
}
