// Package unlock implements the challenges that gate a destination URL: a colour
// sequence that must be tapped in order, and a click threshold followed by a countdown.
//
// Both variants share one shape: Idle -> InProgress -> {Idle, Counting, Unlocked}.
// Unlocked is absorbing and the success callback of an instance fires at most once.
package unlock

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrUnsupportedEvent is returned when an event kind does not apply to the challenge variant.
	ErrUnsupportedEvent = errors.New("unlock: event not supported by challenge")
	// ErrInvalidColor is returned for tokens outside the palette.
	ErrInvalidColor = errors.New("unlock: invalid color")
	// ErrClosed is returned when events arrive after the instance was torn down.
	ErrClosed = errors.New("unlock: challenge closed")
)

// State is the position of a challenge instance in its state machine.
type State int

const (
	StateIdle State = iota
	StateInProgress
	StateCounting
	StateUnlocked
)

var stateNames = [...]string{"idle", "in_progress", "counting", "unlocked"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state by name in JSON payloads.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name, so snapshots round-trip through JSON clients.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unlock: unknown state %q", text)
}

// Color is a button token of the sequence variant.
type Color string

const (
	Red    Color = "red"
	Blue   Color = "blue"
	Green  Color = "green"
	Yellow Color = "yellow"
	Purple Color = "purple"
	Orange Color = "orange"
)

// Palette lists the colours a sequence may be built from, in display order.
var Palette = []Color{Red, Blue, Green, Yellow, Purple, Orange}

const (
	MinSequenceLength = 2
	MaxSequenceLength = 10
)

// Valid reports whether c belongs to the palette.
func (c Color) Valid() bool {
	return slices.Contains(Palette, c)
}

// ParseColor normalises a user supplied token.
func ParseColor(raw string) (Color, error) {
	c := Color(strings.ToLower(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidColor, raw)
	}
	return c, nil
}

// ParseSequence converts raw tokens into a validated target sequence.
func ParseSequence(raw []string) ([]Color, error) {
	seq := make([]Color, 0, len(raw))
	for _, r := range raw {
		c, err := ParseColor(r)
		if err != nil {
			return nil, err
		}
		seq = append(seq, c)
	}
	if err := ValidateSequence(seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// ValidateSequence checks length bounds and palette membership of a target sequence.
func ValidateSequence(seq []Color) error {
	if len(seq) < MinSequenceLength || len(seq) > MaxSequenceLength {
		return fmt.Errorf("unlock: sequence length must be between %d and %d, got %d",
			MinSequenceLength, MaxSequenceLength, len(seq))
	}
	for _, c := range seq {
		if !c.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidColor, string(c))
		}
	}
	return nil
}

// EventKind identifies visitor or timer input.
type EventKind int

const (
	EventPress EventKind = iota + 1
	EventClick
	EventTick
)

// Event is one input delivered to a challenge.
type Event struct {
	Kind  EventKind
	Color Color
}

// Press is a colour tap for the sequence variant.
func Press(c Color) Event { return Event{Kind: EventPress, Color: c} }

// Click is a button click for the countdown variant.
func Click() Event { return Event{Kind: EventClick} }

// Tick is one elapsed countdown second.
func Tick() Event { return Event{Kind: EventTick} }

// Snapshot is the externally visible state of an instance.
type Snapshot struct {
	Variant            string `json:"variant"`
	State              State  `json:"state"`
	Progress           int    `json:"progress"`
	Length             int    `json:"length,omitempty"`
	Clicks             int    `json:"clicks"`
	RequiredClicks     int    `json:"required_clicks,omitempty"`
	CountdownRemaining *int   `json:"countdown_remaining"`
}

// Unlocked reports whether the destination may be revealed.
func (s Snapshot) Unlocked() bool { return s.State == StateUnlocked }

// Outcome describes what a single event did.
type Outcome struct {
	Snapshot Snapshot
	// Accepted is false when the event was ignored (terminal state, threshold already reached).
	Accepted bool
	// Reset is set when a sequence mismatch discarded all progress.
	Reset bool
	// ThresholdReached is set on the click that reached the threshold; the caller opens
	// the intermediate unlocker URL in response.
	ThresholdReached bool
	// Unlocked is set only on the event that performed the transition to StateUnlocked.
	Unlocked bool
}

// ChallengeStrategy is the capability shared by every challenge variant.
type ChallengeStrategy interface {
	Variant() string
	Apply(ev Event) (Outcome, error)
	Snapshot() Snapshot
	// Close releases timers held by the instance. It must not be called from the success callback.
	Close()
}
