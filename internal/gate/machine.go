// Package gate implements the shared-passphrase entry screen as an explicit
// state machine.  Reduce is the only way a State changes; Service drives it
// through a verification against the stored site password.
package gate

import (
	"strings"
	"time"
)

// Phase is the gate's position in Idle → Verifying → {Unlocking → Unlocked | Denied}.
type Phase int

const (
	Idle Phase = iota
	Verifying
	// Unlocking is the fixed delay between an accepted secret and the
	// unlock signal.  Input is disabled throughout.
	Unlocking
	Unlocked
	Denied
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Verifying:
		return "verifying"
	case Unlocking:
		return "unlocking"
	case Unlocked:
		return "unlocked"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// MarshalText renders the phase name in JSON.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText parses a phase name; unknown names become Idle.
func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "verifying":
		*p = Verifying
	case "unlocking":
		*p = Unlocking
	case "unlocked":
		*p = Unlocked
	case "denied":
		*p = Denied
	default:
		*p = Idle
	}
	return nil
}

// User-facing messages for the two denial kinds.
const (
	MsgDenied      = "ACCESS DENIED"
	MsgSystemError = "SYSTEM ERROR"
)

// State is the complete gate state of one visitor.
type State struct {
	Phase    Phase     `json:"phase"`
	Input    string    `json:"-"`
	Error    string    `json:"error,omitempty"`
	UnlockAt time.Time `json:"unlock_at,omitempty"`
}

// Event is anything Reduce understands.
type Event interface{ isEvent() }

// Typed is a keystroke: the field now holds Value.
type Typed struct{ Value string }

// Submitted starts a verification of the current input.
type Submitted struct{}

// Verified carries the comparison outcome.  At is when the unlock signal
// becomes visible for an accepted secret.
type Verified struct {
	OK bool
	At time.Time
}

// Failed reports that the stored secret could not be read.
type Failed struct{}

// Tick advances time for the unlock delay.
type Tick struct{ Now time.Time }

func (Typed) isEvent()     {}
func (Submitted) isEvent() {}
func (Verified) isEvent()  {}
func (Failed) isEvent()    {}
func (Tick) isEvent()      {}

// Accepted reports whether the secret has been accepted, i.e. the gate is
// unlocking or unlocked.  Nothing but a fresh session leaves this state.
func (s State) Accepted() bool { return s.Phase == Unlocking || s.Phase == Unlocked }

// CanSubmit reports whether a submit would start a verification.
func (s State) CanSubmit() bool {
	if s.Phase == Verifying || s.Accepted() {
		return false
	}
	return strings.TrimSpace(s.Input) != ""
}

// Reduce applies ev to s.  Events that make no sense in the current phase
// leave the state unchanged.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case Typed:
		switch s.Phase {
		case Idle:
			s.Input = e.Value
		case Denied:
			s.Phase = Idle
			s.Error = ""
			s.Input = e.Value
		}
	case Submitted:
		if s.CanSubmit() {
			s.Phase = Verifying
			s.Error = ""
		}
	case Verified:
		if s.Phase != Verifying {
			break
		}
		if e.OK {
			s.Phase = Unlocking
			s.UnlockAt = e.At
		} else {
			s.Phase = Denied
			s.Error = MsgDenied
		}
	case Failed:
		if s.Phase == Verifying {
			s.Phase = Denied
			s.Error = MsgSystemError
		}
	case Tick:
		if s.Phase == Unlocking && !e.Now.Before(s.UnlockAt) {
			s.Phase = Unlocked
		}
	}
	return s
}

// RemainingDelay is how long until an Unlocking gate unlocks.
func (s State) RemainingDelay(now time.Time) time.Duration {
	if s.Phase != Unlocking {
		return 0
	}
	if d := s.UnlockAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
