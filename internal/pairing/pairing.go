// Package pairing drives the Classic Bluetooth pairing handshake: it answers
// the platform's pairing challenges and reduces the platform's terminal
// status to an Outcome.
package pairing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// ErrMachineUsed is returned when Run is called on a machine that has
// already been run, whatever the result. Each pairing attempt needs a fresh
// Machine.
var ErrMachineUsed = errors.New("pairing: machine already used")

// ChallengeKind is the authentication ceremony the platform asks for.
// Values are bit flags so a set of kinds fits in one ChallengeKind.
type ChallengeKind uint8

const (
	ConfirmOnly ChallengeKind = 1 << iota
	ProvidePIN
	ConfirmPINMatch
	DisplayPIN
)

// SupportedKinds is the set offered to the platform with every request.
const SupportedKinds = ConfirmOnly | ProvidePIN | ConfirmPINMatch | DisplayPIN

// Has reports whether every bit of other is in k.
func (k ChallengeKind) Has(other ChallengeKind) bool {
	return other != 0 && k&other == other
}

func (k ChallengeKind) String() string {
	if k == 0 {
		return "none"
	}
	var parts []string
	names := []struct {
		bit  ChallengeKind
		name string
	}{
		{ConfirmOnly, "confirm-only"},
		{ProvidePIN, "provide-pin"},
		{ConfirmPINMatch, "confirm-pin-match"},
		{DisplayPIN, "display-pin"},
	}
	rest := k
	for _, n := range names {
		if k&n.bit != 0 {
			parts = append(parts, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(parts, "|")
}

// Challenge is delivered by the platform while a pairing request is in
// flight. Exactly one of Accept or Reject should be called.
type Challenge interface {
	Kind() ChallengeKind
	Accept() error
	Reject() error
}

// Target is a device the platform can pair with.
type Target interface {
	IsPaired() (bool, error)
	CanPair() (bool, error)
	// Pair issues the platform pairing request offering kinds and blocks
	// until the platform reports a terminal status. handler may be invoked
	// from any goroutine while Pair is blocked.
	Pair(ctx context.Context, kinds ChallengeKind, handler func(Challenge)) (Status, error)
}

// State of a Machine.
type State uint8

const (
	StateIdle State = iota
	StateAwaitingChallenge
	StateAccepting
	StateRejecting
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingChallenge:
		return "awaiting-challenge"
	case StateAccepting:
		return "accepting"
	case StateRejecting:
		return "rejecting"
	case StateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Machine runs one pairing attempt.
type Machine struct {
	mu       sync.Mutex
	started  bool
	state    State
	rejected ChallengeKind // first challenge kind we refused
	outcome  Outcome
	done     bool // outcome is set
}

// NewMachine returns a Machine in the Idle state.
func NewMachine() *Machine {
	return &Machine{}
}

// State returns the current state. Safe for concurrent use.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Outcome returns the terminal outcome, or false before the machine is done.
func (m *Machine) Outcome() (Outcome, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcome, m.done
}

// Run pairs with target. Platform query and request failures are returned
// as errors and leave the machine terminal with no outcome; every other
// result is an Outcome.
func (m *Machine) Run(ctx context.Context, target Target) (Outcome, error) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return Outcome{}, ErrMachineUsed
	}
	m.started = true
	m.mu.Unlock()

	paired, err := target.IsPaired()
	if err != nil {
		return Outcome{}, m.fail(fmt.Errorf("pairing: query paired state: %w", err))
	}
	if paired {
		return m.finish(AlreadyPaired()), nil
	}

	canPair, err := target.CanPair()
	if err != nil {
		return Outcome{}, m.fail(fmt.Errorf("pairing: query pairing permission: %w", err))
	}
	if !canPair {
		return m.finish(Rejected("cannot pair")), nil
	}

	m.transition(StateAwaitingChallenge)

	status, err := target.Pair(ctx, SupportedKinds, m.handleChallenge)
	if err != nil {
		return Outcome{}, m.fail(fmt.Errorf("pairing: request: %w", err))
	}
	return m.finish(m.reduce(status)), nil
}

// handleChallenge runs on the platform's goroutine while Pair is blocked in
// Run. It decides synchronously and never waits on Run.
func (m *Machine) handleChallenge(ch Challenge) {
	kind := ch.Kind()

	m.mu.Lock()
	if m.state == StateTerminal {
		m.mu.Unlock()
		slog.Warn("[PAIR] challenge after completion, rejecting", "kind", kind)
		_ = ch.Reject()
		return
	}
	accept := kind == ConfirmOnly
	if accept {
		m.state = StateAccepting
	} else {
		m.state = StateRejecting
		if m.rejected == 0 {
			m.rejected = kind
		}
	}
	m.mu.Unlock()

	if accept {
		slog.Debug("[PAIR] accepting challenge", "kind", kind)
		if err := ch.Accept(); err != nil {
			slog.Warn("[PAIR] accept challenge failed", "kind", kind, "error", err)
		}
		return
	}

	slog.Warn("[PAIR] unsupported pairing kind, rejecting", "kind", kind)
	if err := ch.Reject(); err != nil {
		slog.Warn("[PAIR] reject challenge failed", "kind", kind, "error", err)
	}
}

// reduce maps the platform's terminal status to an Outcome.
func (m *Machine) reduce(status Status) Outcome {
	m.mu.Lock()
	rejected := m.rejected
	m.mu.Unlock()

	switch status {
	case StatusPaired:
		return Paired()
	case StatusAlreadyPaired:
		return AlreadyPaired()
	}

	if rejected != 0 && !SupportedKinds.Has(rejected) {
		return Unsupported(rejected, status)
	}
	o := Rejected(status.String())
	o.Status = status
	o.Challenge = rejected
	if rejected != 0 {
		o.Reason = fmt.Sprintf("%s (rejected %s challenge)", status, rejected)
	}
	return o
}

func (m *Machine) transition(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slog.Debug("[PAIR] state", "from", m.state, "to", s)
	m.state = s
}

func (m *Machine) finish(o Outcome) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateTerminal
	m.outcome = o
	m.done = true
	return o
}

// fail ends the attempt without an outcome.
func (m *Machine) fail(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	slog.Debug("[PAIR] state", "from", m.state, "to", StateTerminal, "error", err)
	m.state = StateTerminal
	return err
}

// Run is shorthand for NewMachine().Run.
func Run(ctx context.Context, target Target) (Outcome, error) {
	return NewMachine().Run(ctx, target)
}
