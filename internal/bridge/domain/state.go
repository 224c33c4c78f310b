package domain

import (
	"fmt"
	"sync"
)

// State is the adapter's lifecycle state.
type State int

const (
	// StateUnconfigured means no SDK instance is live.
	StateUnconfigured State = iota
	// StateConfiguring means a configure command is building the SDK.
	StateConfiguring
	// StateConfigured means the SDK is live but the UI lifecycle has not
	// been replayed into it yet.
	StateConfigured
	// StateReplayed means the SDK is live and has seen the UI lifecycle.
	StateReplayed
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfiguring:
		return "configuring"
	case StateConfigured:
		return "configured"
	case StateReplayed:
		return "replayed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsConfigured reports whether a live SDK instance exists in s.
func (s State) IsConfigured() bool {
	return s == StateConfigured || s == StateReplayed
}

// StateMachine owns the adapter state. Every transition is checked, so a
// second configure or a second replay cannot happen by accident.
type StateMachine struct {
	mu    sync.RWMutex
	state State
}

// NewStateMachine creates a machine in StateUnconfigured.
func NewStateMachine() *StateMachine {
	return &StateMachine{state: StateUnconfigured}
}

// Current returns the current state.
func (m *StateMachine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConfigured reports whether the SDK is live.
func (m *StateMachine) IsConfigured() bool {
	return m.Current().IsConfigured()
}

// IsReplayed reports whether the lifecycle replay has happened.
func (m *StateMachine) IsReplayed() bool {
	return m.Current() == StateReplayed
}

// BeginConfigure moves Unconfigured to Configuring.
func (m *StateMachine) BeginConfigure() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateUnconfigured:
		m.state = StateConfiguring
		return nil
	case StateConfiguring:
		return ErrConfigureInProgress
	default:
		return ErrAlreadyConfigured
	}
}

// CompleteConfigure moves Configuring to Configured.
func (m *StateMachine) CompleteConfigure() error {
	return m.transition(StateConfiguring, StateConfigured)
}

// AbortConfigure moves Configuring back to Unconfigured.
func (m *StateMachine) AbortConfigure() error {
	return m.transition(StateConfiguring, StateUnconfigured)
}

// MarkReplayed moves Configured to Replayed.
func (m *StateMachine) MarkReplayed() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConfigured {
		return fmt.Errorf("%w: state is %s", ErrNotReplayable, m.state)
	}
	m.state = StateReplayed
	return nil
}

// Reset returns the machine to Unconfigured and reports the state it left.
func (m *StateMachine) Reset() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.state
	m.state = StateUnconfigured
	return prev
}

func (m *StateMachine) transition(from, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return fmt.Errorf("illegal transition %s -> %s: state is %s", from, to, m.state)
	}
	m.state = to
	return nil
}
