package pathmeta

import (
	"sync"

	"github.com/marmos91/metacache/pkg/backing"
	"github.com/marmos91/metacache/pkg/pathmeta/errors"
)

// State is the lifecycle state of a store instance.
type State int

const (
	// StateUninitialized is the state before Initialize.
	StateUninitialized State = iota

	// StateReady is the state in which operations are valid.
	StateReady

	// StateClosed is the terminal state after Close.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "not initialized"
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Lifecycle implements the Uninitialized -> Ready -> Closed state machine
// shared by every store backend. Backends embed it and call Bind from
// Initialize, Shutdown from Close, and Resolver at the top of each
// operation.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	resolver *Resolver
}

// Bind transitions Uninitialized -> Ready, building the path resolver from
// the backing store identity. Calling Bind twice, or after Close, is an
// error.
func (l *Lifecycle) Bind(id backing.Identity) error {
	resolver, err := NewResolver(id)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateReady:
		return errors.NewInvalidArgumentError("store is already initialized")
	case StateClosed:
		return errors.NewNotInitializedError(StateClosed.String())
	}

	l.state = StateReady
	l.resolver = resolver
	return nil
}

// Shutdown transitions to Closed. It returns true on the first transition,
// signalling the backend to release its resources; subsequent calls return
// false and the backend treats Close as a no-op.
func (l *Lifecycle) Shutdown() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == StateClosed {
		return false
	}
	l.state = StateClosed
	l.resolver = nil
	return true
}

// Resolver returns the bound path resolver, or a NotInitialized error when
// the store is not in the ready state.
func (l *Lifecycle) Resolver() (*Resolver, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.state != StateReady {
		return nil, errors.NewNotInitializedError(l.state.String())
	}
	return l.resolver, nil
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}
