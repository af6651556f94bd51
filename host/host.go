package host

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ardnew/setu360/host/hal"
	"github.com/ardnew/setu360/pkg"
)

// State is the lifecycle state of a Session.
type State uint8

// Session states.
const (
	StateUninitialized State = iota // No subsystem
	StateInitialized                // Subsystem open, no device handle
	StateProgramming                // One device handle open
	StateClosed                     // Torn down; terminal
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateProgramming:
		return "programming"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Session owns the USB subsystem and at most one open device handle.
// A run uses exactly one Session and closes it exactly once.
type Session struct {
	bus    hal.Bus
	handle hal.Handle
	state  State

	mutex sync.Mutex
}

// NewSession returns an uninitialized session.
func NewSession() *Session {
	return &Session{}
}

// Init starts the USB subsystem using open.
func (s *Session) Init(open hal.Opener) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != StateUninitialized {
		return fmt.Errorf("init in state %s: %w", s.state, pkg.ErrInvalidState)
	}
	if open == nil {
		return fmt.Errorf("init: nil opener: %w", pkg.ErrInvalidParameter)
	}

	bus, err := open()
	if err != nil {
		return err
	}
	s.bus = bus
	s.state = StateInitialized

	pkg.LogDebug(pkg.ComponentSession, "session initialized")
	return nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.state
}

// Bus returns the subsystem for enumeration.
func (s *Session) Bus() (hal.Bus, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != StateInitialized && s.state != StateProgramming {
		return nil, fmt.Errorf("bus in state %s: %w", s.state, pkg.ErrInvalidState)
	}
	return s.bus, nil
}

// Open opens dev and makes it the session's active handle. A handle left
// open from a previous device is closed first.
func (s *Session) Open(dev hal.Device) (hal.Handle, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state != StateInitialized && s.state != StateProgramming {
		return nil, fmt.Errorf("open in state %s: %w", s.state, pkg.ErrInvalidState)
	}

	if s.handle != nil {
		if err := s.closeHandleLocked(); err != nil {
			pkg.LogWarn(pkg.ComponentSession, "closing stale device handle failed", "error", err)
		} else {
			pkg.LogWarn(pkg.ComponentSession, "closed stale device handle")
		}
	}

	h, err := dev.Open()
	if err != nil {
		return nil, err
	}
	s.handle = h
	s.state = StateProgramming

	pkg.LogDebug(pkg.ComponentSession, "device opened", "device", dev.String())
	return h, nil
}

// CloseHandle closes the active device handle, if any, returning the
// session to the initialized state.
func (s *Session) CloseHandle() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closeHandleLocked()
}

func (s *Session) closeHandleLocked() error {
	if s.handle == nil {
		return nil
	}
	err := s.handle.Close()
	s.handle = nil
	if s.state == StateProgramming {
		s.state = StateInitialized
	}
	return err
}

// Close closes any open handle and shuts the subsystem down. It may be
// called in any state and any number of times; only the first call does
// work. Close on a nil Session is a no-op.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.state == StateClosed {
		return nil
	}
	s.state = StateClosed

	var errs []error
	if err := s.closeHandleLocked(); err != nil {
		errs = append(errs, err)
	}
	if s.bus != nil {
		if err := s.bus.Close(); err != nil {
			errs = append(errs, err)
		}
		s.bus = nil
	}

	pkg.LogDebug(pkg.ComponentSession, "session closed")
	return errors.Join(errs...)
}
