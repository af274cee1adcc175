package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned if classifier method cannot be executed at this moment.
	ErrInvalidState = errors.New("invalid state")
)

// state identifies one of the possible states classifier can be in.
type state interface {
	transition(*Classifier, event) (state, error)
	fmt.Stringer
}

// states
type (
	stateRunning struct{}
	statePaused  struct{}
	stateStopped struct{}
)

// states variables
var (
	running stateRunning // Running means nodes are updated every tick.
	paused  statePaused  // Paused means nodes are re-initialized, but not updated.
	stopped stateStopped // Stopped means file writers are closed and nodes are kept stopped.
)

// event identifies the type of event
type event int

// types of events.
const (
	start event = iota
	pause
	resume
	stop
)

func (e event) String() string {
	switch e {
	case start:
		return "start"
	case pause:
		return "pause"
	case resume:
		return "resume"
	case stop:
		return "stop"
	}
	return "unknown"
}

func (s stateRunning) transition(c *Classifier, e event) (state, error) {
	switch e {
	case pause:
		return paused, nil
	case stop:
		return stopped, c.stopNodes()
	}
	return s, ErrInvalidState
}

func (s statePaused) transition(c *Classifier, e event) (state, error) {
	switch e {
	case resume:
		return running, nil
	case stop:
		return stopped, c.stopNodes()
	}
	return s, ErrInvalidState
}

func (s stateStopped) transition(c *Classifier, e event) (state, error) {
	switch e {
	case start:
		c.Reset()
		return running, nil
	}
	return s, ErrInvalidState
}

func (stateRunning) String() string { return "running" }
func (statePaused) String() string  { return "paused" }
func (stateStopped) String() string { return "stopped" }
