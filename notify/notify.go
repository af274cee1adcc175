// Package notify defines the notification codes devices, graphs and the
// engine report to the application.
//
// A code is a bitmask. Bit 30 tells events from states: an event happens
// once, a state stays until the reporter clears it. Bits 28-29 hold the
// class, bits 16-19 the source and the low bits the number.
package notify

import "fmt"

// Code identifies a notification.
type Code uint32

// Type of a notification.
type Type uint32

// Notification types.
const (
	typeMask Code = 1 << 30

	// Event notifications can't be cleared.
	Event Type = 0
	// State notifications are cleared once resolved.
	State Type = 1 << 30
)

// Class of a notification.
type Class uint32

// Notification classes.
const (
	classMask Code = 0b11 << 28

	Info    Class = 1 << 28
	Warning Class = 2 << 28
	Error   Class = 3 << 28
)

// Source of a notification.
type Source uint32

// Notification sources.
const (
	sourceMask Code = 0xF << 16

	// SourceDevice covers device problems like low battery or drift.
	SourceDevice Source = 1 << 16
	// SourceGraphObject covers problems of single nodes.
	SourceGraphObject Source = 2 << 16
	// SourceDesign covers problems of a whole graph.
	SourceDesign Source = 3 << 16
	// SourceSession covers session aborts.
	SourceSession Source = 4 << 16
)

func code(t Type, c Class, s Source, n uint32) Code {
	return Code(uint32(t) | uint32(c) | uint32(s) | n)
}

// Error codes.
var (
	ErrorDeviceBadSignal       = code(Event, Error, SourceDevice, 0x001)
	ErrorDeviceDisconnected    = code(Event, Error, SourceDevice, 0x002)
	ErrorDesignGraphObject     = code(State, Error, SourceDesign, 0x001)
	ErrorDesignLoadGraphObject = code(Event, Error, SourceDesign, 0x002)
	ErrorDesignPermission      = code(Event, Error, SourceDesign, 0x003)
	ErrorSessionAborted        = code(Event, Error, SourceSession, 0x001)
	ErrorSessionInit           = code(Event, Error, SourceSession, 0x002)
	ErrorSessionUpload         = code(Event, Error, SourceSession, 0x003)
)

// Warning codes.
var (
	WarningDevicePowerStateCritical = code(State, Warning, SourceDevice, 0x001)
	WarningDeviceConnectionIssue    = code(State, Warning, SourceDevice, 0x002)
	WarningDesignGraphObject        = code(State, Warning, SourceDesign, 0x001)
	WarningDesignDeprecatedObject   = code(Event, Warning, SourceDesign, 0x002)
)

// Info codes.
var (
	InfoDeviceConnected    = code(Event, Info, SourceDevice, 0x001)
	InfoDeviceDisconnected = code(Event, Info, SourceDevice, 0x002)
	InfoSessionEnded       = code(Event, Info, SourceSession, 0x001)
	InfoSessionSuccessful  = code(Event, Info, SourceSession, 0x002)
)

// Type returns if the code is an event or a state.
func (c Code) Type() Type {
	return Type(c & typeMask)
}

// Class returns the class bits of the code.
func (c Code) Class() Class {
	return Class(c & classMask)
}

// Source returns the source bits of the code.
func (c Code) Source() Source {
	return Source(c & sourceMask)
}

// IsClearable reports if the code is a state that has to be cleared.
func (c Code) IsClearable() bool {
	return c.Type() == State
}

func (c Class) String() string {
	switch c {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

func (s Source) String() string {
	switch s {
	case SourceDevice:
		return "device"
	case SourceGraphObject:
		return "graph object"
	case SourceDesign:
		return "design"
	case SourceSession:
		return "session"
	}
	return "unknown"
}

func (c Code) String() string {
	return fmt.Sprintf("%s %s 0x%03x", c.Source(), c.Class(), uint32(c)&0xFFFF)
}

// Notification is a single report.
type Notification struct {
	Code        Code
	Message     string
	Description string
	// Cleared is set when a state notification was resolved.
	Cleared bool
}

// Observer receives notifications.
type Observer interface {
	Notify(Notification)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Notification)

// Notify implements Observer.
func (f ObserverFunc) Notify(n Notification) {
	f(n)
}
