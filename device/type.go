package device

import (
	"fmt"

	"github.com/google/uuid"
)

// InvalidTypeID marks an unknown device type.
const InvalidTypeID = 0

// InvalidID marks a device without instance number.
const InvalidID = -1

// Kind is the base kind of a device type.
type Kind int

// Device kinds.
const (
	KindGeneric Kind = iota
	// KindHeadset is a BCI headset. The manager tracks one active headset.
	KindHeadset
)

func (k Kind) String() string {
	if k == KindHeadset {
		return "headset"
	}
	return "generic"
}

// Direction of a sensor.
type Direction int

// Sensor directions.
const (
	// Input sensors carry data from the device into the engine.
	Input Direction = iota
	// Output sensors carry data from the engine to the device.
	Output
)

// SensorSpec describes a sensor every device of a type has.
type SensorSpec struct {
	Name       string
	Direction  Direction
	SampleRate float64
	// Irregular sensors receive values at no fixed rate.
	Irregular bool
	Min       float64
	Max       float64
	Unit      string
	Color     string
	// Neuro marks the electrodes of a headset.
	Neuro bool
}

// Type describes a kind of device. It replaces a device class: everything
// that differs between hardware lives here and the Device itself is the
// same for all of them.
type Type struct {
	ID           int
	TypeName     string
	HardwareName string
	Kind         Kind
	// UUID identifies the hardware type. Derived from the type name when
	// not set.
	UUID uuid.UUID

	Latency              float64
	ExpectedJitter       float64
	TimeoutLimit         float64
	CriticalBatteryLevel float64

	Wireless     bool
	HasTestMode  bool
	PowerSupply  PowerSupply
	InitialState State

	// OscPathPattern is the address pattern messages of unknown devices of
	// this type are matched with. Empty disables auto creation.
	OscPathPattern string
	Sensors        []SensorSpec

	// Handler processes messages addressed to a device of this type.
	Handler func(*Device, Message)
	// DeviceID extracts the instance number from a message address.
	// OscPathDeviceID is used when nil.
	DeviceID func(address string) int
	// DeviceString extracts an optional instance string from a message
	// address.
	DeviceString func(address string) string
}

const (
	defaultTimeoutLimit         = 5.0
	defaultCriticalBatteryLevel = 0.25
)

// typeNamespace is the namespace for derived type UUIDs.
var typeNamespace = uuid.MustParse("db98a54e-5d71-11e5-885d-feff819cdc9f")

// normalize validates the type and fills the defaults of unset fields.
func (t *Type) normalize() error {
	if t.ID == InvalidTypeID {
		return fmt.Errorf("%w: type %q has no id", ErrInvalidType, t.TypeName)
	}
	if t.TypeName == "" {
		return fmt.Errorf("%w: type %#x has no name", ErrInvalidType, t.ID)
	}
	t.setDefaults()
	return nil
}

// setDefaults only writes zero fields, so a normalized type is never
// written again.
func (t *Type) setDefaults() {
	if t.HardwareName == "" {
		t.HardwareName = t.TypeName
	}
	if t.TimeoutLimit == 0 {
		t.TimeoutLimit = defaultTimeoutLimit
	}
	if t.CriticalBatteryLevel == 0 {
		t.CriticalBatteryLevel = defaultCriticalBatteryLevel
	}
	if t.UUID == uuid.Nil {
		t.UUID = uuid.NewSHA1(typeNamespace, []byte(t.TypeName))
	}
}

// deviceID extracts the instance number from address.
func (t *Type) deviceID(address string) int {
	if t.DeviceID != nil {
		return t.DeviceID(address)
	}
	return OscPathDeviceID(address)
}

// deviceString extracts the instance string from address.
func (t *Type) deviceString(address string) string {
	if t.DeviceString != nil {
		return t.DeviceString(address)
	}
	return ""
}

// String returns the type name.
func (t *Type) String() string {
	return t.TypeName
}
