package device

import "errors"

var (
	// ErrInvalidType is returned when a device type misses its id or name.
	ErrInvalidType = errors.New("invalid device type")
	// ErrDuplicateType is returned when a device type is registered twice.
	ErrDuplicateType = errors.New("device type already registered")
	// ErrUnknownDeviceType is returned for type ids nobody registered.
	ErrUnknownDeviceType = errors.New("unknown device type")
	// ErrDriverOverlap is returned when a driver supports a device type
	// another driver already handles.
	ErrDriverOverlap = errors.New("device driver supports types of another driver")
	// ErrDeviceNotFound is returned when removing a device the manager
	// doesn't own.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrInvalidConfig is returned for device configs that can't be used.
	ErrInvalidConfig = errors.New("invalid device config")
	// ErrDuplicateConfig is returned when a config with the same name is
	// already known.
	ErrDuplicateConfig = errors.New("duplicate device config")
	// ErrNotSupported is returned by drivers for types they can't create.
	ErrNotSupported = errors.New("device type not supported by driver")
)
