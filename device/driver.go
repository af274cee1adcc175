package device

// Driver creates and feeds devices of the types it supports. The manager
// calls Update once per tick, before the devices are updated.
type Driver interface {
	Name() string
	// SupportedTypes returns the ids of the device types the driver
	// handles. No two drivers of a manager may share a type.
	SupportedTypes() []int
	// Init is called once when the driver is added to a manager.
	Init(Registrar) error
	// CreateDevice returns a new device of the type.
	CreateDevice(typeID int) (*Device, error)
	Update(elapsed, delta float64)

	IsEnabled() bool
	HasAutoDetectionSupport() bool
	SetAutoDetectionEnabled(bool)
	IsAutoDetectionEnabled() bool
	// DetectDevices starts a search for devices. Found devices are added
	// with the registrar.
	DetectDevices()
	IsDetectionRunning() bool
	// Close releases driver resources.
	Close() error
}

// Tester is implemented by drivers that run a device test mode.
type Tester interface {
	StartTest(*Device) bool
	StopTest(*Device)
	IsTestRunning(*Device) bool
}

// Registrar is the part of the manager drivers use to add and remove the
// devices they find. The async calls are safe for concurrent use.
type Registrar interface {
	AddDeviceAsync(*Device)
	RemoveDeviceAsync(*Device)
	FindFreeDeviceID(typeID int) int
	RegisteredDeviceType(typeID int) *Type
}

// DriverBase implements the enable and auto detection flags of a driver.
// Drivers embed it.
type DriverBase struct {
	Disabled             bool
	autoDetectionEnabled bool
}

// IsEnabled implements Driver.
func (b *DriverBase) IsEnabled() bool {
	return !b.Disabled
}

// HasAutoDetectionSupport implements Driver.
func (b *DriverBase) HasAutoDetectionSupport() bool {
	return false
}

// SetAutoDetectionEnabled implements Driver.
func (b *DriverBase) SetAutoDetectionEnabled(enabled bool) {
	b.autoDetectionEnabled = enabled
}

// IsAutoDetectionEnabled implements Driver.
func (b *DriverBase) IsAutoDetectionEnabled() bool {
	return b.autoDetectionEnabled
}

// DetectDevices implements Driver.
func (b *DriverBase) DetectDevices() {}

// IsDetectionRunning implements Driver.
func (b *DriverBase) IsDetectionRunning() bool {
	return false
}

// Close implements Driver.
func (b *DriverBase) Close() error {
	return nil
}
