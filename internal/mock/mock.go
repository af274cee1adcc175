// Package mock provides mocks for engine components and allows to execute
// integration tests.
package mock

import (
	"fmt"
	"sync"

	"github.com/neuromore/engine/device"
)

// TypeID is the id of the default mock device type.
const TypeID = 0x7E01

// Type returns a mock device type with numSensors input sensors named S1,
// S2 and so on, all running at sampleRate. Messages are handled with
// device.SequenceHandler.
func Type(id int, name string, numSensors int, sampleRate float64) *device.Type {
	sensors := make([]device.SensorSpec, 0, numSensors)
	for i := 0; i < numSensors; i++ {
		sensors = append(sensors, device.SensorSpec{
			Name:       fmt.Sprintf("S%d", i+1),
			SampleRate: sampleRate,
			Min:        -1,
			Max:        1,
		})
	}
	return &device.Type{
		ID:             id,
		TypeName:       name,
		InitialState:   device.Idle,
		OscPathPattern: "/" + name + "/*/*",
		Handler:        device.SequenceHandler,
		Sensors:        sensors,
	}
}

// HeadsetType returns a battery powered mock headset type with test mode.
// All sensors are electrodes.
func HeadsetType(id int, name string, numSensors int, sampleRate float64) *device.Type {
	t := Type(id, name, numSensors, sampleRate)
	for i := range t.Sensors {
		t.Sensors[i].Neuro = true
	}
	t.Kind = device.KindHeadset
	t.PowerSupply = device.PowerBattery
	t.HasTestMode = true
	return t
}

// Driver mocks a device.Driver. Every update it pushes Samples values into
// each input sensor of the devices it created.
type Driver struct {
	device.DriverBase
	counter
	DriverName string
	Types      []*device.Type
	// Samples is the number of values pushed per update and sensor.
	Samples int
	Value   float64
	// AutoDetection enables auto detection support.
	AutoDetection bool
	// Detect holds the devices the next DetectDevices call finds.
	Detect []*device.Device

	ErrorOnInit   error
	ErrorOnCreate error
	ErrorOnClose  error
	// FailTest makes StartTest fail.
	FailTest bool
	Closed   bool

	mu        sync.Mutex
	registrar device.Registrar
	devices   []*device.Device
	testing   map[*device.Device]bool
}

// Name implements device.Driver.
func (m *Driver) Name() string {
	if m.DriverName == "" {
		return "mock"
	}
	return m.DriverName
}

// SupportedTypes implements device.Driver.
func (m *Driver) SupportedTypes() []int {
	ids := make([]int, 0, len(m.Types))
	for _, t := range m.Types {
		ids = append(ids, t.ID)
	}
	return ids
}

// Init implements device.Driver.
func (m *Driver) Init(r device.Registrar) error {
	if m.ErrorOnInit != nil {
		return m.ErrorOnInit
	}
	m.registrar = r
	return nil
}

// Registrar returns the registrar the driver was initialized with.
func (m *Driver) Registrar() device.Registrar {
	return m.registrar
}

// CreateDevice implements device.Driver.
func (m *Driver) CreateDevice(typeID int) (*device.Device, error) {
	if m.ErrorOnCreate != nil {
		return nil, m.ErrorOnCreate
	}
	for _, t := range m.Types {
		if t.ID != typeID {
			continue
		}
		d := device.New(t, m)
		m.mu.Lock()
		m.devices = append(m.devices, d)
		m.mu.Unlock()
		return d, nil
	}
	return nil, fmt.Errorf("%w: %#x", device.ErrNotSupported, typeID)
}

// Devices returns the devices created by the driver.
func (m *Driver) Devices() []*device.Device {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*device.Device(nil), m.devices...)
}

// Update implements device.Driver.
func (m *Driver) Update(elapsed, delta float64) {
	if m.Samples == 0 {
		m.advance(0)
		return
	}
	n := 0
	for _, d := range m.Devices() {
		for _, s := range d.InputSensors() {
			for i := 0; i < m.Samples; i++ {
				s.AddQueuedSample(m.Value)
			}
			n += m.Samples
		}
	}
	m.advance(n)
}

// HasAutoDetectionSupport implements device.Driver.
func (m *Driver) HasAutoDetectionSupport() bool {
	return m.AutoDetection
}

// DetectDevices adds the devices of Detect with the registrar.
func (m *Driver) DetectDevices() {
	for _, d := range m.Detect {
		m.registrar.AddDeviceAsync(d)
	}
	m.Detect = nil
}

// Close implements device.Driver.
func (m *Driver) Close() error {
	m.Closed = true
	return m.ErrorOnClose
}

// StartTest implements device.Tester.
func (m *Driver) StartTest(d *device.Device) bool {
	if m.FailTest {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.testing == nil {
		m.testing = make(map[*device.Device]bool)
	}
	m.testing[d] = true
	return true
}

// StopTest implements device.Tester.
func (m *Driver) StopTest(d *device.Device) {
	m.mu.Lock()
	delete(m.testing, d)
	m.mu.Unlock()
}

// IsTestRunning implements device.Tester.
func (m *Driver) IsTestRunning(d *device.Device) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.testing[d]
}

// Hooks allows to mock component hooks.
type Hooks struct {
	Resetted bool
	Started  bool
	Stopped  bool

	ErrorOnReset error
}

// counter counts calls and samples.
type counter struct {
	messages int
	samples  int
}

// advance counter's metrics.
func (c *counter) advance(size int) {
	c.messages++
	c.samples = c.samples + size
}

// reset resets counter's metrics.
func (c *counter) reset() {
	c.messages, c.samples = 0, 0
}

// Count returns calls and samples metrics.
func (c *counter) Count() (int, int) {
	return c.messages, c.samples
}
