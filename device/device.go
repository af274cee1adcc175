package device

import (
	"fmt"
	"math"
	"strings"

	"github.com/neuromore/engine/channel"
)

// State of a device.
type State int

// Device states.
const (
	// Disconnected is the state of a new device.
	Disconnected State = iota
	// Idle devices are connected but don't send data.
	Idle
	// Streaming devices send data.
	Streaming
	// Test devices run their test mode, an impedance test for headsets.
	Test
	// Timeout devices didn't send data for longer than the timeout limit.
	Timeout
	// Error devices failed for a known reason.
	Error
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	case Test:
		return "test"
	case Timeout:
		return "timeout"
	case Error:
		return "error"
	}
	return "unknown"
}

// PowerSupply is the power source of a device.
type PowerSupply int

// Power supplies.
const (
	PowerUnknown PowerSupply = iota
	PowerBattery
	// PowerLine covers usb or wall plugs.
	PowerLine
)

// batteryHysteresis is the minimal battery level change that is applied.
const batteryHysteresis = 0.011

// Device is a connected piece of hardware, or a software source that acts
// like one. It owns its sensors. Drivers and message handlers push values
// into the input sensors, the engine consumes the output channels of the
// sensors.
type Device struct {
	typ          *Type
	driver       Driver
	ctx          Context
	id           int
	name         string
	deviceString string
	oscAddress   string
	config       Config

	sensors       []*Sensor
	inputSensors  []*Sensor
	outputSensors []*Sensor
	neuroSensors  []*Sensor
	outputReaders []*channel.Reader

	lockOwner interface{}

	state       State
	inactivity  float64
	testRunning bool

	powerSupply      PowerSupply
	battery          float64
	receivedBattery  bool
	wireless         float64
	receivedWireless bool
}

// New returns a device of type t with the sensors of its layout. Driver
// can be nil for devices that are fed by messages only.
func New(t *Type, driver Driver) *Device {
	t.setDefaults()
	d := &Device{
		typ:         t,
		driver:      driver,
		id:          InvalidID,
		state:       t.InitialState,
		powerSupply: t.PowerSupply,
	}
	for _, spec := range t.Sensors {
		d.AddSensor(spec)
	}
	return d
}

// Clone returns a new device of the same type without driver.
func (d *Device) Clone() *Device {
	return New(d.typ, nil)
}

// Type returns the device type.
func (d *Device) Type() *Type {
	return d.typ
}

// TypeID returns the id of the device type.
func (d *Device) TypeID() int {
	return d.typ.ID
}

// Key returns the registry key of the device.
func (d *Device) Key() Key {
	return Key{Type: d.typ.ID, ID: d.id}
}

// UUID returns the uuid of the hardware type.
func (d *Device) UUID() string {
	return d.typ.UUID.String()
}

// HardwareName returns the name of the hardware without vendor.
func (d *Device) HardwareName() string {
	return d.typ.HardwareName
}

// TypeName returns the short lowercase type name.
func (d *Device) TypeName() string {
	return d.typ.TypeName
}

// IsHeadset returns true for BCI headsets.
func (d *Device) IsHeadset() bool {
	return d.typ.Kind == KindHeadset
}

// Driver returns the driver that controls the device, nil if none does.
func (d *Device) Driver() Driver {
	return d.driver
}

// SetContext provides the engine settings to the device and its sensors.
func (d *Device) SetContext(ctx Context) {
	d.ctx = ctx
	for _, s := range d.sensors {
		s.SetContext(ctx)
	}
}

// ID returns the instance number within devices of the same type.
func (d *Device) ID() int {
	return d.id
}

// SetID sets the instance number and the message address of the device.
func (d *Device) SetID(id int) {
	d.id = id
	d.oscAddress = fmt.Sprintf("/%s/%d/*", d.typ.TypeName, id)
}

// DeviceString returns the instance string taken from the address of the
// message that created the device.
func (d *Device) DeviceString() string {
	return d.deviceString
}

// SetDeviceString sets the instance string.
func (d *Device) SetDeviceString(s string) {
	d.deviceString = s
}

// OscAddress returns the pattern of message addresses the device receives.
func (d *Device) OscAddress() string {
	return d.oscAddress
}

// SetOscAddress overrides the pattern of message addresses.
func (d *Device) SetOscAddress(pattern string) {
	d.oscAddress = pattern
}

// Name returns the instance name.
func (d *Device) Name() string {
	return d.name
}

// SetName sets the instance name.
func (d *Device) SetName(name string) {
	d.name = name
}

// Configure applies a valid and enabled config.
func (d *Device) Configure(c Config) {
	if !c.Valid || !c.Enabled {
		return
	}
	d.config = c
	d.name = c.Name
	d.SetID(c.DeviceID)
}

// IsConfigured returns true after a config was applied.
func (d *Device) IsConfigured() bool {
	return d.config.Valid
}

// Config returns the applied config.
func (d *Device) Config() Config {
	return d.config
}

// Latency returns the transmission latency of the hardware.
func (d *Device) Latency() float64 {
	return d.typ.Latency
}

// ExpectedJitter returns the jitter of the hardware in seconds.
func (d *Device) ExpectedJitter() float64 {
	return d.typ.ExpectedJitter
}

// TimeoutLimit returns the inactivity in seconds after which the device
// times out.
func (d *Device) TimeoutLimit() float64 {
	return d.typ.TimeoutLimit
}

// IsInputDevice returns true if the device has input sensors.
func (d *Device) IsInputDevice() bool {
	return len(d.inputSensors) > 0
}

// IsOutputDevice returns true if the device has output sensors.
func (d *Device) IsOutputDevice() bool {
	return len(d.outputSensors) > 0
}

// IsEnabled returns false if the driver of the device is disabled.
func (d *Device) IsEnabled() bool {
	if d.driver != nil {
		return d.driver.IsEnabled()
	}
	return true
}

// State returns the device state.
func (d *Device) State() State {
	return d.state
}

// SetState sets the device state. Drivers use it to report errors.
func (d *Device) SetState(s State) {
	d.state = s
}

// Connect moves a disconnected device to idle.
func (d *Device) Connect() bool {
	if d.state != Disconnected {
		return false
	}
	d.state = Idle
	return true
}

// Disconnect moves the device to disconnected.
func (d *Device) Disconnect() bool {
	d.state = Disconnected
	return true
}

// IsConnected returns true in idle, streaming and test state.
func (d *Device) IsConnected() bool {
	return d.state == Idle || d.state == Streaming || d.state == Test
}

// IsStreaming returns true if the device sends data.
func (d *Device) IsStreaming() bool {
	return d.state == Streaming
}

// IsTimeoutReached returns true if the device timed out.
func (d *Device) IsTimeoutReached() bool {
	return d.state == Timeout
}

// KeepAlive resets the inactivity timer.
func (d *Device) KeepAlive() {
	d.inactivity = 0
}

// Reset resets sensors, output readers and the battery and wireless
// readings.
func (d *Device) Reset() {
	for _, s := range d.sensors {
		s.Reset()
	}
	for _, r := range d.outputReaders {
		r.Reset()
	}
	d.receivedBattery = false
	d.receivedWireless = false
	d.battery = 0
	d.wireless = 0
}

// Update updates all sensors and the device state.
func (d *Device) Update(elapsed, delta float64) {
	d.inactivity += delta
	if d.inactivity > d.TimeoutLimit() {
		d.state = Timeout
	}
	if !d.IsEnabled() {
		return
	}

	receivedData, active := false, false
	for _, s := range d.sensors {
		s.Update(elapsed, delta)

		// the last sample of a burst is fresh, the first one is stale by
		// the burst duration
		burst := int(s.CalculateAverageBurstSize())
		if burst <= 1 {
			s.SetLatency(d.Latency())
		} else {
			burstDuration := 0.0
			if s.SampleRate() > epsilon {
				burstDuration = float64(burst-1) / s.SampleRate()
			}
			s.SetLatency(burstDuration/2 + d.Latency())
		}

		receivedData = receivedData || s.Input().NumNewSamples() > 0
		active = active || s.Input().IsActive()
		s.SetExpectedJitter(d.ExpectedJitter())
	}

	for _, r := range d.outputReaders {
		r.Update()
	}

	if active {
		d.inactivity = 0
	}

	if d.state == Idle && receivedData {
		d.Sync(elapsed, false)
	}
	// receiving data wins over any other state
	if receivedData {
		d.state = Streaming
	}
}

const epsilon = 1e-9

// AcquireLock gives the device to owner. It fails if another owner holds
// the device.
func (d *Device) AcquireLock(owner interface{}) bool {
	if d.lockOwner != nil && d.lockOwner != owner {
		return false
	}
	d.lockOwner = owner
	return true
}

// ReleaseLock frees the device. It fails if owner doesn't hold the lock.
func (d *Device) ReleaseLock(owner interface{}) bool {
	if d.lockOwner != owner {
		return false
	}
	d.lockOwner = nil
	return true
}

// IsLocked returns true if any owner holds the device.
func (d *Device) IsLocked() bool {
	return d.lockOwner != nil
}

// Sync aligns all sensors with the engine timeline at t.
func (d *Device) Sync(t float64, usePadding bool) {
	for _, s := range d.sensors {
		s.Sync(t, usePadding)
	}
}

// AddSensor creates a sensor from spec. Output sensors get a reader for
// the device to consume what the engine writes.
func (d *Device) AddSensor(spec SensorSpec) *Sensor {
	inputRate := spec.SampleRate
	if spec.Irregular {
		inputRate = 0
	}
	s := NewSensor(spec.Name, spec.SampleRate, inputRate)
	out := s.Output()
	out.SetMinValue(spec.Min)
	out.SetMaxValue(spec.Max)
	out.SetUnit(spec.Unit)
	out.SetColor(spec.Color)
	channel.CopyMetadata(s.Input(), out)
	d.attachSensor(s, spec.Direction)
	if spec.Neuro && spec.Direction == Input {
		d.neuroSensors = append(d.neuroSensors, s)
	}
	return s
}

func (d *Device) attachSensor(s *Sensor, direction Direction) {
	s.SetContext(d.ctx)
	if direction == Input {
		d.inputSensors = append(d.inputSensors, s)
	} else {
		d.outputSensors = append(d.outputSensors, s)
		d.outputReaders = append(d.outputReaders, channel.NewReader(s.Output()))
	}
	d.sensors = append(d.sensors, s)
}

// Sensors returns all sensors.
func (d *Device) Sensors() []*Sensor {
	return d.sensors
}

// InputSensors returns the sensors that carry data into the engine.
func (d *Device) InputSensors() []*Sensor {
	return d.inputSensors
}

// NeuroSensors returns the electrode sensors of a headset.
func (d *Device) NeuroSensors() []*Sensor {
	return d.neuroSensors
}

// OutputSensors returns the sensors that carry data to the device.
func (d *Device) OutputSensors() []*Sensor {
	return d.outputSensors
}

// OutputReader returns the reader of the i-th output sensor.
func (d *Device) OutputReader(i int) *channel.Reader {
	return d.outputReaders[i]
}

// FindSensorByName returns the sensor with the name, nil if there is none.
func (d *Device) FindSensorByName(name string) *Sensor {
	for _, s := range d.sensors {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// FindMaxLatency returns the highest latency of all sensors.
func (d *Device) FindMaxLatency() float64 {
	max := 0.0
	for _, s := range d.sensors {
		max = math.Max(max, s.Latency())
	}
	return max
}

// CalculateSensorMemoryUsage returns the bytes allocated by all sensors.
func (d *Device) CalculateSensorMemoryUsage() int {
	n := 0
	for _, s := range d.sensors {
		n += s.MemoryAllocated()
	}
	return n
}

// SetDriftCorrectionEnabled toggles drift correction of all sensors.
func (d *Device) SetDriftCorrectionEnabled(enabled bool) {
	for _, s := range d.sensors {
		s.SetDriftCorrectionEnabled(enabled)
	}
}

// PowerSupply returns the current power source.
func (d *Device) PowerSupply() PowerSupply {
	return d.powerSupply
}

// SetPowerSupply sets the current power source.
func (d *Device) SetPowerSupply(p PowerSupply) {
	d.powerSupply = p
}

// HasBatteryIndicator returns true after a non zero battery level was
// received.
func (d *Device) HasBatteryIndicator() bool {
	return d.receivedBattery
}

// SetBatteryChargeLevel sets the normalized battery level. Changes up to
// one percent are ignored so noisy readings don't jitter.
func (d *Device) SetBatteryChargeLevel(level float64) {
	if level > 0 {
		d.receivedBattery = true
	}
	if math.Abs(d.battery-level) > batteryHysteresis {
		d.battery = level
	}
}

// BatteryChargeLevel returns the normalized battery level. Line powered
// devices report 1, devices without reading 0.
func (d *Device) BatteryChargeLevel() float64 {
	switch {
	case d.powerSupply == PowerBattery && d.receivedBattery:
		return d.battery
	case d.powerSupply == PowerLine:
		return 1
	}
	return 0
}

// CriticalBatteryLevel returns the battery level considered critical.
func (d *Device) CriticalBatteryLevel() float64 {
	return d.typ.CriticalBatteryLevel
}

// IsBatteryCritical returns true if a battery powered device reported a
// level at or below the critical level.
func (d *Device) IsBatteryCritical() bool {
	if d.powerSupply == PowerBattery && d.receivedBattery {
		return d.battery <= d.CriticalBatteryLevel()
	}
	return false
}

// IsWireless returns true for wireless hardware.
func (d *Device) IsWireless() bool {
	return d.typ.Wireless
}

// HasWirelessIndicator returns true after a non zero signal quality was
// received.
func (d *Device) HasWirelessIndicator() bool {
	return d.receivedWireless
}

// SetWirelessSignalQuality sets the normalized wireless signal quality.
func (d *Device) SetWirelessSignalQuality(quality float64) {
	if quality > 0 {
		d.receivedWireless = true
	}
	d.wireless = quality
}

// WirelessSignalQuality returns the signal quality of wireless devices
// with indicator, 0 otherwise.
func (d *Device) WirelessSignalQuality() float64 {
	if d.IsWireless() && d.HasWirelessIndicator() {
		return d.wireless
	}
	return 0
}

// HasTestMode returns true if the hardware has a test mode.
func (d *Device) HasTestMode() bool {
	return d.typ.HasTestMode
}

// StartTest starts the test mode. Drivers implementing Tester run it.
func (d *Device) StartTest() bool {
	if !d.HasTestMode() || !d.IsConnected() {
		return false
	}
	if t, ok := d.driver.(Tester); ok && !t.StartTest(d) {
		return false
	}
	d.testRunning = true
	d.state = Test
	return true
}

// StopTest stops the test mode.
func (d *Device) StopTest() {
	if !d.testRunning {
		return
	}
	if t, ok := d.driver.(Tester); ok {
		t.StopTest(d)
	}
	d.testRunning = false
	if d.state == Test {
		d.state = Idle
	}
}

// IsTestRunning returns true while the test mode runs.
func (d *Device) IsTestRunning() bool {
	if t, ok := d.driver.(Tester); ok {
		return t.IsTestRunning(d)
	}
	return d.testRunning
}

// MatchAddress reports if the message is addressed to this device.
func (d *Device) MatchAddress(m Message) bool {
	return d.oscAddress != "" && m.MatchAddress(d.oscAddress)
}

// ProcessMessage handles a message addressed to the device. Types without
// handler only understand battery messages.
func (d *Device) ProcessMessage(m Message) {
	if !d.IsEnabled() {
		return
	}
	if d.typ.Handler != nil {
		d.typ.Handler(d, m)
		return
	}
	HandleBattery(d, m)
}

// HandleBattery applies a battery message with the normalized level as
// first argument. It reports false for other messages.
func HandleBattery(d *Device, m Message) bool {
	if !m.MatchAddress("/*/*/batt") {
		return false
	}
	if level, ok := m.Float(0); ok {
		d.SetBatteryChargeLevel(level)
	}
	return true
}

// SensorHandler is a message handler that queues the arguments of a
// message into the sensor named like the last address segment. The name
// is matched case insensitive.
func SensorHandler(d *Device, m Message) {
	if HandleBattery(d, m) {
		return
	}
	elements := pathElements(m.Address)
	leaf := elements[len(elements)-1]
	for _, s := range d.inputSensors {
		if !strings.EqualFold(s.Name(), leaf) {
			continue
		}
		for _, v := range m.Floats() {
			s.AddQueuedSample(v)
		}
		return
	}
}

// SequenceHandler is a message handler that queues the i-th argument of a
// message into the i-th input sensor.
func SequenceHandler(d *Device, m Message) {
	if HandleBattery(d, m) {
		return
	}
	values := m.Floats()
	for i, s := range d.inputSensors {
		if i >= len(values) {
			return
		}
		s.AddQueuedSample(values[i])
	}
}

func (d *Device) String() string {
	if d.name != "" {
		return d.name
	}
	return fmt.Sprintf("%s (%d)", d.typ.HardwareName, d.id)
}
