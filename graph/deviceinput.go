package graph

import (
	"fmt"

	"github.com/neuromore/engine/channel"
	"github.com/neuromore/engine/device"
)

// lowBatteryLevel is the charge level below which device inputs warn.
const lowBatteryLevel = 0.1

// DeviceInputConfig configures a device input node.
type DeviceInputConfig struct {
	// DeviceNumber selects among devices of the same type, starting at 1.
	DeviceNumber int
	// RawOutput forwards the unsynced sensor inputs and bypasses drift
	// correction.
	RawOutput bool
	// Exclusive locks the device for this node.
	Exclusive bool
}

// DefaultDeviceInputConfig returns a config binding the first device.
func DefaultDeviceInputConfig() DeviceInputConfig {
	return DeviceInputConfig{DeviceNumber: 1}
}

// DeviceInput forwards the sensor channels of a streaming device. The
// channels stay owned by the device. Headsets bundle their electrodes in
// the first port, every other input sensor gets its own port.
type DeviceInput struct {
	node    *Node
	typ     *device.Type
	config  DeviceInputConfig
	current *device.Device
}

// NewDeviceInput returns device input node behavior for devices of type t.
func NewDeviceInput(t *device.Type, config DeviceInputConfig) *DeviceInput {
	if config.DeviceNumber < 1 {
		config.DeviceNumber = 1
	}
	return &DeviceInput{typ: t, config: config}
}

// Kind implements Behavior.
func (*DeviceInput) Kind() Kind { return KindDeviceInput }

// TypeName implements Behavior.
func (d *DeviceInput) TypeName() string { return d.typ.TypeName + " input" }

// Init creates the ports of the device type.
func (d *DeviceInput) Init(n *Node) {
	d.node = n
	if d.typ.Kind == device.KindHeadset {
		n.AddOutputPort("EEG")
	}
	for _, spec := range d.typ.Sensors {
		if spec.Direction != device.Input || (spec.Neuro && d.typ.Kind == device.KindHeadset) {
			continue
		}
		n.AddOutputPort(spec.Name)
	}
	n.SetFlags(ExternalChannels)
}

// DeviceType returns the type of devices the node binds.
func (d *DeviceInput) DeviceType() *device.Type {
	return d.typ
}

// Device returns the bound device, nil if the node is stopped.
func (d *DeviceInput) Device() *device.Device {
	return d.current
}

// Config returns the current config.
func (d *DeviceInput) Config() DeviceInputConfig {
	return d.config
}

// SetConfig applies a new config. The node rebinds its device on the next
// update if anything changed.
func (d *DeviceInput) SetConfig(config DeviceInputConfig) error {
	if config.DeviceNumber < 1 {
		return fmt.Errorf("device number %d must be at least 1", config.DeviceNumber)
	}
	if config == d.config {
		return nil
	}
	d.config = config
	d.node.ResetAsync()
	return nil
}

// findDevice returns the configured device of the classifier device
// manager.
func (d *DeviceInput) findDevice(n *Node) *device.Device {
	if n.graph == nil || n.graph.manager == nil {
		return nil
	}
	return n.graph.manager.FindDeviceByType(d.typ.ID, d.config.DeviceNumber-1)
}

// ReInit binds the device if it is streaming.
func (d *DeviceInput) ReInit(n *Node, elapsed float64) bool {
	dev := d.findDevice(n)
	if dev == nil || !dev.IsEnabled() || !dev.IsStreaming() {
		n.SetError(ErrorDeviceNotFound, "Device not connected")
		return false
	}
	n.ClearError(ErrorDeviceNotFound)

	if d.config.Exclusive && !dev.AcquireLock(d) {
		n.SetError(ErrorDeviceLocked, "Device is already in use.")
		return false
	}
	n.ClearError(ErrorDeviceLocked)

	if d.current != nil && d.current != dev {
		// channels of the old device are still referenced by the ports
		n.ResetAsync()
	}
	d.current = dev
	return true
}

// Start references the sensor channels in the output ports.
func (d *DeviceInput) Start(n *Node, elapsed float64) error {
	dev := d.current
	if dev == nil {
		return fmt.Errorf("no %s device", d.typ.TypeName)
	}
	for i := 0; i < n.NumOutputPorts(); i++ {
		n.OutputPort(i).Channels().Clear()
	}

	port := 0
	if dev.IsHeadset() {
		eeg := n.OutputPort(0).Channels()
		for _, s := range dev.NeuroSensors() {
			eeg.AddChannel(d.sensorChannel(s))
		}
		port++
	}
	for _, s := range dev.InputSensors() {
		if dev.IsHeadset() && isNeuro(dev, s) {
			continue
		}
		if port >= n.NumOutputPorts() {
			break
		}
		p := n.OutputPort(port)
		p.Channels().AddChannel(d.sensorChannel(s))
		p.SetName(s.Name())
		port++
	}
	return nil
}

func isNeuro(dev *device.Device, s *device.Sensor) bool {
	for _, neuro := range dev.NeuroSensors() {
		if neuro == s {
			return true
		}
	}
	return false
}

func (d *DeviceInput) sensorChannel(s *device.Sensor) channel.Base {
	if d.config.RawOutput {
		return s.Input()
	}
	return s.Output()
}

// Update reports low batteries.
func (d *DeviceInput) Update(n *Node, elapsed, delta float64) {
	if d.current == nil {
		return
	}
	if d.current.HasBatteryIndicator() && d.current.BatteryChargeLevel() < lowBatteryLevel {
		n.SetWarning(WarningDeviceBatteryLow, "Battery low.")
	} else {
		n.ClearWarning(WarningDeviceBatteryLow)
	}
}

// Reset removes the sensor channels from the ports and frees the device.
func (d *DeviceInput) Reset(n *Node) {
	for i := 0; i < n.NumOutputPorts(); i++ {
		n.OutputPort(i).Channels().Clear()
	}
	if d.current != nil {
		d.current.ReleaseLock(d)
	}
	d.current = nil
}

// Latency implements Latencyer. It is the highest latency of the sensors
// forwarded by port out.
func (d *DeviceInput) Latency(n *Node, in, out int) float64 {
	if d.current == nil {
		return d.typ.Latency
	}
	latency := 0.0
	if out < 0 || out >= n.NumOutputPorts() {
		return d.current.FindMaxLatency()
	}
	for _, c := range n.OutputPort(out).Channels().Channels() {
		for _, s := range d.current.Sensors() {
			if s.Input() == c || s.Output() == c {
				latency = max(latency, s.Latency())
			}
		}
	}
	return latency
}

// UsedSensors returns the sensors whose channels are forwarded.
func (d *DeviceInput) UsedSensors(n *Node) []*device.Sensor {
	if d.current == nil {
		return nil
	}
	var used []*device.Sensor
	for _, s := range d.current.InputSensors() {
		if d.isForwarded(n, d.sensorChannel(s)) {
			used = append(used, s)
		}
	}
	return used
}

func (d *DeviceInput) isForwarded(n *Node, c channel.Base) bool {
	for i := 0; i < n.NumOutputPorts(); i++ {
		for _, forwarded := range n.OutputPort(i).Channels().Channels() {
			if forwarded == c {
				return true
			}
		}
	}
	return false
}
