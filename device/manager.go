package device

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/neuromore/engine/internal/multierr"
	"github.com/neuromore/engine/log"
	"github.com/neuromore/engine/metric"
	"github.com/neuromore/engine/notify"
)

// unknownDeviceName is returned for type ids nobody registered.
const unknownDeviceName = "UNKNOWNDEVICE"

// Key identifies a device within a manager.
type Key struct {
	Type int
	ID   int
}

func (k Key) String() string {
	return fmt.Sprintf("%#04x/%d", k.Type, k.ID)
}

// Observer receives device lifecycle events. Nil functions are skipped.
type Observer struct {
	DeviceAdded          func(*Device)
	RemoveDevice         func(*Device)
	DeviceRemoved        func(*Device)
	ActiveHeadsetChanged func(*Device)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger of the manager.
func WithLogger(l log.Logger) Option {
	return func(m *Manager) {
		m.logger = log.WithComponent(l, "device manager")
	}
}

// WithContext sets the engine context devices are added to.
func WithContext(ctx Context) Option {
	return func(m *Manager) {
		m.ctx = ctx
	}
}

// WithInactiveRemoval toggles the removal of timed out devices.
func WithInactiveRemoval(enabled bool) Option {
	return func(m *Manager) {
		m.removeInactive = enabled
	}
}

// WithObserver adds an observer of device events.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, o)
	}
}

// WithNotifications adds an observer of device notifications.
func WithNotifications(o notify.Observer) Option {
	return func(m *Manager) {
		m.notifiers = append(m.notifiers, o)
	}
}

// Manager owns all devices and drivers. Everything except the async calls
// and QueueMessage must be called from the tick goroutine.
type Manager struct {
	ctx            Context
	logger         log.Logger
	removeInactive bool

	types         []*Type
	drivers       []Driver
	devices       []*Device
	configs       []Config
	activeHeadset *Device

	observers []Observer
	notifiers []notify.Observer

	addMu    sync.Mutex
	toAdd    []*Device
	removeMu sync.Mutex
	toRemove []*Device
	msgMu    sync.Mutex
	messages []Message

	meters   map[*Device]metric.MeasureFunc
	critical map[*Device]bool
}

// NewManager returns a manager that removes timed out devices.
func NewManager(options ...Option) *Manager {
	m := &Manager{
		ctx:            NewStaticContext(),
		logger:         log.Silent,
		removeInactive: true,
		meters:         make(map[*Device]metric.MeasureFunc),
		critical:       make(map[*Device]bool),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// AddObserver adds an observer of device events.
func (m *Manager) AddObserver(o Observer) {
	m.observers = append(m.observers, o)
}

// AddNotificationObserver adds an observer of device notifications.
func (m *Manager) AddNotificationObserver(o notify.Observer) {
	m.notifiers = append(m.notifiers, o)
}

// SetInactiveRemoval toggles the removal of timed out devices.
func (m *Manager) SetInactiveRemoval(enabled bool) {
	m.removeInactive = enabled
}

// Update runs one tick: removes timed out devices, drains the async
// queues, then updates drivers and devices.
func (m *Manager) Update(elapsed, delta float64) {
	if m.removeInactive {
		m.RemoveInactiveDevices()
	}

	m.addMu.Lock()
	toAdd := m.toAdd
	m.toAdd = nil
	m.addMu.Unlock()
	for _, d := range toAdd {
		m.AddDevice(d)
	}

	m.removeMu.Lock()
	toRemove := m.toRemove
	m.toRemove = nil
	m.removeMu.Unlock()
	for _, d := range toRemove {
		if err := m.RemoveDevice(d); err != nil {
			m.logger.Error(err)
		}
	}

	for _, drv := range m.drivers {
		drv.Update(elapsed, delta)
	}
	for _, d := range m.devices {
		d.Update(elapsed, delta)
		m.measure(d)
		m.checkBattery(d)
	}
}

func (m *Manager) measure(d *Device) {
	measure, ok := m.meters[d]
	if !ok {
		return
	}
	n := 0
	for _, s := range d.inputSensors {
		n += s.Input().NumNewSamples()
	}
	measure(int64(n))
}

// checkBattery reports when a device enters or leaves the critical battery
// state.
func (m *Manager) checkBattery(d *Device) {
	critical := d.IsBatteryCritical()
	if critical == m.critical[d] {
		return
	}
	m.critical[d] = critical
	n := notify.Notification{
		Code:    notify.WarningDevicePowerStateCritical,
		Message: fmt.Sprintf("%s battery low", d.Name()),
		Cleared: !critical,
	}
	if critical {
		n.Description = fmt.Sprintf("Device '%s' has reached critical battery state of %.0f%%.", d.Name(), d.BatteryChargeLevel()*100)
	}
	m.notify(n)
}

func (m *Manager) notify(n notify.Notification) {
	for _, o := range m.notifiers {
		o.Notify(n)
	}
}

// RegisterDeviceType adds a prototype. Types are registered before the
// manager is updated.
func (m *Manager) RegisterDeviceType(t *Type) error {
	if err := t.normalize(); err != nil {
		return err
	}
	if m.RegisteredDeviceType(t.ID) != nil {
		return fmt.Errorf("%w: %s (%#x)", ErrDuplicateType, t.TypeName, t.ID)
	}
	m.types = append(m.types, t)
	m.logger.Info(fmt.Sprintf("device type '%s' registered", t.HardwareName))
	return nil
}

// UnregisterDeviceType removes a prototype.
func (m *Manager) UnregisterDeviceType(typeID int) {
	for i, t := range m.types {
		if t.ID == typeID {
			m.types = append(m.types[:i], m.types[i+1:]...)
			return
		}
	}
}

// RegisteredDeviceType returns the prototype with the id, nil if unknown.
func (m *Manager) RegisteredDeviceType(typeID int) *Type {
	for _, t := range m.types {
		if t.ID == typeID {
			return t
		}
	}
	return nil
}

// RegisteredDeviceTypes returns all prototypes.
func (m *Manager) RegisteredDeviceTypes() []*Type {
	return m.types
}

// FindDeviceTypeByName maps a type name to its id, ignoring case.
func (m *Manager) FindDeviceTypeByName(name string) int {
	for _, t := range m.types {
		if strings.EqualFold(t.TypeName, name) {
			return t.ID
		}
	}
	return InvalidTypeID
}

// FindDeviceNameByType maps a type id to its name.
func (m *Manager) FindDeviceNameByType(typeID int) string {
	if t := m.RegisteredDeviceType(typeID); t != nil {
		return t.TypeName
	}
	return unknownDeviceName
}

// AddDeviceDriver adds a driver. A driver that supports a device type of
// another driver is rejected as a whole.
func (m *Manager) AddDeviceDriver(drv Driver) error {
	for _, typeID := range drv.SupportedTypes() {
		if other := m.FindDeviceDriverByDeviceType(typeID); other != nil {
			m.logger.Warn(fmt.Sprintf("multiple drivers were added for devices of type %#x, driver %s will be removed", typeID, drv.Name()))
			return fmt.Errorf("%w: %s and %s both support %#x", ErrDriverOverlap, drv.Name(), other.Name(), typeID)
		}
	}
	if drv.HasAutoDetectionSupport() {
		drv.SetAutoDetectionEnabled(m.ctx.AutoDetection())
	}
	if err := drv.Init(m); err != nil {
		return errors.Wrapf(err, "init driver %s", drv.Name())
	}
	m.drivers = append(m.drivers, drv)
	m.logger.Info(fmt.Sprintf("device driver '%s' added", drv.Name()))
	return nil
}

// Drivers returns all drivers.
func (m *Manager) Drivers() []Driver {
	return m.drivers
}

// FindDeviceDriverByDeviceType returns the driver of the type, nil if no
// driver supports it.
func (m *Manager) FindDeviceDriverByDeviceType(typeID int) Driver {
	for _, drv := range m.drivers {
		for _, t := range drv.SupportedTypes() {
			if t == typeID {
				return drv
			}
		}
	}
	return nil
}

// CreateDeviceObjectByType lets the driver of the type create a device.
func (m *Manager) CreateDeviceObjectByType(typeID int) (*Device, error) {
	drv := m.FindDeviceDriverByDeviceType(typeID)
	if drv == nil {
		return nil, fmt.Errorf("%w: no driver for %#x", ErrUnknownDeviceType, typeID)
	}
	return drv.CreateDevice(typeID)
}

// DetectDevices runs the device detection of all drivers once.
func (m *Manager) DetectDevices() {
	for _, drv := range m.drivers {
		drv.DetectDevices()
	}
}

// SetAutoDetectionEnabled toggles auto detection of all drivers that
// support it.
func (m *Manager) SetAutoDetectionEnabled(enabled bool) {
	for _, drv := range m.drivers {
		if drv.HasAutoDetectionSupport() {
			drv.SetAutoDetectionEnabled(enabled)
		}
	}
}

// IsDetectionRunning returns true while any driver searches for devices.
func (m *Manager) IsDetectionRunning() bool {
	for _, drv := range m.drivers {
		if drv.HasAutoDetectionSupport() && drv.IsDetectionRunning() {
			return true
		}
	}
	return false
}

// IsDeviceTestRunning returns true if any device is in test mode.
func (m *Manager) IsDeviceTestRunning() bool {
	for _, d := range m.devices {
		if d.IsTestRunning() {
			return true
		}
	}
	return false
}

// IsDevicePowerOk returns false if any device battery is critical.
func (m *Manager) IsDevicePowerOk() bool {
	for _, d := range m.devices {
		if d.IsBatteryCritical() {
			return false
		}
	}
	return true
}

// AddDevice adds a device now. Devices without id get the first free one,
// a clashing id is replaced. A matching config is applied.
func (m *Manager) AddDevice(d *Device) {
	typeID := d.TypeID()
	if d.ID() == InvalidID {
		d.SetID(m.FindFreeDeviceID(typeID))
	} else if m.FindDeviceByType(typeID, d.ID()) != nil {
		free := m.FindFreeDeviceID(typeID)
		m.logger.Error(fmt.Sprintf("device of type '%s' with ID %d already exists, changing ID to %d", d.TypeName(), d.ID(), free))
		d.SetID(free)
	}

	if !d.IsConfigured() {
		if c, ok := m.FindDeviceConfigForDevice(typeID, d.ID()); ok {
			d.Configure(c)
		}
	}
	if d.Name() == "" {
		if d.ID() == 0 {
			d.SetName(d.HardwareName())
		} else {
			d.SetName(fmt.Sprintf("%s (%d)", d.HardwareName(), d.ID()))
		}
	}

	d.SetContext(m.ctx)
	m.devices = append(m.devices, d)
	m.meters[d] = metric.Meter("device/"+d.TypeName(), sensorRate(d))()

	for _, o := range m.observers {
		if o.DeviceAdded != nil {
			o.DeviceAdded(d)
		}
	}
	m.notify(notify.Notification{
		Code:        notify.InfoDeviceConnected,
		Message:     fmt.Sprintf("%s connected", d.Name()),
		Description: fmt.Sprintf("The device '%s' connected successfully.", d.Name()),
	})

	if d.IsHeadset() {
		m.setActiveHeadset(d)
	}
	if m.ctx.AutoSync() {
		m.ctx.SyncAsync()
	}
	m.logger.Info(fmt.Sprintf("device '%s' added", d.Name()))
}

// sensorRate returns the summed rate of the input sensors.
func sensorRate(d *Device) float64 {
	rate := 0.0
	for _, s := range d.inputSensors {
		rate += s.Input().SampleRate()
	}
	return rate
}

// AddDeviceAsync queues a device to be added on the next update. Messages
// addressed to the device are routed to it right away. Safe for
// concurrent use.
func (m *Manager) AddDeviceAsync(d *Device) {
	m.addMu.Lock()
	m.toAdd = append(m.toAdd, d)
	m.addMu.Unlock()
}

// RemoveDevice removes a device now. If it is the active headset, another
// headset becomes active.
func (m *Manager) RemoveDevice(d *Device) error {
	index := m.FindDeviceIndex(d)
	if index < 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, d)
	}

	if m.activeHeadset == d {
		var next *Device
		for _, other := range m.devices {
			if other != d && other.IsHeadset() && other.IsConnected() {
				next = other
			}
		}
		m.setActiveHeadset(next)
	}

	for _, o := range m.observers {
		if o.RemoveDevice != nil {
			o.RemoveDevice(d)
		}
	}
	// observers may have removed other devices
	if index = m.FindDeviceIndex(d); index < 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, d)
	}
	m.devices = append(m.devices[:index], m.devices[index+1:]...)
	delete(m.meters, d)
	delete(m.critical, d)
	for _, o := range m.observers {
		if o.DeviceRemoved != nil {
			o.DeviceRemoved(d)
		}
	}
	m.notify(notify.Notification{
		Code:        notify.InfoDeviceDisconnected,
		Message:     fmt.Sprintf("%s disconnected", d.Name()),
		Description: fmt.Sprintf("The device '%s' has been disconnected.", d.Name()),
	})
	m.logger.Info(fmt.Sprintf("device '%s' removed", d.Name()))
	return nil
}

// RemoveDeviceAsync queues a device to be removed on the next update. Safe
// for concurrent use.
func (m *Manager) RemoveDeviceAsync(d *Device) {
	m.removeMu.Lock()
	m.queueRemoval(d)
	m.removeMu.Unlock()
}

func (m *Manager) queueRemoval(d *Device) {
	for _, queued := range m.toRemove {
		if queued == d {
			return
		}
	}
	m.toRemove = append(m.toRemove, d)
}

// RemoveInactiveDevices queues all timed out devices for removal.
func (m *Manager) RemoveInactiveDevices() {
	m.removeMu.Lock()
	defer m.removeMu.Unlock()
	for _, d := range m.devices {
		if d.IsTimeoutReached() {
			m.logger.Debug(fmt.Sprintf("device '%s' timed out", d.Name()))
			m.queueRemoval(d)
		}
	}
}

// ActiveHeadset returns the headset nodes read from by default.
func (m *Manager) ActiveHeadset() *Device {
	return m.activeHeadset
}

// SetActiveHeadset selects the active headset. Nil clears it.
func (m *Manager) SetActiveHeadset(d *Device) {
	if d != nil && !d.IsHeadset() {
		return
	}
	m.setActiveHeadset(d)
}

func (m *Manager) setActiveHeadset(d *Device) {
	if m.activeHeadset == d {
		return
	}
	m.activeHeadset = d
	for _, o := range m.observers {
		if o.ActiveHeadsetChanged != nil {
			o.ActiveHeadsetChanged(d)
		}
	}
}

// Devices returns all devices.
func (m *Manager) Devices() []*Device {
	return m.devices
}

// Device returns the device with the key, nil if there is none.
func (m *Manager) Device(k Key) *Device {
	return m.FindDeviceByType(k.Type, k.ID)
}

// FindDeviceIndex returns the position of the device, -1 if not found.
func (m *Manager) FindDeviceIndex(d *Device) int {
	for i, other := range m.devices {
		if other == d {
			return i
		}
	}
	return -1
}

// FindDeviceByType returns the device of the type with the instance
// number.
func (m *Manager) FindDeviceByType(typeID, id int) *Device {
	for _, d := range m.devices {
		if d.TypeID() == typeID && d.ID() == id {
			return d
		}
	}
	return nil
}

// FindDevicesByType returns all devices of the type.
func (m *Manager) FindDevicesByType(typeID int) []*Device {
	var found []*Device
	for _, d := range m.devices {
		if d.TypeID() == typeID {
			found = append(found, d)
		}
	}
	return found
}

// FindDevicesByUUID returns all devices of the hardware uuid.
func (m *Manager) FindDevicesByUUID(uuid string) []*Device {
	var found []*Device
	for _, d := range m.devices {
		if strings.EqualFold(d.UUID(), uuid) {
			found = append(found, d)
		}
	}
	return found
}

// FindNumDevicesByType returns the number of devices of the type.
func (m *Manager) FindNumDevicesByType(typeID int) int {
	return len(m.FindDevicesByType(typeID))
}

// FindFreeDeviceID returns the lowest instance number not used by devices
// of the type.
func (m *Manager) FindFreeDeviceID(typeID int) int {
	for id := 0; ; id++ {
		if m.FindDeviceByType(typeID, id) == nil {
			return id
		}
	}
}

// FindMaximumLatency returns the highest sensor latency of all devices.
func (m *Manager) FindMaximumLatency() float64 {
	max := 0.0
	for _, d := range m.devices {
		if l := d.FindMaxLatency(); l > max {
			max = l
		}
	}
	return max
}

// SyncDevices aligns all devices with the engine timeline at t.
func (m *Manager) SyncDevices(t float64) {
	for _, d := range m.devices {
		d.Sync(t, true)
	}
}

// ResetDevices resets sensors of all devices. Connections stay.
func (m *Manager) ResetDevices() {
	for _, d := range m.devices {
		d.Reset()
	}
}

// AddDeviceConfig adds a config. Disabled configs are skipped, a config
// named like a known one is rejected unless replace is set.
func (m *Manager) AddDeviceConfig(c Config, replace bool) error {
	if !c.Valid {
		return ErrInvalidConfig
	}
	if !c.Enabled {
		m.logger.Info("skipping disabled device config")
		return nil
	}
	for i := range m.configs {
		if !strings.EqualFold(m.configs[i].Name, c.Name) {
			continue
		}
		if !replace {
			m.logger.Warn(fmt.Sprintf("there already is a device config with the name '%s'", c.Name))
			return fmt.Errorf("%w: %s", ErrDuplicateConfig, c.Name)
		}
		m.configs[i] = c
		return nil
	}
	m.configs = append(m.configs, c)
	m.logger.Info(fmt.Sprintf("loaded device config '%s' for device of type '%s'", c.Name, m.FindDeviceNameByType(c.DeviceType)))
	return nil
}

// LoadDeviceConfig parses and adds a config.
func (m *Manager) LoadDeviceConfig(data []byte, replace bool) error {
	c, err := ParseConfig(data, m.FindDeviceTypeByName)
	if err != nil {
		return err
	}
	return m.AddDeviceConfig(c, replace)
}

// DeviceConfigs returns all configs.
func (m *Manager) DeviceConfigs() []Config {
	return m.configs
}

// FindDeviceConfigsByType returns all configs of the type.
func (m *Manager) FindDeviceConfigsByType(typeID int) []Config {
	var found []Config
	for _, c := range m.configs {
		if c.DeviceType == typeID {
			found = append(found, c)
		}
	}
	return found
}

// HasDeviceConfigForDevice reports if a config for the device exists.
func (m *Manager) HasDeviceConfigForDevice(typeID, id int) bool {
	_, ok := m.FindDeviceConfigForDevice(typeID, id)
	return ok
}

// FindDeviceConfigForDevice returns the config of the device with type
// and instance number.
func (m *Manager) FindDeviceConfigForDevice(typeID, id int) (Config, bool) {
	for _, c := range m.configs {
		if c.DeviceType == typeID && c.DeviceID == id {
			return c, true
		}
	}
	return Config{}, false
}

// QueueMessage queues an inbound message for the next ProcessMessages
// call. Safe for concurrent use.
func (m *Manager) QueueMessage(msg Message) {
	m.msgMu.Lock()
	m.messages = append(m.messages, msg)
	m.msgMu.Unlock()
}

// ProcessMessages handles all queued messages.
func (m *Manager) ProcessMessages() {
	m.msgMu.Lock()
	messages := m.messages
	m.messages = nil
	m.msgMu.Unlock()
	for _, msg := range messages {
		m.ProcessMessage(msg)
	}
}

// ProcessMessage routes a message to the devices it is addressed to. A
// message nobody receives creates a device if a type pattern matches and
// the address holds an instance number.
func (m *Manager) ProcessMessage(msg Message) {
	if m.route(msg) {
		return
	}
	for _, t := range m.types {
		if t.OscPathPattern == "" || !msg.MatchAddress(t.OscPathPattern) {
			continue
		}
		id := t.deviceID(msg.Address)
		if id == InvalidID {
			continue
		}

		var d *Device
		if drv := m.FindDeviceDriverByDeviceType(t.ID); drv != nil {
			var err error
			if d, err = drv.CreateDevice(t.ID); err != nil {
				m.logger.Error(errors.Wrapf(err, "create device for %s", msg.Address))
				return
			}
		} else {
			d = New(t, nil)
		}
		d.SetID(id)
		d.SetDeviceString(t.deviceString(msg.Address))
		m.AddDeviceAsync(d)
		// the first message must not be lost
		d.ProcessMessage(msg)
		return
	}
}

// route delivers the message to added and queued devices.
func (m *Manager) route(msg Message) bool {
	routed := false
	for _, d := range m.devices {
		if d.MatchAddress(msg) {
			d.ProcessMessage(msg)
			routed = true
		}
	}
	m.addMu.Lock()
	queued := append([]*Device(nil), m.toAdd...)
	m.addMu.Unlock()
	for _, d := range queued {
		if d.MatchAddress(msg) {
			d.ProcessMessage(msg)
			routed = true
		}
	}
	return routed
}

// Close removes all devices and closes the drivers.
func (m *Manager) Close() error {
	var errs multierr.Errors
	devices := append([]*Device(nil), m.devices...)
	for i := len(devices) - 1; i >= 0; i-- {
		if err := m.RemoveDevice(devices[i]); err != nil {
			errs = append(errs, errors.Wrapf(err, "remove device %s", devices[i]))
		}
	}
	m.addMu.Lock()
	m.toAdd = nil
	m.addMu.Unlock()
	m.removeMu.Lock()
	m.toRemove = nil
	m.removeMu.Unlock()

	for _, drv := range m.drivers {
		if err := drv.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close driver %s", drv.Name()))
		}
	}
	m.drivers = nil
	return errs.Ret()
}
