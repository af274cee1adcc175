package wav

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/neuromore/engine/device"
	"github.com/neuromore/engine/resample"
)

// TypeID is the device type of wav file players.
const TypeID = 0xC010

// readChunk is the number of samples read from a file at once.
const readChunk = 512

var (
	// ErrNoFiles is returned when a driver is created without files.
	ErrNoFiles = errors.New("no wav files")
	// ErrFormatMismatch is returned when the files of a driver differ in
	// sample rate or channel count.
	ErrFormatMismatch = errors.New("wav files have different formats")
	// ErrNoFreeFile is returned when every file already plays on a device.
	ErrNoFreeFile = errors.New("all wav files are in use")
)

// Type returns the device type of a wav player with one sensor per file
// channel.
func Type(sampleRate float64, numChannels int) *device.Type {
	sensors := make([]device.SensorSpec, 0, numChannels)
	for i := 0; i < numChannels; i++ {
		sensors = append(sensors, device.SensorSpec{
			Name:       fmt.Sprintf("Ch%d", i+1),
			SampleRate: sampleRate,
			Min:        -1,
			Max:        1,
		})
	}
	return &device.Type{
		ID:           TypeID,
		TypeName:     "wav",
		HardwareName: "WAV File",
		InitialState: device.Idle,
		Sensors:      sensors,
	}
}

// player feeds the samples of one file into a device.
type player struct {
	path   string
	reader *Reader
	device *device.Device
	clock  resample.Clock
	done   bool
}

// Driver plays wav files as devices. Every file becomes one device whose
// sensors receive the file samples at the file sample rate.
type Driver struct {
	device.DriverBase
	// Loop restarts files at their end.
	Loop bool

	typ       *device.Type
	registrar device.Registrar

	mu      sync.Mutex
	players []*player
}

// NewDriver opens the files. All files must share sample rate and channel
// count.
func NewDriver(paths ...string) (*Driver, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	drv := &Driver{}
	for _, path := range paths {
		r, err := Open(path)
		if err != nil {
			drv.Close()
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		drv.players = append(drv.players, &player{path: path, reader: r})
		if drv.typ == nil {
			drv.typ = Type(float64(r.SampleRate()), r.NumChannels())
			continue
		}
		if r.SampleRate() != int(drv.typ.Sensors[0].SampleRate) || r.NumChannels() != len(drv.typ.Sensors) {
			drv.Close()
			return nil, fmt.Errorf("%s: %w", path, ErrFormatMismatch)
		}
	}
	return drv, nil
}

// Type returns the device type of the driver. It has to be registered with
// the manager before the driver is added.
func (d *Driver) Type() *device.Type {
	return d.typ
}

// Name implements device.Driver.
func (d *Driver) Name() string {
	return "wav"
}

// SupportedTypes implements device.Driver.
func (d *Driver) SupportedTypes() []int {
	return []int{TypeID}
}

// Init creates one device per file.
func (d *Driver) Init(r device.Registrar) error {
	d.registrar = r
	for range d.players {
		dev, err := d.CreateDevice(TypeID)
		if err != nil {
			return err
		}
		r.AddDeviceAsync(dev)
	}
	return nil
}

// CreateDevice binds the next file without device.
func (d *Driver) CreateDevice(typeID int) (*device.Device, error) {
	if typeID != TypeID {
		return nil, fmt.Errorf("%w: %#x", device.ErrNotSupported, typeID)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.players {
		if p.device != nil {
			continue
		}
		p.device = device.New(d.typ, d)
		p.device.SetName(filepath.Base(p.path))
		return p.device, nil
	}
	return nil, ErrNoFreeFile
}

// Update pushes the samples that are due since the last update.
func (d *Driver) Update(elapsed, delta float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.players {
		if p.device == nil || p.done {
			continue
		}
		if !p.clock.IsRunning() {
			p.clock.SetMode(resample.Independent)
			p.clock.SetFrequency(float64(p.reader.SampleRate()))
			p.clock.SetStartTime(elapsed)
			p.clock.Reset()
			p.clock.Start()
		}
		p.clock.Update(elapsed, delta)
		due := p.clock.NumNewTicks()
		p.clock.ClearNewTicks()
		if err := d.push(p, due); err != nil {
			p.done = true
		}
	}
}

// push reads n samples of the file into the device sensors.
func (d *Driver) push(p *player, n int) error {
	sensors := p.device.InputSensors()
	rewound := false
	for n > 0 {
		b, err := p.reader.Read(min(n, readChunk))
		// an empty file ends even when looping
		if errors.Is(err, io.EOF) && d.Loop && !rewound {
			if err = d.rewind(p); err != nil {
				return err
			}
			rewound = true
			continue
		}
		if err != nil {
			return err
		}
		rewound = false
		for i, s := range sensors {
			if i >= b.NumChannels() {
				break
			}
			for _, v := range b[i] {
				s.AddQueuedSample(v)
			}
		}
		n -= b.Size()
	}
	return nil
}

// rewind reopens the file at its start.
func (d *Driver) rewind(p *player) error {
	if err := p.reader.Close(); err != nil {
		return err
	}
	r, err := Open(p.path)
	if err != nil {
		return err
	}
	p.reader = r
	return nil
}

// Close closes all files.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var err error
	for _, p := range d.players {
		if cerr := p.reader.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
