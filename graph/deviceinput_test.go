package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuromore/engine/device"
	"github.com/neuromore/engine/graph"
	"github.com/neuromore/engine/internal/mock"
)

type deviceSetup struct {
	manager    *device.Manager
	device     *device.Device
	classifier *graph.Classifier
	elapsed    float64
}

func newDeviceSetup(t *testing.T, typ *device.Type) *deviceSetup {
	t.Helper()
	ctx := device.NewStaticContext()
	ctx.Drift.Enabled = false
	m := device.NewManager(device.WithContext(ctx))
	require.NoError(t, m.RegisterDeviceType(typ))
	drv := &mock.Driver{Types: []*device.Type{typ}, Samples: 10, Value: 1}
	require.NoError(t, m.AddDeviceDriver(drv))
	d, err := drv.CreateDevice(typ.ID)
	require.NoError(t, err)
	m.AddDevice(d)
	return &deviceSetup{
		manager:    m,
		device:     d,
		classifier: graph.NewClassifier("test", graph.WithDeviceManager(m)),
	}
}

func (s *deviceSetup) tick(n int) {
	for i := 0; i < n; i++ {
		s.elapsed += delta
		s.manager.Update(s.elapsed, delta)
		s.classifier.Update(s.elapsed, delta)
	}
}

func TestDeviceInput(t *testing.T) {
	typ := mock.Type(mock.TypeID, "mock", 2, 100)
	s := newDeviceSetup(t, typ)
	behavior := graph.NewDeviceInput(typ, graph.DefaultDeviceInputConfig())
	in := graph.NewNode("device", behavior)
	pass := graph.NewNode("pass", graph.NewPassthrough())
	require.NoError(t, s.classifier.AddNode(in))
	require.NoError(t, s.classifier.AddNode(pass))
	connect(t, s.classifier, in, 0, pass, 0)

	assert.Equal(t, graph.KindDeviceInput, in.Kind())
	assert.Equal(t, "mock input", in.TypeName())
	assert.Equal(t, 2, in.NumOutputPorts())

	// no data received yet
	s.classifier.Update(0, 0)
	assert.False(t, in.IsInitialized())
	assert.True(t, in.HasError(graph.ErrorDeviceNotFound))

	s.tick(5)
	require.True(t, s.device.IsStreaming())
	require.True(t, in.IsInitialized())
	require.True(t, pass.IsInitialized())
	assert.False(t, in.HasError(graph.ErrorDeviceNotFound))
	assert.Equal(t, s.device, behavior.Device())
	assert.Equal(t, []*graph.Node{in}, s.classifier.DeviceInputNodes())
	assert.Len(t, s.classifier.UsedSensors(), 2)

	sensor := s.device.InputSensors()[0]
	assert.Equal(t, "S1", in.OutputPort(0).Name())
	assert.Equal(t, sensor.Output(), in.OutputPort(0).Channels().Channel(0))
	assert.InDelta(t, sensor.Latency(), in.FindMaximumLatencyForOutput(0), 1e-9)

	out := pass.OutputPort(0).Channels().Channel(0)
	sensorBefore := sensor.Output().SampleCounter()
	passBefore := out.SampleCounter()
	s.tick(10)
	forwarded := out.SampleCounter() - passBefore
	assert.Greater(t, forwarded, int64(0))
	assert.Equal(t, sensor.Output().SampleCounter()-sensorBefore, forwarded)

	// rebinding to a missing device stops the node
	require.NoError(t, behavior.SetConfig(graph.DeviceInputConfig{DeviceNumber: 2}))
	s.tick(1)
	assert.False(t, in.IsInitialized())
	assert.True(t, in.HasError(graph.ErrorDeviceNotFound))
	assert.Empty(t, s.classifier.UsedSensors())
	assert.Error(t, behavior.SetConfig(graph.DeviceInputConfig{}))
}

func TestDeviceInputFirstBurst(t *testing.T) {
	typ := mock.Type(mock.TypeID, "mock", 1, 100)
	s := newDeviceSetup(t, typ)
	in := graph.NewNode("device", graph.NewDeviceInput(typ, graph.DefaultDeviceInputConfig()))
	pass := graph.NewNode("pass", graph.NewPassthrough())
	require.NoError(t, s.classifier.AddNode(in))
	require.NoError(t, s.classifier.AddNode(pass))
	connect(t, s.classifier, in, 0, pass, 0)

	// 10 samples per tick at 100 Hz for one second
	s.tick(10)
	require.True(t, pass.IsInitialized())
	sensor := s.device.InputSensors()[0]
	out := pass.OutputPort(0).Channels().Channel(0)
	assert.Equal(t, int64(100), sensor.Output().SampleCounter())
	assert.Equal(t, int64(100), out.SampleCounter())
	assert.InDelta(t, sensor.Output().LastSampleTime(), out.LastSampleTime(), 1e-9)
}

func TestDeviceInputRawOutput(t *testing.T) {
	typ := mock.Type(mock.TypeID, "mock", 1, 100)
	s := newDeviceSetup(t, typ)
	in := graph.NewNode("device", graph.NewDeviceInput(typ, graph.DeviceInputConfig{DeviceNumber: 1, RawOutput: true}))
	require.NoError(t, s.classifier.AddNode(in))

	s.tick(3)
	require.True(t, in.IsInitialized())
	assert.Equal(t, s.device.InputSensors()[0].Input(), in.OutputPort(0).Channels().Channel(0))
}

func TestDeviceInputExclusive(t *testing.T) {
	typ := mock.Type(mock.TypeID, "mock", 1, 100)
	s := newDeviceSetup(t, typ)
	config := graph.DeviceInputConfig{DeviceNumber: 1, Exclusive: true}
	first := graph.NewNode("first", graph.NewDeviceInput(typ, config))
	second := graph.NewNode("second", graph.NewDeviceInput(typ, config))
	require.NoError(t, s.classifier.AddNode(first))
	require.NoError(t, s.classifier.AddNode(second))

	s.tick(3)
	assert.True(t, first.IsInitialized())
	assert.False(t, second.IsInitialized())
	assert.True(t, second.HasError(graph.ErrorDeviceLocked))
	assert.True(t, s.device.IsLocked())

	require.NoError(t, s.classifier.RemoveNode(first))
	s.tick(1)
	assert.True(t, second.IsInitialized())
	assert.False(t, second.HasError(graph.ErrorDeviceLocked))
}

func TestDeviceInputHeadset(t *testing.T) {
	typ := mock.HeadsetType(mock.TypeID, "headset", 3, 100)
	s := newDeviceSetup(t, typ)
	in := graph.NewNode("headset", graph.NewDeviceInput(typ, graph.DefaultDeviceInputConfig()))
	require.NoError(t, s.classifier.AddNode(in))
	require.Equal(t, 1, in.NumOutputPorts())
	assert.Equal(t, "EEG", in.OutputPort(0).Name())

	s.tick(3)
	require.True(t, in.IsInitialized())
	assert.Equal(t, 3, in.OutputPort(0).Channels().NumChannels())
	assert.False(t, in.HasWarning(graph.WarningDeviceBatteryLow))

	s.device.SetBatteryChargeLevel(0.05)
	s.tick(1)
	assert.True(t, in.HasWarning(graph.WarningDeviceBatteryLow))

	s.device.SetBatteryChargeLevel(0.8)
	s.tick(1)
	assert.False(t, in.HasWarning(graph.WarningDeviceBatteryLow))
}
