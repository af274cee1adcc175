package wav_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuromore/engine/device"
	"github.com/neuromore/engine/signal"
	"github.com/neuromore/engine/wav"
)

// writeFile writes a file with constant channels of 100 samples.
func writeFile(t *testing.T, name string, sampleRate int, values ...float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	w, err := wav.Create(path, sampleRate, len(values), signal.BitDepth16)
	require.NoError(t, err)
	b := signal.EmptyFloat64(len(values), 100)
	for i, v := range values {
		for j := range b[i] {
			b[i][j] = v
		}
	}
	require.NoError(t, w.Write(b))
	require.NoError(t, w.Close())
	return path
}

func newManager(t *testing.T, drv *wav.Driver) *device.Manager {
	t.Helper()
	ctx := device.NewStaticContext()
	ctx.Drift.Enabled = false
	m := device.NewManager(device.WithContext(ctx))
	require.NoError(t, m.RegisterDeviceType(drv.Type()))
	require.NoError(t, m.AddDeviceDriver(drv))
	return m
}

func run(m *device.Manager, from, to int) {
	for i := from; i <= to; i++ {
		m.Update(float64(i)*0.1, 0.1)
	}
}

func TestDriver(t *testing.T) {
	path := writeFile(t, "in.wav", 100, 0.5, -0.25)
	drv, err := wav.NewDriver(path)
	require.NoError(t, err)
	defer drv.Close()
	assert.Equal(t, wav.TypeID, drv.Type().ID)
	assert.Len(t, drv.Type().Sensors, 2)

	m := newManager(t, drv)
	run(m, 1, 20)
	require.Len(t, m.Devices(), 1)
	d := m.Devices()[0]
	assert.Equal(t, "in.wav", d.Name())
	assert.True(t, d.IsStreaming())

	sensors := d.InputSensors()
	require.Len(t, sensors, 2)
	assert.Equal(t, 100.0, sensors[0].SampleRate())
	assert.Equal(t, int64(100), sensors[0].Input().SampleCounter())
	assert.InDelta(t, 0.5, sensors[0].Input().LastSample(), 1e-3)
	assert.InDelta(t, -0.25, sensors[1].Input().LastSample(), 1e-3)

	_, err = drv.CreateDevice(wav.TypeID)
	assert.ErrorIs(t, err, wav.ErrNoFreeFile)
	_, err = drv.CreateDevice(0x42)
	assert.ErrorIs(t, err, device.ErrNotSupported)
}

func TestDriverLoop(t *testing.T) {
	drv, err := wav.NewDriver(writeFile(t, "loop.wav", 100, 1))
	require.NoError(t, err)
	defer drv.Close()
	drv.Loop = true

	m := newManager(t, drv)
	run(m, 1, 31)
	require.Len(t, m.Devices(), 1)
	assert.Greater(t, m.Devices()[0].InputSensors()[0].Input().SampleCounter(), int64(100))
}

func TestNewDriver(t *testing.T) {
	_, err := wav.NewDriver()
	assert.ErrorIs(t, err, wav.ErrNoFiles)

	_, err = wav.NewDriver(writeFile(t, "a.wav", 100, 0), writeFile(t, "b.wav", 200, 0))
	assert.ErrorIs(t, err, wav.ErrFormatMismatch)

	_, err = wav.NewDriver(filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}
