package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/neuromore/engine"
	"github.com/neuromore/engine/config"
	"github.com/neuromore/engine/device"
	"github.com/neuromore/engine/graph"
	"github.com/neuromore/engine/internal/mock"
)

var _ device.Context = (*engine.Engine)(nil)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEngine(t *testing.T, options ...engine.Option) *engine.Engine {
	t.Helper()
	settings := config.Default()
	settings.DriftCorrection.Enabled = false
	e := engine.New(append([]engine.Option{engine.WithSettings(settings)}, options...)...)
	t.Cleanup(func() {
		assert.NoError(t, e.Close())
	})
	return e
}

func addDevice(t *testing.T, e *engine.Engine) *mock.Driver {
	t.Helper()
	typ := mock.Type(mock.TypeID, "mock", 2, 100)
	require.NoError(t, e.Manager().RegisterDeviceType(typ))
	drv := &mock.Driver{Types: []*device.Type{typ}, Samples: 10, Value: 1}
	require.NoError(t, e.Manager().AddDeviceDriver(drv))
	d, err := drv.CreateDevice(typ.ID)
	require.NoError(t, err)
	e.Manager().AddDeviceAsync(d)
	return drv
}

func TestEngineSync(t *testing.T) {
	var synced []float64
	e := newEngine(t, engine.WithObserver(engine.Observer{
		Synced: func(maxLatency float64) {
			synced = append(synced, maxLatency)
		},
	}))
	assert.True(t, e.AutoSync())
	assert.False(t, e.DriftCorrection().Enabled)
	addDevice(t, e)

	// the new device requests a sync
	e.Update(0.1)
	assert.Len(t, e.Manager().Devices(), 1)
	assert.Len(t, synced, 1)
	assert.False(t, e.IsSyncRequested())
	assert.Equal(t, 0.0, e.ElapsedTime())

	e.Update(0.1)
	assert.InDelta(t, 0.1, e.ElapsedTime(), 1e-9)

	e.SetSessionRunning(true)
	assert.True(t, e.IsSessionRunning())
	e.SyncAsync()
	assert.False(t, e.IsSyncRequested())

	e.SetSessionRunning(false)
	e.SyncAsync()
	assert.True(t, e.IsSyncRequested())
	e.Update(0.5)
	assert.Equal(t, 0.0, e.ElapsedTime())
	assert.Len(t, synced, 2)

	e.Update(0.1)
	e.Sync()
	assert.Equal(t, 0.0, e.ElapsedTime())
	assert.Len(t, synced, 3)
}

func TestEngineNotRunning(t *testing.T) {
	e := newEngine(t)
	e.SetRunning(false)
	assert.False(t, e.IsRunning())
	e.Update(1)
	assert.Equal(t, 0.0, e.ElapsedTime())

	e.SetRunning(true)
	e.Update(1)
	assert.Equal(t, 1.0, e.ElapsedTime())
}

func TestEngineClassifier(t *testing.T) {
	var changed []*graph.Classifier
	e := newEngine(t, engine.WithObserver(engine.Observer{
		ClassifierChanged: func(c *graph.Classifier) {
			changed = append(changed, c)
		},
	}))
	c := e.NewClassifier("test")
	assert.Same(t, e.Manager(), c.DeviceManager())
	assert.Equal(t, e.Settings().BufferDuration, c.BufferDuration())

	src := graph.NewNode("source", &mock.Node{NodeKind: graph.KindInput, Outputs: 1, SampleRate: 10, Samples: 1, Value: 1})
	m := &mock.Node{NodeKind: graph.KindProcessor, Inputs: 1, Outputs: 1}
	n := graph.NewNode("node", m)
	require.NoError(t, c.AddNode(src))
	require.NoError(t, c.AddNode(n))
	_, err := c.Connect(src, 0, n, 0)
	require.NoError(t, err)

	e.LoadClassifier(c)
	assert.Same(t, c, e.Classifier())
	for i := 0; i < 5; i++ {
		e.Update(0.1)
	}
	calls, samples := m.Count()
	assert.Greater(t, calls, 0)
	assert.Greater(t, samples, 0)

	e.SoftPause()
	e.SoftPause()
	assert.True(t, e.IsSoftPaused())
	assert.True(t, c.IsPaused())
	for i := 0; i < 3; i++ {
		e.Update(0.1)
	}
	pausedCalls, _ := m.Count()
	assert.Equal(t, calls, pausedCalls)

	e.SoftContinue()
	assert.False(t, e.IsSoftPaused())
	assert.True(t, c.IsRunning())
	e.Update(0.1)
	calls, _ = m.Count()
	assert.Equal(t, pausedCalls+1, calls)

	e.Reset()
	assert.Equal(t, 0.0, e.ElapsedTime())

	other := e.NewClassifier("other")
	e.LoadClassifier(other)
	assert.True(t, c.IsStopped())
	assert.Same(t, other, e.Classifier())

	require.NoError(t, e.UnloadClassifier())
	assert.Nil(t, e.Classifier())
	assert.ErrorIs(t, e.UnloadClassifier(), engine.ErrNoClassifier)
	assert.Equal(t, []*graph.Classifier{c, other, nil}, changed)
}

func TestEngineRun(t *testing.T) {
	e := newEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Run(ctx), context.DeadlineExceeded)
	assert.Greater(t, e.ElapsedTime(), 0.0)
}

func TestLoadDeviceConfigs(t *testing.T) {
	e := newEngine(t)
	dir := t.TempDir()
	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte("{"), 0644))

	assert.NoError(t, e.LoadDeviceConfigs())
	assert.Error(t, e.LoadDeviceConfigs(invalid))
	assert.Error(t, e.LoadDeviceConfigs(filepath.Join(dir, "missing.json")))
	assert.Empty(t, e.Manager().DeviceConfigs())
}
