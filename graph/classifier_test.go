package graph_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/neuromore/engine/graph"
	"github.com/neuromore/engine/internal/mock"
)

var errTest = errors.New("test error")

const delta = 0.1

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func source(name string, rate float64, samples int) (*graph.Node, *mock.Node) {
	m := &mock.Node{
		NodeKind:   graph.KindInput,
		Outputs:    1,
		SampleRate: rate,
		Samples:    samples,
		Value:      1,
	}
	return graph.NewNode(name, m), m
}

func processor(name string, inputs int, flags graph.Flags) (*graph.Node, *mock.Node) {
	m := &mock.Node{
		NodeKind: graph.KindProcessor,
		Inputs:   inputs,
		Outputs:  1,
		Flags:    flags,
	}
	return graph.NewNode(name, m), m
}

func newClassifier(t *testing.T, nodes ...*graph.Node) *graph.Classifier {
	t.Helper()
	c := graph.NewClassifier("test")
	for _, n := range nodes {
		require.NoError(t, c.AddNode(n))
	}
	return c
}

func connect(t *testing.T, c *graph.Classifier, src *graph.Node, srcPort int, dst *graph.Node, dstPort int) {
	t.Helper()
	_, err := c.Connect(src, srcPort, dst, dstPort)
	require.NoError(t, err)
}

// tick updates the classifier n times, continuing at the elapsed time
// returned by the previous call.
func tick(c *graph.Classifier, elapsed float64, n int) float64 {
	for i := 0; i < n; i++ {
		elapsed += delta
		c.Update(elapsed, delta)
	}
	return elapsed
}

func TestClassifierOrder(t *testing.T) {
	a, _ := source("a", 10, 1)
	b, _ := processor("b", 1, graph.DefaultFlags)
	d, _ := processor("d", 1, graph.DefaultFlags)
	c := newClassifier(t, d, b, a)
	connect(t, c, a, 0, b, 0)
	connect(t, c, b, 0, d, 0)

	c.CollectNodes()
	assert.Equal(t, []*graph.Node{a, b, d}, c.SortedNodes())
	assert.Equal(t, []*graph.Node{a}, c.InputNodes())
	assert.Equal(t, []*graph.Node{d}, c.EndNodes())

	_, err := c.Connect(d, 0, a, 0)
	assert.True(t, errors.Is(err, graph.ErrInvalidPort))
	_, err = c.Connect(d, 0, b, 0)
	assert.True(t, errors.Is(err, graph.ErrPortOccupied))

	e, _ := processor("e", 2, graph.DefaultFlags)
	require.NoError(t, c.AddNode(e))
	connect(t, c, d, 0, e, 0)
	_, err = c.Connect(e, 0, b, 0)
	assert.Error(t, err)
	f, _ := processor("f", 1, graph.DefaultFlags)
	require.NoError(t, c.AddNode(f))
	connect(t, c, e, 0, f, 0)
	_, err = c.Connect(f, 0, e, 1)
	assert.True(t, errors.Is(err, graph.ErrCycle))

	assert.True(t, errors.Is(c.AddNode(a), graph.ErrDuplicateNode))
	assert.Equal(t, b, c.FindNodeByName("b"))
	assert.Equal(t, b, c.FindNodeByID(b.ID()))

	require.NoError(t, c.RemoveNode(b))
	assert.Equal(t, 4, c.NumNodes())
	assert.Len(t, c.Connections(), 2)
	assert.True(t, errors.Is(c.RemoveNode(b), graph.ErrUnknownNode))
}

func TestNodeRequirements(t *testing.T) {
	tests := []struct {
		name        string
		rates       []float64
		flags       graph.Flags
		reject      bool
		startErr    error
		initialized bool
		code        graph.Code
	}{
		{
			name:        "connected",
			rates:       []float64{10},
			flags:       graph.DefaultFlags,
			initialized: true,
		},
		{
			name:  "not connected",
			flags: graph.DefaultFlags,
		},
		{
			name:  "irregular input",
			rates: []float64{0},
			flags: graph.DefaultFlags | graph.RequireConstantSampleRate,
			code:  graph.ErrorInputConstantSampleRate,
		},
		{
			name:  "mismatching rates",
			rates: []float64{10, 20},
			flags: graph.DefaultFlags | graph.RequireMatchingSampleRates,
			code:  graph.ErrorInputMatchingSampleRates,
		},
		{
			name:        "matching rates",
			rates:       []float64{10, 10},
			flags:       graph.DefaultFlags | graph.RequireMatchingSampleRates,
			initialized: true,
		},
		{
			name:  "missing input",
			rates: []float64{10},
			flags: graph.DefaultFlags | graph.RequireAllInputConnections,
		},
		{
			name:   "rejected",
			rates:  []float64{10},
			flags:  graph.DefaultFlags,
			reject: true,
		},
		{
			name:     "start error",
			rates:    []float64{10},
			flags:    graph.DefaultFlags,
			startErr: errTest,
			code:     graph.ErrorStart,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			n, m := processor("node", 2, test.flags)
			m.Reject = test.reject
			m.ErrorOnStart = test.startErr
			c := newClassifier(t, n)
			for i, rate := range test.rates {
				src, _ := source("source", rate, 1)
				require.NoError(t, c.AddNode(src))
				connect(t, c, src, 0, n, i)
			}

			tick(c, 0, 2)
			assert.Equal(t, test.initialized, n.IsInitialized())
			if test.code != 0 {
				assert.True(t, n.HasError(test.code), "errors: %v", n.Errors())
			}
			if test.initialized {
				assert.Equal(t, 1, m.Starts)
			}
		})
	}
}

func TestNodeRequirementErrorCleared(t *testing.T) {
	src, _ := source("source", 0, 1)
	n, _ := processor("node", 1, graph.DefaultFlags|graph.RequireConstantSampleRate)
	c := newClassifier(t, src, n)
	conn, err := c.Connect(src, 0, n, 0)
	require.NoError(t, err)

	elapsed := tick(c, 0, 1)
	require.True(t, n.HasError(graph.ErrorInputConstantSampleRate))

	// the connection check fails first, the stale rate error goes away
	require.NoError(t, c.Disconnect(conn))
	tick(c, elapsed, 1)
	assert.False(t, n.IsInitialized())
	assert.False(t, n.HasError(graph.ErrorInputConstantSampleRate))
}

func TestNodeDisabled(t *testing.T) {
	src, _ := source("source", 10, 1)
	n, m := processor("node", 1, graph.DefaultFlags)
	c := newClassifier(t, src, n)
	connect(t, c, src, 0, n, 0)

	elapsed := tick(c, 0, 1)
	require.True(t, n.IsInitialized())
	resets := m.Resets

	n.SetEnabled(false)
	elapsed = tick(c, elapsed, 1)
	assert.False(t, n.IsInitialized())
	assert.Greater(t, m.Resets, resets)

	n.SetEnabled(true)
	tick(c, elapsed, 1)
	assert.True(t, n.IsInitialized())
}

func TestClassifierForwards(t *testing.T) {
	src, srcMock := source("source", 10, 1)
	pass := graph.NewNode("pass", graph.NewPassthrough())
	n, m := processor("node", 1, graph.DefaultFlags)
	c := newClassifier(t, src, pass, n)
	connect(t, c, src, 0, pass, 0)
	connect(t, c, pass, 0, n, 0)

	elapsed := tick(c, 0, 3)
	require.True(t, pass.IsInitialized())
	require.True(t, n.IsInitialized())
	out := pass.OutputPort(0).Channels().Channel(0)
	assert.Equal(t, 10.0, out.SampleRate())

	srcBefore := srcMock.Output(0).SampleCounter()
	passBefore := out.SampleCounter()
	_, samplesBefore := m.Count()
	tick(c, elapsed, 10)
	assert.Equal(t, int64(10), srcMock.Output(0).SampleCounter()-srcBefore)
	assert.Equal(t, int64(10), out.SampleCounter()-passBefore)
	_, samples := m.Count()
	assert.Equal(t, 10, samples-samplesBefore)
	assert.Equal(t, 1.0, m.Output(0).LastSample())
}

func TestClassifierLatency(t *testing.T) {
	a, am := source("a", 10, 1)
	am.LatencySeconds, am.DelaySeconds = 0.1, 0.5
	b, bm := processor("b", 1, graph.DefaultFlags)
	bm.LatencySeconds, bm.DelaySeconds = 0.2, 1
	d, dm := processor("d", 1, graph.DefaultFlags)
	dm.LatencySeconds, dm.DelaySeconds = 0.3, 2
	endMock := &mock.Node{
		NodeKind:       graph.KindOutput,
		Inputs:         2,
		LatencySeconds: 0.4,
		StartupSamples: 5,
		Flags:          graph.RequireInputConnection,
	}
	end := graph.NewNode("end", endMock)
	c := newClassifier(t, a, b, d, end)
	connect(t, c, a, 0, b, 0)
	connect(t, c, a, 0, d, 0)
	connect(t, c, b, 0, end, 0)
	connect(t, c, d, 0, end, 1)

	tick(c, 0, 1)
	assert.Equal(t, []*graph.Node{end}, c.OutputNodes())
	assert.InDelta(t, 0.8, c.FindMaximumLatency(), 1e-9)
	assert.InDelta(t, 0.1, c.FindMaximumInputLatency(), 1e-9)
	assert.InDelta(t, 2.5, c.FindMaximumPathDelay(), 1e-9)
	assert.InDelta(t, 0.5, c.FindMaximumStartupDelay(), 1e-9)
	assert.InDelta(t, 0.4, end.FindMaximumLatencyForInput(1), 1e-9)
	assert.InDelta(t, 1.5, b.FindMaximumDelayForOutput(0), 1e-9)
}

func TestClassifierState(t *testing.T) {
	src, _ := source("source", 10, 1)
	n, m := processor("node", 1, graph.DefaultFlags)
	m.ErrorOnStop = errTest
	c := newClassifier(t, src, n)
	connect(t, c, src, 0, n, 0)

	elapsed := tick(c, 0, 2)
	assert.True(t, c.IsRunning())
	require.NoError(t, c.Pause())
	assert.True(t, c.IsPaused())
	assert.True(t, errors.Is(c.Pause(), graph.ErrInvalidState))

	calls, _ := m.Count()
	elapsed = tick(c, elapsed, 3)
	pausedCalls, _ := m.Count()
	assert.Equal(t, calls, pausedCalls)

	require.NoError(t, c.Continue())
	assert.True(t, c.IsRunning())
	elapsed = tick(c, elapsed, 1)
	calls, _ = m.Count()
	assert.Equal(t, pausedCalls+1, calls)

	err := c.Stop()
	assert.Error(t, err)
	assert.True(t, m.Stopped)
	assert.True(t, c.IsStopped())
	assert.True(t, errors.Is(c.Continue(), graph.ErrInvalidState))
	assert.True(t, errors.Is(c.Stop(), graph.ErrInvalidState))

	require.NoError(t, c.Start())
	assert.True(t, c.IsRunning())
	tick(c, elapsed, 1)
	assert.True(t, n.IsInitialized())
	assert.Equal(t, 2, m.Starts)
}

func TestClassifierObservers(t *testing.T) {
	var started, stopped []*graph.Node
	c := graph.NewClassifier("test", graph.WithObserver(graph.Observer{
		NodeStarted: func(n *graph.Node) { started = append(started, n) },
		NodeStopped: func(n *graph.Node) { stopped = append(stopped, n) },
	}))
	src, _ := source("source", 10, 1)
	n, m := processor("node", 1, graph.DefaultFlags)
	require.NoError(t, c.AddNode(src))
	require.NoError(t, c.AddNode(n))
	connect(t, c, src, 0, n, 0)

	elapsed := tick(c, 0, 1)
	assert.Equal(t, []*graph.Node{src, n}, started)

	m.Reject = true
	tick(c, elapsed, 1)
	assert.Equal(t, []*graph.Node{n}, stopped)
}

func TestClassifierBuffers(t *testing.T) {
	src, srcMock := source("source", 100, 1)
	n, m := processor("node", 1, graph.DefaultFlags)
	m.EpochSamples = 2000
	c := newClassifier(t, src, n)
	connect(t, c, src, 0, n, 0)

	tick(c, 0, 1)
	assert.Equal(t, 2000, srcMock.Output(0).BufferSize())
	assert.Equal(t, 1000, m.Output(0).BufferSize())
	assert.Equal(t, 2, c.CalcNumBufferChannelsUsed())
	assert.Greater(t, c.CalculateBufferMemoryAllocated(), 0)

	c.SetBufferDuration(30)
	c.ResetResizeBuffersReadyFlags()
	c.ResizeBuffers(c.BufferDuration())
	assert.Equal(t, 3000, m.Output(0).BufferSize())
}
