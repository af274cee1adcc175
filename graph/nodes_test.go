package graph_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuromore/engine/channel"
	"github.com/neuromore/engine/graph"
	"github.com/neuromore/engine/internal/mock"
	"github.com/neuromore/engine/signal"
	"github.com/neuromore/engine/wav"
)

func TestSignalGenerator(t *testing.T) {
	const step = 0.25
	behavior := graph.NewSignalGenerator(graph.DefaultGeneratorConfig())
	gen := graph.NewNode("generator", behavior)
	c := newClassifier(t, gen)
	assert.Equal(t, graph.KindInput, gen.Kind())
	assert.Equal(t, "Sine", gen.OutputPort(0).Channels().Channel(0).Name())

	for i := 1; i <= 4; i++ {
		c.Update(float64(i)*step, step)
	}
	require.True(t, gen.IsInitialized())
	out := gen.OutputPort(0).Channels().Channel(0)
	assert.Equal(t, 128.0, out.SampleRate())
	assert.Equal(t, int64(96), out.SampleCounter())

	// waveform parameters change without restart
	config := behavior.Config()
	config.Frequency = 20
	require.NoError(t, behavior.SetConfig(config))
	c.Update(5*step, step)
	assert.Equal(t, int64(128), out.SampleCounter())

	config.SampleRate = 0
	assert.Error(t, behavior.SetConfig(config))
}

func TestSignalGeneratorNoise(t *testing.T) {
	gen := graph.NewNode("noise", graph.NewSignalGenerator(graph.GeneratorConfig{
		Waveform:   graph.Noise,
		SampleRate: 100,
		Amplitude:  0.5,
		DCOffset:   1,
	}))
	c := newClassifier(t, gen)
	tick(c, 0, 10)

	out := channel.As[float64](gen.OutputPort(0).Channels().Channel(0))
	require.Greater(t, out.SampleCounter(), int64(0))
	assert.Equal(t, "Noise", out.Name())
	for idx := out.SampleCounter() - int64(out.NumSamples()); idx < out.SampleCounter(); idx++ {
		v := out.Sample(idx)
		assert.GreaterOrEqual(t, v, 0.5)
		assert.LessOrEqual(t, v, 1.5)
	}
}

func TestBiquadFilter(t *testing.T) {
	tests := []struct {
		pass     graph.FilterPass
		design   graph.FilterDesign
		expected float64
	}{
		{pass: graph.LowPass, design: graph.Butterworth, expected: 1},
		{pass: graph.HighPass, design: graph.Butterworth, expected: 0},
		{pass: graph.HighPass, design: graph.Chebyshev, expected: 0},
	}
	for _, test := range tests {
		t.Run(test.pass.String()+" "+test.design.String(), func(t *testing.T) {
			src, _ := source("dc", 100, 10)
			config := graph.DefaultFilterConfig()
			config.Pass = test.pass
			config.Design = test.design
			config.Frequency = 2
			filter := graph.NewNode("filter", graph.NewBiquadFilter(config))
			c := newClassifier(t, src, filter)
			connect(t, c, src, 0, filter, 0)

			tick(c, 0, 100)
			require.True(t, filter.IsInitialized())
			out := channel.As[float64](filter.OutputPort(0).Channels().Channel(0))
			assert.InDelta(t, test.expected, out.LastSample(), 0.01)
			assert.False(t, filter.HasError(graph.ErrorUnstableFilter))
		})
	}
}

func TestBiquadFilterErrors(t *testing.T) {
	src, _ := source("source", 10, 1)
	behavior := graph.NewBiquadFilter(graph.DefaultFilterConfig())
	filter := graph.NewNode("filter", behavior)
	c := newClassifier(t, src, filter)
	connect(t, c, src, 0, filter, 0)

	// 10 Hz can't be filtered at 10 Hz sample rate
	elapsed := tick(c, 0, 2)
	assert.False(t, filter.IsInitialized())
	assert.True(t, filter.HasError(graph.ErrorInvalidFilter))
	assert.True(t, filter.HasError(graph.ErrorStart))

	config := graph.DefaultFilterConfig()
	config.Order = 0
	err := behavior.SetConfig(config)
	assert.ErrorIs(t, err, graph.ErrInvalidFilter)

	config.Order = 2
	config.Frequency = 1
	require.NoError(t, behavior.SetConfig(config))
	tick(c, elapsed, 1)
	assert.True(t, filter.IsInitialized())
	assert.False(t, filter.HasError(graph.ErrorInvalidFilter))
	assert.False(t, filter.HasError(graph.ErrorStart))
}

func TestOscOutput(t *testing.T) {
	src, _ := source("source", 10, 1)
	sender := &mock.Sender{}
	behavior := graph.NewOscOutput(sender, graph.OscOutputConfig{})
	out := graph.NewNode("osc", behavior)
	c := newClassifier(t, src, out)
	connect(t, c, src, 0, out, 0)

	tick(c, 0, 20)
	require.True(t, out.IsInitialized())
	assert.Equal(t, "/out/0", behavior.Address())
	assert.Equal(t, "/out/0", out.InputPort(0).Name())
	sent := sender.Sent["/out/0"]
	require.NotEmpty(t, sent)
	assert.InDelta(t, 1.0, sent[len(sent)-1], 1e-6)
	assert.Equal(t, []*graph.Node{out}, c.FeedbackNodes())

	assert.Error(t, behavior.SetConfig(graph.OscOutputConfig{Address: "relative"}))
}

func TestOutputSync(t *testing.T) {
	src, _ := source("source", 10, 1)
	behavior := graph.NewOscOutput(&mock.Sender{}, graph.OscOutputConfig{})
	out := graph.NewNode("osc", behavior)
	c := newClassifier(t, src, out)
	connect(t, c, src, 0, out, 0)

	elapsed := tick(c, 0, 20)
	require.True(t, out.IsInitialized())
	require.Equal(t, 1, behavior.NumChannels())
	resampled := behavior.Channel(0)
	counter := resampled.SampleCounter()
	require.Greater(t, counter, int64(0))
	assert.InDelta(t, delta, resampled.StartTime(), 1e-9)

	// buffered samples are kept, the clock restarts at 0
	c.Sync(0)
	assert.Equal(t, 0.0, resampled.StartTime())
	assert.Equal(t, counter, resampled.SampleCounter())

	tick(c, elapsed, 2)
	assert.Equal(t, counter+2, resampled.SampleCounter())
	assert.InDelta(t, float64(counter+2)/10, resampled.LastSampleTime(), 1e-9)
}

func TestOscOutputDuplicateAddress(t *testing.T) {
	src, _ := source("source", 10, 1)
	config := graph.OscOutputConfig{Address: "/value"}
	first := graph.NewNode("first", graph.NewOscOutput(&mock.Sender{}, config))
	second := graph.NewNode("second", graph.NewOscOutput(&mock.Sender{}, config))
	c := newClassifier(t, src, first, second)
	connect(t, c, src, 0, first, 0)
	connect(t, c, src, 0, second, 0)

	elapsed := tick(c, 0, 2)
	for _, n := range []*graph.Node{first, second} {
		assert.False(t, n.IsInitialized())
		assert.True(t, n.HasError(graph.ErrorDuplicateOscAddress))
	}

	require.NoError(t, second.Behavior().(*graph.OscOutput).SetConfig(graph.OscOutputConfig{Address: "/other"}))
	tick(c, elapsed, 1)
	for _, n := range []*graph.Node{first, second} {
		assert.True(t, n.IsInitialized())
		assert.False(t, n.HasError(graph.ErrorDuplicateOscAddress))
	}
}

func TestFileWriter(t *testing.T) {
	src, srcMock := source("source", 100, 10)
	srcMock.Value = 0.5
	config := graph.DefaultFileWriterConfig()
	config.Path = filepath.Join(t.TempDir(), graph.StartTimePlaceholder+".wav")
	behavior := graph.NewFileWriter(config)
	writer := graph.NewNode("writer", behavior)
	c := newClassifier(t, src, writer)
	connect(t, c, src, 0, writer, 0)
	assert.Equal(t, []*graph.Node{writer}, c.OutputNodes())

	tick(c, 0, 20)
	require.True(t, writer.IsInitialized(), "errors: %v", writer.Errors())
	path := behavior.Path()
	require.NotEmpty(t, path)
	assert.False(t, strings.Contains(path, graph.StartTimePlaceholder))
	assert.Equal(t, []*graph.Node{writer}, c.FileWriterNodes())

	require.NoError(t, c.Stop())
	assert.Empty(t, behavior.Path())

	r, err := wav.Open(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 100, r.SampleRate())
	assert.Equal(t, 1, r.NumChannels())
	assert.Equal(t, signal.BitDepth16, r.BitDepth())
	b, err := r.Read(1000)
	require.NoError(t, err)
	require.Greater(t, b.Size(), 0)
	assert.InDelta(t, 0.5, b[0][b.Size()-1], 1e-3)
}

func TestFileWriterKeep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.wav")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0644))

	src, _ := source("source", 100, 10)
	config := graph.DefaultFileWriterConfig()
	config.Path = path
	config.Mode = graph.Keep
	behavior := graph.NewFileWriter(config)
	writer := graph.NewNode("writer", behavior)
	c := newClassifier(t, src, writer)
	connect(t, c, src, 0, writer, 0)

	tick(c, 0, 2)
	assert.False(t, writer.IsInitialized())
	assert.True(t, writer.HasError(graph.ErrorFileAlreadyExists))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(data))

	config.BitDepth = signal.BitDepth8
	assert.ErrorIs(t, behavior.SetConfig(config), wav.ErrUnsupportedBitDepth)
}

func TestAudioOutput(t *testing.T) {
	src, _ := source("source", 100, 10)
	sink := &mock.AudioSink{}
	behavior := graph.NewAudioOutput(sink, graph.DefaultAudioOutputConfig())
	out := graph.NewNode("audio", behavior)
	c := newClassifier(t, src, out)
	connect(t, c, src, 0, out, 0)

	tick(c, 0, 10)
	require.True(t, out.IsInitialized())
	assert.True(t, sink.Opened)
	assert.Equal(t, 100, sink.SampleRate)
	assert.Equal(t, 1, sink.NumChannels)
	_, samples := sink.Count()
	assert.Greater(t, samples, 0)

	config := behavior.Config()
	config.Volume = 2
	assert.Error(t, behavior.SetConfig(config))
	assert.True(t, out.HasError(graph.ErrorValueRange))
	config.Volume = 0.5
	require.NoError(t, behavior.SetConfig(config))
	assert.False(t, out.HasError(graph.ErrorValueRange))

	require.NoError(t, c.Stop())
	assert.True(t, sink.Closed)
}

func TestAudioOutputOpenError(t *testing.T) {
	src, _ := source("source", 100, 10)
	out := graph.NewNode("audio", graph.NewAudioOutput(&mock.AudioSink{ErrorOnOpen: errTest}, graph.DefaultAudioOutputConfig()))
	c := newClassifier(t, src, out)
	connect(t, c, src, 0, out, 0)

	tick(c, 0, 2)
	assert.False(t, out.IsInitialized())
	assert.True(t, out.HasError(graph.ErrorSink))
}
