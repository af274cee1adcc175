package graph

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mattetti/audio/generator"

	"github.com/neuromore/engine/channel"
	"github.com/neuromore/engine/resample"
)

// Waveform selects the signal a generator produces.
type Waveform int

// Waveforms.
const (
	Sine Waveform = iota
	Square
	Triangle
	Sawtooth
	// Noise is uniform white noise.
	Noise
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "Sine"
	case Square:
		return "Square"
	case Triangle:
		return "Triangle"
	case Sawtooth:
		return "Sawtooth"
	case Noise:
		return "Noise"
	}
	return fmt.Sprintf("waveform(%d)", int(w))
}

func (w Waveform) shape() generator.WaveType {
	switch w {
	case Square:
		return generator.WaveSqr
	case Triangle:
		return generator.WaveTriangle
	case Sawtooth:
		return generator.WaveSaw
	}
	return generator.WaveSine
}

// generatorBufferSize is the initial buffer of the output channel, it is
// resized with the classifier buffers.
const generatorBufferSize = 10

// GeneratorConfig configures a signal generator node.
type GeneratorConfig struct {
	Waveform   Waveform
	SampleRate float64
	Frequency  float64
	Amplitude  float64
	DCOffset   float64
}

// DefaultGeneratorConfig returns a 10 Hz sine sampled with 128 Hz.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Waveform:   Sine,
		SampleRate: 128,
		Frequency:  10,
		Amplitude:  1,
	}
}

// SignalGenerator is an input node producing a waveform at a fixed rate.
type SignalGenerator struct {
	node   *Node
	config GeneratorConfig
	output *channel.Channel[float64]
	clock  resample.Clock
	osc    *generator.Osc
	noise  *rand.Rand
}

// NewSignalGenerator returns signal generator node behavior.
func NewSignalGenerator(config GeneratorConfig) *SignalGenerator {
	return &SignalGenerator{
		config: config,
		output: channel.New[float64](config.SampleRate, generatorBufferSize),
		noise:  rand.New(rand.NewSource(1)),
	}
}

// Kind implements Behavior.
func (*SignalGenerator) Kind() Kind { return KindInput }

// TypeName implements Behavior.
func (*SignalGenerator) TypeName() string { return "signal generator" }

// Init implements Initializable.
func (g *SignalGenerator) Init(n *Node) {
	g.node = n
	g.output.SetName(g.config.Waveform.String())
	n.AddOutputPort("Out", g.output)
	n.SetFlags(0)
}

// Config returns the current config.
func (g *SignalGenerator) Config() GeneratorConfig {
	return g.config
}

// SetConfig validates and applies a new config. A new sample rate restarts
// the node, the waveform parameters change immediately.
func (g *SignalGenerator) SetConfig(config GeneratorConfig) error {
	if config.SampleRate <= 0 {
		return fmt.Errorf("sample rate %v must be positive", config.SampleRate)
	}
	if config.Frequency < 0 {
		return fmt.Errorf("frequency %v must not be negative", config.Frequency)
	}
	restart := config.SampleRate != g.config.SampleRate || config.Waveform != g.config.Waveform
	g.config = config
	if restart {
		g.node.ResetAsync()
		return nil
	}
	if g.osc != nil {
		g.osc.SetFreq(config.Frequency)
		g.osc.Amplitude = config.Amplitude
		g.osc.DcOffset = config.DCOffset
	}
	return nil
}

// ReInit validates the sample rate.
func (g *SignalGenerator) ReInit(n *Node, elapsed float64) bool {
	if g.config.SampleRate <= 0 {
		n.SetError(ErrorValueRange, "Sample rate must be positive.")
		return false
	}
	n.ClearError(ErrorValueRange)
	return true
}

// Start restarts the waveform at elapsed.
func (g *SignalGenerator) Start(n *Node, elapsed float64) error {
	g.output.SetSampleRate(g.config.SampleRate)
	g.output.SetName(g.config.Waveform.String())
	startTime := n.StartChannels(elapsed)

	g.osc = generator.NewOsc(g.config.Waveform.shape(), g.config.Frequency, int(math.Round(g.config.SampleRate)))
	g.osc.Amplitude = g.config.Amplitude
	g.osc.DcOffset = g.config.DCOffset

	g.clock.SetMode(resample.Independent)
	g.clock.SetFrequency(g.config.SampleRate)
	g.clock.SetStartTime(startTime)
	g.clock.Reset()
	g.clock.Start()
	return nil
}

// Update adds one sample per due clock tick.
func (g *SignalGenerator) Update(n *Node, elapsed, delta float64) {
	g.clock.Update(elapsed, delta)
	for g.clock.NumNewTicks() > 0 {
		g.clock.PopOldestTick()
		g.output.AddSample(g.sample())
	}
}

func (g *SignalGenerator) sample() float64 {
	if g.config.Waveform == Noise {
		return g.config.DCOffset + g.config.Amplitude*(2*g.noise.Float64()-1)
	}
	return g.osc.Sample()
}

// Reset stops the clock.
func (g *SignalGenerator) Reset(n *Node) {
	g.clock.Stop()
	g.clock.Reset()
}
