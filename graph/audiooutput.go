package graph

import (
	"fmt"
	"math"

	"github.com/neuromore/engine/signal"
)

// AudioSink plays blocks of samples.
type AudioSink interface {
	Open(sampleRate, numChannels int) error
	Write(signal.Float64) error
	Close() error
}

// AudioOutputConfig configures an audio output node.
type AudioOutputConfig struct {
	// Volume in [0, 1].
	Volume float64
	// Range is the absolute input value played at full volume.
	Range      float64
	Resolution Resolution
}

// DefaultAudioOutputConfig returns the config new audio outputs use.
func DefaultAudioOutputConfig() AudioOutputConfig {
	return AudioOutputConfig{
		Volume: 1,
		Range:  1,
	}
}

// AudioOutput plays its input channels on an audio sink.
type AudioOutput struct {
	output
	node   *Node
	sink   AudioSink
	config AudioOutputConfig
	open   bool
}

// NewAudioOutput returns audio output node behavior.
func NewAudioOutput(sink AudioSink, config AudioOutputConfig) *AudioOutput {
	return &AudioOutput{
		output: output{resolution: config.Resolution},
		sink:   sink,
		config: config,
	}
}

// Kind implements Behavior.
func (*AudioOutput) Kind() Kind { return KindFeedback }

// TypeName implements Behavior.
func (*AudioOutput) TypeName() string { return "audio output" }

// Init implements Initializable.
func (a *AudioOutput) Init(n *Node) {
	a.node = n
	n.AddInputPort("In")
	n.SetFlags(RequireInputConnection | RequireConstantSampleRate | RequireMatchingSampleRates)
}

// Config returns the current config.
func (a *AudioOutput) Config() AudioOutputConfig {
	return a.config
}

// SetConfig validates and applies a new config. Volume changes apply
// immediately, other changes reopen the sink.
func (a *AudioOutput) SetConfig(config AudioOutputConfig) error {
	if config.Volume < 0 || config.Volume > 1 {
		a.node.SetError(ErrorValueRange, "Volume out of range.")
		return fmt.Errorf("volume %v out of range [0, 1]", config.Volume)
	}
	if config.Range <= 0 {
		return fmt.Errorf("range %v must be positive", config.Range)
	}
	a.node.ClearError(ErrorValueRange)
	old := a.config
	a.config = config
	old.Volume = config.Volume
	if old != config {
		a.resolution = config.Resolution
		a.node.ResetAsync()
	}
	return nil
}

// Start opens the sink with the resampled rate.
func (a *AudioOutput) Start(n *Node, elapsed float64) error {
	if err := a.output.Start(n, elapsed); err != nil {
		return err
	}
	if a.NumChannels() == 0 {
		return fmt.Errorf("no input channels")
	}
	rate := int(math.Round(a.Channel(0).SampleRate()))
	if err := a.sink.Open(rate, a.NumChannels()); err != nil {
		n.SetError(ErrorSink, err.Error())
		return err
	}
	n.ClearError(ErrorSink)
	a.open = true
	return nil
}

// Update plays the new resampled samples.
func (a *AudioOutput) Update(n *Node, elapsed, delta float64) {
	a.UpdateResamplers(n, elapsed, delta)
	if !a.open {
		return
	}
	size := 0
	for i := 0; i < a.NumChannels(); i++ {
		if i == 0 || a.LastBurstSize(i) < size {
			size = a.LastBurstSize(i)
		}
	}
	if size == 0 {
		return
	}

	gain := a.config.Volume / a.config.Range
	b := signal.EmptyFloat64(a.NumChannels(), size)
	for i := range b {
		c := a.Channel(i)
		first := c.SampleCounter() - int64(size)
		for j := range b[i] {
			b[i][j] = math.Max(-1, math.Min(1, c.Sample(first+int64(j))*gain))
		}
	}
	if err := a.sink.Write(b); err != nil {
		n.SetError(ErrorSink, err.Error())
		return
	}
	n.ClearError(ErrorSink)
}

// Reset closes the sink.
func (a *AudioOutput) Reset(n *Node) {
	if a.open {
		if err := a.sink.Close(); err != nil {
			n.Logger().Warn(fmt.Sprintf("closing audio sink: %v", err))
		}
		a.open = false
	}
	a.output.Reset(n)
}

// Stop implements Stopper.
func (a *AudioOutput) Stop(n *Node) error {
	if !a.open {
		return nil
	}
	a.open = false
	return a.sink.Close()
}
