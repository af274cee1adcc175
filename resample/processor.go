// Package resample converts a float channel to a fixed target sample rate.
// Sensors use it to put device data on the engine timeline and output nodes
// use it to bring node results to the selected signal resolution.
package resample

import (
	"math"

	"github.com/neuromore/engine/channel"
)

// Type is the kind of rate conversion derived from input and target rate.
type Type int

// Resample types.
const (
	NoResampling Type = iota
	Naive
	UpsampleInteger
	UpsampleFractional
	DownsampleInteger
	DownsampleFractional
)

func (t Type) String() string {
	switch t {
	case NoResampling:
		return "no resampling"
	case Naive:
		return "naive"
	case UpsampleInteger:
		return "upsample integer"
	case UpsampleFractional:
		return "upsample fractional"
	case DownsampleInteger:
		return "downsample integer"
	case DownsampleFractional:
		return "downsample fractional"
	}
	return "unknown"
}

// IsUpsampling returns true for types that produce more samples than they
// consume.
func (t Type) IsUpsampling() bool {
	return t == UpsampleInteger || t == UpsampleFractional
}

// Algo is the resampling algorithm.
type Algo int

// Resample algorithms.
const (
	Forward Algo = iota
	OutputLast
	NearestNeighbor
	LinearInterpolate
	Boxcar
)

func (a Algo) String() string {
	switch a {
	case Forward:
		return "forward"
	case OutputLast:
		return "output last"
	case NearestNeighbor:
		return "nearest neighbor"
	case LinearInterpolate:
		return "linear interpolate"
	case Boxcar:
		return "boxcar"
	}
	return "unknown"
}

// Mode defines how the algorithm is chosen.
type Mode int

// Resample modes.
const (
	// Realtime prefers algorithms without delay.
	Realtime Mode = iota
	// GoodQuality prefers interpolating and filtering algorithms.
	GoodQuality
	// Manual keeps the algorithm set with SetResampleAlgo.
	Manual
)

// ratioEpsilon decides if two rates are considered equal.
const ratioEpsilon = 10e-6

// Settings are the configurable parameters of a processor.
type Settings struct {
	Type             Type
	Mode             Mode
	Algo             Algo
	TargetSampleRate float64
	StartTime        float64
}

// Processor resamples one float channel into its own output channel.
type Processor struct {
	input    *channel.Channel[float64]
	reader   *channel.Reader
	output   *channel.Channel[float64]
	clock    Clock
	settings Settings

	factor      float64
	intFactor   int
	kernelSize  int
	initialized bool
	resample    func()
}

// New returns a realtime processor writing into an output channel with
// bufferSize samples.
func New(bufferSize int) *Processor {
	return &Processor{
		reader: channel.NewReader(nil),
		output: channel.New[float64](0, bufferSize),
		settings: Settings{
			Mode: Realtime,
		},
		factor: 1,
	}
}

// SetInput sets the channel to resample. ReInit applies it.
func (p *Processor) SetInput(c *channel.Channel[float64]) {
	p.input = c
	if c == nil {
		p.reader.SetChannel(nil)
		return
	}
	p.reader.SetChannel(c)
}

// Input returns the resampled channel.
func (p *Processor) Input() *channel.Channel[float64] {
	return p.input
}

// Reader returns the cursor over the input.
func (p *Processor) Reader() *channel.Reader {
	return p.reader
}

// Output returns the channel with resampled values.
func (p *Processor) Output() *channel.Channel[float64] {
	return p.output
}

// Clock returns the output clock.
func (p *Processor) Clock() *Clock {
	return &p.clock
}

// Settings returns the current settings.
func (p *Processor) Settings() Settings {
	return p.settings
}

// IsInitialized returns true if the last ReInit found a valid input.
func (p *Processor) IsInitialized() bool {
	return p.initialized
}

// SetTargetSampleRate sets the output rate, ReInit applies it.
func (p *Processor) SetTargetSampleRate(rate float64) {
	p.settings.TargetSampleRate = rate
}

// SetResampleMode sets how the algorithm is chosen, ReInit applies it.
func (p *Processor) SetResampleMode(mode Mode) {
	p.settings.Mode = mode
}

// SetResampleAlgo sets the algorithm and switches to manual mode.
func (p *Processor) SetResampleAlgo(algo Algo) {
	p.settings.Algo = algo
	p.settings.Mode = Manual
}

// SetStartTime moves output channel and clock to t. Ticks already turned
// into output samples stay consumed.
func (p *Processor) SetStartTime(t float64) {
	p.settings.StartTime = t
	p.output.SetStartTime(t)
	p.clock.SetStartTime(t)
}

// ReInit derives type, algorithm and clock from the input and target rate.
func (p *Processor) ReInit() {
	p.initialized = false
	p.reader.DetectInputChanges()
	if p.input == nil {
		p.clock.SetReferenceChannel(nil)
		p.clock.Reset()
		p.resample = nil
		return
	}

	inputRate := p.input.SampleRate()
	outputRate := p.settings.TargetSampleRate
	switch {
	case outputRate <= 0:
		p.setForward(NoResampling)
	case inputRate <= 0:
		p.settings.Type = Naive
		p.settings.Algo = OutputLast
		p.factor = 1
	default:
		ratio := outputRate / inputRate
		if math.Abs(ratio-1) < ratioEpsilon {
			p.setForward(NoResampling)
			break
		}
		p.factor = ratio
		switch {
		case ratio > 1 && isInteger(ratio):
			p.settings.Type = UpsampleInteger
		case ratio > 1:
			p.settings.Type = UpsampleFractional
		case isInteger(1 / ratio):
			p.settings.Type = DownsampleInteger
		default:
			p.settings.Type = DownsampleFractional
		}
		if p.settings.Mode != Manual {
			p.settings.Algo = SelectAlgorithm(p.settings.Type, p.settings.Mode)
		}
	}

	p.resample = p.resampleFunc(p.settings.Algo)
	p.output.SetSampleRate(math.Max(0, outputRate))
	// resampled output is synced to the engine timeline
	p.output.SetIndependent(false)

	if p.factor > 1 {
		p.intFactor = int(p.factor + ratioEpsilon)
	} else {
		p.intFactor = int(1/p.factor + ratioEpsilon)
	}
	p.kernelSize = 0
	if p.intFactor >= 1 {
		p.kernelSize = p.intFactor
	}

	p.clock.Reset()
	switch p.settings.Algo {
	case Forward:
		p.clock.SetReferenceChannel(nil)
		p.clock.Stop()
	case OutputLast:
		p.clock.SetMode(Independent)
		p.clock.SetReferenceChannel(nil)
		p.clock.Start()
	case NearestNeighbor:
		p.clock.SetMode(SyncedAhead)
		p.clock.SetReferenceChannel(p.input)
		p.clock.Start()
	default:
		p.clock.SetMode(Synced)
		p.clock.SetReferenceChannel(p.input)
		p.clock.Start()
	}
	p.clock.SetFrequency(outputRate)
	p.clock.SetStartTime(p.settings.StartTime)
	p.initialized = true
}

func isInteger(v float64) bool {
	return math.Abs(math.Round(v)-v) < ratioEpsilon
}

// setForward keeps the mode so a later rate change selects an algorithm
// again.
func (p *Processor) setForward(t Type) {
	p.settings.Type = t
	p.settings.Algo = Forward
	p.factor = 1
}

// SelectAlgorithm picks the algorithm for a resample type and mode.
func SelectAlgorithm(t Type, mode Mode) Algo {
	switch {
	case t == NoResampling:
		return Forward
	case t == Naive:
		return OutputLast
	case mode == Realtime:
		return NearestNeighbor
	case mode == GoodQuality && t.IsUpsampling():
		return LinearInterpolate
	case mode == GoodQuality:
		return Boxcar
	}
	return OutputLast
}

func (p *Processor) resampleFunc(algo Algo) func() {
	switch algo {
	case Forward:
		return p.doForward
	case OutputLast:
		return p.doOutputLast
	case NearestNeighbor:
		return p.doNearestNeighbor
	case LinearInterpolate:
		return p.doLinearInterpolate
	case Boxcar:
		return p.doBoxcar
	}
	return nil
}

// Update advances the clock, picks up new input samples and resamples
// them into the output.
func (p *Processor) Update(elapsed, delta float64) {
	p.clock.Update(elapsed, delta)
	p.output.BeginAddSamples()
	p.output.SetElapsedTime(elapsed)
	p.reader.Update()
	if p.input != nil && p.resample != nil {
		p.resample()
	}
}

// Reset clears output, clock and reader.
func (p *Processor) Reset() {
	p.output.Reset()
	p.clock.Reset()
	p.reader.Reset()
}

// Delay returns the delay in output samples the algorithm introduces.
func (p *Processor) Delay() int {
	switch p.settings.Algo {
	case Forward, OutputLast, NearestNeighbor:
		if p.settings.Type.IsUpsampling() {
			return 1
		}
		return 0
	case LinearInterpolate:
		return 1
	case Boxcar:
		return p.intFactor
	}
	return 0
}

// Latency returns the delay in seconds.
func (p *Processor) Latency() float64 {
	if p.settings.TargetSampleRate <= 0 {
		return 0
	}
	return float64(p.Delay()) / p.settings.TargetSampleRate
}

// SampleRatio returns output samples per input sample.
func (p *Processor) SampleRatio() float64 {
	return p.factor
}

// NumStartupSamples returns the input samples needed before the first
// output sample.
func (p *Processor) NumStartupSamples() int {
	return p.NumEpochSamples()
}

// NumEpochSamples returns the input samples one output sample depends on.
func (p *Processor) NumEpochSamples() int {
	switch p.settings.Algo {
	case LinearInterpolate:
		return 2
	case Boxcar:
		return p.kernelSize * 2
	}
	return 1
}

func (p *Processor) doForward() {
	for p.reader.NumNewSamples() > 0 {
		p.output.AddSample(channel.PopOldestSample[float64](p.reader))
	}
}

func (p *Processor) doOutputLast() {
	n := p.clock.NumNewTicks()
	p.clock.ClearNewTicks()
	last := 0.0
	if !p.input.IsEmpty() {
		last = p.input.LastSample()
	}
	for i := 0; i < n; i++ {
		p.output.AddSample(last)
	}
	p.reader.Flush()
}

// doNearestNeighbor outputs the input sample at or before each tick.
func (p *Processor) doNearestNeighbor() {
	n := p.clock.NumNewTicks()
	for i := 0; i < n; i++ {
		index := p.input.FindIndexByTime(p.clock.TickTime(p.clock.Tick(0)), false)
		if index != channel.InvalidIndex && index > p.input.MaxSampleIndex() {
			// tick ran ahead of the input, wait for more samples
			break
		}
		value := 0.0
		if p.input.IsValidSample(index) {
			value = p.input.Sample(index)
		}
		p.output.AddSample(value)
		p.clock.PopOldestTick()
	}
	p.reader.Flush()
}

// doLinearInterpolate interpolates between the two input samples around
// each tick.
func (p *Processor) doLinearInterpolate() {
	rate := p.input.SampleRate()
	n := p.clock.NumNewTicks()
	for i := 0; i < n; i++ {
		t := p.clock.TickTime(p.clock.Tick(0))
		position := (t-p.input.StartTime())*rate - 1
		index := int64(math.Floor(position + tickEpsilon))
		if index > p.input.MaxSampleIndex() {
			break
		}
		value := 0.0
		if p.input.IsValidSample(index) {
			value = p.input.Sample(index)
			frac := position - float64(index)
			if frac > tickEpsilon && p.input.IsValidSample(index+1) {
				value += (p.input.Sample(index+1) - value) * frac
			}
		}
		p.output.AddSample(value)
		p.clock.PopOldestTick()
	}
	p.reader.Flush()
}

// doBoxcar outputs the mean of the kernel ending at each tick.
func (p *Processor) doBoxcar() {
	n := p.clock.NumNewTicks()
	for i := 0; i < n; i++ {
		tick := p.clock.PopOldestTick()
		index := p.input.FindIndexByTime(p.clock.TickTime(tick), false)
		if !p.input.IsValidSample(index) || p.kernelSize == 0 {
			continue
		}
		kernel := channel.NewEpoch(p.input, p.kernelSize, index, true)
		p.output.AddSample(kernel.Sum() / float64(p.kernelSize))
	}
	p.reader.Flush()
}
