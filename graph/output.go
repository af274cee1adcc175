package graph

import (
	"fmt"

	"github.com/neuromore/engine/channel"
	"github.com/neuromore/engine/resample"
)

// Resolution selects the sample rate outputs resample their inputs to.
type Resolution int

// Signal resolutions.
const (
	// ResolutionRaw keeps the input sample rate.
	ResolutionRaw Resolution = iota
	ResolutionHigh
	ResolutionMid
	ResolutionLow
)

func (r Resolution) String() string {
	switch r {
	case ResolutionRaw:
		return "Original"
	case ResolutionHigh:
		return "High"
	case ResolutionMid:
		return "Mid"
	case ResolutionLow:
		return "Low"
	}
	return fmt.Sprintf("resolution(%d)", int(r))
}

// SampleRate returns the output rate for an input with rate input.
func (r Resolution) SampleRate(input float64) float64 {
	switch r {
	case ResolutionRaw:
		return input
	case ResolutionHigh:
		return 30
	case ResolutionMid:
		return 10
	case ResolutionLow:
		return 4
	}
	return 0
}

// outputBufferSize is the number of resampled samples outputs keep.
const outputBufferSize = 1024

// output is the shared part of nodes consuming channels. Every float64
// input channel is resampled to the selected resolution.
type output struct {
	resolution Resolution
	resamplers []*resample.Processor
	bursts     []int
}

// Start configures one resampler per input channel. Resamplers start at
// the time all inputs reached.
func (o *output) Start(n *Node, elapsed float64) error {
	startTime := n.readerStartTime()
	n.Reader().Start(startTime)

	inputs := n.InputChannels().Channels()
	for len(o.resamplers) < len(inputs) {
		o.resamplers = append(o.resamplers, resample.New(outputBufferSize))
	}
	o.resamplers = o.resamplers[:len(inputs)]
	o.bursts = make([]int, len(inputs))

	for i, in := range inputs {
		r := o.resamplers[i]
		typed := channel.As[float64](in)
		if typed == nil {
			return fmt.Errorf("input channel %s is not a signal", in.Name())
		}
		r.SetInput(typed)
		r.SetTargetSampleRate(o.resolution.SampleRate(in.SampleRate()))
		r.SetResampleMode(resample.Realtime)
		r.Output().Reset()
		r.SetStartTime(startTime)
		r.ReInit()
		r.Reader().Start(startTime)
		channel.CopyMetadata(r.Output(), in)
	}
	return nil
}

// Reset detaches and clears all resamplers.
func (o *output) Reset(n *Node) {
	for i, r := range o.resamplers {
		r.SetInput(nil)
		r.Reset()
		r.ReInit()
		o.bursts[i] = 0
	}
}

// UpdateResamplers resamples new input samples and records how many output
// samples each channel received. The node input reader is flushed since
// resamplers read on their own.
func (o *output) UpdateResamplers(n *Node, elapsed, delta float64) {
	for i, r := range o.resamplers {
		before := r.Output().SampleCounter()
		r.Update(elapsed, delta)
		if after := r.Output().SampleCounter(); after >= before {
			o.bursts[i] = int(after - before)
		}
		r.Output().SetElapsedTime(elapsed)
		r.Output().UpdateLatency()
	}
	n.Reader().Flush(true)
}

// NumChannels returns the number of resampled channels.
func (o *output) NumChannels() int {
	return len(o.resamplers)
}

// Channel returns the i-th resampled channel.
func (o *output) Channel(i int) *channel.Channel[float64] {
	return o.resamplers[i].Output()
}

// LastBurstSize returns the number of samples channel i received in the
// last update.
func (o *output) LastBurstSize(i int) int {
	return o.bursts[i]
}

// CurrentValue returns the newest input value of channel i, 0 if the node
// is stopped or the channel is empty.
func (o *output) CurrentValue(n *Node, i int) float64 {
	if !n.IsInitialized() || i >= n.Reader().NumReaders() {
		return 0
	}
	c := channel.As[float64](n.Reader().Channel(i))
	if c == nil || c.NumSamples() == 0 {
		return 0
	}
	return c.LastSample()
}

// IsEmpty checks if input channel i has no samples.
func (o *output) IsEmpty(n *Node, i int) bool {
	if i >= n.Reader().NumReaders() {
		return true
	}
	return n.Reader().Channel(i).NumSamples() == 0
}

// IsValidInput checks if channel i has input and resampled samples.
func (o *output) IsValidInput(n *Node, i int) bool {
	if o.IsEmpty(n, i) || i >= len(o.resamplers) {
		return false
	}
	return !o.resamplers[i].Output().IsEmpty()
}

// Delay returns the delay the resamplers add.
func (o *output) Delay(n *Node, in, out int) float64 {
	maxDelay := 0.0
	for _, r := range o.resamplers {
		maxDelay = max(maxDelay, r.Latency())
	}
	return maxDelay
}

// Latency returns the latency the resamplers add.
func (o *output) Latency(n *Node, in, out int) float64 {
	return o.Delay(n, in, out)
}

// Sync restarts the resampled channels at the sync point.
func (o *output) Sync(n *Node, t float64) {
	for _, r := range o.resamplers {
		r.Output().SetStartTime(0)
	}
}

// OutputMemoryUsed returns the memory used by the resampled channels.
func (o *output) OutputMemoryUsed() int {
	size := 0
	for _, r := range o.resamplers {
		size += r.Output().MemoryUsed()
	}
	return size
}
