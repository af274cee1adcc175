package graph

import (
	"fmt"
	"reflect"

	"github.com/neuromore/engine/channel"
)

var spectrumType = reflect.TypeOf(channel.Spectrum{})

// binChannelBufferSize is the initial buffer of bin channels, they are
// resized with the classifier buffers.
const binChannelBufferSize = 10

// BinSelectorConfig configures a bin selector node.
type BinSelectorConfig struct {
	MinFrequency float64
	MaxFrequency float64
	// MultiChannel bundles the bins of each input channel in one port.
	// Otherwise every bin gets its own port.
	MultiChannel bool
}

// DefaultBinSelectorConfig returns a config selecting 0 to 128 Hz.
func DefaultBinSelectorConfig() BinSelectorConfig {
	return BinSelectorConfig{
		MaxFrequency: 128,
		MultiChannel: true,
	}
}

// BinSelector splits spectrum channels into one channel per frequency bin
// of the selected band.
type BinSelector struct {
	node   *Node
	config BinSelectorConfig

	// layout is the last spectrum of the first input when the node
	// started, only its shape is used.
	layout      channel.Spectrum
	numChannels int
	outputs     []*channel.Channel[float64]
}

// NewBinSelector returns bin selector node behavior.
func NewBinSelector(config BinSelectorConfig) *BinSelector {
	b := &BinSelector{}
	b.config = b.normalize(config)
	return b
}

// Kind implements Behavior.
func (*BinSelector) Kind() Kind { return KindProcessor }

// TypeName implements Behavior.
func (*BinSelector) TypeName() string { return "bin selector" }

// Init implements Initializable.
func (b *BinSelector) Init(n *Node) {
	b.node = n
	n.AddInputPort("Spectrum")
	n.SetFlags(RequireInputConnection)
}

func (b *BinSelector) normalize(config BinSelectorConfig) BinSelectorConfig {
	if config.MinFrequency > config.MaxFrequency {
		config.MinFrequency = config.MaxFrequency
	}
	return config
}

// Config returns the current config.
func (b *BinSelector) Config() BinSelectorConfig {
	return b.config
}

// SetConfig applies a new config. A lower bound above the upper bound is
// moved to the upper bound.
func (b *BinSelector) SetConfig(config BinSelectorConfig) error {
	if config.MinFrequency < 0 || config.MaxFrequency < 0 {
		return fmt.Errorf("frequency band [%v, %v] must not be negative", config.MinFrequency, config.MaxFrequency)
	}
	config = b.normalize(config)
	if config == b.config {
		return nil
	}
	b.config = config
	b.node.ResetAsync()
	return nil
}

// binSelectorChannelPolicy returns the number of input channels a bin
// selector splits. Until every channel holds a spectrum no channel is used.
// If the spectra differ in shape only the first channel is used and no
// error is reported.
func binSelectorChannelPolicy(inputs *channel.MultiChannel) int {
	if inputs.NumChannels() == 0 || inputs.Channel(0).IsEmpty() {
		return 0
	}
	if inputs.NumChannels() == 1 {
		return 1
	}
	first := channel.As[channel.Spectrum](inputs.Channel(0)).LastSample()
	for _, c := range inputs.Channels()[1:] {
		if c.IsEmpty() {
			return 0
		}
		other := channel.As[channel.Spectrum](c).LastSample()
		if other.MaxFrequency != first.MaxFrequency || other.NumBins() != first.NumBins() {
			return 1
		}
	}
	return inputs.NumChannels()
}

// ReInit waits for spectra on all inputs.
func (b *BinSelector) ReInit(n *Node, elapsed float64) bool {
	inputs := n.InputChannels()
	for _, c := range inputs.Channels() {
		if c.SampleType() != spectrumType {
			n.SetError(ErrorInputIncompatible, fmt.Sprintf("Input channel %s is not a spectrum.", c.Name()))
			return false
		}
	}
	n.ClearError(ErrorInputIncompatible)

	numChannels := binSelectorChannelPolicy(inputs)
	if numChannels == 0 {
		return false
	}
	switch {
	case len(b.outputs) == 0:
		b.layout = channel.As[channel.Spectrum](inputs.Channel(0)).LastSample()
		b.numChannels = numChannels
	case numChannels != b.numChannels:
		n.ResetAsync()
	}
	return true
}

func (b *BinSelector) bins() (first, count int) {
	first = b.layout.BinIndex(b.config.MinFrequency)
	last := b.layout.BinIndex(b.config.MaxFrequency)
	return first, last - first + 1
}

// NumBins returns the number of selected bins per input channel.
func (b *BinSelector) NumBins() int {
	_, count := b.bins()
	return count
}

// Start creates one output channel per input channel and bin.
func (b *BinSelector) Start(n *Node, elapsed float64) error {
	first, numBins := b.bins()
	if numBins <= 0 {
		return fmt.Errorf("no bins between %v and %v Hz", b.config.MinFrequency, b.config.MaxFrequency)
	}

	b.outputs = b.outputs[:0]
	for i := 0; i < b.numChannels; i++ {
		in := n.InputChannels().Channel(i)
		for bin := 0; bin < numBins; bin++ {
			out := channel.New[float64](in.SampleRate(), binChannelBufferSize)
			out.SetColor(in.Color())
			out.SetName(fmt.Sprintf("%.1fHz", b.layout.Frequency(first+bin)))
			b.outputs = append(b.outputs, out)
		}
	}

	numPorts := numBins
	if b.config.MultiChannel {
		numPorts = b.numChannels
	}
	n.TruncateOutputPorts(numPorts)
	for n.NumOutputPorts() < numPorts {
		n.AddOutputPort("")
	}
	for p := 0; p < numPorts; p++ {
		port := n.OutputPort(p)
		port.Channels().Clear()
		if b.config.MultiChannel {
			port.SetName(fmt.Sprintf("Bins Ch%d", p))
			for bin := 0; bin < numBins; bin++ {
				port.Channels().AddChannel(b.outputs[p*numBins+bin])
			}
			continue
		}
		port.SetName(fmt.Sprintf("%.1fHz", b.layout.Frequency(first+p)))
		for i := 0; i < b.numChannels; i++ {
			port.Channels().AddChannel(b.outputs[i*numBins+p])
		}
	}
	if b.config.MultiChannel && numPorts == 1 {
		n.OutputPort(0).SetName("Bins")
	}

	n.StartChannels(elapsed)
	return nil
}

// Update copies the selected bins of all new spectra.
func (b *BinSelector) Update(n *Node, elapsed, delta float64) {
	first, numBins := b.bins()
	reader := n.Reader()
	for i := 0; i < reader.NumReaders(); i++ {
		r := reader.Reader(i)
		if i >= b.numChannels {
			r.Flush()
			continue
		}
		for r.NumNewSamples() > 0 {
			s := channel.PopOldestSample[channel.Spectrum](r)
			for bin := 0; bin < numBins; bin++ {
				b.outputs[i*numBins+bin].AddSample(s.Bin(first + bin))
			}
		}
	}
}

// Reset drops the bin channels.
func (b *BinSelector) Reset(n *Node) {
	for i := 0; i < n.NumOutputPorts(); i++ {
		n.OutputPort(i).Channels().Clear()
	}
	b.outputs = b.outputs[:0]
	b.numChannels = 0
}
