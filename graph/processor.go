package graph

import (
	"fmt"
	"reflect"

	"github.com/neuromore/engine/channel"
)

// ChannelProcessor transforms one channel sample by sample. Every input
// channel of a processor node gets its own instance.
type ChannelProcessor interface {
	Setup(sampleRate float64) error
	Process(v float64) float64
	Reset()
}

// delayer is implemented by channel processors that delay the signal,
// the delay is in samples.
type delayer interface {
	Delay() int
}

var float64Type = reflect.TypeOf(float64(0))

// processor is the shared part of nodes that map each float64 input
// channel to one output channel.
type processor struct {
	newProcessor func() ChannelProcessor
	processors   []ChannelProcessor
}

// initPorts creates the single input and output port.
func (p *processor) initPorts(n *Node) {
	n.AddInputPort("In")
	n.AddOutputPort("Out")
	n.SetFlags(DefaultFlags | RequireConstantSampleRate)
}

// ReInit accepts float64 channels only.
func (p *processor) ReInit(n *Node, elapsed float64) bool {
	for _, c := range n.InputChannels().Channels() {
		if c.SampleType() != float64Type {
			n.SetError(ErrorInputIncompatible, fmt.Sprintf("Input channel %s is not a signal.", c.Name()))
			return false
		}
	}
	n.ClearError(ErrorInputIncompatible)
	return true
}

// Start sets up one processor and one output channel per input channel.
// Output channels are kept if their number didn't change.
func (p *processor) Start(n *Node, elapsed float64) error {
	inputs := n.InputChannels().Channels()
	output := n.OutputPort(0).Channels()
	if output.NumChannels() != len(inputs) {
		output.Clear()
		for range inputs {
			output.AddChannel(channel.New[float64](0, 1))
		}
	}

	p.processors = p.processors[:0]
	for i, in := range inputs {
		proc := p.newProcessor()
		if err := proc.Setup(in.SampleRate()); err != nil {
			return err
		}
		p.processors = append(p.processors, proc)

		out := output.Channel(i)
		out.SetSampleRate(in.SampleRate())
		out.SetUnit(in.Unit())
		out.SetMinValue(in.MinValue())
		out.SetMaxValue(in.MaxValue())
	}
	n.StartChannels(elapsed)
	return nil
}

// Update processes all new samples of every input.
func (p *processor) Update(n *Node, elapsed, delta float64) {
	reader := n.Reader()
	output := n.OutputPort(0).Channels()
	for i, proc := range p.processors {
		r := reader.Reader(i)
		out := channel.As[float64](output.Channel(i))
		for r.NumNewSamples() > 0 {
			out.AddSample(proc.Process(channel.PopOldestSample[float64](r)))
		}
	}
}

// Reset resets all processors.
func (p *processor) Reset(n *Node) {
	for _, proc := range p.processors {
		proc.Reset()
	}
}

// Delay returns the delay of the slowest processor.
func (p *processor) Delay(n *Node, in, out int) float64 {
	maxDelay := 0.0
	for i, proc := range p.processors {
		d, ok := proc.(delayer)
		if !ok {
			continue
		}
		rate := n.InputChannels().Channel(i).SampleRate()
		if rate > 0 {
			maxDelay = max(maxDelay, float64(d.Delay())/rate)
		}
	}
	return maxDelay
}

// identity passes samples unchanged.
type identity struct{}

func (identity) Setup(float64) error       { return nil }
func (identity) Process(v float64) float64 { return v }
func (identity) Reset()                    {}

// Passthrough copies every input channel to an output channel.
type Passthrough struct {
	processor
}

// NewPassthrough returns passthrough node behavior.
func NewPassthrough() *Passthrough {
	return &Passthrough{
		processor: processor{
			newProcessor: func() ChannelProcessor { return identity{} },
		},
	}
}

// Kind implements Behavior.
func (*Passthrough) Kind() Kind { return KindProcessor }

// TypeName implements Behavior.
func (*Passthrough) TypeName() string { return "passthrough" }

// Init implements Initializable.
func (p *Passthrough) Init(n *Node) {
	p.initPorts(n)
}
