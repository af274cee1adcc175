package mock

import (
	"fmt"

	"github.com/neuromore/engine/channel"
	"github.com/neuromore/engine/graph"
	"github.com/neuromore/engine/signal"
)

// Node mocks a graph node behavior. Source nodes (no inputs) add Samples
// values per update to each output. Other nodes forward the samples of
// their first input channel to every output and count all input samples.
type Node struct {
	counter
	Hooks
	NodeKind   graph.Kind
	Inputs     int
	Outputs    int
	Flags      graph.Flags
	SampleRate float64
	Samples    int
	Value      float64

	DelaySeconds   float64
	LatencySeconds float64
	StartupSamples int
	EpochSamples   int

	// Reject makes ReInit keep the node stopped.
	Reject       bool
	ErrorOnStart error
	ErrorOnStop  error

	Starts int
	Resets int

	outputs []*channel.Channel[float64]
}

// Kind implements graph.Behavior.
func (m *Node) Kind() graph.Kind {
	return m.NodeKind
}

// TypeName implements graph.Behavior.
func (m *Node) TypeName() string {
	return "mock"
}

// Init implements graph.Initializable.
func (m *Node) Init(n *graph.Node) {
	for i := 0; i < m.Inputs; i++ {
		n.AddInputPort(fmt.Sprintf("In%d", i))
	}
	for i := 0; i < m.Outputs; i++ {
		c := channel.New[float64](m.SampleRate, 10)
		m.outputs = append(m.outputs, c)
		n.AddOutputPort(fmt.Sprintf("Out%d", i), c)
	}
	if m.Flags != 0 {
		n.SetFlags(m.Flags)
	}
}

// Output returns the channel of output port i.
func (m *Node) Output(i int) *channel.Channel[float64] {
	return m.outputs[i]
}

// ReInit implements graph.ReInitChecker.
func (m *Node) ReInit(n *graph.Node, elapsed float64) bool {
	return !m.Reject
}

// Start implements graph.Starter.
func (m *Node) Start(n *graph.Node, elapsed float64) error {
	m.Starts++
	m.Started = true
	if m.ErrorOnStart != nil {
		return m.ErrorOnStart
	}
	rate := m.SampleRate
	if n.InputChannels().NumChannels() > 0 {
		rate = n.InputChannels().SampleRate()
	}
	for _, c := range m.outputs {
		c.SetSampleRate(rate)
	}
	n.StartChannels(elapsed)
	return nil
}

// Update implements graph.Updatable.
func (m *Node) Update(n *graph.Node, elapsed, delta float64) {
	if m.Inputs == 0 {
		for _, c := range m.outputs {
			for i := 0; i < m.Samples; i++ {
				c.AddSample(m.Value)
			}
		}
		m.advance(m.Samples)
		return
	}

	reader := n.Reader()
	size := 0
	for i := 0; i < reader.NumReaders(); i++ {
		r := reader.Reader(i)
		size += r.NumNewSamples()
		if i > 0 {
			r.Flush()
			continue
		}
		for r.NumNewSamples() > 0 {
			v := channel.PopOldestSample[float64](r)
			for _, c := range m.outputs {
				c.AddSample(v)
			}
		}
	}
	m.advance(size)
}

// Reset implements graph.Resettable.
func (m *Node) Reset(n *graph.Node) {
	m.Resets++
	m.Resetted = true
}

// Stop implements graph.Stopper.
func (m *Node) Stop(n *graph.Node) error {
	m.Stopped = true
	return m.ErrorOnStop
}

// Delay implements graph.Delayer.
func (m *Node) Delay(n *graph.Node, in, out int) float64 {
	return m.DelaySeconds
}

// Latency implements graph.Latencyer.
func (m *Node) Latency(n *graph.Node, in, out int) float64 {
	return m.LatencySeconds
}

// NumEpochSamples implements graph.EpochSampler.
func (m *Node) NumEpochSamples(n *graph.Node, in int) int {
	return m.EpochSamples
}

// NumStartupSamples implements graph.EpochSampler.
func (m *Node) NumStartupSamples(n *graph.Node, in int) int {
	return m.StartupSamples
}

// Sender mocks an OSC sender. It records every sent value.
type Sender struct {
	Sent        map[string][]float32
	ErrorOnSend error
}

// Send implements graph.Sender.
func (s *Sender) Send(address string, value float32) error {
	if s.ErrorOnSend != nil {
		return s.ErrorOnSend
	}
	if s.Sent == nil {
		s.Sent = make(map[string][]float32)
	}
	s.Sent[address] = append(s.Sent[address], value)
	return nil
}

// AudioSink mocks an audio sink.
type AudioSink struct {
	counter
	SampleRate  int
	NumChannels int
	Opened      bool
	Closed      bool
	ErrorOnOpen error
}

// Open implements graph.AudioSink.
func (s *AudioSink) Open(sampleRate, numChannels int) error {
	if s.ErrorOnOpen != nil {
		return s.ErrorOnOpen
	}
	s.SampleRate, s.NumChannels = sampleRate, numChannels
	s.Opened, s.Closed = true, false
	return nil
}

// Write implements graph.AudioSink.
func (s *AudioSink) Write(b signal.Float64) error {
	s.advance(b.Size())
	return nil
}

// Close implements graph.AudioSink.
func (s *AudioSink) Close() error {
	s.Closed = true
	return nil
}
