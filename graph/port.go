package graph

import (
	"github.com/neuromore/engine/channel"
)

// Port is a named connection point of a node. Output ports own their
// multichannel, input ports see the multichannel of the connected output.
type Port struct {
	name   string
	index  int
	input  bool
	owner  *Node
	output *channel.MultiChannel
	// conns holds at most one connection for inputs.
	conns []*Connection
}

// Connection links an output port to an input port.
type Connection struct {
	Source     *Node
	SourcePort int
	Target     *Node
	TargetPort int
}

func newPort(owner *Node, name string, index int, input bool) *Port {
	p := &Port{
		name:  name,
		index: index,
		input: input,
		owner: owner,
	}
	if !input {
		p.output = channel.NewMultiChannel()
	}
	return p
}

// Name returns the port name.
func (p *Port) Name() string {
	return p.name
}

// SetName renames the port.
func (p *Port) SetName(name string) {
	p.name = name
}

// Index returns the position of the port on its node.
func (p *Port) Index() int {
	return p.index
}

// IsInput returns true for input ports.
func (p *Port) IsInput() bool {
	return p.input
}

// Node returns the node the port belongs to.
func (p *Port) Node() *Node {
	return p.owner
}

// Channels returns the channels flowing through the port. Unconnected
// input ports return nil.
func (p *Port) Channels() *channel.MultiChannel {
	if !p.input {
		return p.output
	}
	if len(p.conns) == 0 {
		return nil
	}
	c := p.conns[0]
	return c.Source.OutputPort(c.SourcePort).output
}

// HasConnection returns true if the port is connected.
func (p *Port) HasConnection() bool {
	return len(p.conns) > 0
}

// Connection returns the connection of an input port, nil if it has none.
func (p *Port) Connection() *Connection {
	if !p.input || len(p.conns) == 0 {
		return nil
	}
	return p.conns[0]
}

// Connections returns all connections of the port.
func (p *Port) Connections() []*Connection {
	return p.conns
}

// NumChannels returns the number of channels in the port.
func (p *Port) NumChannels() int {
	return p.Channels().NumChannels()
}

func (p *Port) connect(c *Connection) {
	p.conns = append(p.conns, c)
}

func (p *Port) disconnect(c *Connection) {
	for i := range p.conns {
		if p.conns[i] == c {
			p.conns = append(p.conns[:i], p.conns[i+1:]...)
			return
		}
	}
}

// PortOwner is anything exposing input and output ports.
type PortOwner interface {
	NumInputPorts() int
	NumOutputPorts() int
	InputPort(i int) *Port
	OutputPort(i int) *Port
}

// HasIncomingChannel reports if any input port of p carries a channel.
func HasIncomingChannel(p PortOwner) bool {
	for i := 0; i < p.NumInputPorts(); i++ {
		port := p.InputPort(i)
		if !port.HasConnection() {
			continue
		}
		if port.NumChannels() > 0 {
			return true
		}
	}
	return false
}

// FindMaxInputMultiChannelSize returns the size of the largest input
// multichannel.
func FindMaxInputMultiChannelSize(p PortOwner) int {
	max := 0
	for i := 0; i < p.NumInputPorts(); i++ {
		port := p.InputPort(i)
		if !port.HasConnection() {
			continue
		}
		if n := port.NumChannels(); n > max {
			max = n
		}
	}
	return max
}
