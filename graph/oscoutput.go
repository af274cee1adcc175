package graph

import (
	"fmt"
	"strings"
)

// Sender delivers values to an OSC address.
type Sender interface {
	Send(address string, value float32) error
}

// OscOutputConfig configures an OSC output node.
type OscOutputConfig struct {
	// Address is generated if empty.
	Address    string
	Resolution Resolution
}

// OscOutput sends every resampled value of its input to an OSC address.
// Channels of multichannel inputs are sent to numbered sub addresses.
type OscOutput struct {
	output
	node   *Node
	sender Sender
	config OscOutputConfig
}

// NewOscOutput returns OSC output node behavior.
func NewOscOutput(sender Sender, config OscOutputConfig) *OscOutput {
	return &OscOutput{
		output: output{resolution: config.Resolution},
		sender: sender,
		config: config,
	}
}

// Kind implements Behavior.
func (*OscOutput) Kind() Kind { return KindFeedback }

// TypeName implements Behavior.
func (*OscOutput) TypeName() string { return "osc output" }

// Init implements Initializable.
func (o *OscOutput) Init(n *Node) {
	o.node = n
	n.AddInputPort(o.config.Address)
	n.SetFlags(RequireInputConnection)
}

// Config returns the current config.
func (o *OscOutput) Config() OscOutputConfig {
	return o.config
}

// Address returns the OSC address values are sent to.
func (o *OscOutput) Address() string {
	return o.config.Address
}

// SetConfig validates and applies a new config.
func (o *OscOutput) SetConfig(config OscOutputConfig) error {
	if config.Address != "" && !strings.HasPrefix(config.Address, "/") {
		return fmt.Errorf("osc address %q must start with /", config.Address)
	}
	if config == o.config {
		return nil
	}
	o.config = config
	o.resolution = config.Resolution
	o.node.InputPort(0).SetName(config.Address)
	o.node.ResetAsync()
	return nil
}

// ReInit rejects addresses used by another OSC output.
func (o *OscOutput) ReInit(n *Node, elapsed float64) bool {
	if o.config.Address == "" {
		o.config.Address = uniqueOscAddress(n)
		n.InputPort(0).SetName(o.config.Address)
	}
	if !isOscAddressUnique(n, o.config.Address) {
		n.SetError(ErrorDuplicateOscAddress, "OSC address is not unique.")
		return false
	}
	n.ClearError(ErrorDuplicateOscAddress)
	return true
}

// Update sends new resampled values.
func (o *OscOutput) Update(n *Node, elapsed, delta float64) {
	o.UpdateResamplers(n, elapsed, delta)
	for i := 0; i < o.NumChannels(); i++ {
		if !o.IsValidInput(n, i) {
			continue
		}
		address := o.config.Address
		if o.NumChannels() > 1 {
			address = fmt.Sprintf("%s/%d", address, i+1)
		}
		c := o.Channel(i)
		for idx := c.SampleCounter() - int64(c.NumNewSamples()); idx < c.SampleCounter(); idx++ {
			if err := o.sender.Send(address, float32(c.Sample(idx))); err != nil {
				n.SetError(ErrorSink, err.Error())
				return
			}
		}
	}
	n.ClearError(ErrorSink)
}

func isOscAddressUnique(n *Node, address string) bool {
	if n.graph == nil {
		return true
	}
	for _, other := range n.graph.nodes {
		if other == n {
			continue
		}
		if o, ok := other.behavior.(*OscOutput); ok && o.config.Address == address {
			return false
		}
	}
	return true
}

func uniqueOscAddress(n *Node) string {
	for i := 0; ; i++ {
		address := fmt.Sprintf("/out/%d", i)
		if isOscAddressUnique(n, address) {
			return address
		}
	}
}
