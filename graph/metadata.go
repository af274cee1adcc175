package graph

import (
	"fmt"

	"github.com/neuromore/engine/channel"
)

// channelColors are assigned to the channels of output multichannels.
var channelColors = []string{
	"#e6194b", "#3cb44b", "#ffe119", "#4363d8",
	"#f58231", "#911eb4", "#46f0f0", "#f032e6",
	"#bcf60c", "#fabebe", "#008080", "#e6beff",
	"#9a6324", "#fffac8", "#800000", "#aaffc3",
}

// UniqueColor returns the color for the i-th channel of a multichannel.
func UniqueColor(i int) string {
	return channelColors[i%len(channelColors)]
}

// propagateChannelMetadata copies names, colors and synchronicity of the
// inputs to the outputs.
func (n *Node) propagateChannelMetadata() {
	if len(n.inputs) == 0 || len(n.outputs) == 0 {
		return
	}
	names := n.HasFlag(NamePropagation)

	if len(n.inputs) == 1 && len(n.outputs) == 1 {
		in := n.inputs[0].Channels()
		out := n.outputs[0].output
		count := min(in.NumChannels(), out.NumChannels())
		for i := 0; i < count; i++ {
			if names {
				out.Channel(i).SetName(in.Channel(i).Name())
			}
			out.Channel(i).SetIndependent(in.Channel(i).IsIndependent())
		}
		return
	}

	for _, p := range n.outputs {
		out := p.output
		numChannels := out.NumChannels()
		for c := 0; c < numChannels; c++ {
			// prefer inputs of the same size, they drive the multiplication
			source := n.findMetadataSource(c, numChannels)
			if source == nil {
				source = n.findMetadataSource(c, -1)
			}

			name := fmt.Sprintf("Channel %d", c+1)
			color := n.color
			independent := true
			if source != nil {
				if source.Name() != "" {
					name = source.Name()
				}
				color = source.Color()
				independent = source.IsIndependent()
			}

			target := out.Channel(c)
			if names {
				target.SetName(name)
			}
			if !n.HasFlag(ChannelColoring) {
				if numChannels == 1 {
					target.SetColor(n.color)
				} else {
					target.SetColor(color)
				}
			}
			target.SetIndependent(independent)
		}
	}
}

// findMetadataSource returns the c-th channel of the first input with
// size channels, any size if size is negative.
func (n *Node) findMetadataSource(c, size int) channel.Base {
	for _, p := range n.inputs {
		in := p.Channels()
		if in.NumChannels() == 0 || c >= in.NumChannels() {
			continue
		}
		if size >= 0 && in.NumChannels() != size {
			continue
		}
		return in.Channel(c)
	}
	return nil
}

// updateOutputChannelColors colors single channels with the node color and
// multichannels with unique colors.
func (n *Node) updateOutputChannelColors() {
	for _, p := range n.outputs {
		channels := p.output.Channels()
		if len(channels) == 1 {
			channels[0].SetColor(n.color)
			continue
		}
		for i, c := range channels {
			c.SetColor(UniqueColor(i))
		}
	}
}

func (n *Node) updateOutputChannelSourceNames() {
	for _, p := range n.outputs {
		for _, c := range p.output.Channels() {
			c.SetSourceName(n.name)
		}
	}
}
