package graph

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuromore/engine/channel"
)

// spectrumSource adds one spectrum per update to each of its channels. Bin
// i of channel c holds 100*c + i.
type spectrumSource struct {
	channels []*channel.Channel[channel.Spectrum]
	maxFreq  float64
	numBins  int
}

func newSpectrumSource(numChannels int, maxFreq float64, numBins int) *spectrumSource {
	s := &spectrumSource{maxFreq: maxFreq, numBins: numBins}
	for i := 0; i < numChannels; i++ {
		c := channel.New[channel.Spectrum](10, 10)
		c.SetName(fmt.Sprintf("Ch%d", i))
		s.channels = append(s.channels, c)
	}
	return s
}

func (*spectrumSource) Kind() Kind       { return KindInput }
func (*spectrumSource) TypeName() string { return "spectrum source" }
func (s *spectrumSource) Init(n *Node) {
	channels := make([]channel.Base, 0, len(s.channels))
	for _, c := range s.channels {
		channels = append(channels, c)
	}
	n.AddOutputPort("Spectrum", channels...)
}

func (s *spectrumSource) Update(n *Node, elapsed, delta float64) {
	for i, c := range s.channels {
		spectrum := channel.NewSpectrum(s.maxFreq, s.numBins)
		for bin := range spectrum.Bins {
			spectrum.Bins[bin] = float64(100*i + bin)
		}
		c.AddSample(spectrum)
	}
}

func TestBinSelectorChannelPolicy(t *testing.T) {
	spectrum := func(maxFreq float64, numBins int) *channel.Channel[channel.Spectrum] {
		c := channel.New[channel.Spectrum](10, 10)
		c.AddSample(channel.NewSpectrum(maxFreq, numBins))
		return c
	}
	tests := []struct {
		name     string
		inputs   *channel.MultiChannel
		expected int
	}{
		{
			name:     "no input",
			inputs:   channel.NewMultiChannel(),
			expected: 0,
		},
		{
			name:     "empty",
			inputs:   channel.NewMultiChannel(channel.New[channel.Spectrum](10, 10)),
			expected: 0,
		},
		{
			name:     "single",
			inputs:   channel.NewMultiChannel(spectrum(64, 65)),
			expected: 1,
		},
		{
			name:     "one empty",
			inputs:   channel.NewMultiChannel(spectrum(64, 65), channel.New[channel.Spectrum](10, 10)),
			expected: 0,
		},
		{
			name:     "matching",
			inputs:   channel.NewMultiChannel(spectrum(64, 65), spectrum(64, 65), spectrum(64, 65)),
			expected: 3,
		},
		{
			name:     "different bins",
			inputs:   channel.NewMultiChannel(spectrum(64, 65), spectrum(64, 33)),
			expected: 1,
		},
		{
			name:     "different range",
			inputs:   channel.NewMultiChannel(spectrum(64, 65), spectrum(128, 65)),
			expected: 1,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, binSelectorChannelPolicy(test.inputs))
		})
	}
}

func TestBinSelector(t *testing.T) {
	tests := []struct {
		name         string
		multiChannel bool
		ports        []string
		portChannels int
	}{
		{
			name:         "multichannel",
			multiChannel: true,
			ports:        []string{"Bins Ch0", "Bins Ch1"},
			portChannels: 5,
		},
		{
			name:         "port per bin",
			ports:        []string{"8.0Hz", "9.0Hz", "10.0Hz", "11.0Hz", "12.0Hz"},
			portChannels: 2,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			src := NewNode("source", newSpectrumSource(2, 64, 65))
			behavior := NewBinSelector(BinSelectorConfig{
				MinFrequency: 8,
				MaxFrequency: 12,
				MultiChannel: test.multiChannel,
			})
			selector := NewNode("selector", behavior)
			c := NewClassifier("test")
			require.NoError(t, c.AddNode(src))
			require.NoError(t, c.AddNode(selector))
			_, err := c.Connect(src, 0, selector, 0)
			require.NoError(t, err)

			// spectra arrive after the first update
			c.Update(0.1, 0.1)
			assert.False(t, selector.IsInitialized())
			for i := 2; i <= 5; i++ {
				c.Update(float64(i)*0.1, 0.1)
			}
			require.True(t, selector.IsInitialized())
			assert.Equal(t, 5, behavior.NumBins())

			require.Equal(t, len(test.ports), selector.NumOutputPorts())
			for i, name := range test.ports {
				port := selector.OutputPort(i)
				assert.Equal(t, name, port.Name())
				assert.Equal(t, test.portChannels, port.Channels().NumChannels())
			}

			// channel 1, bin 10
			var bin *channel.Channel[float64]
			if test.multiChannel {
				bin = channel.As[float64](selector.OutputPort(1).Channels().Channel(2))
			} else {
				bin = channel.As[float64](selector.OutputPort(2).Channels().Channel(1))
			}
			assert.Equal(t, "10.0Hz", bin.Name())
			assert.Equal(t, 10.0, bin.SampleRate())
			assert.Greater(t, bin.SampleCounter(), int64(0))
			assert.Equal(t, 110.0, bin.LastSample())
		})
	}
}

func TestBinSelectorIncompatibleInput(t *testing.T) {
	src := NewNode("source", &Passthrough{})
	selector := NewNode("selector", NewBinSelector(DefaultBinSelectorConfig()))
	src.OutputPort(0).Channels().AddChannel(channel.New[float64](10, 10))
	c := NewClassifier("test")
	require.NoError(t, c.AddNode(src))
	require.NoError(t, c.AddNode(selector))
	_, err := c.Connect(src, 0, selector, 0)
	require.NoError(t, err)

	selector.ReInit(0.1, 0.1)
	assert.False(t, selector.IsInitialized())
	assert.True(t, selector.HasError(ErrorInputIncompatible))
}
