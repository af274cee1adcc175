package channel

import "math"

// MultiChannel is an ordered group of channels that flow through one port
// together. It does not own the channels it references.
type MultiChannel struct {
	channels []Base
}

// NewMultiChannel returns a multichannel referencing provided channels.
func NewMultiChannel(channels ...Base) *MultiChannel {
	m := &MultiChannel{}
	for _, c := range channels {
		m.AddChannel(c)
	}
	return m
}

// AddChannel appends a channel reference. Nil channels are ignored.
func (m *MultiChannel) AddChannel(c Base) {
	if c == nil {
		return
	}
	m.channels = append(m.channels, c)
}

// AddMultiChannel appends all channels of other.
func (m *MultiChannel) AddMultiChannel(other *MultiChannel) {
	if other == nil {
		return
	}
	m.channels = append(m.channels, other.channels...)
}

// SetMultiChannel replaces the references with the channels of other.
func (m *MultiChannel) SetMultiChannel(other *MultiChannel) {
	m.channels = m.channels[:0]
	m.AddMultiChannel(other)
}

// Clear drops all references. The channels themselves are untouched.
func (m *MultiChannel) Clear() {
	m.channels = m.channels[:0]
}

// NumChannels returns the number of referenced channels.
func (m *MultiChannel) NumChannels() int {
	if m == nil {
		return 0
	}
	return len(m.channels)
}

// Channel returns the channel at index i.
func (m *MultiChannel) Channel(i int) Base {
	return m.channels[i]
}

// Channels returns the referenced channels.
func (m *MultiChannel) Channels() []Base {
	return m.channels
}

// Reset resets every referenced channel.
func (m *MultiChannel) Reset() {
	for _, c := range m.channels {
		c.Reset()
	}
}

// SampleRate returns the rate of the first channel.
func (m *MultiChannel) SampleRate() float64 {
	if len(m.channels) == 0 {
		return 0
	}
	return m.channels[0].SampleRate()
}

// MinValue returns the smallest min value of all channels, 0 if empty.
func (m *MultiChannel) MinValue() float64 {
	if len(m.channels) == 0 {
		return 0
	}
	v := math.MaxFloat64
	for _, c := range m.channels {
		v = math.Min(v, c.MinValue())
	}
	return v
}

// MaxValue returns the largest max value of all channels, 1 if empty.
func (m *MultiChannel) MaxValue() float64 {
	if len(m.channels) == 0 {
		return 1
	}
	v := -math.MaxFloat64
	for _, c := range m.channels {
		v = math.Max(v, c.MaxValue())
	}
	return v
}

// IsActive returns true if any channel is active.
func (m *MultiChannel) IsActive() bool {
	for _, c := range m.channels {
		if c.IsActive() {
			return true
		}
	}
	return false
}

// SetBufferSize resizes every channel.
func (m *MultiChannel) SetBufferSize(numSamples int, discard bool) {
	for _, c := range m.channels {
		c.SetBufferSize(numSamples, discard)
	}
}

// MinBufferSize returns the smallest buffer size, 0 if empty.
func (m *MultiChannel) MinBufferSize() int {
	if len(m.channels) == 0 {
		return 0
	}
	size := math.MaxInt32
	for _, c := range m.channels {
		if c.BufferSize() < size {
			size = c.BufferSize()
		}
	}
	return size
}

// IsBuffer returns true if every channel is a ring buffer.
func (m *MultiChannel) IsBuffer() bool {
	return m.MinBufferSize() != 0
}

// IsCompatible checks if c could join this multichannel: same sample type
// and same sample rate as the channels already in it.
func (m *MultiChannel) IsCompatible(c Base) bool {
	if c == nil {
		return false
	}
	for _, other := range m.channels {
		if other.SampleType() != c.SampleType() || other.SampleRate() != c.SampleRate() {
			return false
		}
	}
	return true
}

// Validate checks that all channels share type and sample rate.
func (m *MultiChannel) Validate() bool {
	for i := 1; i < len(m.channels); i++ {
		if m.channels[i].SampleType() != m.channels[0].SampleType() {
			return false
		}
		if m.channels[i].SampleRate() != m.channels[0].SampleRate() {
			return false
		}
	}
	return true
}

// MemoryAllocated sums the allocated memory of all channels.
func (m *MultiChannel) MemoryAllocated() int {
	n := 0
	for _, c := range m.channels {
		n += c.MemoryAllocated()
	}
	return n
}

// MemoryUsed sums the used memory of all channels.
func (m *MultiChannel) MemoryUsed() int {
	n := 0
	for _, c := range m.channels {
		n += c.MemoryUsed()
	}
	return n
}
