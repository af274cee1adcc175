package channel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuromore/engine/channel"
)

func fill(c *channel.Channel[float64], from, to int) {
	for i := from; i < to; i++ {
		c.AddSample(float64(i))
	}
}

func TestEviction(t *testing.T) {
	tests := []struct {
		capacity int
		added    int
	}{
		{capacity: 1, added: 5},
		{capacity: 10, added: 11},
		{capacity: 10, added: 95},
		{capacity: 128, added: 1000},
	}
	for _, test := range tests {
		c := channel.New[float64](100, test.capacity)
		fill(c, 0, test.added)

		require.Equal(t, test.capacity, c.NumSamples())
		assert.Equal(t, int64(test.added), c.SampleCounter())
		assert.Equal(t, int64(test.added-test.capacity), c.MinSampleIndex())
		assert.Equal(t, int64(test.added-1), c.MaxSampleIndex())

		// retrievable samples are the newest ones in order
		prev := -1.0
		for i := c.MinSampleIndex(); i <= c.MaxSampleIndex(); i++ {
			v := c.Sample(i)
			assert.Equal(t, float64(i), v)
			assert.Greater(t, v, prev)
			prev = v
		}
		// evicted samples are gone
		assert.False(t, c.IsValidSample(c.MinSampleIndex()-1))
	}
}

func TestStorage(t *testing.T) {
	c := channel.New[float64](10, 0)
	fill(c, 0, 1000)
	assert.False(t, c.IsBuffer())
	assert.Equal(t, 1000, c.NumSamples())
	assert.Equal(t, 999.0, c.LastSample())
	assert.Equal(t, 0.0, c.Sample(0))

	c.RemoveLastSample()
	assert.Equal(t, int64(999), c.SampleCounter())
	assert.Equal(t, 998.0, c.LastSample())
	c.AddSample(5)
	assert.Equal(t, 5.0, c.LastSample())
}

func TestSetBufferSizeKeepsNewest(t *testing.T) {
	c := channel.New[float64](10, 8)
	fill(c, 0, 12)

	c.SetBufferSize(4, false)
	assert.Equal(t, 4, c.NumSamples())
	assert.Equal(t, int64(12), c.SampleCounter())
	for i := int64(8); i < 12; i++ {
		assert.Equal(t, float64(i), c.Sample(i))
	}

	c.SetBufferSize(16, false)
	assert.Equal(t, 4, c.NumSamples())
	fill(c, 12, 20)
	assert.Equal(t, 12, c.NumSamples())
	assert.Equal(t, 8.0, c.Sample(c.MinSampleIndex()))

	c.SetBufferSize(0, false)
	assert.False(t, c.IsBuffer())
	assert.Equal(t, 12, c.NumSamples())
	assert.Equal(t, 19.0, c.LastSample())
	assert.Equal(t, 8.0, c.Sample(8))

	c.SetBufferSize(4, true)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, int64(0), c.SampleCounter())
}

func TestTiming(t *testing.T) {
	c := channel.New[float64](100, 256)
	assert.Equal(t, channel.InvalidIndex, c.MinSampleIndex())
	assert.Equal(t, channel.InvalidIndex, c.MaxSampleIndex())
	assert.False(t, c.IsActive())

	c.SetStartTime(2)
	fill(c, 0, 50)
	assert.True(t, c.IsActive())
	assert.InDelta(t, 2.01, c.SampleTime(0), 1e-9)
	assert.InDelta(t, 2.5, c.LastSampleTime(), 1e-9)
	assert.InDelta(t, 0.5, c.Duration(), 1e-9)

	assert.Equal(t, int64(9), c.FindIndexByTime(2.1, false))
	assert.Equal(t, int64(10), c.FindIndexByTime(2.1051, true))
	assert.Equal(t, channel.InvalidIndex, c.FindIndexByTime(1, true))
	assert.Equal(t, channel.InvalidIndex, c.FindIndexByTime(3, true))

	c.UpdateActivity(2.5)
	assert.False(t, c.IsActive())

	irregular := channel.New[float64](0, 16)
	fill(irregular, 0, 3)
	assert.Equal(t, 0.0, irregular.LastSampleTime())
	assert.Equal(t, 0.0, irregular.Duration())
}

func TestUpdateLatency(t *testing.T) {
	c := channel.New[float64](10, 16)
	c.UpdateLatency()
	assert.Equal(t, 0.0, c.Latency())

	fill(c, 0, 10)
	c.SetElapsedTime(1.6)
	c.UpdateLatency()
	assert.InDelta(t, 0.6, c.Latency(), 1e-9)

	c.SetElapsedTime(1.0)
	c.UpdateLatency()
	assert.InDelta(t, 0.5, c.Latency(), 1e-9)

	c.Reset()
	assert.Equal(t, 0.0, c.Latency())
	assert.Equal(t, 0.0, c.ElapsedTime())
	assert.True(t, c.IsEmpty())
}

func TestNewSamples(t *testing.T) {
	c := channel.New[float64](10, 16)
	fill(c, 0, 3)
	assert.Equal(t, 3, c.NumNewSamples())
	c.BeginAddSamples()
	assert.Equal(t, 0, c.NumNewSamples())
	fill(c, 3, 5)
	c.RemoveLastSample()
	assert.Equal(t, 1, c.NumNewSamples())
	assert.Equal(t, 3.0, c.LastSample())
}

func TestMemory(t *testing.T) {
	c := channel.New[float64](10, 16)
	assert.Equal(t, 16*8, c.MemoryAllocated())
	assert.Equal(t, 0, c.MemoryUsed())
	fill(c, 0, 4)
	assert.Equal(t, 4*8, c.MemoryUsed())
}

func TestMultiChannel(t *testing.T) {
	empty := channel.NewMultiChannel()
	assert.Equal(t, 0.0, empty.MinValue())
	assert.Equal(t, 1.0, empty.MaxValue())
	assert.Equal(t, 0.0, empty.SampleRate())
	assert.False(t, empty.IsBuffer())
	assert.False(t, empty.IsActive())

	a := channel.New[float64](128, 64)
	a.SetMinValue(-1)
	a.SetMaxValue(2)
	b := channel.New[float64](128, 32)
	b.SetMinValue(-3)
	b.SetMaxValue(1)
	m := channel.NewMultiChannel(a, b)

	assert.Equal(t, 2, m.NumChannels())
	assert.Equal(t, -3.0, m.MinValue())
	assert.Equal(t, 2.0, m.MaxValue())
	assert.Equal(t, 32, m.MinBufferSize())
	assert.True(t, m.IsBuffer())
	assert.True(t, m.Validate())

	b.AddSample(1)
	assert.True(t, m.IsActive())

	assert.True(t, m.IsCompatible(channel.New[float64](128, 1)))
	assert.False(t, m.IsCompatible(channel.New[float64](64, 1)))
	assert.False(t, m.IsCompatible(channel.New[channel.Spectrum](128, 1)))
	assert.False(t, m.IsCompatible(nil))

	m.AddChannel(channel.New[float64](256, 1))
	assert.False(t, m.Validate())

	other := channel.NewMultiChannel()
	other.SetMultiChannel(m)
	assert.Equal(t, 3, other.NumChannels())
	other.Clear()
	assert.Equal(t, 0, other.NumChannels())
	assert.Equal(t, 3, m.NumChannels())
}

func TestSpectrum(t *testing.T) {
	s := channel.NewSpectrum(64, 65)
	for i := range s.Bins {
		s.Bins[i] = float64(i % 10)
	}
	assert.Equal(t, 65, s.NumBins())
	assert.Equal(t, 10.0, s.Frequency(10))
	assert.Equal(t, 10, s.BinIndex(10))
	assert.Equal(t, 64, s.BinIndex(100))
	assert.Equal(t, 0, s.BinIndex(-1))
	assert.Equal(t, 9.0, s.DominantFrequency(1, 20))
	assert.Equal(t, 9.0, s.MaxBin(0, 0))
	assert.Equal(t, 0.0, s.Bin(100))

	c := channel.New[channel.Spectrum](4, 2)
	c.AddSample(s)
	assert.Equal(t, 65, c.LastSample().NumBins())
	assert.Greater(t, c.MemoryUsed(), 65*8)
}
