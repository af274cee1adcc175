package resample_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neuromore/engine/channel"
	"github.com/neuromore/engine/resample"
)

func TestClockIndependent(t *testing.T) {
	var c resample.Clock
	c.SetFrequency(10)
	c.Update(1, 1)
	assert.Equal(t, 0, c.NumNewTicks(), "stopped clock must not tick")

	c.Start()
	c.Update(0.25, 0.25)
	assert.Equal(t, 2, c.NumNewTicks())
	assert.InDelta(t, 0.1, c.TickTime(c.Tick(0)), 1e-9)
	assert.Equal(t, int64(0), c.PopOldestTick())
	assert.Equal(t, 1, c.NumNewTicks())
	c.ClearNewTicks()
	assert.Equal(t, 0, c.NumNewTicks())

	// consumed ticks stay consumed when the start moves
	c.SetStartTime(1)
	c.Update(1.1, 0.1)
	assert.Equal(t, 0, c.NumNewTicks())
	c.Update(1.35, 0.25)
	assert.Equal(t, 1, c.NumNewTicks())
	assert.Equal(t, int64(2), c.Tick(0))
	assert.InDelta(t, 1.3, c.TickTime(c.Tick(0)), 1e-9)

	c.Reset()
	assert.Equal(t, 0, c.NumNewTicks())
	c.SetFrequency(0)
	c.Update(10, 1)
	assert.Equal(t, 0, c.NumNewTicks())
}

func TestClockSynced(t *testing.T) {
	ref := channel.New[float64](10, 64)
	tests := []struct {
		mode      resample.ClockMode
		frequency float64
		samples   int
		expected  int
	}{
		{mode: resample.Synced, frequency: 20, samples: 0, expected: 0},
		{mode: resample.Synced, frequency: 20, samples: 5, expected: 10},
		{mode: resample.Synced, frequency: 5, samples: 5, expected: 2},
		{mode: resample.SyncedAhead, frequency: 20, samples: 5, expected: 11},
		{mode: resample.SyncedAhead, frequency: 5, samples: 5, expected: 2},
		{mode: resample.SyncedAhead, frequency: 10, samples: 5, expected: 5},
	}
	for _, test := range tests {
		ref.Reset()
		for i := 0; i < test.samples; i++ {
			ref.AddSample(float64(i))
		}
		var c resample.Clock
		c.SetMode(test.mode)
		c.SetFrequency(test.frequency)
		c.SetReferenceChannel(ref)
		c.Start()
		c.Update(100, 100)
		assert.Equal(t, test.expected, c.NumNewTicks(), "mode %v at %v Hz", test.mode, test.frequency)
	}

	var orphan resample.Clock
	orphan.SetMode(resample.Synced)
	orphan.SetFrequency(10)
	orphan.Start()
	orphan.Update(1, 1)
	assert.Equal(t, 0, orphan.NumNewTicks())
}
