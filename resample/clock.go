package resample

import (
	"math"

	"github.com/neuromore/engine/channel"
)

// ClockMode defines what drives a clock.
type ClockMode int

// Clock modes.
const (
	// Independent clocks tick with the elapsed engine time.
	Independent ClockMode = iota
	// Synced clocks tick up to the newest sample of the reference channel.
	Synced
	// SyncedAhead clocks may run up to one reference sample ahead.
	SyncedAhead
)

const tickEpsilon = 1e-9

// Clock generates output ticks at a fixed frequency. Tick i is at
// start + (i+1)/frequency, the same time axis channels use for samples.
// Moving the start time keeps the tick counters, so ticks that were already
// consumed are never generated again.
type Clock struct {
	mode      ClockMode
	frequency float64
	startTime float64
	reference channel.Base
	running   bool

	numTicks  int64
	numPopped int64
}

// SetMode sets what drives the clock.
func (c *Clock) SetMode(mode ClockMode) {
	c.mode = mode
}

// Mode returns the clock mode.
func (c *Clock) Mode() ClockMode {
	return c.mode
}

// SetFrequency sets the tick rate in Hz.
func (c *Clock) SetFrequency(f float64) {
	c.frequency = f
}

// Frequency returns the tick rate in Hz.
func (c *Clock) Frequency() float64 {
	return c.frequency
}

// SetStartTime sets the time of tick -1.
func (c *Clock) SetStartTime(t float64) {
	c.startTime = t
}

// StartTime returns the time the clock counts from.
func (c *Clock) StartTime() float64 {
	return c.startTime
}

// SetReferenceChannel sets the channel synced clocks follow.
func (c *Clock) SetReferenceChannel(ref channel.Base) {
	c.reference = ref
}

// Start makes the clock tick on updates.
func (c *Clock) Start() {
	c.running = true
}

// Stop freezes the clock.
func (c *Clock) Stop() {
	c.running = false
}

// IsRunning returns true if the clock ticks on updates.
func (c *Clock) IsRunning() bool {
	return c.running
}

// Reset drops all ticks.
func (c *Clock) Reset() {
	c.numTicks = 0
	c.numPopped = 0
}

// Update generates the ticks that became due.
func (c *Clock) Update(elapsed, delta float64) {
	if !c.running || c.frequency <= 0 {
		return
	}
	total := c.dueTicks(elapsed)
	if total > c.numTicks {
		c.numTicks = total
	}
}

func (c *Clock) dueTicks(elapsed float64) int64 {
	switch c.mode {
	case Independent:
		return int64(math.Max(0, math.Floor((elapsed-c.startTime)*c.frequency+tickEpsilon)))
	case Synced, SyncedAhead:
		if c.reference == nil || c.reference.SampleCounter() == 0 {
			return 0
		}
		limit := c.reference.LastSampleTime()
		rate := c.reference.SampleRate()
		if c.mode == Synced || rate <= 0 {
			return int64(math.Max(0, math.Floor((limit-c.startTime)*c.frequency+tickEpsilon)))
		}
		// ticks strictly before the time of the next reference sample
		x := (limit + 1/rate - c.startTime) * c.frequency
		return int64(math.Max(0, math.Ceil(x-tickEpsilon)-1))
	}
	return 0
}

// NumNewTicks returns the number of ticks not consumed yet.
func (c *Clock) NumNewTicks() int {
	return int(c.numTicks - c.numPopped)
}

// Tick returns the i-th unconsumed tick.
func (c *Clock) Tick(i int) int64 {
	return c.numPopped + int64(i)
}

// PopOldestTick consumes the oldest tick and returns it.
func (c *Clock) PopOldestTick() int64 {
	tick := c.numPopped
	if c.numPopped < c.numTicks {
		c.numPopped++
	}
	return tick
}

// ClearNewTicks consumes all ticks.
func (c *Clock) ClearNewTicks() {
	c.numPopped = c.numTicks
}

// TickTime returns the time of the tick.
func (c *Clock) TickTime(tick int64) float64 {
	if c.frequency <= 0 {
		return c.startTime
	}
	return c.startTime + float64(tick+1)/c.frequency
}
