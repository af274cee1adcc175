package channel

import "math"

// timeEpsilon absorbs float errors when converting times to sample counts.
const timeEpsilon = 1e-9

// Change identifies a kind of input change a reader detected.
type Change uint8

// Input changes.
const (
	// ChangeReset means the channel was cleared or reset.
	ChangeReset Change = 1 << iota
	// ChangeReference means the reader follows another channel now.
	ChangeReference
	// ChangeSampleRate means the channel sample rate was changed.
	ChangeSampleRate
	// ChangeAny is set together with any other change.
	ChangeAny
)

// Reader is a read cursor over a channel. It never mutates the channel:
// popping samples only advances this reader. When the channel overwrites
// samples the reader did not consume yet, they are lost and counted.
type Reader struct {
	channel Base

	hasStarted        bool
	connectionChanged bool
	changes           Change

	lastSampleRate    float64
	lastBufferSize    int
	lastSampleCounter int64
	startTime         float64

	numNewSamples       int
	numSamplesProcessed int64
	numSamplesReceived  int64
	numSamplesLost      int64

	epochLength      int
	epochShift       int
	epochZeroPadding bool
}

// NewReader returns a reader following c. Channel can be nil.
func NewReader(c Base) *Reader {
	r := &Reader{
		channel:     c,
		epochLength: 1,
		epochShift:  1,
	}
	r.Reset()
	return r
}

// Channel returns the channel the reader follows.
func (r *Reader) Channel() Base {
	return r.channel
}

// SetChannel makes the reader follow c. A different channel resets the
// reader and is reported as reference change by DetectInputChanges.
func (r *Reader) SetChannel(c Base) {
	if r.channel == c {
		return
	}
	r.channel = c
	r.Reset()
	r.connectionChanged = true
}

// Reset clears the cursor and all flags.
func (r *Reader) Reset() {
	r.hasStarted = false
	r.lastSampleRate = 0
	r.lastBufferSize = 0
	r.lastSampleCounter = 0
	r.startTime = 0
	r.numNewSamples = 0
	r.numSamplesProcessed = 0
	r.numSamplesReceived = 0
	r.numSamplesLost = 0
	r.connectionChanged = false
	r.changes = 0
}

// ResetCounters aligns the reader with the current end of the channel.
func (r *Reader) ResetCounters() {
	if r.channel != nil {
		r.lastSampleRate = r.channel.SampleRate()
		r.lastBufferSize = r.channel.BufferSize()
		r.lastSampleCounter = r.channel.SampleCounter()
		r.startTime = r.channel.LastSampleTime()
	} else {
		r.lastSampleRate = 0
		r.lastBufferSize = 0
		r.lastSampleCounter = 0
		r.startTime = 0
	}
	r.numNewSamples = 0
	r.numSamplesProcessed = 0
	r.numSamplesReceived = 0
	r.numSamplesLost = 0
}

// DetectInputChanges compares the channel with what the reader saw last
// time. Any change drops the unread samples and restarts the reader.
func (r *Reader) DetectInputChanges() {
	if r.channel == nil {
		if r.connectionChanged {
			r.Reset()
			r.changes = ChangeReference | ChangeAny
		}
		return
	}

	r.changes = 0
	if r.connectionChanged {
		r.changes |= ChangeReference
	}
	if r.lastSampleRate != r.channel.SampleRate() {
		r.changes |= ChangeSampleRate
	}
	if r.channel.SampleCounter() < r.lastSampleCounter {
		r.changes |= ChangeReset
	}
	if r.changes == 0 {
		return
	}
	r.numNewSamples = 0
	r.lastSampleCounter = r.channel.SampleCounter()
	r.lastSampleRate = r.channel.SampleRate()
	r.hasStarted = false
	r.changes |= ChangeAny
	r.connectionChanged = false
}

// HasInputChanged reports if the last DetectInputChanges found a change of
// that kind.
func (r *Reader) HasInputChanged(c Change) bool {
	return r.changes&c != 0
}

// Start makes the reader consume samples newer than t.
func (r *Reader) Start(t float64) {
	r.ResetCounters()
	r.hasStarted = false
	r.startTime = t
}

// StartTime returns the time the reader was started at.
func (r *Reader) StartTime() float64 {
	return r.startTime
}

// HasStarted returns true after the first update following Start.
func (r *Reader) HasStarted() bool {
	return r.hasStarted
}

// Update picks up the samples the channel received since the last update.
// On the first update after Start it takes all samples newer than the
// start time.
func (r *Reader) Update() {
	if r.channel == nil {
		return
	}
	if !r.hasStarted {
		if r.channel.SampleRate() > 0 {
			newest := r.channel.LastSampleTime()
			if newest < r.startTime {
				return
			}
			// samples at or before the start time are skipped
			skip := int64(math.Floor((r.startTime-r.channel.StartTime())*r.channel.SampleRate() + timeEpsilon))
			if skip < 0 {
				skip = 0
			}
			numSamples := r.channel.SampleCounter() - skip
			if numSamples < 0 {
				numSamples = 0
			}
			r.numNewSamples = int(numSamples)
			r.numSamplesReceived = numSamples
			r.lastSampleCounter = r.channel.SampleCounter() - numSamples
		} else {
			r.numNewSamples = 0
			r.numSamplesReceived = 0
			r.lastSampleCounter = r.channel.SampleCounter()
		}
		r.hasStarted = true
		r.realign()
		return
	}
	n := r.channel.SampleCounter() - (r.lastSampleCounter + int64(r.numNewSamples))
	if n < 0 {
		// newest samples were removed from the channel
		r.numNewSamples += int(n)
		if r.numNewSamples < 0 {
			r.numNewSamples = 0
			r.lastSampleCounter = r.channel.SampleCounter()
		}
		return
	}
	r.numNewSamples += int(n)
	r.numSamplesReceived += n
	r.realign()
}

// realign drops the unread samples the channel does not hold anymore.
func (r *Reader) realign() {
	if !r.IsOutOfBounds() {
		return
	}
	lost := r.numNewSamples - r.channel.NumSamples()
	r.numNewSamples -= lost
	r.lastSampleCounter += int64(lost)
	r.numSamplesLost += int64(lost)
}

// NumNewSamples returns the number of unread samples.
func (r *Reader) NumNewSamples() int {
	return r.numNewSamples
}

// NumSamplesProcessed returns the number of samples consumed since start.
func (r *Reader) NumSamplesProcessed() int64 {
	return r.numSamplesProcessed
}

// NumSamplesReceived returns the number of samples seen since start.
func (r *Reader) NumSamplesReceived() int64 {
	return r.numSamplesReceived
}

// NumSamplesLost returns the number of samples the channel overwrote
// before this reader consumed them.
func (r *Reader) NumSamplesLost() int64 {
	return r.numSamplesLost
}

// Advance consumes up to n unread samples.
func (r *Reader) Advance(n int) {
	if n > r.numNewSamples {
		n = r.numNewSamples
	}
	if n <= 0 {
		return
	}
	r.numNewSamples -= n
	r.lastSampleCounter += int64(n)
	r.numSamplesProcessed += int64(n)
}

// Flush consumes all unread samples.
func (r *Reader) Flush() {
	r.Advance(r.numNewSamples)
}

// SampleIndex returns the absolute index of the i-th unread sample.
func (r *Reader) SampleIndex(i int) int64 {
	if r.channel == nil {
		return InvalidIndex
	}
	counter := r.channel.SampleCounter()
	if int64(r.numNewSamples) > counter+int64(i) {
		return InvalidIndex
	}
	return counter - int64(r.numNewSamples) + int64(i)
}

// OldestSampleIndex returns the index of the oldest unread sample, or the
// newest sample if everything was consumed.
func (r *Reader) OldestSampleIndex() int64 {
	if r.numNewSamples > 0 {
		return r.SampleIndex(0)
	}
	if r.channel == nil || r.channel.SampleCounter() == 0 {
		return InvalidIndex
	}
	return r.channel.SampleCounter() - 1
}

// OldestSampleTime returns the time of OldestSampleIndex, 0 if invalid.
func (r *Reader) OldestSampleTime() float64 {
	index := r.OldestSampleIndex()
	if index == InvalidIndex {
		return 0
	}
	return r.channel.SampleTime(index)
}

// IsOutOfBounds reports if more samples are unread than the channel holds.
func (r *Reader) IsOutOfBounds() bool {
	return r.channel != nil && r.numNewSamples > r.channel.NumSamples()
}

// Sample returns the i-th unread sample of a typed channel.
func Sample[T any](r *Reader, i int) T {
	var zero T
	c := As[T](r.channel)
	if c == nil {
		return zero
	}
	return c.Sample(r.SampleIndex(i))
}

// OldestSample returns the oldest unread sample without consuming it.
func OldestSample[T any](r *Reader) T {
	return Sample[T](r, 0)
}

// PopOldestSample returns the oldest unread sample and consumes it.
func PopOldestSample[T any](r *Reader) T {
	v := Sample[T](r, 0)
	r.Advance(1)
	return v
}

// NewestSample returns the newest unread sample without consuming it.
func NewestSample[T any](r *Reader) T {
	return Sample[T](r, r.numNewSamples-1)
}
