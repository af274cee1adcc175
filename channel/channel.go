// Package channel provides time-stamped sample buffers and the cursors that
// consume them.
//
// A Channel has exactly one writer: the sensor or node output that created
// it. Any number of Readers may follow the same channel, each with its own
// read position. Time is expressed in seconds since the engine sync point.
package channel

import (
	"math"
	"reflect"
	"unsafe"

	"github.com/rs/xid"
)

// InvalidIndex is returned by index lookups that did not find a sample.
const InvalidIndex int64 = -1

const (
	// inactiveTime is the initial time since the last added sample, it
	// marks a fresh channel as inactive.
	inactiveTime = 100.0
	// activityTimeout is the time without new samples after which a channel
	// is considered inactive.
	activityTimeout = 2.0
)

// Base is the untyped view of a channel. Readers, multichannels and nodes
// work with it and only switch to the typed Channel to access sample values.
type Base interface {
	ID() string
	SampleType() reflect.Type

	Name() string
	SetName(string)
	SourceName() string
	SetSourceName(string)
	Unit() string
	SetUnit(string)
	Color() string
	SetColor(string)
	MinValue() float64
	SetMinValue(float64)
	MaxValue() float64
	SetMaxValue(float64)

	SampleRate() float64
	SetSampleRate(float64)
	IsIndependent() bool
	SetIndependent(bool)

	BufferSize() int
	SetBufferSize(numSamples int, discard bool)
	IsBuffer() bool
	NumSamples() int
	NumNewSamples() int
	SampleCounter() int64
	IsEmpty() bool
	BeginAddSamples()
	RemoveLastSample()

	StartTime() float64
	SetStartTime(float64)
	ElapsedTime() float64
	SetElapsedTime(float64)
	Latency() float64
	UpdateLatency()
	Duration() float64
	SampleTime(index int64) float64
	LastSampleTime() float64
	MinSampleIndex() int64
	MaxSampleIndex() int64
	IsValidSample(index int64) bool
	FindIndexByTime(t float64, roundToClosest bool) int64

	IsActive() bool
	SetAsActive()
	UpdateActivity(delta float64)

	Clear()
	Reset()
	MemoryAllocated() int
	MemoryUsed() int
}

// Sizer is implemented by sample types whose memory footprint is not
// fixed, spectrums for example.
type Sizer interface {
	MemorySize() int
}

// state holds everything a channel tracks besides the sample values.
type state struct {
	id          string
	name        string
	sourceName  string
	unit        string
	color       string
	minValue    float64
	maxValue    float64
	sampleRate  float64
	independent bool

	bufferSize    int
	numSamples    int
	numNewSamples int
	sampleCounter int64

	startTime              float64
	elapsedTime            float64
	latency                float64
	timeSinceLastAddSample float64
}

// Channel is a buffer of samples of a single type. With a positive buffer
// size it is a ring that keeps the newest samples only, with buffer size 0
// it is a storage that keeps every sample.
type Channel[T any] struct {
	state
	samples []T
	// offset is the sample index of samples[0] in storage mode.
	offset int64
}

// New returns a channel with provided sample rate and buffer size. Sample
// rate 0 marks an irregular channel.
func New[T any](sampleRate float64, bufferSize int) *Channel[T] {
	c := &Channel[T]{
		state: state{
			id:                     xid.New().String(),
			sampleRate:             sampleRate,
			timeSinceLastAddSample: inactiveTime,
		},
	}
	c.SetBufferSize(bufferSize, true)
	return c
}

// ID returns unique id of the channel.
func (c *state) ID() string { return c.id }

func (c *state) Name() string           { return c.name }
func (c *state) SetName(name string)    { c.name = name }
func (c *state) SourceName() string     { return c.sourceName }
func (c *state) SetSourceName(s string) { c.sourceName = s }
func (c *state) Unit() string           { return c.unit }
func (c *state) SetUnit(unit string)    { c.unit = unit }
func (c *state) Color() string          { return c.color }
func (c *state) SetColor(color string)  { c.color = color }
func (c *state) MinValue() float64      { return c.minValue }
func (c *state) SetMinValue(v float64)  { c.minValue = v }
func (c *state) MaxValue() float64      { return c.maxValue }
func (c *state) SetMaxValue(v float64)  { c.maxValue = v }

// SampleRate returns the sample rate in Hz, 0 means irregular.
func (c *state) SampleRate() float64       { return c.sampleRate }
func (c *state) SetSampleRate(r float64)   { c.sampleRate = r }
func (c *state) IsIndependent() bool       { return c.independent }
func (c *state) SetIndependent(v bool)     { c.independent = v }
func (c *state) BufferSize() int           { return c.bufferSize }
func (c *state) IsBuffer() bool            { return c.bufferSize > 0 }
func (c *state) NumSamples() int           { return c.numSamples }
func (c *state) NumNewSamples() int        { return c.numNewSamples }
func (c *state) SampleCounter() int64      { return c.sampleCounter }
func (c *state) IsEmpty() bool             { return c.numSamples == 0 }
func (c *state) StartTime() float64        { return c.startTime }
func (c *state) SetStartTime(t float64)    { c.startTime = t }
func (c *state) ElapsedTime() float64      { return c.elapsedTime }
func (c *state) SetElapsedTime(t float64)  { c.elapsedTime = t }
func (c *state) Latency() float64          { return c.latency }
func (c *state) SetAsActive()              { c.timeSinceLastAddSample = 0 }
func (c *state) UpdateActivity(dt float64) { c.timeSinceLastAddSample += dt }

// IsActive returns true if samples were added within the last 2 seconds.
func (c *state) IsActive() bool {
	return c.timeSinceLastAddSample <= activityTimeout
}

// BeginAddSamples starts a new tick: samples added from now on are new.
func (c *state) BeginAddSamples() {
	c.numNewSamples = 0
}

// Duration returns the time covered by all samples ever added.
func (c *state) Duration() float64 {
	if c.sampleRate == 0 {
		return 0
	}
	return float64(c.sampleCounter) / c.sampleRate
}

// SampleTime returns the time of the sample with absolute index. Irregular
// channels have no sample times.
func (c *state) SampleTime(index int64) float64 {
	if c.sampleRate == 0 {
		return 0
	}
	return c.startTime + float64(index+1)/c.sampleRate
}

// LastSampleTime returns the time of the newest sample.
func (c *state) LastSampleTime() float64 {
	if c.sampleRate == 0 {
		return 0
	}
	return c.startTime + float64(c.sampleCounter)/c.sampleRate
}

// MinSampleIndex returns the index of the oldest retrievable sample.
func (c *state) MinSampleIndex() int64 {
	if c.sampleCounter == 0 {
		return InvalidIndex
	}
	return c.sampleCounter - int64(c.numSamples)
}

// MaxSampleIndex returns the index of the newest sample.
func (c *state) MaxSampleIndex() int64 {
	if c.sampleCounter == 0 {
		return InvalidIndex
	}
	return c.sampleCounter - 1
}

// IsValidSample checks if the sample with absolute index is retrievable.
func (c *state) IsValidSample(index int64) bool {
	if index == InvalidIndex || c.sampleCounter == 0 {
		return false
	}
	return index >= c.sampleCounter-int64(c.numSamples) && index <= c.sampleCounter-1
}

// FindIndexByTime returns the index of the sample at time t. The result
// can be one past the newest sample, callers check it against
// MaxSampleIndex.
func (c *state) FindIndexByTime(t float64, roundToClosest bool) int64 {
	if t < c.startTime {
		return InvalidIndex
	}
	floatIndex := (t-c.startTime)*c.sampleRate - 1 + timeEpsilon
	if floatIndex < 0 || floatIndex > float64(c.sampleCounter) {
		return InvalidIndex
	}
	if roundToClosest {
		return int64(floatIndex + 0.5)
	}
	return int64(floatIndex)
}

// UpdateLatency smooths the distance between elapsed time and the newest
// sample time.
func (c *state) UpdateLatency() {
	if c.IsEmpty() {
		return
	}
	current := math.Abs(c.elapsedTime - c.LastSampleTime())
	if c.latency == 0 {
		c.latency = current
		return
	}
	c.latency = (c.latency*5 + current) / 6
}

// SampleType returns the type of values stored in the channel.
func (c *Channel[T]) SampleType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// SetBufferSize reconfigures the buffer. The newest samples that fit into
// the new size are kept unless discard is set.
func (c *Channel[T]) SetBufferSize(numSamples int, discard bool) {
	if numSamples < 0 {
		numSamples = 0
	}
	if discard {
		c.bufferSize = numSamples
		c.Clear()
		return
	}
	if numSamples == c.bufferSize && c.samples != nil {
		return
	}
	keep := c.numSamples
	if numSamples > 0 && keep > numSamples {
		keep = numSamples
	}
	first := c.sampleCounter - int64(keep)
	var samples []T
	if numSamples > 0 {
		samples = make([]T, numSamples)
		for i := first; i < c.sampleCounter; i++ {
			samples[i%int64(numSamples)] = c.Sample(i)
		}
	} else {
		samples = make([]T, 0, keep)
		for i := first; i < c.sampleCounter; i++ {
			samples = append(samples, c.Sample(i))
		}
		c.offset = first
	}
	c.samples = samples
	c.bufferSize = numSamples
	c.numSamples = keep
	if c.numNewSamples > keep {
		c.numNewSamples = keep
	}
}

// AddSample appends a value. A full ring drops its oldest sample.
func (c *Channel[T]) AddSample(v T) {
	c.numNewSamples++
	c.sampleCounter++
	if c.bufferSize == 0 {
		c.samples = append(c.samples, v)
		c.numSamples++
	} else {
		if c.numSamples < c.bufferSize {
			c.numSamples++
		}
		c.samples[(c.sampleCounter-1)%int64(c.bufferSize)] = v
	}
	c.SetAsActive()
}

// RemoveLastSample drops the newest sample.
func (c *Channel[T]) RemoveLastSample() {
	if c.numSamples == 0 || c.sampleCounter == 0 {
		return
	}
	c.numSamples--
	c.sampleCounter--
	if c.numNewSamples > 0 {
		c.numNewSamples--
	}
	if c.bufferSize == 0 {
		c.samples = c.samples[:len(c.samples)-1]
	}
}

// Sample returns the sample with absolute index. Samples that are not
// retrievable anymore return the zero value.
func (c *Channel[T]) Sample(index int64) T {
	var zero T
	if !c.IsValidSample(index) {
		return zero
	}
	if c.bufferSize > 0 {
		return c.samples[index%int64(c.bufferSize)]
	}
	return c.samples[index-c.offset]
}

// LastSample returns the newest sample or the zero value.
func (c *Channel[T]) LastSample() T {
	if c.sampleCounter == 0 {
		var zero T
		return zero
	}
	return c.Sample(c.sampleCounter - 1)
}

// Clear drops all samples and counters, metadata and timing stay.
func (c *Channel[T]) Clear() {
	if c.bufferSize > 0 {
		if len(c.samples) != c.bufferSize {
			c.samples = make([]T, c.bufferSize)
		}
	} else {
		c.samples = c.samples[:0]
	}
	c.offset = 0
	c.numSamples = 0
	c.numNewSamples = 0
	c.sampleCounter = 0
	c.timeSinceLastAddSample = inactiveTime
}

// Reset clears the channel including its start time and latency.
func (c *Channel[T]) Reset() {
	c.Clear()
	c.elapsedTime = 0
	c.startTime = 0
	c.latency = 0
}

// MemoryAllocated returns the number of bytes reserved for samples.
func (c *Channel[T]) MemoryAllocated() int {
	return c.memory(cap(c.samples))
}

// MemoryUsed returns the number of bytes occupied by retrievable samples.
func (c *Channel[T]) MemoryUsed() int {
	return c.memory(c.numSamples)
}

func (c *Channel[T]) memory(n int) int {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if s, ok := any(c.LastSample()).(Sizer); ok {
		size += s.MemorySize()
	}
	return n * size
}

// CopyMetadata copies the descriptive attributes of src into dst.
func CopyMetadata(dst, src Base) {
	dst.SetName(src.Name())
	dst.SetSourceName(src.SourceName())
	dst.SetUnit(src.Unit())
	dst.SetColor(src.Color())
	dst.SetMinValue(src.MinValue())
	dst.SetMaxValue(src.MaxValue())
}

// As returns the typed channel behind b, nil if the types do not match.
func As[T any](b Base) *Channel[T] {
	if c, ok := b.(*Channel[T]); ok {
		return c
	}
	return nil
}
