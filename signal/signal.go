// Package signal provides helpers to move blocks of samples between the
// engine channels and the outside world. It allows to:
//   - convert interleaved int data to non-interleaved floats and back
//   - convert between sample counts and durations for a sample rate
package signal

import (
	"math"
	"time"
)

// Float64 is a non-interleaved float64 signal. Each slice is one channel.
type Float64 [][]float64

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

// devider is used when int to float conversion is done.
func (bitDepth BitDepth) devider() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// multiplier is used when float to int conversion is done.
func (bitDepth BitDepth) multiplier() int {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8 - 1
	case BitDepth16:
		return math.MaxInt16 - 1
	case BitDepth32:
		return math.MaxInt32 - 1
	default:
		return 1
	}
}

// DurationOf returns time duration of passed samples for this sample rate.
// Irregular channels (rate 0) have no duration.
func DurationOf(sampleRate float64, samples int64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(samples) / sampleRate * float64(time.Second))
}

// SamplesOf returns the number of samples that fit into seconds at this
// sample rate, rounded to the closest integer. Negative durations give 0.
func SamplesOf(sampleRate, seconds float64) int {
	if sampleRate <= 0 || seconds <= 0 {
		return 0
	}
	return int(seconds*sampleRate + 0.5)
}

// AsFloat64 converts interleaved int signal to float64.
func (ints InterInt) AsFloat64() Float64 {
	if ints.Data == nil || ints.NumChannels == 0 {
		return nil
	}
	floats := make([][]float64, ints.NumChannels)
	bufSize := int(math.Ceil(float64(len(ints.Data)) / float64(ints.NumChannels)))

	devider := float64(ints.BitDepth.devider())
	for i := range floats {
		floats[i] = make([]float64, bufSize)
		pos := 0
		for j := i; j < len(ints.Data); j = j + ints.NumChannels {
			floats[i][pos] = float64(ints.Data[j]) / devider
			pos++
		}
	}
	return floats
}

// AsInterInt converts float64 signal to interleaved int. Values are clamped
// to [-1, 1] before scaling so that out of range biosignals do not wrap.
func (floats Float64) AsInterInt(bitDepth BitDepth) []int {
	var numChannels int
	if numChannels = len(floats); numChannels == 0 {
		return nil
	}

	multiplier := float64(bitDepth.multiplier())
	size := floats.Size()
	ints := make([]int, size*numChannels)
	for j := range floats {
		for i := 0; i < size; i++ {
			v := math.Max(-1, math.Min(1, floats[j][i]))
			ints[i*numChannels+j] = int(v * multiplier)
		}
	}
	return ints
}

// EmptyFloat64 returns an empty buffer of specified dimentions.
func EmptyFloat64(numChannels int, bufferSize int) Float64 {
	result := make([][]float64, numChannels)
	for i := range result {
		result[i] = make([]float64, bufferSize)
	}
	return result
}

// NumChannels returns number of channels in this sample slice.
func (floats Float64) NumChannels() int {
	return len(floats)
}

// Size returns number of samples in the shortest channel of this block.
// Channels fed by different devices can be ragged within one tick.
func (floats Float64) Size() int {
	if floats.NumChannels() == 0 {
		return 0
	}
	size := len(floats[0])
	for i := range floats {
		if len(floats[i]) < size {
			size = len(floats[i])
		}
	}
	return size
}
