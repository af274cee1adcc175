package channel

// Epoch is a window of consecutive samples that ends at a position of a
// float channel. With zero padding the samples before the oldest one read
// as zero, without it an epoch that does not fit reads as empty.
type Epoch struct {
	channel     *Channel[float64]
	length      int
	position    int64
	zeroPadding bool
}

// NewEpoch returns an epoch of length samples ending at position.
func NewEpoch(c *Channel[float64], length int, position int64, zeroPadding bool) Epoch {
	return Epoch{
		channel:     c,
		length:      length,
		position:    position,
		zeroPadding: zeroPadding,
	}
}

// Len returns the number of samples in the epoch, 0 if it does not fit
// into the channel and zero padding is disabled.
func (e Epoch) Len() int {
	if e.channel == nil {
		return 0
	}
	if !e.zeroPadding && e.length > e.channel.NumSamples() {
		return 0
	}
	return e.length
}

// NumPaddingSamples returns the number of leading zero samples.
func (e Epoch) NumPaddingSamples() int {
	if e.channel == nil || !e.zeroPadding {
		return 0
	}
	if available := e.channel.NumSamples(); e.length > available {
		return e.length - available
	}
	return 0
}

// Sample returns the i-th sample of the epoch, the oldest being 0.
func (e Epoch) Sample(i int) float64 {
	if e.channel == nil || e.length == 0 {
		return 0
	}
	last := int64(e.length - 1)
	if e.position < last && !e.zeroPadding {
		return 0
	}
	index := e.position + int64(i) - last
	if index < 0 || !e.channel.IsValidSample(index) {
		return 0
	}
	return e.channel.Sample(index)
}

// Values returns a copy of the epoch samples.
func (e Epoch) Values() []float64 {
	values := make([]float64, e.Len())
	for i := range values {
		values[i] = e.Sample(i)
	}
	return values
}

// Sum returns the sum of all non padding samples.
func (e Epoch) Sum() float64 {
	sum := 0.0
	for i := e.NumPaddingSamples(); i < e.length; i++ {
		sum += e.Sample(i)
	}
	return sum
}

// Mean returns the average of all non padding samples.
func (e Epoch) Mean() float64 {
	n := e.length - e.NumPaddingSamples()
	if n <= 0 {
		return 0
	}
	return e.Sum() / float64(n)
}

// SetEpochLength sets the number of samples of the epochs the reader pops.
func (r *Reader) SetEpochLength(n int) {
	r.epochLength = n
}

// SetEpochShift sets how many samples the reader advances per epoch, 0
// means by a whole epoch.
func (r *Reader) SetEpochShift(n int) {
	r.epochShift = n
}

// SetEpochZeroPadding enables zero padding of popped epochs.
func (r *Reader) SetEpochZeroPadding(enabled bool) {
	r.epochZeroPadding = enabled
}

func (r *Reader) shift() int {
	if r.epochShift == 0 {
		return r.epochLength
	}
	return r.epochShift
}

// NumEpochs returns the number of epochs that can be popped.
func (r *Reader) NumEpochs() int {
	if r.epochLength == 0 {
		return 0
	}
	return r.numNewSamples / r.shift()
}

// Epoch returns the i-th epoch without consuming it.
func (r *Reader) Epoch(i int) Epoch {
	return NewEpoch(As[float64](r.channel), r.epochLength, r.epochPosition(i), r.epochZeroPadding)
}

// PopOldestEpoch returns the oldest epoch and advances by the epoch shift.
func (r *Reader) PopOldestEpoch() Epoch {
	e := r.Epoch(0)
	r.Advance(r.shift())
	return e
}

// ClearNewEpochs consumes all complete epochs.
func (r *Reader) ClearNewEpochs() {
	r.Advance(r.NumEpochs() * r.shift())
}

func (r *Reader) epochPosition(i int) int64 {
	if r.channel == nil {
		return InvalidIndex
	}
	oldest := r.channel.SampleCounter() - int64(r.numNewSamples)
	return oldest + int64(i*r.shift())
}
