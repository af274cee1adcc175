package channel

import "math"

// MultiReader keeps one Reader per channel of a multichannel.
type MultiReader struct {
	input   *MultiChannel
	readers []*Reader
	changed bool
}

// NewMultiReader returns a reader for the input. Input can be nil.
func NewMultiReader(input *MultiChannel) *MultiReader {
	return &MultiReader{input: input}
}

// SetInput replaces the input, readers follow on DetectInputChanges.
func (m *MultiReader) SetInput(input *MultiChannel) {
	m.input = input
}

// Input returns the multichannel the readers follow.
func (m *MultiReader) Input() *MultiChannel {
	return m.input
}

// Reset resets all readers.
func (m *MultiReader) Reset() {
	for _, r := range m.readers {
		r.Reset()
	}
	m.changed = false
}

// DetectInputChanges matches the readers with the input channels and lets
// every reader detect its changes. A changed number of channels counts as
// a reference change.
func (m *MultiReader) DetectInputChanges() {
	m.changed = false
	numChannels := m.input.NumChannels()
	if len(m.readers) != numChannels {
		m.changed = true
		if len(m.readers) > numChannels {
			m.readers = m.readers[:numChannels]
		}
		for len(m.readers) < numChannels {
			m.readers = append(m.readers, NewReader(nil))
		}
	}
	for i, r := range m.readers {
		r.SetChannel(m.input.Channel(i))
	}
	for _, r := range m.readers {
		r.DetectInputChanges()
	}
}

// HasInputChanged reports if any reader detected the change.
func (m *MultiReader) HasInputChanged(c Change) bool {
	if m.changed && (c == ChangeReference || c == ChangeAny) {
		return true
	}
	for _, r := range m.readers {
		if r.HasInputChanged(c) {
			return true
		}
	}
	return false
}

// Update updates all readers.
func (m *MultiReader) Update() {
	for _, r := range m.readers {
		r.Update()
	}
}

// Start starts all readers at t.
func (m *MultiReader) Start(t float64) {
	for _, r := range m.readers {
		r.Start(t)
	}
}

// Advance consumes n samples from every reader.
func (m *MultiReader) Advance(n int) {
	for _, r := range m.readers {
		r.Advance(n)
	}
}

// Flush consumes unread samples. Independent readers are flushed
// completely, otherwise only the aligned samples are consumed.
func (m *MultiReader) Flush(independent bool) {
	if independent {
		for _, r := range m.readers {
			r.Flush()
		}
		return
	}
	m.Advance(m.MinNumNewSamples())
}

// NumReaders returns the number of readers.
func (m *MultiReader) NumReaders() int {
	return len(m.readers)
}

// Reader returns the i-th reader, nil if out of range.
func (m *MultiReader) Reader(i int) *Reader {
	if i < 0 || i >= len(m.readers) {
		return nil
	}
	return m.readers[i]
}

// Channel returns the channel of the i-th reader, nil if out of range.
func (m *MultiReader) Channel(i int) Base {
	if r := m.Reader(i); r != nil {
		return r.Channel()
	}
	return nil
}

// FindReader returns the reader following c.
func (m *MultiReader) FindReader(c Base) *Reader {
	if c == nil {
		return nil
	}
	for _, r := range m.readers {
		if r.Channel() == c {
			return r
		}
	}
	return nil
}

// FindMinLastSampleTime returns the oldest newest-sample time over all
// channels, the time all of them reached.
func (m *MultiReader) FindMinLastSampleTime() float64 {
	t := 0.0
	for i, r := range m.readers {
		if i == 0 {
			t = r.Channel().LastSampleTime()
			continue
		}
		t = math.Min(t, r.Channel().LastSampleTime())
	}
	return t
}

// FindMaxLastSampleTime returns the newest sample time over all channels.
func (m *MultiReader) FindMaxLastSampleTime() float64 {
	t := 0.0
	for i, r := range m.readers {
		if i == 0 {
			t = r.Channel().LastSampleTime()
			continue
		}
		t = math.Max(t, r.Channel().LastSampleTime())
	}
	return t
}

// CalcReaderSyncOffset returns the time spread of the next samples the
// readers would pop.
func (m *MultiReader) CalcReaderSyncOffset() float64 {
	var minTime, maxTime float64
	for i, r := range m.readers {
		t := r.OldestSampleTime()
		if i == 0 {
			minTime, maxTime = t, t
			continue
		}
		minTime = math.Min(minTime, t)
		maxTime = math.Max(maxTime, t)
	}
	return maxTime - minTime
}

// HasUniformSampleRate checks that all channels have the same rate.
func (m *MultiReader) HasUniformSampleRate() bool {
	for i := 1; i < len(m.readers); i++ {
		if m.readers[i].Channel().SampleRate() != m.readers[0].Channel().SampleRate() {
			return false
		}
	}
	return true
}

// SampleRate returns the rate of the first channel.
func (m *MultiReader) SampleRate() float64 {
	if len(m.readers) == 0 {
		return 0
	}
	return m.readers[0].Channel().SampleRate()
}

// MinNumNewSamples returns how many aligned sample tuples can be read.
func (m *MultiReader) MinNumNewSamples() int {
	if len(m.readers) == 0 {
		return 0
	}
	n := math.MaxInt32
	for _, r := range m.readers {
		if r.NumNewSamples() < n {
			n = r.NumNewSamples()
		}
	}
	return n
}
