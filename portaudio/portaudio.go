// Package portaudio plays audio feedback on the default output device.
package portaudio

import (
	"github.com/gordonklaus/portaudio"

	"github.com/neuromore/engine/signal"
)

// DefaultBufferSize is the number of frames written to the stream at once.
const DefaultBufferSize = 256

// Sink plays samples using the default output device. Samples are
// collected until a full stream buffer can be written.
type Sink struct {
	bufferSize  int
	numChannels int
	buf         []float32
	pos         int
	stream      *portaudio.Stream
}

// NewSink returns a sink writing blocks of bufferSize frames.
func NewSink(bufferSize int) *Sink {
	if bufferSize < 1 {
		bufferSize = DefaultBufferSize
	}
	return &Sink{bufferSize: bufferSize}
}

// Open initializes portaudio and starts the default stream.
func (s *Sink) Open(sampleRate, numChannels int) error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	s.numChannels = numChannels
	s.buf = make([]float32, s.bufferSize*numChannels)
	s.pos = 0
	stream, err := portaudio.OpenDefaultStream(0, numChannels, float64(sampleRate), s.bufferSize, &s.buf)
	if err != nil {
		portaudio.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return err
	}
	s.stream = stream
	return nil
}

// Write interleaves the samples into the stream buffer. Full buffers are
// written to the stream.
func (s *Sink) Write(b signal.Float64) error {
	for i := 0; i < b.Size(); i++ {
		for j := range b {
			s.buf[s.pos*s.numChannels+j] = float32(b[j][i])
		}
		s.pos++
		if s.pos == s.bufferSize {
			s.pos = 0
			if err := s.stream.Write(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close stops the stream and terminates portaudio structures.
func (s *Sink) Close() error {
	if s.stream == nil {
		return nil
	}
	stream := s.stream
	s.stream = nil
	if err := stream.Stop(); err != nil {
		return err
	}
	if err := stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
