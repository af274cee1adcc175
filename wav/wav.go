// Package wav reads and writes recorded channels as wav files.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/neuromore/engine/signal"
)

type (
	// Reader reads samples from a wav file.
	Reader struct {
		path    string
		file    *os.File
		decoder *wav.Decoder
		buf     *audio.IntBuffer
	}

	// Writer saves samples to a wav file.
	Writer struct {
		path       string
		bitDepth   signal.BitDepth
		file       *os.File
		encoder    *wav.Encoder
		buf        *audio.IntBuffer
		numSamples int64
	}
)

// pcmFormat is the wav audio format for integer samples.
const pcmFormat = 1

var (
	// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
	ErrUnsupportedBitDepth = errors.New("only 16 and 32 bit depth is supported")
	// ErrInvalidFile is returned when a file is not a wav file.
	ErrInvalidFile = errors.New("wav is not valid")
	// ErrChannelMismatch is returned when written buffers don't match the
	// channel count of the file.
	ErrChannelMismatch = errors.New("number of channels doesn't match")
)

func isSupported(bitDepth signal.BitDepth) bool {
	return bitDepth == signal.BitDepth16 || bitDepth == signal.BitDepth32
}

// Open opens a wav file for reading.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("%w, failed to close the file %v: %v", ErrInvalidFile, path, err)
		}
		return nil, ErrInvalidFile
	}
	if !isSupported(signal.BitDepth(decoder.BitDepth)) {
		file.Close()
		return nil, ErrUnsupportedBitDepth
	}
	return &Reader{
		path:    path,
		file:    file,
		decoder: decoder,
		buf: &audio.IntBuffer{
			Format:         decoder.Format(),
			SourceBitDepth: int(decoder.BitDepth),
		},
	}, nil
}

// Path returns the file path.
func (r *Reader) Path() string {
	return r.path
}

// SampleRate returns the sample rate of the file.
func (r *Reader) SampleRate() int {
	return int(r.decoder.SampleRate)
}

// NumChannels returns the number of channels in the file.
func (r *Reader) NumChannels() int {
	return r.decoder.Format().NumChannels
}

// BitDepth returns the bit depth of the file.
func (r *Reader) BitDepth() signal.BitDepth {
	return signal.BitDepth(r.decoder.BitDepth)
}

// Read returns up to n samples per channel. io.EOF is returned once all
// samples were read.
func (r *Reader) Read(n int) (signal.Float64, error) {
	numChannels := r.NumChannels()
	if size := n * numChannels; cap(r.buf.Data) < size {
		r.buf.Data = make([]int, size)
	} else {
		r.buf.Data = r.buf.Data[:size]
	}
	read, err := r.decoder.PCMBuffer(r.buf)
	if err != nil {
		return nil, err
	}
	if read == 0 {
		return nil, io.EOF
	}
	// prune buffer to actual size
	return signal.InterInt{
		Data:        r.buf.Data[:read],
		NumChannels: numChannels,
		BitDepth:    r.BitDepth(),
	}.AsFloat64(), nil
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Create creates or truncates the file at path and writes the wav header.
func Create(path string, sampleRate, numChannels int, bitDepth signal.BitDepth) (*Writer, error) {
	if !isSupported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	if numChannels < 1 {
		return nil, ErrChannelMismatch
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Writer{
		path:     path,
		bitDepth: bitDepth,
		file:     f,
		encoder:  wav.NewEncoder(f, sampleRate, int(bitDepth), numChannels, pcmFormat),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: numChannels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: int(bitDepth),
		},
	}, nil
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// NumSamples returns the number of samples per channel written so far.
func (w *Writer) NumSamples() int64 {
	return w.numSamples
}

// Write appends samples. Values are expected in [-1, 1], values outside
// are clipped.
func (w *Writer) Write(b signal.Float64) error {
	if b.NumChannels() != w.buf.Format.NumChannels {
		return fmt.Errorf("write %d channels to %d channel file: %w", b.NumChannels(), w.buf.Format.NumChannels, ErrChannelMismatch)
	}
	if b.Size() == 0 {
		return nil
	}
	w.buf.Data = b.AsInterInt(w.bitDepth)
	if err := w.encoder.Write(w.buf); err != nil {
		return err
	}
	w.numSamples += int64(b.Size())
	return nil
}

// Close finalizes the header and closes the file.
func (w *Writer) Close() error {
	if err := w.encoder.Close(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
