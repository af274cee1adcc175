package wav_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuromore/engine/signal"
	"github.com/neuromore/engine/wav"
)

func TestWriteRead(t *testing.T) {
	tests := []struct {
		bitDepth signal.BitDepth
		in       signal.Float64
		expected signal.Float64
	}{
		{
			bitDepth: signal.BitDepth16,
			in:       signal.Float64{{0, 0.5, -0.5, 2}, {0.25, -1, 1, -2}},
			expected: signal.Float64{{0, 0.5, -0.5, 1}, {0.25, -1, 1, -1}},
		},
		{
			bitDepth: signal.BitDepth32,
			in:       signal.Float64{{0.125, -0.125}},
			expected: signal.Float64{{0.125, -0.125}},
		},
	}
	for _, test := range tests {
		path := filepath.Join(t.TempDir(), "out.wav")
		w, err := wav.Create(path, 128, test.in.NumChannels(), test.bitDepth)
		require.NoError(t, err)
		assert.Equal(t, path, w.Path())
		require.NoError(t, w.Write(test.in))
		assert.Equal(t, int64(test.in.Size()), w.NumSamples())
		assert.ErrorIs(t, w.Write(signal.EmptyFloat64(test.in.NumChannels()+1, 1)), wav.ErrChannelMismatch)
		require.NoError(t, w.Close())

		r, err := wav.Open(path)
		require.NoError(t, err)
		assert.Equal(t, 128, r.SampleRate())
		assert.Equal(t, test.in.NumChannels(), r.NumChannels())
		assert.Equal(t, test.bitDepth, r.BitDepth())

		b, err := r.Read(100)
		require.NoError(t, err)
		require.Equal(t, test.expected.NumChannels(), b.NumChannels())
		require.Equal(t, test.expected.Size(), b.Size())
		for c := range test.expected {
			for i := range test.expected[c] {
				assert.InDelta(t, test.expected[c][i], b[c][i], 1e-3)
			}
		}
		_, err = r.Read(100)
		assert.Equal(t, io.EOF, err)
		require.NoError(t, r.Close())
	}
}

func TestErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := wav.Create(filepath.Join(dir, "8bit.wav"), 128, 1, signal.BitDepth8)
	assert.ErrorIs(t, err, wav.ErrUnsupportedBitDepth)

	_, err = wav.Create(filepath.Join(dir, "empty.wav"), 128, 0, signal.BitDepth16)
	assert.ErrorIs(t, err, wav.ErrChannelMismatch)

	path := filepath.Join(dir, "text.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a wav file"), 0644))
	_, err = wav.Open(path)
	assert.ErrorIs(t, err, wav.ErrInvalidFile)

	_, err = wav.Open(filepath.Join(dir, "missing.wav"))
	assert.Error(t, err)
}
