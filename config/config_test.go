package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuromore/engine/config"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		err      error
		expected func(*config.Settings)
	}{
		{
			name:     "empty",
			data:     "",
			expected: func(*config.Settings) {},
		},
		{
			name: "values",
			data: `
bufferDuration: 30
autoSync: false
tickInterval: 20ms
driftCorrection:
  enabled: false
  maxForwardDrift: 0.5
osc:
  listen: ":9000"
deviceConfigs: [muse.json, /etc/neuromore/hr.json]
wav:
  files: [session.wav]
  loop: true
`,
			expected: func(s *config.Settings) {
				s.BufferDuration = 30
				s.AutoSync = false
				s.TickInterval = 20 * time.Millisecond
				s.DriftCorrection.Enabled = false
				s.DriftCorrection.MaxForwardDrift = 0.5
				s.OSC.Listen = ":9000"
				s.DeviceConfigs = []string{filepath.Join("/data", "muse.json"), "/etc/neuromore/hr.json"}
				s.Wav.Files = []string{filepath.Join("/data", "session.wav")}
				s.Wav.Loop = true
			},
		},
		{
			name: "buffer duration",
			data: "bufferDuration: 0",
			err:  config.ErrInvalidSettings,
		},
		{
			name: "tick interval",
			data: "tickInterval: -1s",
			err:  config.ErrInvalidSettings,
		},
		{
			name: "drift",
			data: "driftCorrection: {maxBackwardDrift: -1}",
			err:  config.ErrInvalidSettings,
		},
		{
			name: "port",
			data: "osc: {sendPort: 70000}",
			err:  config.ErrInvalidSettings,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, err := config.Parse([]byte(test.data), "/data")
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			expected := config.Default()
			test.expected(&expected)
			assert.Equal(t, expected, s)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	_, err := config.Parse([]byte("bufferDuration: [1"), "")
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")

	s := config.Default()
	s.BufferDuration = 60
	s.Wav.Files = []string{"a.wav"}
	data, err := s.Marshal()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60.0, loaded.BufferDuration)
	assert.Equal(t, s.TickInterval, loaded.TickInterval)
	assert.Equal(t, []string{filepath.Join(dir, "a.wav")}, loaded.Wav.Files)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	path, err := config.DefaultPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "engine.yaml", filepath.Base(path))
	assert.Equal(t, ".neuromore", filepath.Base(filepath.Dir(path)))
}
