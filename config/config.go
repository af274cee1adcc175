// Package config loads the engine settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/neuromore/engine/device"
)

// defaultPath is resolved against the home directory.
const defaultPath = "~/.neuromore/engine.yaml"

// ErrInvalidSettings is returned for settings the engine can't run with.
var ErrInvalidSettings = errors.New("invalid settings")

// OSC configures the OSC server and the OSC output sink.
type OSC struct {
	// Listen is the UDP address of the server, empty disables it.
	Listen string `yaml:"listen"`
	// SendHost and SendPort address the receiver of OSC output nodes.
	SendHost string `yaml:"sendHost"`
	SendPort int    `yaml:"sendPort"`
}

// Wav configures the wav file driver.
type Wav struct {
	Files []string `yaml:"files"`
	Loop  bool     `yaml:"loop"`
}

// Settings of the engine.
type Settings struct {
	// BufferDuration is the classifier history in seconds.
	BufferDuration        float64                `yaml:"bufferDuration"`
	DriftCorrection       device.DriftCorrection `yaml:"driftCorrection"`
	AutoSync              bool                   `yaml:"autoSync"`
	AutoDetection         bool                   `yaml:"autoDetection"`
	RemoveInactiveDevices bool                   `yaml:"removeInactiveDevices"`
	TickInterval          time.Duration          `yaml:"tickInterval"`
	OSC                   OSC                    `yaml:"osc"`
	// DeviceConfigs are paths of device config JSON files.
	DeviceConfigs []string `yaml:"deviceConfigs"`
	Wav           Wav      `yaml:"wav"`
}

// Default returns the settings the engine uses without a file.
func Default() Settings {
	return Settings{
		BufferDuration:  10,
		DriftCorrection: device.DefaultDriftCorrection(),
		AutoSync:        true,
		AutoDetection:   true,
		TickInterval:    10 * time.Millisecond,
		OSC: OSC{
			Listen:   "127.0.0.1:4545",
			SendHost: "127.0.0.1",
			SendPort: 4546,
		},
	}
}

// Validate checks the ranges of all values.
func (s Settings) Validate() error {
	switch {
	case s.BufferDuration <= 0:
		return fmt.Errorf("%w: buffer duration %v", ErrInvalidSettings, s.BufferDuration)
	case s.TickInterval <= 0:
		return fmt.Errorf("%w: tick interval %v", ErrInvalidSettings, s.TickInterval)
	case s.DriftCorrection.MaxDriftUntilSync < 0 || s.DriftCorrection.MaxForwardDrift < 0 || s.DriftCorrection.MaxBackwardDrift < 0:
		return fmt.Errorf("%w: negative drift limit", ErrInvalidSettings)
	case s.OSC.SendPort < 0 || s.OSC.SendPort > 65535:
		return fmt.Errorf("%w: osc port %d", ErrInvalidSettings, s.OSC.SendPort)
	}
	return nil
}

// Parse decodes settings. Missing values keep their defaults, relative
// file paths are resolved against dir.
func Parse(data []byte, dir string) (Settings, error) {
	s := Default()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, errors.Wrap(err, "decode settings")
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	s.DeviceConfigs = resolve(dir, s.DeviceConfigs)
	s.Wav.Files = resolve(dir, s.Wav.Files)
	return s, nil
}

// Load reads a settings file.
func Load(path string) (Settings, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return Settings{}, errors.Wrapf(err, "expand %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, errors.Wrap(err, "read settings")
	}
	s, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return Settings{}, errors.Wrapf(err, "load %s", path)
	}
	return s, nil
}

// LoadDefault reads the settings file in the home directory. Defaults
// are returned if it doesn't exist.
func LoadDefault() (Settings, error) {
	path, err := DefaultPath()
	if err != nil {
		return Settings{}, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

// DefaultPath returns the path of the settings file in the home
// directory.
func DefaultPath() (string, error) {
	path, err := homedir.Expand(defaultPath)
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return path, nil
}

// Marshal encodes settings.
func (s Settings) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "encode settings")
	}
	return data, nil
}

func resolve(dir string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	resolved := make([]string, 0, len(paths))
	for _, p := range paths {
		if expanded, err := homedir.Expand(p); err == nil {
			p = expanded
		}
		if !filepath.IsAbs(p) && dir != "" {
			p = filepath.Join(dir, p)
		}
		resolved = append(resolved, p)
	}
	return resolved
}
