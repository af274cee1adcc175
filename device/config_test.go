package device_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neuromore/engine/device"
	"github.com/neuromore/engine/internal/mock"
)

func resolveMock(name string) int {
	if name == "mock" {
		return mock.TypeID
	}
	return device.InvalidTypeID
}

func TestParseConfig(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		expected device.Config
		err      error
	}{
		{
			name: "full",
			data: `{"deviceType":"mock","deviceNumber":2,"name":"Left","enable":true}`,
			expected: device.Config{
				Valid:      true,
				Enabled:    true,
				Name:       "Left",
				DeviceType: mock.TypeID,
				DeviceID:   1,
			},
		},
		{
			name: "defaults",
			data: `{"deviceType":"mock"}`,
			expected: device.Config{
				Valid:      true,
				Enabled:    true,
				DeviceType: mock.TypeID,
			},
		},
		{
			name: "disabled",
			data: `{"deviceType":"mock","enable":false,"deviceNumber":0}`,
			expected: device.Config{
				Valid:      true,
				DeviceType: mock.TypeID,
			},
		},
		{
			name: "missing type",
			data: `{"name":"Left"}`,
			err:  device.ErrInvalidConfig,
		},
		{
			name: "unknown type",
			data: `{"deviceType":"muse"}`,
			err:  device.ErrUnknownDeviceType,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c, err := device.ParseConfig([]byte(test.data), resolveMock)
			if test.err != nil {
				assert.True(t, errors.Is(err, test.err), err)
				assert.False(t, c.Valid)
				return
			}
			require.NoError(t, err)
			assert.JSONEq(t, test.data, string(c.Raw))
			c.Raw = nil
			assert.Equal(t, test.expected, c)
		})
	}
}

func TestParseConfigSyntax(t *testing.T) {
	_, err := device.ParseConfig([]byte(`{"deviceType":`), resolveMock)
	assert.Error(t, err)
}

func TestManagerConfigs(t *testing.T) {
	typ := mock.Type(mock.TypeID, "mock", 1, 10)
	m, _ := newManager(t, typ)

	require.NoError(t, m.LoadDeviceConfig([]byte(`{"deviceType":"mock","deviceNumber":2,"name":"Left"}`), false))
	require.NoError(t, m.LoadDeviceConfig([]byte(`{"deviceType":"mock","deviceNumber":3,"name":"Off","enable":false}`), false))
	assert.Len(t, m.DeviceConfigs(), 1)

	err := m.LoadDeviceConfig([]byte(`{"deviceType":"mock","deviceNumber":3,"name":"left"}`), false)
	assert.True(t, errors.Is(err, device.ErrDuplicateConfig))
	err = m.LoadDeviceConfig([]byte(`{"deviceType":"other"}`), false)
	assert.True(t, errors.Is(err, device.ErrUnknownDeviceType))
	assert.True(t, errors.Is(m.AddDeviceConfig(device.Config{}, false), device.ErrInvalidConfig))

	assert.True(t, m.HasDeviceConfigForDevice(mock.TypeID, 1))
	assert.False(t, m.HasDeviceConfigForDevice(mock.TypeID, 0))
	assert.Len(t, m.FindDeviceConfigsByType(mock.TypeID), 1)

	first := addWithID(m, typ, device.InvalidID)
	second := addWithID(m, typ, device.InvalidID)
	assert.Equal(t, "mock", first.Name())
	assert.Equal(t, "Left", second.Name())
	assert.True(t, second.IsConfigured())

	require.NoError(t, m.LoadDeviceConfig([]byte(`{"deviceType":"mock","deviceNumber":1,"name":"LEFT"}`), true))
	require.Len(t, m.DeviceConfigs(), 1)
	assert.Equal(t, "LEFT", m.DeviceConfigs()[0].Name)
	assert.Equal(t, 0, m.DeviceConfigs()[0].DeviceID)
}
