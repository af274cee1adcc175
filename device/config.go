package device

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// Config is a device definition loaded from JSON. It names a device and
// pins its instance number.
type Config struct {
	Valid   bool
	Enabled bool
	Name    string
	// DeviceType is the resolved type id.
	DeviceType int
	// DeviceID is the 0-indexed instance number.
	DeviceID int
	// Raw holds the JSON the config was parsed from.
	Raw json.RawMessage
}

// TypeResolver finds a device type id by name, InvalidTypeID if unknown.
type TypeResolver func(name string) int

type configJSON struct {
	DeviceType   *string `json:"deviceType"`
	Enable       *bool   `json:"enable"`
	DeviceNumber *int    `json:"deviceNumber"`
	Name         string  `json:"name"`
}

// ParseConfig parses a device config. The device number in the file is
// 1-indexed, enable defaults to true.
func ParseConfig(data []byte, resolve TypeResolver) (Config, error) {
	var raw configJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Config{}, errors.Wrap(err, "parse device config")
	}
	if raw.DeviceType == nil {
		return Config{}, fmt.Errorf("%w: member 'deviceType' not found", ErrInvalidConfig)
	}
	typeID := resolve(*raw.DeviceType)
	if typeID == InvalidTypeID {
		return Config{}, fmt.Errorf("%w: device type %q", ErrUnknownDeviceType, *raw.DeviceType)
	}

	c := Config{
		Valid:      true,
		Enabled:    true,
		Name:       raw.Name,
		DeviceType: typeID,
		Raw:        append(json.RawMessage(nil), data...),
	}
	if raw.Enable != nil {
		c.Enabled = *raw.Enable
	}
	if raw.DeviceNumber != nil {
		c.DeviceID = *raw.DeviceNumber
		if c.DeviceID > 0 {
			c.DeviceID--
		}
	}
	return c, nil
}
