package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neuromore/engine/notify"
)

func TestCodes(t *testing.T) {
	tests := []struct {
		code      notify.Code
		value     uint32
		class     notify.Class
		source    notify.Source
		clearable bool
	}{
		{
			code:   notify.ErrorDeviceBadSignal,
			value:  3<<28 | 1<<16 | 1,
			class:  notify.Error,
			source: notify.SourceDevice,
		},
		{
			code:      notify.WarningDevicePowerStateCritical,
			value:     1<<30 | 2<<28 | 1<<16 | 1,
			class:     notify.Warning,
			source:    notify.SourceDevice,
			clearable: true,
		},
		{
			code:   notify.InfoDeviceDisconnected,
			value:  1<<28 | 1<<16 | 2,
			class:  notify.Info,
			source: notify.SourceDevice,
		},
		{
			code:      notify.ErrorDesignGraphObject,
			value:     1<<30 | 3<<28 | 3<<16 | 1,
			class:     notify.Error,
			source:    notify.SourceDesign,
			clearable: true,
		},
		{
			code:   notify.InfoSessionEnded,
			value:  1<<28 | 4<<16 | 1,
			class:  notify.Info,
			source: notify.SourceSession,
		},
	}
	for _, test := range tests {
		t.Run(test.code.String(), func(t *testing.T) {
			assert.Equal(t, test.value, uint32(test.code))
			assert.Equal(t, test.class, test.code.Class())
			assert.Equal(t, test.source, test.code.Source())
			assert.Equal(t, test.clearable, test.code.IsClearable())
		})
	}
}

func TestObserverFunc(t *testing.T) {
	var got []notify.Notification
	var o notify.Observer = notify.ObserverFunc(func(n notify.Notification) {
		got = append(got, n)
	})
	o.Notify(notify.Notification{Code: notify.InfoDeviceConnected, Message: "muse connected"})
	assert.Len(t, got, 1)
	assert.Equal(t, "device info 0x001", got[0].Code.String())
}
