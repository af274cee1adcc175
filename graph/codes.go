package graph

import "fmt"

// Code identifies a node error or warning. Bits 16-23 hold the class, the
// low bits the number within the class.
type Code uint32

// Error classes.
const (
	// ErrorConfiguration covers bad attributes or inputs.
	ErrorConfiguration Code = 0x010000
	// ErrorRuntime covers problems found while running, like a missing
	// device or an unstable filter.
	ErrorRuntime Code = 0x020000
	// ErrorLoading covers objects that could not be loaded.
	ErrorLoading Code = 0x030000
	// ErrorUnknownObject covers objects of unregistered types.
	ErrorUnknownObject Code = 0x040000
)

// Warning classes.
const (
	WarningDeprecated    Code = 0x010000
	WarningUnstable      Code = 0x020000
	WarningRuntime       Code = 0x030000
	WarningConfiguration Code = 0x040000
	WarningCustom        Code = 0xFF0000
)

const classMask Code = 0xFF0000

// Input requirement errors.
const (
	ErrorInputConstantSampleRate        = ErrorConfiguration | 0x0101
	ErrorInputMatchingSampleRates       = ErrorConfiguration | 0x0102
	ErrorInputSynchronized              = ErrorConfiguration | 0x0103
	ErrorInputIncompatible              = ErrorConfiguration | 0x0104
	ErrorInputIncompatibleMultichannels = ErrorConfiguration | 0x0105
)

// Node errors.
const (
	ErrorStart               = ErrorRuntime | 0x01
	ErrorDeviceNotFound      = ErrorRuntime | 0x02
	ErrorDeviceLocked        = ErrorRuntime | 0x03
	ErrorValueRange          = ErrorRuntime | 0x04
	ErrorUnstableFilter      = ErrorRuntime | 0x05
	ErrorFileNotWriteable    = ErrorRuntime | 0x06
	ErrorSink                = ErrorRuntime | 0x07
	ErrorWrongChannelCount   = ErrorConfiguration | 0x01
	ErrorDuplicateOscAddress = ErrorConfiguration | 0x02
	ErrorFileAlreadyExists   = ErrorConfiguration | 0x03
	ErrorInvalidFilter       = ErrorConfiguration | 0x04
)

// Node warnings.
const (
	WarningInputTimingMismatch = WarningRuntime | 0x01
	WarningDeviceBatteryLow    = WarningRuntime | 0x02
)

// Class returns the class bits of the code.
func (c Code) Class() Code {
	return c & classMask
}

func (c Code) String() string {
	return fmt.Sprintf("%#06x", uint32(c))
}

// Message is an error or warning set on a node.
type Message struct {
	Code Code
	Text string
}

// messages is an ordered set of codes. Nodes have only a few at a time.
type messages []Message

func (m *messages) set(c Code, text string) {
	for i := range *m {
		if (*m)[i].Code == c {
			(*m)[i].Text = text
			return
		}
	}
	*m = append(*m, Message{Code: c, Text: text})
}

func (m *messages) clear(c Code) {
	for i := range *m {
		if (*m)[i].Code == c {
			*m = append((*m)[:i], (*m)[i+1:]...)
			return
		}
	}
}

func (m messages) has(c Code) bool {
	for _, msg := range m {
		if msg.Code == c {
			return true
		}
	}
	return false
}
