package device

import (
	"path"
	"strconv"
	"strings"
)

// Message is an inbound device protocol message. The address is a slash
// separated path like /muse/0/eeg.
type Message struct {
	Address   string
	Arguments []interface{}
}

// MatchAddress reports if the message address matches an OSC address
// pattern. A star matches within a single path segment.
func (m Message) MatchAddress(pattern string) bool {
	ok, err := path.Match(pattern, m.Address)
	return err == nil && ok
}

// Float returns the i-th argument as float64. Integer and float arguments
// are converted, anything else reports false.
func (m Message) Float(i int) (float64, bool) {
	if i < 0 || i >= len(m.Arguments) {
		return 0, false
	}
	switch v := m.Arguments[i].(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Floats returns all numeric arguments.
func (m Message) Floats() []float64 {
	values := make([]float64, 0, len(m.Arguments))
	for i := range m.Arguments {
		if v, ok := m.Float(i); ok {
			values = append(values, v)
		}
	}
	return values
}

// pathElements splits an address into its segments. The leading slash
// yields an empty first element.
func pathElements(address string) []string {
	return strings.Split(address, "/")
}

// OscPathDeviceID returns the decimal number in the second path segment of
// the address, -1 if there is none.
func OscPathDeviceID(address string) int {
	elements := pathElements(address)
	if len(elements) <= 2 {
		return -1
	}
	id, err := strconv.Atoi(elements[2])
	if err != nil || id < 0 {
		return -1
	}
	return id
}
