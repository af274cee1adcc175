// Package multierr collects the errors of several components that fail in
// the same call.
package multierr

import (
	"errors"
	"strings"
)

// Errors wraps errors that might occur when multiple components are
// failing.
type Errors []error

func (e Errors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Is checks if any of errors match provided sentinel error.
func (e Errors) Is(err error) bool {
	for _, se := range e {
		if errors.Is(se, err) {
			return true
		}
	}
	return false
}

// Ret returns untyped nil if error list is empty.
func (e Errors) Ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
