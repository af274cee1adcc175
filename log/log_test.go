package log_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/neuromore/engine/log"
)

func TestWithComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	l := log.GetLogger()
	l.SetOutput(buf)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	log.WithComponent(l, "device-manager").Info("added")
	assert.Contains(t, buf.String(), "component=device-manager")
	assert.Contains(t, buf.String(), "added")

	// silent logger has no fields, it's returned as is
	assert.Equal(t, log.Silent, log.WithComponent(log.Silent, "x"))
}
