package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitDefaultSuppressesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Options{Stderr: &buf})

	logger.Debug("mode probe")
	assert.Empty(t, buf.String())

	logger.Warn("restore failed")
	assert.Contains(t, buf.String(), "restore failed")
}

func TestInitVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := Init(Options{Verbose: true, Stderr: &buf})

	logger.Debug("mode probe")
	assert.Contains(t, buf.String(), "mode probe")
}
