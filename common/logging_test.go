package common

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{JSON: true, Service: "vault", Version: "v1", Output: &buf})
	log.Info("hello", "k", "v")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "vault", entry["service"])
	assert.Equal(t, "v1", entry["version"])
	assert.Equal(t, "v", entry["k"])
}

func TestSetupLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{Output: &buf})
	log.Debug("hidden")
	assert.Empty(t, buf.String())

	buf.Reset()
	log = SetupLogger(&LoggingOpts{Debug: true, Output: &buf})
	log.Debug("shown")
	assert.True(t, strings.Contains(buf.String(), "shown"))
}
