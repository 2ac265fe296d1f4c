package logging

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerbosityLevel(t *testing.T) {
	tests := []struct {
		v    Verbosity
		want hclog.Level
	}{
		{Normal, hclog.Info},
		{Verbose, hclog.Debug},
		{Trace, hclog.Trace},
	}

	for _, tt := range tests {
		t.Run(tt.v.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.v.Level())
		})
	}
}

func TestParseVerbosity(t *testing.T) {
	v, err := ParseVerbosity("Verbose")
	require.NoError(t, err)
	assert.Equal(t, Verbose, v)

	v, err = ParseVerbosity("")
	require.NoError(t, err)
	assert.Equal(t, Normal, v)

	_, err = ParseVerbosity("loud")
	assert.Error(t, err)
}

func TestNewFiltersByVerbosity(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Normal, &buf)

	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "soundcheck: shown")
}
