package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	tests := []struct {
		name       string
		jsonOutput bool
		verbose    bool
	}{
		{name: "console", jsonOutput: false},
		{name: "json", jsonOutput: true},
		{name: "console verbose", verbose: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := Logger
			t.Cleanup(func() { Logger = prev; JSONOutput = false })

			require.NoError(t, Initialize(tt.jsonOutput, tt.verbose))
			assert.NotNil(t, Logger)
			assert.Equal(t, tt.jsonOutput, JSONOutput)
		})
	}
}

func TestComponentLoggerBeforeInitialize(t *testing.T) {
	l := ComponentLogger("scene")
	require.NotNil(t, l)
	// The default no-op logger must accept calls without panicking.
	l.Infow("generated", FieldNodes, 3)
	Cleanup()
}
