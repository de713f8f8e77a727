package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		wantErr     bool
	}{
		{name: "debug production", level: "debug"},
		{name: "info production", level: "info"},
		{name: "warn development", level: "warn", development: true},
		{name: "error development", level: "error", development: true},
		{name: "invalid level", level: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.level, tt.development)
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			require.NotNil(t, logger.SugaredLogger)
		})
	}
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	require.NotNil(t, logger)

	// must be safe to use
	logger.Infow("discarded", "key", "value")
	logger.WithComponent("test").Debugf("also discarded: %d", 42)
}

func TestGetDefaultLogger(t *testing.T) {
	first := GetDefaultLogger()
	require.NotNil(t, first)
	require.Same(t, first, GetDefaultLogger())
}

type fixedLevels struct {
	level       string
	development bool
}

func (f fixedLevels) GetComponentLevel(string) string { return f.level }
func (f fixedLevels) IsDevelopment() bool             { return f.development }

func TestNewComponentLogger(t *testing.T) {
	logger := NewComponentLogger("downloader", fixedLevels{level: "warn"})
	require.NotNil(t, logger)

	// nil provider falls back to the default logger
	require.NotNil(t, NewComponentLogger("downloader", nil))

	// broken level falls back instead of failing
	require.NotNil(t, NewComponentLogger("downloader", fixedLevels{level: "nope"}))
}
