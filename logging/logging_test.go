package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARN", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{" error ", zerolog.ErrorLevel, false},
		{"trace", zerolog.TraceLevel, false},
		{"loud", zerolog.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(Options{Level: "info", Console: &buf, JSON: true})
	require.NoError(t, err)
	defer closer.Close()

	l := Component(log, "server")
	l.Info().Int("players", 2).Msg("hello")
	log.Debug().Msg("filtered")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "server", entry["component"])
	assert.Equal(t, float64(2), entry["players"])
	assert.Contains(t, entry, "time")
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sumo.log")
	log, closer, err := New(Options{Console: &bytes.Buffer{}, File: path})
	require.NoError(t, err)

	log.Warn().Msg("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
	assert.NotContains(t, string(data), "\x1b[", "file output has no colors")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, closer, err := New(Options{Level: "chatty"})
	assert.Error(t, err)
	assert.NotNil(t, closer)
}
