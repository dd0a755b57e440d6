package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadServer_Defaults(t *testing.T) {
	cfg, err := LoadServer(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, uint(7373), cfg.Port)
	assert.Equal(t, 20, cfg.TickRate)
	assert.Equal(t, 5, cfg.MaxPlayers)
	assert.Equal(t, "sumo", cfg.Arena)
	assert.Equal(t, 7*time.Second, cfg.PowerupDuration)
	assert.Equal(t, 15.0, cfg.PowerupStrength)
	assert.Equal(t, 1.0, cfg.NormalStrength)
	assert.Equal(t, time.Second, cfg.LeaseGrace)
	assert.Empty(t, cfg.RelayURL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadServer_WithValidConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ServerFile, `{
		"name": "Dojo",
		"tickRate": 30,
		"pickupInterval": "4s",
		"powerupStrength": 20,
		"relayUrl": "http://relay:8080"
	}`)

	cfg, err := LoadServer(dir)
	require.NoError(t, err)

	assert.Equal(t, "Dojo", cfg.Name)
	assert.Equal(t, 30, cfg.TickRate)
	assert.Equal(t, 4*time.Second, cfg.PickupInterval)
	assert.Equal(t, 20.0, cfg.PowerupStrength)
	assert.Equal(t, "http://relay:8080", cfg.RelayURL)
	assert.Equal(t, uint(7373), cfg.Port, "unset keys keep their defaults")
}

func TestLoadServer_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ServerFile, `{"tickRate": 30}`)
	t.Setenv("SUMO_TICKRATE", "60")
	t.Setenv("SUMO_MAXPLAYERS", "3")

	cfg, err := LoadServer(dir)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.TickRate)
	assert.Equal(t, 3, cfg.MaxPlayers)
}

func TestLoadServer_Invalid(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ServerFile, `{"tickRate": `)

		_, err := LoadServer(dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "error reading config file")
	})

	t.Run("tick rate", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, ServerFile, `{"tickRate": 0}`)

		_, err := LoadServer(dir)
		assert.Error(t, err)
	})
}

func TestLoadClient(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ClientFile, `{"playerName": "rikishi"}`)

	cfg, err := LoadClient(dir)
	require.NoError(t, err)
	assert.Equal(t, "rikishi", cfg.PlayerName)
	assert.Equal(t, "http://localhost:8080", cfg.RelayURL)
	assert.Equal(t, uint(7373), cfg.HostPort)
}

func TestLoadRelay(t *testing.T) {
	cfg, err := LoadRelay("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, 5, cfg.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.AllocationTTL)

	t.Setenv("SUMO_MAXCONNECTIONS", "0")
	_, err = LoadRelay("")
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SUMO_DOTENV_PROBE=loaded\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("SUMO_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("SUMO_DOTENV_PROBE"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}
