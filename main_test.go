package main

import (
	"context"
	"errors"
	"testing"

	"github.com/MekelWibi/SumoProjectKP/config"
	"github.com/MekelWibi/SumoProjectKP/prefs"
	"github.com/MekelWibi/SumoProjectKP/relay"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJoiner struct {
	alloc relay.JoinAllocation
	err   error
	codes []string
}

func (f *fakeJoiner) JoinRelay(_ context.Context, code string) (relay.JoinAllocation, error) {
	f.codes = append(f.codes, code)
	return f.alloc, f.err
}

func TestResolveTarget(t *testing.T) {
	ctx := context.Background()
	j := &fakeJoiner{alloc: relay.JoinAllocation{AllocationID: "a", Address: "10.0.0.2:7373"}}

	t.Run("address wins", func(t *testing.T) {
		got, err := resolveTarget(ctx, playOptions{address: "h:1", joinCode: "ABCDEF"}, config.Client{Address: "c:1"}, j)
		require.NoError(t, err)
		assert.Equal(t, target{address: "h:1"}, got)
	})

	t.Run("join code through relay", func(t *testing.T) {
		got, err := resolveTarget(ctx, playOptions{joinCode: "ABCDEF"}, config.Client{Address: "c:1"}, j)
		require.NoError(t, err)
		assert.Equal(t, target{address: "10.0.0.2:7373", joinCode: "ABCDEF"}, got)
		assert.Equal(t, []string{"ABCDEF"}, j.codes)
	})

	t.Run("config address", func(t *testing.T) {
		got, err := resolveTarget(ctx, playOptions{}, config.Client{Address: "c:1"}, j)
		require.NoError(t, err)
		assert.Equal(t, "c:1", got.address)
	})

	t.Run("nothing", func(t *testing.T) {
		_, err := resolveTarget(ctx, playOptions{}, config.Client{}, j)
		assert.ErrorIs(t, err, errNoAddress)
	})

	t.Run("relay failure", func(t *testing.T) {
		bad := &fakeJoiner{err: relay.ErrCouldNotConnect}
		_, err := resolveTarget(ctx, playOptions{joinCode: "ABCDEF"}, config.Client{}, bad)
		assert.True(t, errors.Is(err, relay.ErrCouldNotConnect))
	})
}

func TestPlayerName(t *testing.T) {
	assert.Equal(t, "flag", playerName("flag", config.Client{PlayerName: "cfg"}, prefs.Saved{PlayerName: "saved"}))
	assert.Equal(t, "cfg", playerName("", config.Client{PlayerName: "cfg"}, prefs.Saved{PlayerName: "saved"}))
	assert.Equal(t, "saved", playerName("", config.Client{}, prefs.Saved{PlayerName: "saved"}))
	assert.Equal(t, defaultPlayerName, playerName("", config.Client{}, prefs.Saved{}))
}

func TestHostArgs(t *testing.T) {
	assert.Equal(t, []string{"-mode", "server", "-config", "/etc/sumo", "-port", "7373"}, hostArgs("/etc/sumo", 7373))
}

func TestArenaByName(t *testing.T) {
	a, err := arenaByName("sumo")
	require.NoError(t, err)
	assert.Equal(t, "sumo", a.Name)

	fallback, err := arenaByName("does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, "sumo", fallback.Name)
}

func TestRunRejectsUnknownBot(t *testing.T) {
	err := run(context.Background(), netconfig.ModeClient, t.TempDir(), 0, playOptions{}, "impossible")
	assert.Error(t, err)
}
