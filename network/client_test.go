package network

import (
	"testing"

	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinAccepted(t *testing.T) {
	c := NewClient(zerolog.Nop())
	c.onJoinAccepted(messages.JoinAccepted{NetworkID: 7, ServerName: "dojo", TickRate: 30, Arena: "sumo"})

	assert.Equal(t, StateJoinedGame, c.State())
	assert.Equal(t, esync.NetworkId(7), c.NetworkID())
	assert.Equal(t, 30, c.TickRate())
	assert.Equal(t, "sumo", c.Arena())
}

func TestJoinRejected(t *testing.T) {
	c := NewClient(zerolog.Nop())
	c.onJoinRejected(messages.JoinRejected{Reason: "server full"})

	assert.Equal(t, StateError, c.State())
	require.Error(t, c.LastError())
	assert.Contains(t, c.LastError().Error(), "server full")

	// A later disconnect keeps the error visible.
	c.onDisconnect(nil)
	assert.Equal(t, StateError, c.State())
}

func TestSnapshotLatestWins(t *testing.T) {
	c := NewClient(zerolog.Nop())
	assert.Nil(t, c.LatestSnapshot())

	c.onSnapshot(esync.WorldSnapshot{})
	c.onSnapshot(esync.WorldSnapshot{})
	assert.NotNil(t, c.LatestSnapshot())
	assert.Nil(t, c.LatestSnapshot())
}

func TestDrainEventsKeepsOrder(t *testing.T) {
	c := NewClient(zerolog.Nop())
	assert.Empty(t, c.DrainEvents())

	c.pushEvent(messages.PickupDespawnEvent{PickupID: 4, ConsumerID: 1})
	c.pushEvent(messages.PowerupStatusEvent{PlayerID: 1, HasPowerup: true})
	c.pushEvent(messages.IndicatorEvent{PlayerID: 1})

	events := c.DrainEvents()
	require.Len(t, events, 3)
	assert.Equal(t, messages.KindPickupDespawnEvent, events[0].Kind())
	assert.Equal(t, messages.KindPowerupStatusEvent, events[1].Kind())
	assert.Equal(t, messages.KindIndicatorEvent, events[2].Kind())
	assert.Empty(t, c.DrainEvents())
}

func TestEventQueueFullDrops(t *testing.T) {
	c := NewClient(zerolog.Nop())
	for i := 0; i < eventQueueSize+10; i++ {
		c.pushEvent(messages.IndicatorEvent{PlayerID: uint(i)})
	}
	assert.Len(t, c.DrainEvents(), eventQueueSize)
}

func TestSendBeforeConnect(t *testing.T) {
	c := NewClient(zerolog.Nop())
	assert.ErrorIs(t, c.SendMessage(messages.PlayerInput{Sequence: 1}), ErrNotConnected)
	assert.Equal(t, "disconnected", c.State().String())
}
