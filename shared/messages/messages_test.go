package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsAreDistinct(t *testing.T) {
	all := []interface{ Kind() Kind }{
		DespawnPickupRequest{},
		PowerupStatusRequest{},
		IndicatorSyncRequest{},
		CollisionForceRequest{},
		PowerupStatusEvent{},
		IndicatorEvent{},
		ImpulseEvent{},
		PickupSpawnEvent{},
		PickupDespawnEvent{},
		PlayerLeftEvent{},
	}

	seen := make(map[Kind]bool)
	for _, m := range all {
		k := m.Kind()
		assert.NotEqual(t, KindNone, k)
		assert.False(t, seen[k], "duplicate kind %s", k)
		assert.NotEqual(t, "unknown", k.String())
		seen[k] = true
	}
}

func TestRequestSender(t *testing.T) {
	assert.Equal(t, uint(3), DespawnPickupRequest{PlayerID: 3, PickupID: 9}.Sender())
	assert.Equal(t, uint(4), CollisionForceRequest{InitiatorID: 4, ReceiverID: 5}.Sender())
}
