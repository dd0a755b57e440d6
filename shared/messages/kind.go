package messages

// Kind tags every request and broadcast so the authority and participants can
// dispatch through handler tables instead of type switches scattered around.
type Kind uint8

const (
	KindNone Kind = iota

	// Participant -> authority
	KindDespawnPickup
	KindPowerupStatus
	KindIndicatorSync
	KindCollisionForce

	// Authority -> participants
	KindPowerupStatusEvent
	KindIndicatorEvent
	KindImpulseEvent
	KindPickupSpawnEvent
	KindPickupDespawnEvent
	KindPlayerLeftEvent
)

var kindNames = map[Kind]string{
	KindDespawnPickup:      "despawn_pickup",
	KindPowerupStatus:      "powerup_status",
	KindIndicatorSync:      "indicator_sync",
	KindCollisionForce:     "collision_force",
	KindPowerupStatusEvent: "powerup_status_event",
	KindIndicatorEvent:     "indicator_event",
	KindImpulseEvent:       "impulse_event",
	KindPickupSpawnEvent:   "pickup_spawn_event",
	KindPickupDespawnEvent: "pickup_despawn_event",
	KindPlayerLeftEvent:    "player_left_event",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Request is a participant asking the authority to act.
type Request interface {
	Kind() Kind
	Sender() uint
}

// Broadcast is an authoritative state change fanned out to every participant.
type Broadcast interface {
	Kind() Kind
}
