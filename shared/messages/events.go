package messages

import "github.com/MekelWibi/SumoProjectKP/shared/gamemath"

// PowerupStatusEvent is the authoritative possession state of one player.
type PowerupStatusEvent struct {
	PlayerID         uint
	HasPowerup       bool
	IndicatorVisible bool
	Position         gamemath.Vec3 // Indicator position when visible
	Generation       uint32        // Possession instance, echoed from the request
}

// IndicatorEvent moves a possessor's indicator on every participant.
type IndicatorEvent struct {
	PlayerID uint
	Position gamemath.Vec3
}

// ImpulseEvent tells every participant to apply the same knockback.
type ImpulseEvent struct {
	InitiatorID uint
	ReceiverID  uint
	Force       gamemath.Vec3
}

// PickupSpawnEvent is broadcast when a new pickup enters the arena.
type PickupSpawnEvent struct {
	PickupID uint
	Position gamemath.Vec3
}

// PickupDespawnEvent is broadcast when a pickup is consumed.
type PickupDespawnEvent struct {
	PickupID   uint
	ConsumerID uint // 0 if removed without a consumer
}

// PlayerLeftEvent is broadcast when a participant disconnects.
type PlayerLeftEvent struct {
	PlayerID uint
}

func (PowerupStatusEvent) Kind() Kind { return KindPowerupStatusEvent }
func (IndicatorEvent) Kind() Kind     { return KindIndicatorEvent }
func (ImpulseEvent) Kind() Kind       { return KindImpulseEvent }
func (PickupSpawnEvent) Kind() Kind   { return KindPickupSpawnEvent }
func (PickupDespawnEvent) Kind() Kind { return KindPickupDespawnEvent }
func (PlayerLeftEvent) Kind() Kind    { return KindPlayerLeftEvent }
