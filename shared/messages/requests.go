package messages

import "github.com/MekelWibi/SumoProjectKP/shared/gamemath"

// DespawnPickupRequest asks the authority to remove a pickup the sender touched.
type DespawnPickupRequest struct {
	PlayerID uint // NetworkId of the player that touched it
	PickupID uint // NetworkId of the pickup entity
}

// PowerupStatusRequest asks the authority to broadcast the sender's possession
// flag and indicator visibility.
type PowerupStatusRequest struct {
	PlayerID         uint
	HasPowerup       bool
	IndicatorVisible bool
	Generation       uint32 // Possession instance this status belongs to
}

// IndicatorSyncRequest is the per-tick indicator position sent by a possessor.
type IndicatorSyncRequest struct {
	PlayerID uint
	Position gamemath.Vec3
}

// CollisionForceRequest reports that the sender's avatar bumped another one.
type CollisionForceRequest struct {
	InitiatorID uint
	ReceiverID  uint
	Force       gamemath.Vec3
}

func (DespawnPickupRequest) Kind() Kind  { return KindDespawnPickup }
func (PowerupStatusRequest) Kind() Kind  { return KindPowerupStatus }
func (IndicatorSyncRequest) Kind() Kind  { return KindIndicatorSync }
func (CollisionForceRequest) Kind() Kind { return KindCollisionForce }

func (r DespawnPickupRequest) Sender() uint  { return r.PlayerID }
func (r PowerupStatusRequest) Sender() uint  { return r.PlayerID }
func (r IndicatorSyncRequest) Sender() uint  { return r.PlayerID }
func (r CollisionForceRequest) Sender() uint { return r.InitiatorID }
