package core

import (
	"github.com/MekelWibi/SumoProjectKP/shared/arena"
	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/MekelWibi/SumoProjectKP/shared/netcomponents"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/solarlune/resolv"
	"github.com/yohamta/donburi"
)

// pickup is the authority's record of one power-up pickup in the arena.
type pickup struct {
	id     uint
	entity donburi.Entity
	object *resolv.Object
	spawn  arena.SpawnPoint
}

// StartPickupRoutine begins spawning pickups: one immediately, then one every
// interval while fewer than the configured maximum are in the arena. Calling
// it again is a no-op.
func (s *Server) StartPickupRoutine() {
	s.enqueue(func() {
		if s.pickupRoutine {
			return
		}
		s.pickupRoutine = true
		s.log.Info().
			Dur("interval", s.cfg.PickupInterval).
			Int("max", s.cfg.MaxPickups).
			Msg("pickup routine started")
		s.pickupTick()
	})
}

func (s *Server) pickupTick() {
	if len(s.pickups) < s.cfg.MaxPickups {
		s.spawnPickup()
	}
	s.sess.Scheduler().After(s.cfg.PickupInterval, s.pickupTick)
}

// spawnPickup places a pickup on a free spawn point and announces it.
func (s *Server) spawnPickup() (uint, bool) {
	taken := make(map[int]bool, len(s.pickups))
	for _, p := range s.pickups {
		taken[p.spawn.Index] = true
	}
	sp, ok := s.arena.FreePickupSpawn(taken)
	if !ok {
		return 0, false
	}

	entity := s.world.Create(netcomponents.NetPosition, netcomponents.NetPickup)
	entry := s.world.Entry(entity)
	netcomponents.NetPosition.Set(entry, &netcomponents.NetPositionData{X: sp.X, Z: sp.Z})
	netcomponents.NetPickup.Set(entry, &netcomponents.NetPickupData{SpawnIndex: sp.Index})

	if err := srvsync.NetworkSync(s.world, &entity, netcomponents.NetPosition, netcomponents.NetPickup); err != nil {
		s.log.Error().Err(err).Msg("failed to sync pickup")
		s.world.Remove(entity)
		return 0, false
	}

	var id uint
	if nid := esync.GetNetworkId(s.world.Entry(entity)); nid != nil {
		id = uint(*nid)
	}

	size := netconfig.PickupSize
	obj := resolv.NewObject(sp.X-size/2, sp.Z-size/2, size, size, tagPickup)
	obj.SetShape(resolv.NewRectangle(0, 0, size, size))
	s.arena.Space.Add(obj)

	s.pickups[id] = &pickup{id: id, entity: entity, object: obj, spawn: sp}
	s.broadcast(messages.PickupSpawnEvent{PickupID: id, Position: sp.Position()})
	s.log.Debug().Uint("pickup", id).Int("spawn", sp.Index).Msg("pickup spawned")
	return id, true
}

// DespawnPickup removes a pickup. It reports false when the pickup was
// already gone, which is how the authority decides contested claims.
func (s *Server) DespawnPickup(pickupID uint) bool {
	p, ok := s.pickups[pickupID]
	if !ok {
		return false
	}
	delete(s.pickups, pickupID)
	s.arena.Space.Remove(p.object)
	if s.world.Valid(p.entity) {
		s.world.Remove(p.entity)
	}
	return true
}

// sendPickups tells a newcomer about every pickup currently in the arena.
func (s *Server) sendPickups(playerID uint) {
	for _, p := range s.pickups {
		s.SendTo(playerID, messages.PickupSpawnEvent{PickupID: p.id, Position: p.spawn.Position()})
	}
}

// PickupCount returns the number of pickups in the arena.
func (s *Server) PickupCount() int { return len(s.pickups) }
