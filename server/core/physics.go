package core

import (
	"time"

	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/netcomponents"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
)

// updatePhysics moves every avatar by one tick and writes the result into the
// replicated components. Avatars that leave the platform are put back on a
// spawn point.
func (s *Server) updatePhysics(dt time.Duration) {
	secs := dt.Seconds()

	for _, p := range s.joinedPeers() {
		b := p.body
		s.stepBody(b, secs)

		if !s.arena.Contains(b.Position()) {
			spawn := s.arena.PlayerSpawn(int(p.playerID))
			b.Teleport(spawn)
			s.log.Info().Uint("player", p.playerID).Msg("player fell off the arena")
		}

		if !s.world.Valid(p.entity) {
			continue
		}
		entry := s.world.Entry(p.entity)
		pos := netcomponents.NetPosition.Get(entry)
		vel := netcomponents.NetVelocity.Get(entry)
		state := netcomponents.NetPlayerState.Get(entry)

		at := b.Position()
		pos.X, pos.Y, pos.Z = at.X, at.Y, at.Z
		vel.X, vel.Y, vel.Z = b.Velocity.X, b.Velocity.Y, b.Velocity.Z
		state.LastSequence = b.LastInputSeq
	}
}

// stepBody integrates one avatar: input acceleration, ground friction, speed
// clamp, then position.
func (s *Server) stepBody(b *PlayerBody, secs float64) {
	var delta gamemath.Vec3
	b.Velocity, delta = gamemath.AvatarMovement.Step(b.Velocity, b.Input.Horizontal, b.Input.Forward, secs)

	b.Object.X += delta.X
	b.Object.Y += delta.Z
	b.Object.Update()
}

// applyImpulse adds a knockback in gameplay units to the avatar's velocity.
func (b *PlayerBody) applyImpulse(force gamemath.Vec3) {
	b.Velocity = b.Velocity.Add(force.Scale(netconfig.UnitScale))
}
