package core

import (
	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/solarlune/resolv"
)

// PlayerBody holds per-player physics state on the authority. This is not a
// donburi component: it exists only on the server and is never synced.
type PlayerBody struct {
	Object   *resolv.Object
	Velocity gamemath.Vec3

	// Latest input snapshot (written by onPlayerInput, read by physics tick)
	Input messages.PlayerInput

	// Last processed input sequence, echoed in NetPlayerState
	LastInputSeq uint32
}

func newPlayerBody(a *ServerArena, spawn gamemath.Vec3) *PlayerBody {
	size := netconfig.AvatarSize
	obj := resolv.NewObject(spawn.X-size/2, spawn.Z-size/2, size, size, tagPlayer)
	obj.SetShape(resolv.NewRectangle(0, 0, size, size))
	a.Space.Add(obj)

	return &PlayerBody{Object: obj}
}

func removePlayerBody(a *ServerArena, b *PlayerBody) {
	a.Space.Remove(b.Object)
}

// Position is the centre of the avatar on the ground plane.
func (b *PlayerBody) Position() gamemath.Vec3 {
	return gamemath.Vec3{
		X: b.Object.X + b.Object.W/2,
		Z: b.Object.Y + b.Object.H/2,
	}
}

// Teleport moves the avatar centre to p and stops it.
func (b *PlayerBody) Teleport(p gamemath.Vec3) {
	b.Object.X = p.X - b.Object.W/2
	b.Object.Y = p.Z - b.Object.H/2
	b.Velocity = gamemath.Vec3{}
	b.Object.Update()
}
