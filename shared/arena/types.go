// Package arena provides TMX arena parsing shared between authority and
// participants. It has no dependencies on donburi or resolv, pure data only.
package arena

import "github.com/MekelWibi/SumoProjectKP/shared/gamemath"

// Data holds the spawn layout parsed from a TMX arena file. Map pixels are laid
// on the XZ ground plane: TMX x becomes world X and TMX y becomes world Z.
type Data struct {
	Name         string
	Width        int
	Height       int
	PlayerSpawns []SpawnPoint
	PickupSpawns []SpawnPoint
}

// SpawnPoint is a location an avatar or pickup may appear at.
type SpawnPoint struct {
	X, Z  float64
	Index int
}

// Position returns the spawn point as a world position on the ground plane.
func (s SpawnPoint) Position() gamemath.Vec3 {
	return gamemath.Vec3{X: s.X, Z: s.Z}
}

// PlayerSpawn picks a spawn for the n-th joining player, cycling through the
// available points. Arenas without spawns put everyone at the centre.
func (d *Data) PlayerSpawn(n int) SpawnPoint {
	if len(d.PlayerSpawns) == 0 {
		return SpawnPoint{X: float64(d.Width) / 2, Z: float64(d.Height) / 2}
	}
	if n < 0 {
		n = -n
	}
	return d.PlayerSpawns[n%len(d.PlayerSpawns)]
}
