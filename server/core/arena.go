package core

import (
	"fmt"
	"io/fs"

	"github.com/MekelWibi/SumoProjectKP/shared/arena"
	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/rs/zerolog"
	"github.com/solarlune/resolv"
)

// resolv tags
const (
	tagPlayer = "player"
	tagPickup = "pickup"
)

// ServerArena holds the authority's collision space and spawn layout.
type ServerArena struct {
	Space *resolv.Space
	Data  *arena.Data
}

// NewServerArena builds an empty resolv space covering the arena.
func NewServerArena(data *arena.Data, log zerolog.Logger) *ServerArena {
	space := resolv.NewSpace(data.Width, data.Height, 16, 16)

	log.Info().
		Str("arena", data.Name).
		Int("playerSpawns", len(data.PlayerSpawns)).
		Int("pickupSpawns", len(data.PickupSpawns)).
		Msgf("loaded arena %dx%d", data.Width, data.Height)

	return &ServerArena{Space: space, Data: data}
}

// LoadServerArena loads one arena by name from fsys.
func LoadServerArena(fsys fs.FS, dir, name string, log zerolog.Logger) (*ServerArena, error) {
	arenas, _, err := arena.LoadAll(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("load arenas: %w", err)
	}
	data, ok := arenas[name]
	if !ok {
		return nil, fmt.Errorf("arena %q not found", name)
	}
	return NewServerArena(data, log), nil
}

// Contains reports whether a ground position is still on the platform.
func (a *ServerArena) Contains(p gamemath.Vec3) bool {
	return p.X >= 0 && p.Z >= 0 && p.X <= float64(a.Data.Width) && p.Z <= float64(a.Data.Height)
}

// occupied reports whether any object carrying one of tags overlaps the
// square of the given size centred on p.
func (a *ServerArena) occupied(p gamemath.Vec3, size float64, tags ...string) bool {
	footprint := resolv.NewObject(p.X-size/2, p.Z-size/2, size, size)
	footprint.SetShape(resolv.NewRectangle(0, 0, size, size))
	a.Space.Add(footprint)
	defer a.Space.Remove(footprint)
	return footprint.Check(0, 0, tags...) != nil
}

// PlayerSpawn picks the first spawn point, starting at the n-th, that has no
// avatar standing on it. If all are taken it falls back to the n-th.
func (a *ServerArena) PlayerSpawn(n int) gamemath.Vec3 {
	count := len(a.Data.PlayerSpawns)
	for i := 0; i < count; i++ {
		p := a.Data.PlayerSpawn(n + i).Position()
		if !a.occupied(p, netconfig.AvatarSize, tagPlayer) {
			return p
		}
	}
	return a.Data.PlayerSpawn(n).Position()
}

// FreePickupSpawn returns a pickup spawn point with no pickup on it.
func (a *ServerArena) FreePickupSpawn(taken map[int]bool) (arena.SpawnPoint, bool) {
	for _, sp := range a.Data.PickupSpawns {
		if taken[sp.Index] {
			continue
		}
		if a.occupied(sp.Position(), netconfig.PickupSize, tagPickup) {
			continue
		}
		return sp, true
	}
	return arena.SpawnPoint{}, false
}
