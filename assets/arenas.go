package assets

import (
	"embed"
	"io/fs"

	"github.com/MekelWibi/SumoProjectKP/shared/arena"
)

//go:embed arenas/*.tmx
var arenaFS embed.FS

// DefaultArena is the arena used when none is configured.
const DefaultArena = "sumo"

// ArenaDir is the directory inside ArenaFS holding the .tmx files.
const ArenaDir = "arenas"

// ArenaFS exposes the embedded arena maps.
func ArenaFS() fs.FS { return arenaFS }

// LoadArenas parses every embedded arena.
func LoadArenas() (map[string]*arena.Data, []string, error) {
	return arena.LoadAll(arenaFS, ArenaDir)
}
