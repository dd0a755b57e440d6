package arena

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lafriks/go-tiled"
)

const (
	layerPlayerSpawn = "PlayerSpawn"
	layerPickupSpawn = "PickupSpawn"
)

// Load parses a TMX file and returns its spawn layout. It takes an fs.FS so
// callers can pass embed.FS or os.DirFS.
func Load(fsys fs.FS, tmxPath string) (*Data, error) {
	arenaMap, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}

	data := &Data{
		Name:   strings.TrimSuffix(filepath.Base(tmxPath), ".tmx"),
		Width:  arenaMap.Width * arenaMap.TileWidth,
		Height: arenaMap.Height * arenaMap.TileHeight,
	}

	for _, og := range arenaMap.ObjectGroups {
		switch og.Name {
		case layerPlayerSpawn:
			data.PlayerSpawns = append(data.PlayerSpawns, spawnPoints(og)...)
		case layerPickupSpawn:
			data.PickupSpawns = append(data.PickupSpawns, spawnPoints(og)...)
		}
	}

	sortSpawns(data.PlayerSpawns)
	sortSpawns(data.PickupSpawns)

	return data, nil
}

// LoadAll discovers all .tmx files in dir within fsys, loads each, and returns
// a map keyed by stem name plus a sorted list of names.
func LoadAll(fsys fs.FS, dir string) (map[string]*Data, []string, error) {
	pattern := dir + "/*.tmx"
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("no .tmx files found in %s", dir)
	}

	arenas := make(map[string]*Data, len(matches))
	names := make([]string, 0, len(matches))

	for _, path := range matches {
		data, err := Load(fsys, path)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		arenas[data.Name] = data
		names = append(names, data.Name)
	}

	sort.Strings(names)
	return arenas, names, nil
}

func spawnPoints(og *tiled.ObjectGroup) []SpawnPoint {
	points := make([]SpawnPoint, 0, len(og.Objects))
	for _, o := range og.Objects {
		points = append(points, SpawnPoint{
			X:     o.X,
			Z:     o.Y,
			Index: o.Properties.GetInt("spawnIndex"),
		})
	}
	return points
}

// sortSpawns orders by spawnIndex, then left-to-right, for consistent assignment.
func sortSpawns(points []SpawnPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].Index != points[j].Index {
			return points[i].Index < points[j].Index
		}
		return points[i].X < points[j].X
	})
}
