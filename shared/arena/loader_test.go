package arena

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="10" height="8" tilewidth="16" tileheight="16" infinite="0" nextlayerid="3" nextobjectid="4">
 <objectgroup id="1" name="PlayerSpawn">
  <object id="1" x="120" y="40">
   <properties>
    <property name="spawnIndex" type="int" value="1"/>
   </properties>
  </object>
  <object id="2" x="20" y="40">
   <properties>
    <property name="spawnIndex" type="int" value="0"/>
   </properties>
  </object>
 </objectgroup>
 <objectgroup id="2" name="PickupSpawn">
  <object id="3" x="80" y="64"/>
 </objectgroup>
</map>
`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"arenas/ring.tmx": &fstest.MapFile{Data: []byte(testTMX)},
	}
}

func TestLoad(t *testing.T) {
	data, err := Load(testFS(), "arenas/ring.tmx")
	require.NoError(t, err)

	assert.Equal(t, "ring", data.Name)
	assert.Equal(t, 160, data.Width)
	assert.Equal(t, 128, data.Height)

	require.Len(t, data.PlayerSpawns, 2)
	assert.Equal(t, SpawnPoint{X: 20, Z: 40, Index: 0}, data.PlayerSpawns[0])
	assert.Equal(t, SpawnPoint{X: 120, Z: 40, Index: 1}, data.PlayerSpawns[1])

	require.Len(t, data.PickupSpawns, 1)
	assert.Equal(t, 80.0, data.PickupSpawns[0].X)
	assert.Equal(t, 64.0, data.PickupSpawns[0].Z)
}

func TestLoadAll(t *testing.T) {
	arenas, names, err := LoadAll(testFS(), "arenas")
	require.NoError(t, err)
	assert.Equal(t, []string{"ring"}, names)
	assert.Contains(t, arenas, "ring")
}

func TestLoadAllEmptyDir(t *testing.T) {
	_, _, err := LoadAll(fstest.MapFS{}, "arenas")
	assert.Error(t, err)
}

func TestPlayerSpawnCycles(t *testing.T) {
	d := &Data{PlayerSpawns: []SpawnPoint{{X: 1}, {X: 2}}}
	assert.Equal(t, 1.0, d.PlayerSpawn(0).X)
	assert.Equal(t, 2.0, d.PlayerSpawn(1).X)
	assert.Equal(t, 1.0, d.PlayerSpawn(2).X)

	empty := &Data{Width: 100, Height: 50}
	assert.Equal(t, SpawnPoint{X: 50, Z: 25}, empty.PlayerSpawn(3))
}
