package netcomponents

import "github.com/yohamta/donburi"

// NetPickupData marks a replicated power-up pickup. Its world position is
// carried by NetPosition; SpawnIndex is the arena spawn point it occupies.
type NetPickupData struct {
	SpawnIndex int
}

var NetPickup = donburi.NewComponentType[NetPickupData]()
