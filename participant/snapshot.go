package participant

import (
	"sort"

	"github.com/MekelWibi/SumoProjectKP/shared/netcomponents"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
)

// entityState is one replicated entity decoded from a snapshot.
type entityState struct {
	ID         esync.NetworkId
	Components []any
}

// decodeSnapshot deserializes every component of every entity. Components
// that fail to decode are skipped.
func decodeSnapshot(snapshot esync.WorldSnapshot, log zerolog.Logger) []entityState {
	out := make([]entityState, 0, len(snapshot))
	for _, ent := range snapshot {
		var compData []any
		for _, componentBytes := range ent.State {
			instance, err := esync.Mapper.Deserialize(componentBytes)
			if err != nil {
				log.Debug().Err(err).Uint("entity", uint(ent.Id)).Msg("component decode failed")
				continue
			}
			compData = append(compData, instance)
		}
		out = append(out, entityState{ID: ent.Id, Components: compData})
	}
	return out
}

// applyEntities makes world mirror states: entities are created, updated, or
// removed when absent from the snapshot.
func applyEntities(world donburi.World, states []entityState) {
	present := make(map[esync.NetworkId]bool, len(states))

	for _, ent := range states {
		present[ent.ID] = true

		entity := esync.FindByNetworkId(world, ent.ID)
		if !world.Valid(entity) {
			entity = world.Create(componentTypesFromInstances(ent.Components)...)

			entry := world.Entry(entity)
			entry.AddComponent(esync.NetworkIdComponent)
			esync.NetworkIdComponent.SetValue(entry, ent.ID)
		}

		entry := world.Entry(entity)
		for _, data := range ent.Components {
			applyComponentToEntry(entry, data)
		}
	}

	var stale []*donburi.Entry
	esync.NetworkEntityQuery.Each(world, func(entry *donburi.Entry) {
		id := esync.GetNetworkId(entry)
		if id == nil {
			return
		}
		if !present[*id] {
			stale = append(stale, entry)
		}
	})
	for _, entry := range stale {
		entry.Remove()
	}
}

func componentTypesFromInstances(components []any) []donburi.IComponentType {
	var ctypes []donburi.IComponentType
	for _, data := range components {
		switch data.(type) {
		case netcomponents.NetPositionData:
			ctypes = append(ctypes, netcomponents.NetPosition)
		case netcomponents.NetVelocityData:
			ctypes = append(ctypes, netcomponents.NetVelocity)
		case netcomponents.NetPlayerStateData:
			ctypes = append(ctypes, netcomponents.NetPlayerState)
		case netcomponents.NetPickupData:
			ctypes = append(ctypes, netcomponents.NetPickup)
		}
	}
	return ctypes
}

func applyComponentToEntry(entry *donburi.Entry, data any) {
	switch v := data.(type) {
	case netcomponents.NetPositionData:
		if !entry.HasComponent(netcomponents.NetPosition) {
			entry.AddComponent(netcomponents.NetPosition)
		}
		netcomponents.NetPosition.SetValue(entry, v)
	case netcomponents.NetVelocityData:
		if !entry.HasComponent(netcomponents.NetVelocity) {
			entry.AddComponent(netcomponents.NetVelocity)
		}
		netcomponents.NetVelocity.SetValue(entry, v)
	case netcomponents.NetPlayerStateData:
		if !entry.HasComponent(netcomponents.NetPlayerState) {
			entry.AddComponent(netcomponents.NetPlayerState)
		}
		netcomponents.NetPlayerState.SetValue(entry, v)
	case netcomponents.NetPickupData:
		if !entry.HasComponent(netcomponents.NetPickup) {
			entry.AddComponent(netcomponents.NetPickup)
		}
		netcomponents.NetPickup.SetValue(entry, v)
	}
}

// playerEntry is a replicated avatar as the participant sees it.
type playerEntry struct {
	ID       uint
	Position netcomponents.NetPositionData
	Velocity netcomponents.NetVelocityData
	State    netcomponents.NetPlayerStateData
}

// players lists every replicated avatar in the world, ordered by id.
func players(world donburi.World) []playerEntry {
	var out []playerEntry
	esync.NetworkEntityQuery.Each(world, func(entry *donburi.Entry) {
		if !entry.HasComponent(netcomponents.NetPlayerState) || !entry.HasComponent(netcomponents.NetPosition) {
			return
		}
		id := esync.GetNetworkId(entry)
		if id == nil {
			return
		}
		p := playerEntry{
			ID:       uint(*id),
			Position: *netcomponents.NetPosition.Get(entry),
			State:    *netcomponents.NetPlayerState.Get(entry),
		}
		if entry.HasComponent(netcomponents.NetVelocity) {
			p.Velocity = *netcomponents.NetVelocity.Get(entry)
		}
		out = append(out, p)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
