package netcomponents

import "github.com/yohamta/donburi"

type NetPlayerStateData struct {
	Name         string
	LastSequence uint32 // Last input sequence processed by the authority
	IsLocal      bool   // Participant-side only, not synced
}

var NetPlayerState = donburi.NewComponentType[NetPlayerStateData]()
