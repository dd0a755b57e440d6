package messages

import "github.com/leap-fish/necs/esync"

// JoinRequest is sent by a participant after connecting to request joining the arena.
type JoinRequest struct {
	Version    string
	PlayerName string
	PlayerID   string // Relay sign-in id, empty on direct connections
}

// JoinAccepted is sent by the authority when a participant's join request is accepted.
type JoinAccepted struct {
	NetworkID  esync.NetworkId
	ServerName string
	TickRate   int
	Arena      string
}

// JoinRejected is sent by the authority when a participant's join request is rejected.
type JoinRejected struct {
	Reason string
}
