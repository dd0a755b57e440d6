// Package netconfig defines lightweight types shared between participant and
// authority processes. It must stay free of transport and ECS dependencies so
// every binary can import it.
package netconfig

import (
	"fmt"
	"strings"
	"time"
)

// Role is the part a process plays in a session.
type Role int

const (
	RoleAuthority   Role = iota // Arbitrates and rebroadcasts state
	RoleParticipant             // Owns one avatar and mirrors everyone else
)

func (r Role) String() string {
	switch r {
	case RoleAuthority:
		return "authority"
	case RoleParticipant:
		return "participant"
	}
	return "unknown"
}

// Mode is how a process was started: the three session bootstrap options.
type Mode int

const (
	ModeServer Mode = iota // Dedicated authority, no local avatar
	ModeHost               // Authority plus a local participant
	ModeClient             // Participant only
)

func (m Mode) String() string {
	switch m {
	case ModeServer:
		return "server"
	case ModeHost:
		return "host"
	case ModeClient:
		return "client"
	}
	return "unknown"
}

// ParseMode maps a command line value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "server":
		return ModeServer, nil
	case "host":
		return ModeHost, nil
	case "client", "":
		return ModeClient, nil
	}
	return ModeClient, fmt.Errorf("unknown mode %q", s)
}

// Roles returns the roles a process in this mode takes on.
func (m Mode) Roles() []Role {
	switch m {
	case ModeServer:
		return []Role{RoleAuthority}
	case ModeHost:
		return []Role{RoleAuthority, RoleParticipant}
	default:
		return []Role{RoleParticipant}
	}
}

// Has reports whether a process in this mode takes on role r.
func (m Mode) Has(r Role) bool {
	for _, role := range m.Roles() {
		if role == r {
			return true
		}
	}
	return false
}

// Gameplay constants shared by both sides of the wire.
const (
	PowerupDuration = 7 * time.Second
	PowerupStrength = 15.0 // Impulse magnitude when the initiator holds a power-up
	NormalStrength  = 1.0  // Impulse magnitude otherwise
	PlayerSpeed     = 5.0

	DefaultTickRate     = 20
	MaxRelayConnections = 5

	PickupRespawnInterval = 10 * time.Second
	MaxActivePickups      = 3

	// Authority-side lease on top of PowerupDuration before a silent
	// possessor is forcibly cleared.
	PossessionLeaseGrace = time.Second
)

// Avatar and pickup footprints on the ground plane, in arena pixels.
const (
	AvatarSize = 16.0
	PickupSize = 12.0

	// UnitScale converts gameplay units (speed, impulse) to arena pixels.
	UnitScale = 16.0
)
