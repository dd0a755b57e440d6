// Package powerup implements the power-up possession lifecycle: a per-player
// state machine on every participant and the authority that arbitrates and
// rebroadcasts it.
package powerup

import (
	"errors"
	"time"

	"github.com/MekelWibi/SumoProjectKP/session"
	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/rs/zerolog"
)

// State of one player's possession.
type State int

const (
	Idle State = iota
	Possessing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Possessing:
		return "possessing"
	}
	return "unknown"
}

// Ownership says whether a controller drives the local avatar or mirrors a
// remote one.
type Ownership int

const (
	Local  Ownership = iota // Writes possession state and reports it
	Remote                  // Applies authoritative broadcasts verbatim
)

func (o Ownership) String() string {
	if o == Local {
		return "local"
	}
	return "remote"
}

// Indicator is the visible marker that follows a possessing player.
type Indicator struct {
	Visible  bool
	Position gamemath.Vec3
}

// Tuning holds the gameplay constants a controller uses.
type Tuning struct {
	Duration time.Duration
	Strong   float64
	Weak     float64
}

// DefaultTuning matches the reference behaviour: 7 s possession, 15 vs 1 knockback.
func DefaultTuning() Tuning {
	return Tuning{
		Duration: netconfig.PowerupDuration,
		Strong:   netconfig.PowerupStrength,
		Weak:     netconfig.NormalStrength,
	}
}

// Controller is the possession state machine of one player as seen by one
// participant process.
type Controller struct {
	sess      *session.Session
	playerID  uint
	ownership Ownership
	tuning    Tuning
	log       zerolog.Logger

	state      State
	indicator  *Indicator
	position   gamemath.Vec3
	generation uint32
	deadline   time.Duration
	timer      session.TimerID

	// Pickups this controller already asked to remove; contacts with them are
	// ignored until the world drops the entity.
	requested map[uint]struct{}
}

// NewController creates an idle controller. indicator may be nil, in which
// case the indicator side effects are skipped and logged.
func NewController(sess *session.Session, playerID uint, ownership Ownership, indicator *Indicator, tuning Tuning) *Controller {
	c := &Controller{
		sess:      sess,
		playerID:  playerID,
		ownership: ownership,
		tuning:    tuning,
		indicator: indicator,
		requested: make(map[uint]struct{}),
		log: sess.Logger().With().
			Str("component", "powerup").
			Uint("player", playerID).
			Str("ownership", ownership.String()).
			Logger(),
	}
	if indicator == nil {
		c.log.Error().Msg("powerup indicator is not assigned")
	} else {
		indicator.Visible = false
	}
	return c
}

func (c *Controller) PlayerID() uint          { return c.playerID }
func (c *Controller) Ownership() Ownership    { return c.ownership }
func (c *Controller) State() State            { return c.state }
func (c *Controller) HasPowerup() bool        { return c.state == Possessing }
func (c *Controller) Position() gamemath.Vec3 { return c.position }
func (c *Controller) Generation() uint32      { return c.generation }
func (c *Controller) Indicator() *Indicator   { return c.indicator }

// request forwards to the session, which logs delivery failures itself.
func (c *Controller) request(req messages.Request) {
	if err := c.sess.Request(req); errors.Is(err, session.ErrClosed) {
		c.log.Debug().Str("kind", req.Kind().String()).Msg("session closed, request dropped")
	}
}

// ExpiryDeadline is the session time at which the running possession ends,
// or zero when idle.
func (c *Controller) ExpiryDeadline() time.Duration { return c.deadline }

// HandlePickupContact runs when the avatar touches a pickup that is still in
// the world. It reports whether possession started.
func (c *Controller) HandlePickupContact(pickupID uint, position gamemath.Vec3) bool {
	switch c.ownership {
	case Remote:
		// The owning participant reports its own contacts.
		return false
	case Local:
	}

	if c.state == Possessing {
		return false
	}
	if _, done := c.requested[pickupID]; done {
		return false
	}

	c.requested[pickupID] = struct{}{}
	c.position = position
	c.generation++
	c.state = Possessing
	c.showIndicator(position)

	c.request(messages.DespawnPickupRequest{PlayerID: c.playerID, PickupID: pickupID})
	c.request(messages.PowerupStatusRequest{
		PlayerID:         c.playerID,
		HasPowerup:       true,
		IndicatorVisible: true,
		Generation:       c.generation,
	})

	gen := c.generation
	c.deadline = c.sess.Now() + c.tuning.Duration
	c.timer = c.sess.Scheduler().At(c.deadline, func() { c.expire(gen) })

	c.log.Debug().Uint("pickup", pickupID).Uint32("generation", gen).Msg("powerup countdown started")
	return true
}

// ForgetPickup drops the bookkeeping for a pickup the world no longer has.
func (c *Controller) ForgetPickup(pickupID uint) {
	delete(c.requested, pickupID)
}

// Tick records the avatar position. While the local avatar possesses, the
// indicator follows it and its position is re-sent every tick.
func (c *Controller) Tick(position gamemath.Vec3) {
	c.position = position

	switch c.ownership {
	case Local:
		if c.state != Possessing {
			return
		}
		if c.indicator != nil {
			c.indicator.Position = position
		}
		c.request(messages.IndicatorSyncRequest{PlayerID: c.playerID, Position: position})
	case Remote:
	}
}

// expire ends the possession instance gen. Running it for an instance that
// already ended, or for an older one, does nothing.
func (c *Controller) expire(gen uint32) bool {
	if c.state != Possessing || gen != c.generation {
		return false
	}

	c.state = Idle
	c.deadline = 0
	c.hideIndicator()

	c.request(messages.PowerupStatusRequest{
		PlayerID:         c.playerID,
		HasPowerup:       false,
		IndicatorVisible: false,
		Generation:       gen,
	})

	c.log.Debug().Uint32("generation", gen).Msg("powerup countdown finished")
	return true
}

// ApplyStatus applies an authoritative possession broadcast.
func (c *Controller) ApplyStatus(ev messages.PowerupStatusEvent) {
	if ev.PlayerID != c.playerID {
		return
	}

	switch c.ownership {
	case Remote:
		if ev.HasPowerup {
			c.state = Possessing
		} else {
			c.state = Idle
		}
		c.generation = ev.Generation
		if c.indicator != nil {
			c.indicator.Visible = ev.IndicatorVisible
			if ev.IndicatorVisible {
				c.indicator.Position = ev.Position
			}
		}

	case Local:
		// Our own writes are the truth until the authority overrides them.
		// A true echo only confirms; a false for the current (or a newer)
		// instance ends possession without reporting back.
		if ev.HasPowerup || c.state != Possessing || ev.Generation < c.generation {
			return
		}
		c.sess.Scheduler().Cancel(c.timer)
		c.state = Idle
		c.deadline = 0
		c.hideIndicator()
		c.log.Info().Uint32("generation", ev.Generation).Msg("possession overridden by authority")
	}
}

// ApplyIndicator moves a remote possessor's indicator.
func (c *Controller) ApplyIndicator(ev messages.IndicatorEvent) {
	if ev.PlayerID != c.playerID || c.ownership != Remote {
		return
	}
	if c.indicator == nil {
		c.log.Debug().Msg("indicator update without indicator")
		return
	}
	c.indicator.Position = ev.Position
}

// HandleAvatarContact runs when the local avatar bumps another avatar. The
// other avatar gets pushed away; this one is untouched. The returned force is
// what was reported to the authority.
func (c *Controller) HandleAvatarContact(otherID uint, otherPosition gamemath.Vec3) (gamemath.Vec3, bool) {
	switch c.ownership {
	case Remote:
		return gamemath.Vec3{}, false
	case Local:
	}
	if otherID == c.playerID {
		return gamemath.Vec3{}, false
	}

	force := gamemath.KnockbackImpulse(c.position, otherPosition, c.state == Possessing, c.tuning.Strong, c.tuning.Weak)
	c.request(messages.CollisionForceRequest{
		InitiatorID: c.playerID,
		ReceiverID:  otherID,
		Force:       force,
	})

	c.log.Debug().
		Uint("other", otherID).
		Bool("powered", c.state == Possessing).
		Float64("magnitude", force.Len()).
		Msg("player collided with another player")
	return force, true
}

func (c *Controller) showIndicator(at gamemath.Vec3) {
	if c.indicator == nil {
		c.log.Warn().Msg("powerup indicator not found")
		return
	}
	c.indicator.Visible = true
	c.indicator.Position = at
}

func (c *Controller) hideIndicator() {
	if c.indicator == nil {
		return
	}
	c.indicator.Visible = false
}
