// Package participant runs one player's side of a session: it mirrors the
// authority's world, detects its own avatar's contacts, drives the power-up
// controllers and sends movement input.
package participant

import (
	"time"

	"github.com/MekelWibi/SumoProjectKP/network"
	"github.com/MekelWibi/SumoProjectKP/powerup"
	"github.com/MekelWibi/SumoProjectKP/session"
	"github.com/MekelWibi/SumoProjectKP/shared/arena"
	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/leap-fish/necs/esync"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
)

const (
	resendInterval = 50 * time.Millisecond

	// Prediction further than this from the authority snaps back.
	reconcileThreshold = 8.0
)

// Transport is what the participant needs from network.Client.
type Transport interface {
	SendMessage(msg any) error
	LatestSnapshot() *esync.WorldSnapshot
	DrainEvents() []messages.Broadcast
	NetworkID() esync.NetworkId
}

// Axes is one frame of movement input in [-1, 1].
type Axes struct {
	Horizontal float64
	Forward    float64
}

// Participant is the participant-side runtime. It is driven by Update from
// a single goroutine.
type Participant struct {
	net    Transport
	world  donburi.World
	sess   *session.Session
	sensor *Sensor
	tuning powerup.Tuning
	log    zerolog.Logger

	handlers map[messages.Kind]func(messages.Broadcast)

	controllers map[uint]*powerup.Controller
	indicators  map[uint]*powerup.Indicator
	pickups     map[uint]gamemath.Vec3

	// Local avatar prediction
	localID  uint
	placed   bool
	self     gamemath.Vec3
	velocity gamemath.Vec3
	buffer   network.PredictionBuffer
	seq      uint32
	lastSent Axes
	sentAt   time.Duration
}

func New(net Transport, a *arena.Data, tuning powerup.Tuning, log zerolog.Logger) *Participant {
	log = log.With().Str("component", "participant").Logger()
	p := &Participant{
		net:         net,
		world:       donburi.NewWorld(),
		sess:        session.New(netconfig.RoleParticipant, net, log),
		sensor:      NewSensor(a.Width, a.Height),
		tuning:      tuning,
		log:         log,
		controllers: make(map[uint]*powerup.Controller),
		indicators:  make(map[uint]*powerup.Indicator),
		pickups:     make(map[uint]gamemath.Vec3),
		sentAt:      -resendInterval,
	}
	p.handlers = map[messages.Kind]func(messages.Broadcast){
		messages.KindPowerupStatusEvent: p.onStatus,
		messages.KindIndicatorEvent:     p.onIndicator,
		messages.KindImpulseEvent:       p.onImpulse,
		messages.KindPickupSpawnEvent:   p.onPickupSpawn,
		messages.KindPickupDespawnEvent: p.onPickupDespawn,
		messages.KindPlayerLeftEvent:    p.onPlayerLeft,
	}
	return p
}

func (p *Participant) Start() { p.sess.Start() }

// Close ends the session; pending expiry timers are cancelled.
func (p *Participant) Close() { p.sess.Close() }

// Update runs one tick. Nothing happens until the authority has accepted the
// join and assigned a network id.
func (p *Participant) Update(dt time.Duration, input Axes) {
	if p.localID == 0 {
		p.localID = uint(p.net.NetworkID())
		if p.localID == 0 {
			return
		}
		p.log = p.log.With().Uint("player", p.localID).Logger()
	}

	if snap := p.net.LatestSnapshot(); snap != nil {
		applyEntities(p.world, decodeSnapshot(*snap, p.log))
		p.syncPlayers()
	}

	for _, ev := range p.net.DrainEvents() {
		p.dispatch(ev)
	}

	if !p.placed {
		p.sess.Tick(dt)
		return
	}

	p.move(dt, input)

	local := p.controller(p.localID)
	local.Tick(p.self)
	for _, c := range p.sensor.Update(p.self) {
		switch c.Kind {
		case ContactPickup:
			if _, ok := p.pickups[c.ID]; ok {
				local.HandlePickupContact(c.ID, p.self)
			}
		case ContactAvatar:
			local.HandleAvatarContact(c.ID, c.Position)
		}
	}

	p.sess.Tick(dt)
}

// syncPlayers creates controllers for new avatars, moves the sensor's view of
// other avatars, and reconciles the local prediction.
func (p *Participant) syncPlayers() {
	for _, pl := range players(p.world) {
		pos := gamemath.Vec3{X: pl.Position.X, Y: pl.Position.Y, Z: pl.Position.Z}
		c := p.controller(pl.ID)

		if pl.ID != p.localID {
			p.sensor.SetAvatar(pl.ID, pos)
			c.Tick(pos)
			continue
		}

		vel := gamemath.Vec3{X: pl.Velocity.X, Y: pl.Velocity.Y, Z: pl.Velocity.Z}
		p.reconcile(pos, vel, pl.State.LastSequence)
	}
}

func (p *Participant) reconcile(server, vel gamemath.Vec3, lastSeq uint32) {
	if !p.placed || p.buffer.NextSeq() == 0 {
		p.self, p.velocity, p.placed = server, vel, true
		return
	}
	if _, ok := p.buffer.Get(lastSeq); !ok {
		return
	}
	e := p.buffer.PredictionError(lastSeq, server)
	if e <= reconcileThreshold {
		return
	}

	// Restart from the authority's state and replay what it has not seen yet.
	p.self, p.velocity = server, vel
	pending := p.buffer.Unacknowledged(lastSeq)
	for _, rec := range pending {
		var delta gamemath.Vec3
		p.velocity, delta = gamemath.AvatarMovement.Step(p.velocity, rec.Input.Horizontal, rec.Input.Forward, rec.Step.Seconds())
		p.self = p.self.Add(delta)
		p.buffer.Store(rec.Input, rec.Step, p.self)
	}
	p.log.Debug().Float64("error", e).Uint32("seq", lastSeq).Int("replayed", len(pending)).Msg("prediction corrected")
}

// move predicts the local avatar and sends input when it changes or the
// resend interval elapses.
func (p *Participant) move(dt time.Duration, in Axes) {
	in.Horizontal = gamemath.ClampSpeed(in.Horizontal, 1)
	in.Forward = gamemath.ClampSpeed(in.Forward, 1)

	var delta gamemath.Vec3
	p.velocity, delta = gamemath.AvatarMovement.Step(p.velocity, in.Horizontal, in.Forward, dt.Seconds())
	p.self = p.self.Add(delta)

	p.seq++
	input := messages.PlayerInput{
		Sequence:   p.seq,
		Horizontal: in.Horizontal,
		Forward:    in.Forward,
		Timestamp:  time.Now().UnixMilli(),
	}
	p.buffer.Store(input, dt, p.self)

	now := p.sess.Now()
	if in == p.lastSent && now-p.sentAt < resendInterval {
		return
	}
	if err := p.net.SendMessage(input); err != nil {
		p.log.Debug().Err(err).Msg("input not sent")
		return
	}
	p.lastSent = in
	p.sentAt = now
}

func (p *Participant) dispatch(ev messages.Broadcast) {
	h, ok := p.handlers[ev.Kind()]
	if !ok {
		p.log.Debug().Str("kind", ev.Kind().String()).Msg("unhandled broadcast")
		return
	}
	h(ev)
}

// controller returns the controller for playerID, creating it with a hidden
// indicator on first use.
func (p *Participant) controller(playerID uint) *powerup.Controller {
	if c, ok := p.controllers[playerID]; ok {
		return c
	}
	ownership := powerup.Remote
	if playerID == p.localID {
		ownership = powerup.Local
	}
	ind := &powerup.Indicator{}
	c := powerup.NewController(p.sess, playerID, ownership, ind, p.tuning)
	p.controllers[playerID] = c
	p.indicators[playerID] = ind
	return c
}

func (p *Participant) onStatus(b messages.Broadcast) {
	ev, ok := b.(messages.PowerupStatusEvent)
	if !ok {
		return
	}
	p.controller(ev.PlayerID).ApplyStatus(ev)
}

func (p *Participant) onIndicator(b messages.Broadcast) {
	ev, ok := b.(messages.IndicatorEvent)
	if !ok {
		return
	}
	if c, ok := p.controllers[ev.PlayerID]; ok {
		c.ApplyIndicator(ev)
	}
}

// onImpulse mirrors a knockback on the local avatar so prediction does not
// fight the authority. Impulses on other avatars arrive through snapshots.
func (p *Participant) onImpulse(b messages.Broadcast) {
	ev, ok := b.(messages.ImpulseEvent)
	if !ok || ev.ReceiverID != p.localID {
		return
	}
	p.velocity = p.velocity.Add(ev.Force.Scale(netconfig.UnitScale))
	p.log.Debug().Uint("from", ev.InitiatorID).Float64("magnitude", ev.Force.Len()).Msg("knocked back")
}

func (p *Participant) onPickupSpawn(b messages.Broadcast) {
	ev, ok := b.(messages.PickupSpawnEvent)
	if !ok {
		return
	}
	p.pickups[ev.PickupID] = ev.Position
	p.sensor.AddPickup(ev.PickupID, ev.Position)
}

func (p *Participant) onPickupDespawn(b messages.Broadcast) {
	ev, ok := b.(messages.PickupDespawnEvent)
	if !ok {
		return
	}
	if _, known := p.pickups[ev.PickupID]; !known {
		p.log.Debug().Uint("pickup", ev.PickupID).Msg("despawn for unknown pickup")
	}
	delete(p.pickups, ev.PickupID)
	p.sensor.RemovePickup(ev.PickupID)
	if c, ok := p.controllers[p.localID]; ok {
		c.ForgetPickup(ev.PickupID)
	}
}

func (p *Participant) onPlayerLeft(b messages.Broadcast) {
	ev, ok := b.(messages.PlayerLeftEvent)
	if !ok || ev.PlayerID == p.localID {
		return
	}
	delete(p.controllers, ev.PlayerID)
	delete(p.indicators, ev.PlayerID)
	p.sensor.RemoveAvatar(ev.PlayerID)
}

// LocalID is the authority-assigned id of this participant's avatar, or 0
// before the join completes.
func (p *Participant) LocalID() uint { return p.localID }

// Position is the predicted position of the local avatar.
func (p *Participant) Position() gamemath.Vec3 { return p.self }

// Controller returns the power-up controller for a player.
func (p *Participant) Controller(playerID uint) (*powerup.Controller, bool) {
	c, ok := p.controllers[playerID]
	return c, ok
}

// Indicator returns a copy of a player's power-up indicator.
func (p *Participant) Indicator(playerID uint) (powerup.Indicator, bool) {
	ind, ok := p.indicators[playerID]
	if !ok {
		return powerup.Indicator{}, false
	}
	return *ind, true
}

// Pickups returns the pickups this participant believes are in the arena.
func (p *Participant) Pickups() map[uint]gamemath.Vec3 {
	out := make(map[uint]gamemath.Vec3, len(p.pickups))
	for id, pos := range p.pickups {
		out[id] = pos
	}
	return out
}

// Opponents returns the last known positions of the other avatars.
func (p *Participant) Opponents() map[uint]gamemath.Vec3 {
	out := make(map[uint]gamemath.Vec3)
	for id, c := range p.controllers {
		if id != p.localID {
			out[id] = c.Position()
		}
	}
	return out
}
