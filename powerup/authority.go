package powerup

import (
	"errors"
	"fmt"
	"time"

	"github.com/MekelWibi/SumoProjectKP/session"
	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/rs/zerolog"
)

// World is the part of the authoritative simulation the arbiter needs.
type World interface {
	// DespawnPickup removes the pickup and reports whether it was still there.
	DespawnPickup(pickupID uint) bool
	HasPlayer(playerID uint) bool
	PlayerPosition(playerID uint) (gamemath.Vec3, bool)
	ApplyImpulse(playerID uint, force gamemath.Vec3)
}

// Broadcaster delivers authoritative events to participants.
type Broadcaster interface {
	Broadcast(ev messages.Broadcast)
	SendTo(playerID uint, ev messages.Broadcast)
}

const inboxSize = 256

type inboxMsg interface{ isInboxMsg() }

type fromPeer struct {
	from uint
	req  messages.Request
}

type peerJoined struct{ playerID uint }

type peerLeft struct{ playerID uint }

func (fromPeer) isInboxMsg()   {}
func (peerJoined) isInboxMsg() {}
func (peerLeft) isInboxMsg()   {}

type handlerFunc func(from uint, req messages.Request) error

type possession struct {
	generation uint32
	position   gamemath.Vec3
	lease      session.TimerID
}

// Authority arbitrates possession requests and rebroadcasts the results.
// Submit, Join and Leave may be called from any goroutine; everything else
// runs on the game loop through ProcessInbox.
type Authority struct {
	sess   *session.Session
	world  World
	out    Broadcaster
	tuning Tuning
	grace  time.Duration
	log    zerolog.Logger
	m      *Metrics

	inbox    chan inboxMsg
	handlers map[messages.Kind]handlerFunc

	// Unspent pickup grants per player: a despawn the player won and has not
	// yet turned into a possession.
	grants map[uint]int
	active map[uint]*possession
}

func NewAuthority(sess *session.Session, world World, out Broadcaster, tuning Tuning, m *Metrics) *Authority {
	a := &Authority{
		sess:   sess,
		world:  world,
		out:    out,
		tuning: tuning,
		grace:  netconfig.PossessionLeaseGrace,
		log:    sess.Logger().With().Str("component", "authority").Logger(),
		m:      m,
		inbox:  make(chan inboxMsg, inboxSize),
		grants: make(map[uint]int),
		active: make(map[uint]*possession),
	}
	a.handlers = map[messages.Kind]handlerFunc{
		messages.KindDespawnPickup:  a.handleDespawnPickup,
		messages.KindPowerupStatus:  a.handlePowerupStatus,
		messages.KindIndicatorSync:  a.handleIndicatorSync,
		messages.KindCollisionForce: a.handleCollisionForce,
	}
	return a
}

// SetLeaseGrace changes how long past the possession duration the authority
// waits for the possessor's own expiry before ending it itself.
func (a *Authority) SetLeaseGrace(d time.Duration) { a.grace = d }

// Submit queues a request received from the peer owning player from. It never
// blocks; a full inbox drops the request.
func (a *Authority) Submit(from uint, req messages.Request) bool {
	return a.enqueue(fromPeer{from: from, req: req})
}

// Join queues the arrival of a player.
func (a *Authority) Join(playerID uint) bool {
	return a.enqueue(peerJoined{playerID: playerID})
}

// Leave queues the departure of a player.
func (a *Authority) Leave(playerID uint) bool {
	return a.enqueue(peerLeft{playerID: playerID})
}

func (a *Authority) enqueue(msg inboxMsg) bool {
	select {
	case a.inbox <- msg:
		return true
	default:
		a.log.Warn().Msg("authority inbox full, message dropped")
		a.m.requestDropped("inbox_full")
		return false
	}
}

// ProcessInbox handles every queued message in arrival order and returns how
// many were processed.
func (a *Authority) ProcessInbox() int {
	n := 0
	for {
		select {
		case msg := <-a.inbox:
			n++
			switch msg := msg.(type) {
			case fromPeer:
				if err := a.Handle(msg.from, msg.req); err != nil {
					a.log.Debug().Err(err).Uint("from", msg.from).Msg("request dropped")
				}
			case peerJoined:
				a.PlayerJoined(msg.playerID)
			case peerLeft:
				a.PlayerLeft(msg.playerID)
			}
		default:
			return n
		}
	}
}

// Handle dispatches one request by kind. Requests whose claimed sender does
// not match the connection they arrived on are refused.
func (a *Authority) Handle(from uint, req messages.Request) error {
	if req == nil {
		a.m.requestDropped("nil")
		return errors.New("nil request")
	}
	h, ok := a.handlers[req.Kind()]
	if !ok {
		a.m.requestDropped("unknown_kind")
		return fmt.Errorf("unknown request kind: %s", req.Kind())
	}
	if req.Sender() != from {
		a.m.requestDropped("sender_mismatch")
		return fmt.Errorf("%s from %d claims sender %d", req.Kind(), from, req.Sender())
	}
	return h(from, req)
}

func (a *Authority) handleDespawnPickup(from uint, req messages.Request) error {
	r, ok := req.(messages.DespawnPickupRequest)
	if !ok {
		return fmt.Errorf("unexpected payload %T", req)
	}

	if !a.world.HasPlayer(from) {
		a.m.claimRejected("despawn")
		return fmt.Errorf("pickup %d claimed by departed player %d", r.PickupID, from)
	}
	if !a.world.DespawnPickup(r.PickupID) {
		a.m.claimRejected("despawn")
		return fmt.Errorf("pickup %d already consumed", r.PickupID)
	}

	a.grants[from]++
	a.m.pickupConsumed()
	a.out.Broadcast(messages.PickupDespawnEvent{PickupID: r.PickupID, ConsumerID: from})
	a.log.Info().Uint("player", from).Uint("pickup", r.PickupID).Msg("pickup consumed")
	return nil
}

func (a *Authority) handlePowerupStatus(from uint, req messages.Request) error {
	r, ok := req.(messages.PowerupStatusRequest)
	if !ok {
		return fmt.Errorf("unexpected payload %T", req)
	}

	if !r.HasPowerup {
		p, ok := a.active[from]
		if !ok || r.Generation < p.generation {
			return fmt.Errorf("stale expiry %d from player %d", r.Generation, from)
		}
		a.end(from, "expired")
		return nil
	}

	if p, ok := a.active[from]; ok && p.generation == r.Generation {
		// Duplicate claim for the possession already running.
		return nil
	}

	if a.grants[from] == 0 {
		a.m.claimRejected("possession")
		a.out.SendTo(from, messages.PowerupStatusEvent{
			PlayerID:   from,
			Generation: r.Generation,
		})
		a.log.Info().Uint("player", from).Uint32("generation", r.Generation).Msg("possession claim without pickup rejected")
		return nil
	}
	a.grants[from]--

	if p, ok := a.active[from]; ok {
		a.sess.Scheduler().Cancel(p.lease)
	}

	pos, _ := a.world.PlayerPosition(from)
	gen := r.Generation
	p := &possession{generation: gen, position: pos}
	p.lease = a.sess.Scheduler().After(a.tuning.Duration+a.grace, func() {
		if cur, ok := a.active[from]; ok && cur.generation == gen {
			a.log.Warn().Uint("player", from).Uint32("generation", gen).Msg("possession lease ran out")
			a.end(from, "lease")
		}
	})
	a.active[from] = p

	a.out.Broadcast(messages.PowerupStatusEvent{
		PlayerID:         from,
		HasPowerup:       true,
		IndicatorVisible: r.IndicatorVisible,
		Position:         pos,
		Generation:       gen,
	})
	a.log.Info().Uint("player", from).Uint32("generation", gen).Msg("possession started")
	return nil
}

func (a *Authority) handleIndicatorSync(from uint, req messages.Request) error {
	r, ok := req.(messages.IndicatorSyncRequest)
	if !ok {
		return fmt.Errorf("unexpected payload %T", req)
	}

	p, ok := a.active[from]
	if !ok {
		return fmt.Errorf("indicator sync from idle player %d", from)
	}
	p.position = r.Position
	a.out.Broadcast(messages.IndicatorEvent{PlayerID: from, Position: r.Position})
	return nil
}

func (a *Authority) handleCollisionForce(from uint, req messages.Request) error {
	r, ok := req.(messages.CollisionForceRequest)
	if !ok {
		return fmt.Errorf("unexpected payload %T", req)
	}

	if r.ReceiverID == from {
		return fmt.Errorf("player %d collided with itself", from)
	}
	if !a.world.HasPlayer(r.ReceiverID) {
		return fmt.Errorf("collision with unknown player %d", r.ReceiverID)
	}

	_, strong := a.active[from]
	magnitude := a.tuning.Weak
	if strong {
		magnitude = a.tuning.Strong
	}

	force := gamemath.Redirect(r.Force, magnitude)
	if force.Len() == 0 {
		// Reported direction is degenerate; fall back to our own positions.
		ip, ok1 := a.world.PlayerPosition(from)
		rp, ok2 := a.world.PlayerPosition(r.ReceiverID)
		if ok1 && ok2 {
			force = gamemath.KnockbackImpulse(ip, rp, strong, a.tuning.Strong, a.tuning.Weak)
		}
	}

	a.world.ApplyImpulse(r.ReceiverID, force)
	a.m.impulseRelayed(strong)
	a.out.Broadcast(messages.ImpulseEvent{InitiatorID: from, ReceiverID: r.ReceiverID, Force: force})
	return nil
}

// PlayerJoined replays every running possession to the newcomer so its
// remote mirrors start in the right state.
func (a *Authority) PlayerJoined(playerID uint) {
	for id, p := range a.active {
		a.out.SendTo(playerID, messages.PowerupStatusEvent{
			PlayerID:         id,
			HasPowerup:       true,
			IndicatorVisible: true,
			Position:         p.position,
			Generation:       p.generation,
		})
	}
	a.log.Debug().Uint("player", playerID).Int("possessions", len(a.active)).Msg("player joined")
}

// PlayerLeft ends the leaver's possession. The pickup it consumed is not
// restored.
func (a *Authority) PlayerLeft(playerID uint) {
	if _, ok := a.active[playerID]; ok {
		a.end(playerID, "disconnect")
	}
	delete(a.grants, playerID)
	a.out.Broadcast(messages.PlayerLeftEvent{PlayerID: playerID})
	a.log.Info().Uint("player", playerID).Msg("player left")
}

// Possessing reports whether the authority considers the player powered up.
func (a *Authority) Possessing(playerID uint) bool {
	_, ok := a.active[playerID]
	return ok
}

func (a *Authority) end(playerID uint, reason string) {
	p, ok := a.active[playerID]
	if !ok {
		return
	}
	a.sess.Scheduler().Cancel(p.lease)
	delete(a.active, playerID)

	a.m.possessionEnded(reason)
	a.out.Broadcast(messages.PowerupStatusEvent{
		PlayerID:   playerID,
		Generation: p.generation,
	})
	a.log.Info().Uint("player", playerID).Uint32("generation", p.generation).Str("reason", reason).Msg("possession ended")
}
