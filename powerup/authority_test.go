package powerup

import (
	"testing"
	"time"

	"github.com/MekelWibi/SumoProjectKP/session"
	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

type appliedImpulse struct {
	playerID uint
	force    gamemath.Vec3
}

type fakeWorld struct {
	pickups  map[uint]bool
	players  map[uint]gamemath.Vec3
	impulses []appliedImpulse
}

func newFakeWorld() *fakeWorld {
	return &fakeWorld{pickups: map[uint]bool{}, players: map[uint]gamemath.Vec3{}}
}

func (w *fakeWorld) DespawnPickup(id uint) bool {
	if !w.pickups[id] {
		return false
	}
	delete(w.pickups, id)
	return true
}

func (w *fakeWorld) HasPlayer(id uint) bool {
	_, ok := w.players[id]
	return ok
}

func (w *fakeWorld) PlayerPosition(id uint) (gamemath.Vec3, bool) {
	p, ok := w.players[id]
	return p, ok
}

func (w *fakeWorld) ApplyImpulse(id uint, force gamemath.Vec3) {
	w.impulses = append(w.impulses, appliedImpulse{playerID: id, force: force})
}

type recordingOut struct {
	all    []messages.Broadcast
	direct map[uint][]messages.Broadcast
}

func newRecordingOut() *recordingOut {
	return &recordingOut{direct: map[uint][]messages.Broadcast{}}
}

func (o *recordingOut) Broadcast(ev messages.Broadcast) { o.all = append(o.all, ev) }

func (o *recordingOut) SendTo(id uint, ev messages.Broadcast) {
	o.direct[id] = append(o.direct[id], ev)
}

func (o *recordingOut) statuses() []messages.PowerupStatusEvent {
	var out []messages.PowerupStatusEvent
	for _, ev := range o.all {
		if s, ok := ev.(messages.PowerupStatusEvent); ok {
			out = append(out, s)
		}
	}
	return out
}

func newTestAuthority(t *testing.T) (*Authority, *session.Session, *fakeWorld, *recordingOut) {
	t.Helper()
	sess := session.New(netconfig.RoleAuthority, nil, zerolog.Nop())
	sess.Start()
	m, err := NewMetrics(noop.Meter{})
	require.NoError(t, err)

	w := newFakeWorld()
	w.players[1] = gamemath.Vec3{}
	w.players[2] = gamemath.Vec3{X: 3, Z: 4}
	w.pickups[100] = true
	out := newRecordingOut()
	return NewAuthority(sess, w, out, DefaultTuning(), m), sess, w, out
}

func claim(a *Authority, player, pickup uint, gen uint32) {
	a.Submit(player, messages.DespawnPickupRequest{PlayerID: player, PickupID: pickup})
	a.Submit(player, messages.PowerupStatusRequest{PlayerID: player, HasPowerup: true, IndicatorVisible: true, Generation: gen})
}

func TestAuthorityGrantsFirstClaim(t *testing.T) {
	a, _, w, out := newTestAuthority(t)

	claim(a, 1, 100, 1)
	claim(a, 2, 100, 1)
	assert.Equal(t, 4, a.ProcessInbox())

	assert.False(t, w.pickups[100])
	assert.True(t, a.Possessing(1))
	assert.False(t, a.Possessing(2))

	require.Len(t, out.all, 2)
	assert.Equal(t, messages.PickupDespawnEvent{PickupID: 100, ConsumerID: 1}, out.all[0])
	assert.Equal(t, messages.PowerupStatusEvent{PlayerID: 1, HasPowerup: true, IndicatorVisible: true, Generation: 1}, out.all[1])

	// The loser alone is told to drop its optimistic state.
	assert.Empty(t, out.direct[1])
	assert.Equal(t, []messages.Broadcast{messages.PowerupStatusEvent{PlayerID: 2, Generation: 1}}, out.direct[2])
}

func TestAuthorityRejectsForeignSender(t *testing.T) {
	a, _, w, out := newTestAuthority(t)

	err := a.Handle(2, messages.DespawnPickupRequest{PlayerID: 1, PickupID: 100})
	assert.Error(t, err)
	assert.True(t, w.pickups[100])
	assert.Empty(t, out.all)
}

func TestAuthorityRejectsUnknownKind(t *testing.T) {
	a, _, _, _ := newTestAuthority(t)
	assert.Error(t, a.Handle(1, nil))
	assert.Error(t, a.Handle(1, bogusRequest{}))
}

type bogusRequest struct{}

func (bogusRequest) Kind() messages.Kind { return messages.KindNone }
func (bogusRequest) Sender() uint        { return 1 }

func TestAuthorityDuplicateClaimIsNoop(t *testing.T) {
	a, _, _, out := newTestAuthority(t)
	claim(a, 1, 100, 1)
	a.Submit(1, messages.PowerupStatusRequest{PlayerID: 1, HasPowerup: true, IndicatorVisible: true, Generation: 1})
	a.ProcessInbox()

	assert.Len(t, out.statuses(), 1)
}

func TestAuthorityExpiryBroadcastOnce(t *testing.T) {
	a, _, _, out := newTestAuthority(t)
	claim(a, 1, 100, 1)
	expiry := messages.PowerupStatusRequest{PlayerID: 1, Generation: 1}
	a.Submit(1, expiry)
	a.Submit(1, expiry)
	a.ProcessInbox()

	statuses := out.statuses()
	require.Len(t, statuses, 2)
	assert.Equal(t, messages.PowerupStatusEvent{PlayerID: 1, Generation: 1}, statuses[1])
	assert.False(t, a.Possessing(1))
}

func TestAuthorityIgnoresStaleExpiry(t *testing.T) {
	a, _, w, _ := newTestAuthority(t)
	w.pickups[101] = true

	claim(a, 1, 100, 1)
	a.Submit(1, messages.PowerupStatusRequest{PlayerID: 1, Generation: 1})
	claim(a, 1, 101, 2)
	a.Submit(1, messages.PowerupStatusRequest{PlayerID: 1, Generation: 1})
	a.ProcessInbox()

	assert.True(t, a.Possessing(1))
}

func TestAuthorityLeaseEndsSilentPossession(t *testing.T) {
	a, sess, _, out := newTestAuthority(t)
	claim(a, 1, 100, 1)
	a.ProcessInbox()

	sess.Tick(netconfig.PowerupDuration)
	assert.True(t, a.Possessing(1))

	sess.Tick(netconfig.PossessionLeaseGrace)
	assert.False(t, a.Possessing(1))
	assert.Equal(t, messages.PowerupStatusEvent{PlayerID: 1, Generation: 1}, out.all[len(out.all)-1])
}

func TestAuthorityIndicatorOnlyFromPossessor(t *testing.T) {
	a, _, _, out := newTestAuthority(t)

	a.Submit(1, messages.IndicatorSyncRequest{PlayerID: 1, Position: gamemath.Vec3{X: 1}})
	a.ProcessInbox()
	assert.Empty(t, out.all)

	claim(a, 1, 100, 1)
	a.Submit(1, messages.IndicatorSyncRequest{PlayerID: 1, Position: gamemath.Vec3{X: 2}})
	a.ProcessInbox()
	assert.Equal(t, messages.IndicatorEvent{PlayerID: 1, Position: gamemath.Vec3{X: 2}}, out.all[len(out.all)-1])
}

func TestAuthorityCollisionMagnitudeFromOwnRecord(t *testing.T) {
	a, _, w, out := newTestAuthority(t)

	// Initiator claims strong while idle: authority uses the weak constant.
	a.Submit(1, messages.CollisionForceRequest{InitiatorID: 1, ReceiverID: 2, Force: gamemath.Vec3{X: 9, Z: 12}})
	a.ProcessInbox()
	require.Len(t, w.impulses, 1)
	assert.Equal(t, uint(2), w.impulses[0].playerID)
	assert.InDelta(t, netconfig.NormalStrength, w.impulses[0].force.Len(), 1e-9)

	claim(a, 1, 100, 1)
	a.Submit(1, messages.CollisionForceRequest{InitiatorID: 1, ReceiverID: 2, Force: gamemath.Vec3{X: 0.6, Z: 0.8}})
	a.ProcessInbox()
	require.Len(t, w.impulses, 2)
	assert.InDelta(t, netconfig.PowerupStrength, w.impulses[1].force.Len(), 1e-9)
	assert.InDelta(t, 9.0, w.impulses[1].force.X, 1e-9)
	assert.InDelta(t, 12.0, w.impulses[1].force.Z, 1e-9)

	last := out.all[len(out.all)-1]
	assert.Equal(t, messages.ImpulseEvent{InitiatorID: 1, ReceiverID: 2, Force: w.impulses[1].force}, last)
}

func TestAuthorityCollisionDegenerateDirectionUsesPositions(t *testing.T) {
	a, _, w, _ := newTestAuthority(t)
	a.Submit(1, messages.CollisionForceRequest{InitiatorID: 1, ReceiverID: 2})
	a.ProcessInbox()

	require.Len(t, w.impulses, 1)
	assert.InDelta(t, 0.6, w.impulses[0].force.X, 1e-9)
	assert.InDelta(t, 0.8, w.impulses[0].force.Z, 1e-9)
}

func TestAuthorityCollisionRejectsUnknownAndSelf(t *testing.T) {
	a, _, w, out := newTestAuthority(t)
	assert.Error(t, a.Handle(1, messages.CollisionForceRequest{InitiatorID: 1, ReceiverID: 1, Force: gamemath.Vec3{X: 1}}))
	assert.Error(t, a.Handle(1, messages.CollisionForceRequest{InitiatorID: 1, ReceiverID: 42, Force: gamemath.Vec3{X: 1}}))
	assert.Empty(t, w.impulses)
	assert.Empty(t, out.all)
}

func TestAuthorityPlayerLeftEndsPossessionPickupStaysConsumed(t *testing.T) {
	a, sess, w, out := newTestAuthority(t)
	claim(a, 1, 100, 1)
	a.Leave(1)
	a.ProcessInbox()

	assert.False(t, a.Possessing(1))
	assert.False(t, w.pickups[100])
	assert.Zero(t, sess.Scheduler().Len(), "lease timer cancelled")

	n := len(out.all)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, messages.PowerupStatusEvent{PlayerID: 1, Generation: 1}, out.all[n-2])
	assert.Equal(t, messages.PlayerLeftEvent{PlayerID: 1}, out.all[n-1])
}

func TestAuthorityDespawnFromDepartedPlayerRefused(t *testing.T) {
	a, _, w, out := newTestAuthority(t)

	// The disconnect removed the avatar before the queued claim was drained.
	delete(w.players, 1)
	err := a.Handle(1, messages.DespawnPickupRequest{PlayerID: 1, PickupID: 100})

	assert.Error(t, err)
	assert.True(t, w.pickups[100], "pickup stays available")
	assert.Empty(t, out.all)

	claim(a, 2, 100, 1)
	a.ProcessInbox()
	assert.False(t, w.pickups[100])
	assert.True(t, a.Possessing(2))
}

func TestMetricsOnPackageMeter(t *testing.T) {
	m, err := NewMetrics(Meter())
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.pickupConsumed()
		m.claimRejected("despawn")
	})

	var none *Metrics
	assert.NotPanics(t, func() { none.impulseRelayed(true) })
}

func TestAuthorityPlayerJoinedReplaysPossession(t *testing.T) {
	a, _, _, out := newTestAuthority(t)
	claim(a, 1, 100, 1)
	a.Submit(1, messages.IndicatorSyncRequest{PlayerID: 1, Position: gamemath.Vec3{X: 5}})
	a.Join(3)
	a.ProcessInbox()

	assert.Equal(t, []messages.Broadcast{messages.PowerupStatusEvent{
		PlayerID:         1,
		HasPowerup:       true,
		IndicatorVisible: true,
		Position:         gamemath.Vec3{X: 5},
		Generation:       1,
	}}, out.direct[3])
}

func TestAuthorityInboxFullDrops(t *testing.T) {
	a, _, _, _ := newTestAuthority(t)
	for i := 0; i < inboxSize; i++ {
		require.True(t, a.Submit(1, messages.IndicatorSyncRequest{PlayerID: 1}))
	}
	assert.False(t, a.Submit(1, messages.IndicatorSyncRequest{PlayerID: 1}))
	assert.Equal(t, inboxSize, a.ProcessInbox())
}

// testNet wires participant sessions to one authority in memory. Broadcasts
// are delivered synchronously while the authority drains its inbox.
type testNet struct {
	authSess *session.Session
	auth     *Authority
	world    *fakeWorld
	peers    map[uint]*testPeer
}

type testPeer struct {
	id       uint
	sess     *session.Session
	ctrls    map[uint]*Controller
	pickups  map[uint]gamemath.Vec3
	impulses []messages.ImpulseEvent
}

func newTestNet(t *testing.T, ids ...uint) *testNet {
	t.Helper()
	n := &testNet{
		authSess: session.New(netconfig.RoleAuthority, nil, zerolog.Nop()),
		world:    newFakeWorld(),
		peers:    map[uint]*testPeer{},
	}
	n.authSess.Start()
	n.auth = NewAuthority(n.authSess, n.world, n, DefaultTuning(), nil)

	for _, id := range ids {
		n.world.players[id] = gamemath.Vec3{}
	}
	for _, id := range ids {
		p := &testPeer{id: id, ctrls: map[uint]*Controller{}, pickups: map[uint]gamemath.Vec3{}}
		p.sess = session.New(netconfig.RoleParticipant, session.SenderFunc(func(msg any) error {
			n.auth.Submit(id, msg.(messages.Request))
			return nil
		}), zerolog.Nop())
		p.sess.Start()
		for _, other := range ids {
			own := Remote
			if other == id {
				own = Local
			}
			p.ctrls[other] = NewController(p.sess, other, own, &Indicator{}, DefaultTuning())
		}
		n.peers[id] = p
	}
	return n
}

func (n *testNet) Broadcast(ev messages.Broadcast) {
	for _, p := range n.peers {
		p.deliver(ev)
	}
}

func (n *testNet) SendTo(id uint, ev messages.Broadcast) {
	if p, ok := n.peers[id]; ok {
		p.deliver(ev)
	}
}

func (n *testNet) spawnPickup(id uint, at gamemath.Vec3) {
	n.world.pickups[id] = true
	n.Broadcast(messages.PickupSpawnEvent{PickupID: id, Position: at})
}

func (n *testNet) step(dt time.Duration) {
	for _, p := range n.peers {
		p.sess.Tick(dt)
	}
	n.auth.ProcessInbox()
	n.authSess.Tick(dt)
	n.auth.ProcessInbox()
}

func (p *testPeer) deliver(ev messages.Broadcast) {
	switch ev := ev.(type) {
	case messages.PowerupStatusEvent:
		for _, c := range p.ctrls {
			c.ApplyStatus(ev)
		}
	case messages.IndicatorEvent:
		for _, c := range p.ctrls {
			c.ApplyIndicator(ev)
		}
	case messages.ImpulseEvent:
		if ev.ReceiverID == p.id {
			p.impulses = append(p.impulses, ev)
		}
	case messages.PickupSpawnEvent:
		p.pickups[ev.PickupID] = ev.Position
	case messages.PickupDespawnEvent:
		delete(p.pickups, ev.PickupID)
		for _, c := range p.ctrls {
			c.ForgetPickup(ev.PickupID)
		}
	}
}

// touch reports a contact only while the pickup still exists locally.
func (p *testPeer) touch(pickupID uint) bool {
	pos, ok := p.pickups[pickupID]
	if !ok {
		return false
	}
	return p.ctrls[p.id].HandlePickupContact(pickupID, pos)
}

func (p *testPeer) local() *Controller { return p.ctrls[p.id] }

func TestPickupExpiresAfterSevenSecondsEverywhere(t *testing.T) {
	n := newTestNet(t, 1, 2)
	n.spawnPickup(100, gamemath.Vec3{})
	a, b := n.peers[1], n.peers[2]

	require.True(t, a.touch(100))
	n.step(0)

	assert.True(t, a.local().HasPowerup())
	assert.True(t, b.ctrls[1].HasPowerup())
	assert.True(t, b.ctrls[1].Indicator().Visible)
	assert.False(t, n.world.pickups[100])
	assert.NotContains(t, b.pickups, uint(100))

	tick := 100 * time.Millisecond
	for i := 0; i < 69; i++ {
		n.step(tick)
	}
	assert.True(t, a.local().HasPowerup())
	assert.True(t, b.ctrls[1].HasPowerup())

	n.step(tick)
	assert.False(t, a.local().HasPowerup())
	assert.False(t, b.ctrls[1].HasPowerup())
	assert.False(t, b.ctrls[1].Indicator().Visible)
	assert.False(t, n.auth.Possessing(1))
}

func TestPoweredCollisionPushesReceiverStrongly(t *testing.T) {
	n := newTestNet(t, 1, 2)
	n.spawnPickup(100, gamemath.Vec3{})
	a, b := n.peers[1], n.peers[2]
	require.True(t, a.touch(100))
	n.step(0)

	a.local().Tick(gamemath.Vec3{X: 1, Z: 1})
	_, ok := a.local().HandleAvatarContact(2, gamemath.Vec3{X: 4, Z: 5})
	require.True(t, ok)
	n.step(0)

	require.Len(t, b.impulses, 1)
	got := b.impulses[0].Force
	assert.InDelta(t, netconfig.PowerupStrength, got.Len(), 1e-9)
	assert.InDelta(t, 0.6*netconfig.PowerupStrength, got.X, 1e-9)
	assert.InDelta(t, 0.8*netconfig.PowerupStrength, got.Z, 1e-9)

	assert.Empty(t, a.impulses)
	for _, imp := range n.world.impulses {
		assert.Equal(t, uint(2), imp.playerID)
	}
}

func TestUnpoweredCollisionPushesReceiverWeakly(t *testing.T) {
	n := newTestNet(t, 1, 2)
	a, b := n.peers[1], n.peers[2]

	a.local().Tick(gamemath.Vec3{})
	_, ok := a.local().HandleAvatarContact(2, gamemath.Vec3{Z: -2})
	require.True(t, ok)
	n.step(0)

	require.Len(t, b.impulses, 1)
	assert.InDelta(t, netconfig.NormalStrength, b.impulses[0].Force.Len(), 1e-9)
	assert.InDelta(t, -1.0, b.impulses[0].Force.Z, 1e-9)
}

func TestContestedPickupHasOneWinner(t *testing.T) {
	n := newTestNet(t, 1, 2, 3)
	n.spawnPickup(100, gamemath.Vec3{})

	// All three touch before the authority hears from anyone.
	for _, id := range []uint{1, 2, 3} {
		require.True(t, n.peers[id].touch(100))
	}
	n.step(0)

	winners := 0
	for _, id := range []uint{1, 2, 3} {
		if n.peers[id].local().HasPowerup() {
			winners++
			assert.True(t, n.auth.Possessing(id))
		}
	}
	assert.Equal(t, 1, winners)

	// Every participant agrees on who holds it.
	for _, viewer := range n.peers {
		for _, id := range []uint{1, 2, 3} {
			assert.Equal(t, n.auth.Possessing(id), viewer.ctrls[id].HasPowerup(), "viewer %d on player %d", viewer.id, id)
		}
	}

	// The pickup is gone; nobody can touch it again.
	for _, id := range []uint{1, 2, 3} {
		assert.False(t, n.peers[id].touch(100))
	}
}

func TestDisconnectedPossessorReleasesMirrors(t *testing.T) {
	n := newTestNet(t, 1, 2)
	n.spawnPickup(100, gamemath.Vec3{})
	require.True(t, n.peers[1].touch(100))
	n.step(0)
	require.True(t, n.peers[2].ctrls[1].HasPowerup())

	n.peers[1].sess.Close()
	n.auth.Leave(1)
	delete(n.peers, 1)
	n.step(0)

	assert.False(t, n.peers[2].ctrls[1].HasPowerup())
	assert.False(t, n.world.pickups[100])
}
