package core

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MekelWibi/SumoProjectKP/powerup"
	"github.com/MekelWibi/SumoProjectKP/session"
	"github.com/MekelWibi/SumoProjectKP/shared/gamemath"
	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/MekelWibi/SumoProjectKP/shared/netcomponents"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/esync/srvsync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"
	"github.com/yohamta/donburi"
)

const commandQueueSize = 1024

// Config holds the authority's tunables.
type Config struct {
	TickRate       int
	Name           string
	Version        string // Required participant version, empty accepts any
	MaxPlayers     int
	PickupInterval time.Duration
	MaxPickups     int
	LeaseGrace     time.Duration
	Tuning         powerup.Tuning
}

func DefaultConfig() Config {
	return Config{
		TickRate:       netconfig.DefaultTickRate,
		Name:           "Sumo Server",
		MaxPlayers:     netconfig.MaxRelayConnections,
		PickupInterval: netconfig.PickupRespawnInterval,
		MaxPickups:     netconfig.MaxActivePickups,
		LeaseGrace:     netconfig.PossessionLeaseGrace,
		Tuning:         powerup.DefaultTuning(),
	}
}

// Peer is one participant connection. *router.NetworkClient satisfies it.
type Peer interface {
	Id() string
	SendMessage(msg any) error
}

type peer struct {
	client   Peer
	joined   bool
	name     string
	playerID uint
	entity   donburi.Entity
	body     *PlayerBody
}

// Server is the authority process: it owns the replicated world, runs the
// physics, and arbitrates power-up possession.
type Server struct {
	cfg       Config
	world     donburi.World
	loop      *GameLoop
	transport *transports.WsServerTransport
	arena     *ServerArena
	sess      *session.Session
	auth      *powerup.Authority
	log       zerolog.Logger

	// Router callbacks run on necs goroutines; they only enqueue work that
	// the game loop executes.
	commands chan func()

	// Written on the game loop only; mu guards reads from other goroutines.
	mu       sync.RWMutex
	peers    map[string]*peer
	byPlayer map[uint]*peer

	pickups       map[uint]*pickup
	pickupRoutine bool
	joinCount     int
}

// NewServer creates an authority for the given arena.
func NewServer(cfg Config, a *ServerArena, log zerolog.Logger) (*Server, error) {
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("invalid tick rate %d", cfg.TickRate)
	}

	world := donburi.NewWorld()
	log = log.With().Str("component", "server").Logger()

	s := &Server{
		cfg:      cfg,
		world:    world,
		arena:    a,
		log:      log,
		sess:     session.New(netconfig.RoleAuthority, nil, log),
		commands: make(chan func(), commandQueueSize),
		peers:    make(map[string]*peer),
		byPlayer: make(map[uint]*peer),
		pickups:  make(map[uint]*pickup),
	}

	m, err := powerup.NewMetrics(powerup.Meter())
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	s.auth = powerup.NewAuthority(s.sess, s, s, cfg.Tuning, m)
	s.auth.SetLeaseGrace(cfg.LeaseGrace)
	s.loop = NewGameLoop(s, cfg.TickRate)

	// Set up the world for esync
	srvsync.UseEsync(world)

	return s, nil
}

// Start begins the game loop and serves websocket connections on port. It
// blocks until the transport stops.
func (s *Server) Start(port uint) error {
	s.setupRouterCallbacks()
	s.sess.Start()

	go s.loop.Run()

	s.transport = transports.NewWsServerTransport(port, "", nil)
	return s.transport.Start()
}

// Stop ends the game loop and tears down the session.
func (s *Server) Stop() {
	s.loop.Stop()
	s.sess.Close()
}

func (s *Server) setupRouterCallbacks() {
	router.OnConnect(func(client *router.NetworkClient) {
		s.enqueue(func() { s.onConnect(client) })
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		id := client.Id()
		s.enqueue(func() { s.onDisconnect(id, err) })
	})

	router.On(func(client *router.NetworkClient, req messages.JoinRequest) {
		s.enqueue(func() { s.onJoin(client, req) })
	})

	router.On(func(client *router.NetworkClient, input messages.PlayerInput) {
		id := client.Id()
		s.enqueue(func() { s.onPlayerInput(id, input) })
	})

	router.On(func(client *router.NetworkClient, req messages.DespawnPickupRequest) {
		s.submit(client.Id(), req)
	})
	router.On(func(client *router.NetworkClient, req messages.PowerupStatusRequest) {
		s.submit(client.Id(), req)
	})
	router.On(func(client *router.NetworkClient, req messages.IndicatorSyncRequest) {
		s.submit(client.Id(), req)
	})
	router.On(func(client *router.NetworkClient, req messages.CollisionForceRequest) {
		s.submit(client.Id(), req)
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		s.log.Warn().Err(err).Str("client", client.Id()).Msg("client error")
	})
}

func (s *Server) enqueue(fn func()) {
	select {
	case s.commands <- fn:
	default:
		s.log.Warn().Msg("command queue full, dropping")
	}
}

// ProcessCommands runs everything the router callbacks queued since the last
// tick, in arrival order.
func (s *Server) ProcessCommands() {
	for {
		select {
		case fn := <-s.commands:
			fn()
		default:
			return
		}
	}
}

// step advances the authority by one tick.
func (s *Server) step(dt time.Duration) {
	s.ProcessCommands()
	s.auth.ProcessInbox()
	s.updatePhysics(dt)
	s.sess.Tick(dt)
}

func (s *Server) submit(connID string, req messages.Request) {
	s.enqueue(func() {
		p, ok := s.peers[connID]
		if !ok || !p.joined {
			s.log.Debug().Str("client", connID).Str("kind", req.Kind().String()).Msg("request before join dropped")
			return
		}
		s.auth.Submit(p.playerID, req)
	})
}

func (s *Server) onConnect(client Peer) {
	s.mu.Lock()
	if _, ok := s.peers[client.Id()]; !ok {
		s.peers[client.Id()] = &peer{client: client}
	}
	s.mu.Unlock()
	s.log.Info().Str("client", client.Id()).Msg("client connected")
}

func (s *Server) onJoin(client Peer, req messages.JoinRequest) {
	s.mu.RLock()
	p, ok := s.peers[client.Id()]
	s.mu.RUnlock()
	if !ok {
		s.onConnect(client)
		p = s.peers[client.Id()]
	}
	if p.joined {
		return
	}

	if s.cfg.Version != "" && req.Version != s.cfg.Version {
		s.reject(client, fmt.Sprintf("version mismatch: server %s, client %s", s.cfg.Version, req.Version))
		return
	}
	if s.cfg.MaxPlayers > 0 && len(s.byPlayer) >= s.cfg.MaxPlayers {
		s.reject(client, "server full")
		return
	}

	spawn := s.arena.PlayerSpawn(s.joinCount)
	s.joinCount++

	name := req.PlayerName
	if name == "" {
		name = fmt.Sprintf("Player %d", s.joinCount)
	}

	entity := s.world.Create(
		netcomponents.NetPosition,
		netcomponents.NetVelocity,
		netcomponents.NetPlayerState,
	)
	entry := s.world.Entry(entity)
	netcomponents.NetPosition.Set(entry, &netcomponents.NetPositionData{X: spawn.X, Y: spawn.Y, Z: spawn.Z})
	netcomponents.NetVelocity.Set(entry, &netcomponents.NetVelocityData{})
	netcomponents.NetPlayerState.Set(entry, &netcomponents.NetPlayerStateData{Name: name})

	// Mark entity for network sync with interpolation for position
	err := srvsync.NetworkSync(s.world, &entity,
		srvsync.WithInterp(netcomponents.NetPosition, netcomponents.NetVelocity),
		netcomponents.NetPlayerState,
	)
	if err != nil {
		s.log.Error().Err(err).Str("client", client.Id()).Msg("failed to set up network sync for player")
		s.world.Remove(entity)
		s.reject(client, "internal error")
		return
	}

	nid := esync.GetNetworkId(s.world.Entry(entity))
	if nid == nil {
		s.log.Error().Str("client", client.Id()).Msg("player entity has no network id")
		s.world.Remove(entity)
		s.reject(client, "internal error")
		return
	}

	s.mu.Lock()
	p.joined = true
	p.name = name
	p.playerID = uint(*nid)
	p.entity = entity
	p.body = newPlayerBody(s.arena, spawn)
	s.byPlayer[p.playerID] = p
	s.mu.Unlock()

	if err := client.SendMessage(messages.JoinAccepted{
		NetworkID:  *nid,
		ServerName: s.cfg.Name,
		TickRate:   s.cfg.TickRate,
		Arena:      s.arena.Data.Name,
	}); err != nil {
		s.log.Warn().Err(err).Str("client", client.Id()).Msg("failed to send join accept")
	}

	s.sendPickups(p.playerID)
	s.auth.Join(p.playerID)

	s.log.Info().
		Str("client", client.Id()).
		Uint("player", p.playerID).
		Str("name", name).
		Msg("player joined")
}

func (s *Server) reject(client Peer, reason string) {
	s.log.Info().Str("client", client.Id()).Str("reason", reason).Msg("join rejected")
	if err := client.SendMessage(messages.JoinRejected{Reason: reason}); err != nil {
		s.log.Warn().Err(err).Str("client", client.Id()).Msg("failed to send join reject")
	}
}

func (s *Server) onDisconnect(connID string, err error) {
	if err != nil {
		s.log.Info().Err(err).Str("client", connID).Msg("client disconnected with error")
	} else {
		s.log.Info().Str("client", connID).Msg("client disconnected")
	}

	s.mu.Lock()
	p, ok := s.peers[connID]
	if ok {
		delete(s.peers, connID)
		if p.joined {
			delete(s.byPlayer, p.playerID)
		}
	}
	s.mu.Unlock()

	if !ok || !p.joined {
		return
	}

	removePlayerBody(s.arena, p.body)
	if s.world.Valid(p.entity) {
		s.world.Remove(p.entity)
	}
	s.auth.Leave(p.playerID)
}

func (s *Server) onPlayerInput(connID string, input messages.PlayerInput) {
	p, ok := s.peers[connID]
	if !ok || !p.joined {
		return
	}
	if input.Sequence != 0 && input.Sequence <= p.body.LastInputSeq {
		return
	}

	input.Horizontal = gamemath.ClampSpeed(input.Horizontal, 1)
	input.Forward = gamemath.ClampSpeed(input.Forward, 1)
	p.body.Input = input
	p.body.LastInputSeq = input.Sequence
}

// joinedPeers returns the players in the arena ordered by id.
func (s *Server) joinedPeers() []*peer {
	out := make([]*peer, 0, len(s.byPlayer))
	for _, p := range s.byPlayer {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].playerID < out[j].playerID })
	return out
}

// HasPlayer implements powerup.World.
func (s *Server) HasPlayer(playerID uint) bool {
	_, ok := s.byPlayer[playerID]
	return ok
}

// PlayerPosition implements powerup.World.
func (s *Server) PlayerPosition(playerID uint) (gamemath.Vec3, bool) {
	p, ok := s.byPlayer[playerID]
	if !ok {
		return gamemath.Vec3{}, false
	}
	return p.body.Position(), true
}

// ApplyImpulse implements powerup.World.
func (s *Server) ApplyImpulse(playerID uint, force gamemath.Vec3) {
	if p, ok := s.byPlayer[playerID]; ok {
		p.body.applyImpulse(force)
	}
}

// Broadcast implements powerup.Broadcaster.
func (s *Server) Broadcast(ev messages.Broadcast) {
	s.broadcast(ev)
}

// SendTo implements powerup.Broadcaster.
func (s *Server) SendTo(playerID uint, ev messages.Broadcast) {
	p, ok := s.byPlayer[playerID]
	if !ok {
		return
	}
	if err := p.client.SendMessage(ev); err != nil {
		s.log.Warn().Err(err).Uint("player", playerID).Str("kind", ev.Kind().String()).Msg("send failed")
	}
}

func (s *Server) broadcast(msg messages.Broadcast) {
	for _, p := range s.joinedPeers() {
		if err := p.client.SendMessage(msg); err != nil {
			s.log.Warn().Err(err).Uint("player", p.playerID).Str("kind", msg.Kind().String()).Msg("broadcast failed")
		}
	}
}

// World returns the ECS world
func (s *Server) World() donburi.World {
	return s.world
}

// Authority returns the possession arbiter.
func (s *Server) Authority() *powerup.Authority {
	return s.auth
}

// PlayerCount returns the number of players in the arena.
func (s *Server) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPlayer)
}
