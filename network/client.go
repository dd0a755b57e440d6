package network

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/esync"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/rs/zerolog"
)

const eventQueueSize = 256

// ErrNotConnected is returned by SendMessage before the socket is up.
var ErrNotConnected = errors.New("not connected")

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateJoinedGame
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateJoinedGame:
		return "joined"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Client manages a WebSocket connection to the authority.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	mu sync.RWMutex

	state      ClientState
	lastError  error
	networkID  esync.NetworkId
	serverName string
	tickRate   int
	arena      string
	conn       *websocket.Conn

	snapshotCh chan esync.WorldSnapshot // size-1 buffered; latest wins

	// Authority broadcasts in arrival order, drained once per tick.
	eventCh chan messages.Broadcast

	log zerolog.Logger
}

func NewClient(log zerolog.Logger) *Client {
	return &Client{
		state:      StateDisconnected,
		snapshotCh: make(chan esync.WorldSnapshot, 1),
		eventCh:    make(chan messages.Broadcast, eventQueueSize),
		log:        log.With().Str("component", "client").Logger(),
	}
}

// Connect dials the authority in a background goroutine and sends join once
// the socket is open.
func (c *Client) Connect(address string, join messages.JoinRequest) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		c.log.Info().Str("address", address).Msg("connected to server")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()

		if err := c.SendMessage(join); err != nil {
			c.setError(fmt.Errorf("failed to send join request: %w", err))
		}
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinAccepted) {
		c.onJoinAccepted(msg)
	})

	router.On(func(_ *router.NetworkClient, msg messages.JoinRejected) {
		c.onJoinRejected(msg)
	})

	router.On(func(_ *router.NetworkClient, snapshot esync.WorldSnapshot) {
		c.onSnapshot(snapshot)
	})

	router.On(func(_ *router.NetworkClient, ev messages.PowerupStatusEvent) { c.pushEvent(ev) })
	router.On(func(_ *router.NetworkClient, ev messages.IndicatorEvent) { c.pushEvent(ev) })
	router.On(func(_ *router.NetworkClient, ev messages.ImpulseEvent) { c.pushEvent(ev) })
	router.On(func(_ *router.NetworkClient, ev messages.PickupSpawnEvent) { c.pushEvent(ev) })
	router.On(func(_ *router.NetworkClient, ev messages.PickupDespawnEvent) { c.pushEvent(ev) })
	router.On(func(_ *router.NetworkClient, ev messages.PlayerLeftEvent) { c.pushEvent(ev) })

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		c.onDisconnect(err)
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		c.log.Warn().Err(err).Msg("router error")
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) onJoinAccepted(msg messages.JoinAccepted) {
	c.log.Info().
		Uint("networkId", uint(msg.NetworkID)).
		Str("server", msg.ServerName).
		Int("tickRate", msg.TickRate).
		Str("arena", msg.Arena).
		Msg("join accepted")

	c.mu.Lock()
	c.networkID = msg.NetworkID
	c.serverName = msg.ServerName
	c.tickRate = msg.TickRate
	c.arena = msg.Arena
	c.state = StateJoinedGame
	c.mu.Unlock()
}

func (c *Client) onJoinRejected(msg messages.JoinRejected) {
	c.log.Warn().Str("reason", msg.Reason).Msg("join rejected")
	c.setError(fmt.Errorf("join rejected: %s", msg.Reason))
}

func (c *Client) onSnapshot(snapshot esync.WorldSnapshot) {
	select { // drain stale, push latest
	case <-c.snapshotCh:
	default:
	}
	c.snapshotCh <- snapshot
}

func (c *Client) onDisconnect(err error) {
	c.log.Info().Err(err).Msg("disconnected")
	c.mu.Lock()
	if c.state != StateError {
		c.state = StateDisconnected
	}
	c.conn = nil
	c.mu.Unlock()
}

// pushEvent queues a broadcast. A full queue means the tick loop has stalled;
// the event is dropped and the next status broadcast heals the mirror.
func (c *Client) pushEvent(ev messages.Broadcast) {
	select {
	case c.eventCh <- ev:
	default:
		c.log.Warn().Str("kind", ev.Kind().String()).Msg("event queue full, dropping")
	}
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

func (c *Client) NetworkID() esync.NetworkId {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.networkID
}

func (c *Client) Arena() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.arena
}

func (c *Client) TickRate() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tickRate
}

// LatestSnapshot returns the most recent WorldSnapshot, or nil. Non-blocking.
func (c *Client) LatestSnapshot() *esync.WorldSnapshot {
	select {
	case snap := <-c.snapshotCh:
		return &snap
	default:
		return nil
	}
}

// DrainEvents returns all pending broadcasts in arrival order, non-blocking.
func (c *Client) DrainEvents() []messages.Broadcast {
	var out []messages.Broadcast
	for {
		select {
		case ev := <-c.eventCh:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// SendMessage serializes msg with the necs router codec and writes it to the
// socket. It satisfies session.Sender.
func (c *Client) SendMessage(msg any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(msg)
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) setError(err error) {
	c.log.Error().Err(err).Msg("client error")
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}
