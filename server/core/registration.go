package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MekelWibi/SumoProjectKP/relay"
	"github.com/rs/zerolog"
)

// RelayHost is the part of relay.Connector the registration uses.
type RelayHost interface {
	CreateRelay(ctx context.Context, address string) (relay.Hosted, error)
	Heartbeat(ctx context.Context, allocationID string, players int) error
}

// PlayerCounter reports how many players are in the session.
type PlayerCounter interface {
	PlayerCount() int
}

// Registration publishes this authority through the relay broker and keeps
// the allocation alive with heartbeats.
type Registration struct {
	host     RelayHost
	address  string
	players  PlayerCounter
	interval time.Duration
	log      zerolog.Logger

	mu     sync.RWMutex
	hosted relay.Hosted

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewRegistration(host RelayHost, address string, players PlayerCounter, interval time.Duration, log zerolog.Logger) *Registration {
	return &Registration{
		host:     host,
		address:  address,
		players:  players,
		interval: interval,
		log:      log.With().Str("component", "registration").Logger(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start creates the allocation and begins heartbeating. A failed initial
// registration is returned; the caller decides whether to run without relay.
func (r *Registration) Start(ctx context.Context) error {
	if err := r.register(ctx); err != nil {
		close(r.doneCh)
		return err
	}
	go r.heartbeatLoop()
	return nil
}

// Stop ends the heartbeat loop.
func (r *Registration) Stop() {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
	<-r.doneCh
}

// JoinCode returns the code participants enter to join, or "" before Start.
func (r *Registration) JoinCode() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hosted.JoinCode
}

// AllocationID returns the current allocation id.
func (r *Registration) AllocationID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hosted.AllocationID
}

func (r *Registration) register(ctx context.Context) error {
	hosted, err := r.host.CreateRelay(ctx, r.address)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.hosted = hosted
	r.mu.Unlock()

	r.log.Info().
		Str("allocation", hosted.AllocationID).
		Str("joinCode", hosted.JoinCode).
		Msg("registered with relay")
	return nil
}

func (r *Registration) heartbeatLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			if err := r.sendHeartbeat(); err != nil {
				r.log.Warn().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

func (r *Registration) sendHeartbeat() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := r.host.Heartbeat(ctx, r.AllocationID(), r.players.PlayerCount())
	if errors.Is(err, relay.ErrAllocationNotFound) {
		r.log.Warn().Msg("relay lost our allocation, re-registering")
		return r.register(ctx)
	}
	return err
}
