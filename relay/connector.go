package relay

import (
	"context"
	"fmt"

	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/rs/zerolog"
)

// Hosted describes an allocation this process hosts.
type Hosted struct {
	AllocationID   string
	JoinCode       string
	MaxConnections int
}

// Connector runs the host and join flows. Failures are logged and returned;
// nothing is retried.
type Connector struct {
	client         *Client
	maxConnections int
	log            zerolog.Logger
}

func NewConnector(client *Client, log zerolog.Logger) *Connector {
	return &Connector{
		client:         client,
		maxConnections: netconfig.MaxRelayConnections,
		log:            log.With().Str("component", "relay").Logger(),
	}
}

// SetMaxConnections changes the allocation size requested by CreateRelay.
func (c *Connector) SetMaxConnections(n int) { c.maxConnections = n }

func (c *Connector) ensureSignedIn(ctx context.Context) error {
	if c.client.SignedIn() {
		return nil
	}
	id, err := c.client.SignIn(ctx)
	if err != nil {
		return err
	}
	c.log.Info().Str("playerId", id).Msg("signed in")
	return nil
}

// CreateRelay allocates a session, publishes address for it and returns the
// join code to share with other players.
func (c *Connector) CreateRelay(ctx context.Context, address string) (Hosted, error) {
	if err := c.ensureSignedIn(ctx); err != nil {
		return Hosted{}, c.fail("sign in", err)
	}

	alloc, err := c.client.CreateAllocation(ctx, c.maxConnections)
	if err != nil {
		return Hosted{}, c.fail("create allocation", err)
	}

	code, err := c.client.JoinCode(ctx, alloc.AllocationID)
	if err != nil {
		return Hosted{}, c.fail("join code", err)
	}

	if err := c.client.Publish(ctx, alloc.AllocationID, address); err != nil {
		return Hosted{}, c.fail("publish", err)
	}

	c.log.Info().
		Str("allocation", alloc.AllocationID).
		Str("joinCode", code).
		Int("maxConnections", alloc.MaxConnections).
		Msg("relay created")

	return Hosted{AllocationID: alloc.AllocationID, JoinCode: code, MaxConnections: alloc.MaxConnections}, nil
}

// JoinRelay resolves a join code to the host address.
func (c *Connector) JoinRelay(ctx context.Context, joinCode string) (JoinAllocation, error) {
	if err := c.ensureSignedIn(ctx); err != nil {
		return JoinAllocation{}, c.fail("sign in", err)
	}

	c.log.Info().Str("joinCode", joinCode).Msg("joining relay")
	alloc, err := c.client.JoinAllocation(ctx, joinCode)
	if err != nil {
		return JoinAllocation{}, c.fail("join allocation", err)
	}

	c.log.Info().Str("allocation", alloc.AllocationID).Str("address", alloc.Address).Msg("relay joined")
	return alloc, nil
}

// Heartbeat keeps a hosted allocation alive.
func (c *Connector) Heartbeat(ctx context.Context, allocationID string, players int) error {
	return c.client.Heartbeat(ctx, allocationID, players)
}

func (c *Connector) fail(step string, err error) error {
	c.log.Error().Err(err).Str("step", step).Msg("relay request failed")
	return fmt.Errorf("%w: %s: %w", ErrCouldNotConnect, step, err)
}
