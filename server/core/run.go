package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/MekelWibi/SumoProjectKP/config"
	"github.com/MekelWibi/SumoProjectKP/powerup"
	"github.com/MekelWibi/SumoProjectKP/relay"
	"github.com/MekelWibi/SumoProjectKP/shared/protocol"
	"github.com/rs/zerolog"
)

// ConfigFrom maps the loaded server config onto the authority's tunables.
func ConfigFrom(c config.Server) Config {
	cfg := DefaultConfig()
	cfg.TickRate = c.TickRate
	cfg.Name = c.Name
	cfg.Version = c.Version
	cfg.MaxPlayers = c.MaxPlayers
	cfg.PickupInterval = c.PickupInterval
	cfg.MaxPickups = c.MaxPickups
	cfg.LeaseGrace = c.LeaseGrace
	cfg.Tuning = powerup.Tuning{
		Duration: c.PowerupDuration,
		Strong:   c.PowerupStrength,
		Weak:     c.NormalStrength,
	}
	return cfg
}

// Run serves one session until ctx is cancelled or the transport fails. When
// c.RelayURL is set the server registers with the relay broker and logs the
// join code; a failed registration is logged and the server keeps running
// for direct connections.
func Run(ctx context.Context, c config.Server, arenas fs.FS, arenaDir string, log zerolog.Logger) error {
	if err := protocol.RegisterComponents(); err != nil {
		return fmt.Errorf("register components: %w", err)
	}

	a, err := LoadServerArena(arenas, arenaDir, c.Arena, log)
	if err != nil {
		return err
	}

	s, err := NewServer(ConfigFrom(c), a, log)
	if err != nil {
		return err
	}
	s.StartPickupRoutine()

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start(c.Port) }()

	log.Info().
		Str("name", c.Name).
		Uint("port", c.Port).
		Int("tickRate", c.TickRate).
		Str("version", c.Version).
		Str("arena", c.Arena).
		Msg("server started")

	if c.RelayURL != "" {
		reg := register(ctx, c, s, log)
		if reg != nil {
			defer reg.Stop()
		}
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("transport: %w", err)
		}
		return nil
	}
}

func register(ctx context.Context, c config.Server, players PlayerCounter, log zerolog.Logger) *Registration {
	address := c.PublicAddress
	if address == "" {
		address = fmt.Sprintf("127.0.0.1:%d", c.Port)
		log.Warn().Str("address", address).Msg("no public address configured, publishing loopback")
	}

	connector := relay.NewConnector(relay.NewClient(c.RelayURL), log)
	connector.SetMaxConnections(c.MaxPlayers)

	reg := NewRegistration(connector, address, players, c.HeartbeatInterval, log)
	if err := reg.Start(ctx); err != nil {
		log.Error().Err(err).Msg("relay registration failed, accepting direct connections only")
		return nil
	}
	log.Info().Str("joinCode", reg.JoinCode()).Msg("share this join code with other players")
	return reg
}
