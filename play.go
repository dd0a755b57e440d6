package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/MekelWibi/SumoProjectKP/assets"
	"github.com/MekelWibi/SumoProjectKP/config"
	"github.com/MekelWibi/SumoProjectKP/logging"
	"github.com/MekelWibi/SumoProjectKP/network"
	"github.com/MekelWibi/SumoProjectKP/participant"
	"github.com/MekelWibi/SumoProjectKP/powerup"
	"github.com/MekelWibi/SumoProjectKP/prefs"
	"github.com/MekelWibi/SumoProjectKP/relay"
	"github.com/MekelWibi/SumoProjectKP/shared/arena"
	"github.com/MekelWibi/SumoProjectKP/shared/messages"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
	"github.com/MekelWibi/SumoProjectKP/shared/protocol"
	"github.com/rs/zerolog"
)

const (
	defaultPlayerName = "Player"
	joinTimeout       = 10 * time.Second
	hostStartTimeout  = 5 * time.Second
)

var errNoAddress = errors.New("no server address: pass -addr, -join, or set address in " + config.ClientFile)

type playOptions struct {
	configDir  string
	host       bool
	joinCode   string
	address    string
	name       string
	difficulty participant.BotDifficulty
	seed       int64
}

// joiner resolves a relay join code; relay.Connector satisfies it.
type joiner interface {
	JoinRelay(ctx context.Context, joinCode string) (relay.JoinAllocation, error)
}

// target is where the participant connects and what it remembers about it.
type target struct {
	address  string
	joinCode string
}

// resolveTarget picks the server address: an explicit address wins, then a
// join code resolved through the relay, then the configured address.
func resolveTarget(ctx context.Context, opts playOptions, cfg config.Client, j joiner) (target, error) {
	if opts.address != "" {
		return target{address: opts.address}, nil
	}
	if opts.joinCode != "" {
		alloc, err := j.JoinRelay(ctx, opts.joinCode)
		if err != nil {
			return target{}, err
		}
		return target{address: alloc.Address, joinCode: opts.joinCode}, nil
	}
	if cfg.Address != "" {
		return target{address: cfg.Address}, nil
	}
	return target{}, errNoAddress
}

// playerName prefers the flag, then config, then the remembered name.
func playerName(flagName string, cfg config.Client, saved prefs.Saved) string {
	for _, n := range []string{flagName, cfg.PlayerName, saved.PlayerName} {
		if n != "" {
			return n
		}
	}
	return defaultPlayerName
}

// hostArgs are the arguments that re-run this binary as the authority.
func hostArgs(configDir string, port uint) []string {
	return []string{"-mode", netconfig.ModeServer.String(), "-config", configDir, "-port", strconv.FormatUint(uint64(port), 10)}
}

func runParticipant(ctx context.Context, opts playOptions) error {
	cfg, err := config.LoadClient(opts.configDir)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer closer.Close()

	if err := protocol.RegisterComponents(); err != nil {
		return fmt.Errorf("register components: %w", err)
	}

	store, _ := prefs.Open(log)
	saved := store.Load()
	name := playerName(opts.name, cfg, saved)

	var relayID string
	var tgt target
	if opts.host {
		stopHost, err := startHost(ctx, opts.configDir, cfg.HostPort, log)
		if err != nil {
			return err
		}
		defer stopHost()
		tgt = target{address: fmt.Sprintf("localhost:%d", cfg.HostPort)}
	} else {
		client := relay.NewClient(cfg.RelayURL)
		tgt, err = resolveTarget(ctx, opts, cfg, relay.NewConnector(client, log))
		if err != nil {
			return err
		}
		relayID = client.PlayerID()
	}

	_ = store.Update(func(s *prefs.Saved) {
		s.PlayerName = name
		s.LastAddress = tgt.address
		if tgt.joinCode != "" {
			s.LastJoinCode = tgt.joinCode
		}
	})

	conn := network.NewClient(log)
	conn.Connect(tgt.address, messages.JoinRequest{Version: cfg.Version, PlayerName: name, PlayerID: relayID})
	defer conn.Disconnect()

	if err := waitForJoin(ctx, conn); err != nil {
		return err
	}

	data, err := arenaByName(conn.Arena())
	if err != nil {
		return err
	}

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return play(ctx, conn, data, participant.NewBot(opts.difficulty, data.Width, data.Height, seed), log)
}

// startHost launches this binary as the authority and waits until it accepts
// connections. The returned func stops it.
func startHost(ctx context.Context, configDir string, port uint, log zerolog.Logger) (func(), error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("find executable: %w", err)
	}

	cmd := exec.Command(exe, hostArgs(configDir, port)...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start host server: %w", err)
	}
	log.Info().Int("pid", cmd.Process.Pid).Uint("port", port).Msg("host server started")

	stop := func() {
		_ = cmd.Process.Signal(os.Interrupt)
		if err := cmd.Wait(); err != nil {
			log.Warn().Err(err).Msg("host server exited")
		}
	}

	addr := fmt.Sprintf("localhost:%d", port)
	deadline := time.Now().Add(hostStartTimeout)
	for {
		conn, err := net.DialTimeout("tcp", addr, 250*time.Millisecond)
		if err == nil {
			conn.Close()
			return stop, nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			stop()
			return nil, fmt.Errorf("host server not reachable at %s: %w", addr, err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func waitForJoin(ctx context.Context, c *network.Client) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(joinTimeout)

	for {
		switch c.State() {
		case network.StateJoinedGame:
			return nil
		case network.StateError:
			return fmt.Errorf("join: %w", c.LastError())
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return fmt.Errorf("join: no answer from server after %s", joinTimeout)
		case <-ticker.C:
		}
	}
}

func arenaByName(name string) (*arena.Data, error) {
	arenas, _, err := assets.LoadArenas()
	if err != nil {
		return nil, fmt.Errorf("load arenas: %w", err)
	}
	if a, ok := arenas[name]; ok {
		return a, nil
	}
	if a, ok := arenas[assets.DefaultArena]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("unknown arena %q", name)
}

// play runs the participant at the server's tick rate until ctx ends or the
// connection drops.
func play(ctx context.Context, conn *network.Client, data *arena.Data, bot *participant.Bot, log zerolog.Logger) error {
	p := participant.New(conn, data, powerup.DefaultTuning(), log)
	p.Start()
	defer p.Close()

	rate := conn.TickRate()
	if rate <= 0 {
		rate = netconfig.DefaultTickRate
	}
	dt := time.Second / time.Duration(rate)
	ticker := time.NewTicker(dt)
	defer ticker.Stop()

	log.Info().Str("arena", data.Name).Int("tickRate", rate).Msg("playing")

	powered := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		switch conn.State() {
		case network.StateDisconnected:
			log.Info().Msg("server closed the connection")
			return nil
		case network.StateError:
			return fmt.Errorf("connection lost: %w", conn.LastError())
		}

		c, ok := p.Controller(p.LocalID())
		now := ok && c.HasPowerup()
		if now != powered {
			log.Info().Bool("powered", now).Msg("power-up changed")
			powered = now
		}

		p.Update(dt, bot.Input(p.Position(), powered, p.Pickups(), p.Opponents()))
	}
}
