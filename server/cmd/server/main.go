package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MekelWibi/SumoProjectKP/assets"
	"github.com/MekelWibi/SumoProjectKP/config"
	"github.com/MekelWibi/SumoProjectKP/logging"
	"github.com/MekelWibi/SumoProjectKP/server/core"
)

func main() {
	configDir := flag.String("config", ".", "Directory containing "+config.ServerFile)
	port := flag.Uint("port", 0, "Server port (overrides config)")
	tickRate := flag.Int("tickrate", 0, "Server tick rate in updates per second (overrides config)")
	name := flag.String("name", "", "Server display name (overrides config)")
	version := flag.String("version", "", "Required client version (overrides config)")
	arenaName := flag.String("arena", "", "Arena to load (overrides config)")
	relayURL := flag.String("relay", "", "Relay broker URL; registers the server and logs a join code")
	public := flag.String("public", "", "Address published to the relay (host:port)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "env: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadServer(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *tickRate != 0 {
		cfg.TickRate = *tickRate
	}
	if *name != "" {
		cfg.Name = *name
	}
	if *version != "" {
		cfg.Version = *version
	}
	if *arenaName != "" {
		cfg.Arena = *arenaName
	}
	if *relayURL != "" {
		cfg.RelayURL = *relayURL
	}
	if *public != "" {
		cfg.PublicAddress = *public
	}

	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := core.Run(ctx, cfg, assets.ArenaFS(), assets.ArenaDir, log); err != nil {
		log.Error().Err(err).Msg("server error")
		closer.Close()
		os.Exit(1)
	}
}
