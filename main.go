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
	"github.com/MekelWibi/SumoProjectKP/participant"
	"github.com/MekelWibi/SumoProjectKP/server/core"
	"github.com/MekelWibi/SumoProjectKP/shared/netconfig"
)

func main() {
	modeFlag := flag.String("mode", netconfig.ModeClient.String(), "server, host (server plus local participant) or client")
	configDir := flag.String("config", ".", "Directory containing the sumo.*.json config files")
	port := flag.Uint("port", 0, "Server port in server mode (overrides config)")
	joinCode := flag.String("join", "", "Relay join code to connect with")
	addr := flag.String("addr", "", "Direct server address (host:port), skips the relay")
	name := flag.String("name", "", "Player name, remembered between runs")
	bot := flag.String("bot", "normal", "Bot difficulty steering this participant: easy, normal or hard")
	seed := flag.Int64("seed", 0, "Bot random seed, 0 picks one")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mode, err := netconfig.ParseMode(*modeFlag)
	if err == nil {
		err = run(ctx, mode, *configDir, *port, playOptions{
			configDir: *configDir,
			joinCode:  *joinCode,
			address:   *addr,
			name:      *name,
			seed:      *seed,
		}, *bot)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *modeFlag, err)
		stop()
		os.Exit(1)
	}
}

// run starts the roles mode asks for. Host and client both run a
// participant; a host also owns the authority.
func run(ctx context.Context, mode netconfig.Mode, configDir string, port uint, opts playOptions, bot string) error {
	if !mode.Has(netconfig.RoleParticipant) {
		return runServer(ctx, configDir, port)
	}

	difficulty, err := participant.ParseBotDifficulty(bot)
	if err != nil {
		return err
	}
	opts.difficulty = difficulty
	opts.host = mode.Has(netconfig.RoleAuthority)
	return runParticipant(ctx, opts)
}

func runServer(ctx context.Context, configDir string, port uint) error {
	cfg, err := config.LoadServer(configDir)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if port != 0 {
		cfg.Port = port
	}

	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer closer.Close()

	return core.Run(ctx, cfg, assets.ArenaFS(), assets.ArenaDir, log)
}
