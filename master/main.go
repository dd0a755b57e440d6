// Command master is the relay broker: hosts allocate a session slot and get a
// join code, participants trade the code for the host's address.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MekelWibi/SumoProjectKP/config"
	"github.com/MekelWibi/SumoProjectKP/logging"
)

func main() {
	configDir := flag.String("config", ".", "Directory containing "+config.RelayFile)
	listen := flag.String("listen", "", "HTTP listen address (overrides config)")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "env: %v\n", err)
		os.Exit(1)
	}
	cfg, err := config.LoadRelay(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	log, closer, err := logging.New(logging.Options{Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	log = logging.Component(log, "master")

	db, err := openDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}

	reg := NewRegistry(db, cfg.AllocationTTL, cfg.MaxConnections, log)
	reg.Start(cfg.CleanupInterval)
	defer reg.Stop()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           newRouter(reg, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().
		Str("addr", cfg.Listen).
		Dur("ttl", cfg.AllocationTTL).
		Int("maxConnections", cfg.MaxConnections).
		Msg("relay broker starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("relay broker stopped")
		reg.Stop()
		closer.Close()
		os.Exit(1)
	}
	log.Info().Msg("relay broker stopped")
}
