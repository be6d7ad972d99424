package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/pkg/profile"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tilecraft/slide/bot"
	"github.com/tilecraft/slide/config"
	"github.com/tilecraft/slide/search"
)

func main() {
	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Info().Msgf("Loaded config: %v", cfg.SanitizedSettings())

	// the profile is written into the directory holding cpu-profile.
	if path := cfg.GetString(config.ConfigCPUProfile); path != "" {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(filepath.Dir(path)), profile.NoShutdownHook).Stop()
	}

	nc, err := nats.Connect(cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().Err(err).Msg("nats-connect")
	}
	defer nc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		// We received an interrupt signal, shut down.
		log.Info().Msg("got quit signal...")
		cancel()
	}()

	b := bot.NewBot(search.NewLocal(cfg.SearchOptions()), cfg.GetDuration(config.ConfigBotTimeout))
	if err := b.Serve(ctx, nc, cfg.GetString(config.ConfigBotSubject)); err != nil {
		log.Err(err).Msg("bot-serve")
	}
	log.Info().Msg("bot gracefully shutting down")
}
