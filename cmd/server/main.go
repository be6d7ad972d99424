package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tilecraft/slide/autoplay"
	"github.com/tilecraft/slide/bot"
	"github.com/tilecraft/slide/config"
	"github.com/tilecraft/slide/game"
	"github.com/tilecraft/slide/mechanics"
	"github.com/tilecraft/slide/search"
	"github.com/tilecraft/slide/server"
	"github.com/tilecraft/slide/store"
)

const (
	GracefulShutdownTimeout = 20 * time.Second
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, cfg.GetString(config.ConfigDBPath))
	if err != nil {
		log.Fatal().Err(err).Msg("store-open")
	}
	defer st.Close()

	local := search.NewLocal(cfg.SearchOptions())
	var mover autoplay.Mover = local
	if cfg.GetBool(config.ConfigRemoteSearch) {
		nc, err := nats.Connect(cfg.GetString(config.ConfigNatsURL))
		if err != nil {
			log.Fatal().Err(err).Msg("nats-connect")
		}
		defer nc.Close()
		mover = bot.NewClient(nc, cfg.GetString(config.ConfigBotSubject),
			cfg.GetDuration(config.ConfigBotTimeout), uint(cfg.GetInt(config.ConfigBotAttempts)))
	}

	g := game.New(cfg.GameSettings(), mechanics.NewSource(cfg.GetInt64(config.ConfigSeed)), st)
	defer g.Close()
	g.NewGame(ctx)

	srv := server.New(server.Options{
		Game:        g,
		Mover:       mover,
		Searcher:    local,
		MoveTimeout: cfg.GetDuration(config.ConfigBotTimeout),
		Store:       st,
		Search:      cfg.SearchOptions(),
	})
	defer srv.Close()
	go srv.Run(ctx)

	hs := &http.Server{
		Addr:    cfg.GetString(config.ConfigListenAddr),
		Handler: srv.Routes(),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()
	log.Info().Str("addr", hs.Addr).Msg("server-listening")

	sigCtx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	select {
	case <-sigCtx.Done():
		log.Info().Msg("got quit signal...")
	case err, ok := <-serverErrCh:
		if ok {
			log.Err(err).Msg("server-error")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
	defer cancelShutdown()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		log.Err(err).Msg("graceful-shutdown-failed")
	}
	log.Info().Msg("server gracefully shutting down")
}
