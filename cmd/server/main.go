package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/auralabs/voicelink/internal/adapters/http"
	"github.com/auralabs/voicelink/internal/app"
	"github.com/auralabs/voicelink/internal/app/relay"
	"github.com/auralabs/voicelink/internal/app/token"
	"github.com/auralabs/voicelink/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	registry := app.NewRegistry()
	directory := app.NewDirectory()
	engine := relay.NewEngine(registry, cfg.SampleRate, cfg.Channels)
	tokens := token.NewIssuer(cfg.TokenTTL)

	orch := &app.Orchestrator{
		Registry:     registry,
		Directory:    directory,
		Relay:        engine,
		Policy:       app.DropPolicy{},
		AllowUnbound: cfg.AllowUnbound,
	}
	if cfg.AllowUnbound {
		log.Warn().Msg("broadcast fallback enabled: unbound connections relay to every open connection")
	}

	r := router.SetupRouter(ctx, cfg, orch, tokens)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("voicelink server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
