package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/frameroom/internal/admin"
	"github.com/dkeye/frameroom/internal/config"
	"github.com/dkeye/frameroom/internal/handlers"
	"github.com/dkeye/frameroom/internal/persistence"
	"github.com/dkeye/frameroom/internal/store"
	"github.com/dkeye/frameroom/internal/ws"
	"github.com/gin-gonic/gin"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	layout := persistence.NewLayout(cfg.DataDir)
	s, err := store.New(cfg, layout)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}

	hub := ws.NewHub()
	handlers.Register(hub, &handlers.Deps{Store: s, Hub: hub, Config: cfg})
	adminHandler := admin.New(s, hub, cfg)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", hub.ServeUpgrade)
	adminHandler.Register(r)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go s.RunEvictionLoop(ctx)
	go s.RunBackupLoop(ctx)
	go s.RunRateLimitSweepLoop(ctx)

	go func() {
		log.Info().Str("addr", addr).Str("dataDir", cfg.DataDir).Msg("frameroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := s.ForceBackup(); err != nil {
		log.Error().Err(err).Msg("final backup failed")
	}

	log.Info().Msg("server exited gracefully")
}
