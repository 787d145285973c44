package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/cutroom/cutroom-backend/config"
	"github.com/cutroom/cutroom-backend/internal/bootstrap"
	"github.com/cutroom/cutroom-backend/internal/logging"
	"github.com/cutroom/cutroom-backend/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Setup(cfg.App.LogLevel, cfg.App.Environment)
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open stores")
	}
	defer stores.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	services := bootstrap.BuildServices(stores, cfg, m)

	app, err := bootstrap.FirebaseApp(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize firebase")
	}
	verifier, err := bootstrap.BuildVerifier(ctx, cfg, app)
	if err != nil {
		log.Fatal().Err(err).Msg("build verifier")
	}
	blobs, err := bootstrap.BuildBlobStore(ctx, cfg, app)
	if err != nil {
		log.Fatal().Err(err).Msg("build blob store")
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		Config:   cfg,
		Services: services,
		Verifier: verifier,
		Blobs:    blobs,
		Metrics:  m,
		Gatherer: prometheus.DefaultGatherer,
		Stores:   stores,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.App.Environment).Str("project_store", cfg.Projects.Store).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
