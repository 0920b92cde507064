package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"invoice-recon/internal/config"
	"invoice-recon/internal/reconcile/service"
	"invoice-recon/internal/storage"
	serverhttp "invoice-recon/server/http"
)

func main() {
	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		runtime.GOMAXPROCS(runtime.NumCPU())
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := config.SetupLogger(cfg)

	store, err := storage.NewStore(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("db", cfg.DBPath).Msg("open store")
	}
	defer func() { _ = store.Close() }()

	// настройки в БД перекрывают конфиг и перечитываются на каждую сверку
	defaults := cfg.MatchDefaults()
	svc := service.New(store, store, defaults, logger).WithSettings(store)

	r := serverhttp.NewRouter(cfg, logger, svc, store)

	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	logger.Info().
		Str("addr", cfg.Addr()).
		Str("db", cfg.DBPath).
		Float64("tolerance_amount", defaults.ToleranceAmount).
		Float64("tolerance_percentage", defaults.TolerancePercentage).
		Float64("name_threshold", defaults.NameSimilarityThreshold).
		Msg("server starting (config defaults)")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info().Msg("bye")
}
