package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"powerx.io/internal/auth"
	"powerx.io/internal/config"
	"powerx.io/internal/httpapi"
	"powerx.io/internal/hvac"
	"powerx.io/internal/obs"
	"powerx.io/internal/store/memory"
	"powerx.io/internal/store/pg"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log := obs.InitLogger(obs.LogOptions{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	obs.Init()
	obs.InitBuildInfo(version, commit)

	var (
		store httpapi.Backend
		probe httpapi.ReadyProbe
	)
	if cfg.Database.DSN != "" {
		pgStore, err := pg.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer pgStore.Close()
		store, probe = pgStore, httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Warn("database.dsn is empty, using the in-memory store")
		store = memory.New()
	}

	svc, err := buildServices(cfg, store)
	if err != nil {
		log.Fatalf("wire services: %v", err)
	}
	api, err := httpapi.New(svc, probe, httpapi.Options{
		Version:       version,
		RateBurst:     cfg.RateLimit.Burst,
		RatePerSecond: cfg.RateLimit.PerSecond,
	})
	if err != nil {
		log.Fatalf("http api: %v", err)
	}
	defer api.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.WithFields(logrus.Fields{"version": version, "addr": srv.Addr}).Info("starting powerx-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("stopped")
}

func buildServices(cfg *config.Config, store httpapi.Backend) (httpapi.Services, error) {
	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		return httpapi.Services{}, err
	}
	return httpapi.NewServices(store, tokens, hvac.WithTimezoneCacheSize(cfg.HVAC.TimezoneCacheSize))
}
