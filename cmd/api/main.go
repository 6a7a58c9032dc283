package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/geocoder89/gatherdesk/internal/config"
	httpx "github.com/geocoder89/gatherdesk/internal/http"
	"github.com/geocoder89/gatherdesk/internal/observability"
	"github.com/geocoder89/gatherdesk/internal/repo/docstore"
	"github.com/geocoder89/gatherdesk/internal/store"
	"github.com/geocoder89/gatherdesk/internal/store/memory"
	"github.com/geocoder89/gatherdesk/internal/store/redisstore"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)

	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(context.Background(), "gatherdesk-api", cfg.OTLPEndpoint)
		if err != nil {
			log.Error("tracer init failed", "err", err)
			os.Exit(1)
		}
		defer func() {
			ctx, cancel := config.WithTimeout(5 * time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	// pick the store backend: Redis when configured, in-process otherwise
	var gw store.Gateway
	ping := func() error { return nil }

	if cfg.RedisAddr != "" {
		rs := redisstore.New(redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		defer rs.Close()

		ctx, cancel := config.WithTimeout(3 * time.Second)
		if err := rs.Ping(ctx); err != nil {
			cancel()
			log.Error("redis connect failed", "err", err)
			os.Exit(1)
		}
		cancel()

		gw = rs
		ping = func() error {
			ctx, cancel := config.WithTimeout(1 * time.Second)
			defer cancel()
			return rs.Ping(ctx)
		}
		log.Info("using redis store", "addr", cfg.RedisAddr)
	} else {
		gw = memory.New()
		log.Info("using in-memory store")
	}

	registry := prometheus.NewRegistry()
	prom := observability.NewProm(registry)

	// seed the configured admin; every other profile starts non-admin
	{
		ctx, cancel := config.WithTimeout(5 * time.Second)
		profiles := docstore.NewProfilesRepo(gw, docstore.NewCollections(cfg.Tenant), prom)
		if err := docstore.EnsureAdminProfile(ctx, profiles, cfg); err != nil {
			log.Error("admin seed failed", "err", err)
		}
		cancel()
	}

	router := httpx.NewRouter(httpx.Deps{
		Cfg:      cfg,
		Log:      log,
		Gw:       gw,
		Prom:     prom,
		Registry: registry,
		Ping:     ping,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// no WriteTimeout: /events/watch holds its connection open
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
			return
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
