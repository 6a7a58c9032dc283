package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/geocoder89/gatherdesk/internal/config"
	"github.com/geocoder89/gatherdesk/internal/observability"
	"github.com/geocoder89/gatherdesk/internal/reconciler"
	"github.com/geocoder89/gatherdesk/internal/repo/docstore"
	"github.com/geocoder89/gatherdesk/internal/store/redisstore"
)

// The reconciler only makes sense against a shared store; the in-process
// backend dies with the api process and has nothing to repair across runs.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	if cfg.RedisAddr == "" {
		log.Fatal("RECONCILER needs REDIS_ADDR; the in-memory store has no shared state to repair")
	}

	slogger := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	rs := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, slogger)
	defer rs.Close()

	if err := rs.Ping(ctx); err != nil {
		log.Fatalf("redis connect failed: %v", err)
	}

	prom := observability.NewProm(prometheus.NewRegistry())

	colls := docstore.NewCollections(cfg.Tenant)
	eventsRepo := docstore.NewEventsRepo(rs, colls, prom)
	regsRepo := docstore.NewRegistrationsRepo(rs, colls, prom)
	profilesRepo := docstore.NewProfilesRepo(rs, colls, prom)

	r := reconciler.New(reconciler.Config{
		Interval: cfg.ReconcileInterval,
	}, eventsRepo, regsRepo, profilesRepo, slogger, prom)

	slogger.Info("reconciler started", "interval", cfg.ReconcileInterval.String())

	if err := r.Run(ctx); err != nil {
		slogger.Error("reconciler stopped with error", "err", err)
	}

	slogger.Info("reconciler shutdown complete")
}
