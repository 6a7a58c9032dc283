package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/gatherdesk/internal/auth"
	"github.com/geocoder89/gatherdesk/internal/cache"
	"github.com/geocoder89/gatherdesk/internal/config"
	"github.com/geocoder89/gatherdesk/internal/engine"
	"github.com/geocoder89/gatherdesk/internal/http/handlers"
	"github.com/geocoder89/gatherdesk/internal/http/middlewares"
	"github.com/geocoder89/gatherdesk/internal/moderation"
	"github.com/geocoder89/gatherdesk/internal/observability"
	"github.com/geocoder89/gatherdesk/internal/repo/docstore"
	"github.com/geocoder89/gatherdesk/internal/store"
)

// Deps carries everything the router wires together. The gateway is the one
// external collaborator; every repo and service hangs off it.
type Deps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Gw       store.Gateway
	Prom     *observability.Prom
	Registry *prometheus.Registry
	Ping     func() error
}

func NewRouter(d Deps) *gin.Engine {
	if d.Cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(nil))
	if d.Cfg.TracingEnabled {
		r.Use(otelgin.Middleware("gatherdesk-api"))
	}
	if d.Prom != nil {
		r.Use(d.Prom.HTTPMiddleware())
	}

	// health
	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// wire up repositories over the document store gateway
	colls := docstore.NewCollections(d.Cfg.Tenant)
	eventsRepo := docstore.NewEventsRepo(d.Gw, colls, d.Prom)
	regsRepo := docstore.NewRegistrationsRepo(d.Gw, colls, d.Prom)
	profilesRepo := docstore.NewProfilesRepo(d.Gw, colls, d.Prom)

	eng := engine.New(eventsRepo, regsRepo, d.Log, d.Prom)
	sm := moderation.New(eventsRepo, profilesRepo, d.Log, d.Prom)

	// the list cache holds the raw event list; any write path and the
	// change feed both invalidate it
	listCache := cache.New(30 * time.Second)
	go invalidateOnChanges(d.Log, eventsRepo, listCache)

	jwt := auth.NewManager(d.Cfg.JWTSecret, d.Cfg.AccessTTL)

	authHandler := handlers.NewAuthHandler(profilesRepo, jwt)
	eventsHandler := handlers.NewEventsHandler(eventsRepo, profilesRepo, listCache)
	registrationHandler := handlers.NewRegistrationsHandler(eng, regsRepo, listCache)
	moderationHandler := handlers.NewModerationHandler(sm, listCache)
	watchHandler := handlers.NewWatchHandler(eventsRepo, profilesRepo)

	authMW := middlewares.NewAuthMiddleware(jwt)

	// auth endpoints get a tighter rate limit than the rest
	loginLimiter := middlewares.NewRateLimiter(10, time.Minute)

	r.POST("/auth/signup", loginLimiter.Middleware(clientIP), authHandler.SignUp)
	r.POST("/auth/login", loginLimiter.Middleware(clientIP), authHandler.Login)

	authed := r.Group("/", authMW.RequireAuth())

	authed.GET("/me", authHandler.Me)
	authed.GET("/me/registrations", registrationHandler.ListMine)

	authed.POST("/events", eventsHandler.Create)
	authed.GET("/events", eventsHandler.List)
	authed.GET("/events/watch", watchHandler.Stream)
	authed.GET("/events/:id", eventsHandler.Get)
	authed.PUT("/events/:id", eventsHandler.Update)
	authed.DELETE("/events/:id", eventsHandler.Delete)

	// event registration routes
	authed.POST("/events/:id/register", registrationHandler.Register)
	authed.DELETE("/events/:id/register", registrationHandler.Cancel)

	// moderation; admin status is checked against the stored profile
	// inside the state machine, not here
	authed.POST("/admin/events/:id/approve", moderationHandler.Approve)
	authed.POST("/admin/events/:id/reject", moderationHandler.Reject)

	return r
}

func clientIP(c *gin.Context) string {
	return c.ClientIP()
}

// invalidateOnChanges drops the cached event list whenever the store commits
// a change to the event collection, so the next List re-reads fresh state.
func invalidateOnChanges(log *slog.Logger, repo *docstore.EventsRepo, c *cache.Cache) {
	sub, err := repo.Watch(context.Background())
	if err != nil {
		log.Warn("event change feed unavailable, list cache falls back to TTL", "err", err)
		return
	}
	defer sub.Unsubscribe()

	for range sub.Snapshots() {
		c.Clear()
	}
}
