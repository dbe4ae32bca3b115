package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"eventsite/internal/cache"
	"eventsite/internal/config"
	"eventsite/internal/http/handlers"
	"eventsite/internal/http/middlewares"
	"eventsite/internal/notifications"
	"eventsite/internal/observability"
	"eventsite/internal/repo/memory"
	"eventsite/internal/repo/postgres"
)

// NewRouter wires the whole HTTP surface. With a nil pool the in-memory
// store backs everything, which is how DB-less dev runs and most tests
// operate.
func NewRouter(cfg config.Config, pool *pgxpool.Pool, prom *observability.Prom, metrics http.Handler) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.MaxBodyBytes(1 << 20))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
	}

	if cfg.OTELEndpoint != "" {
		r.Use(otelgin.Middleware("eventsite"))
	}

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	// wire up repositories
	var (
		eventsReader handlers.EventsReader
		eventsAdmin  handlers.EventsAdmin
		regsStore    handlers.RegistrationsStore
		regsLister   handlers.RegistrationsLister
	)

	if pool != nil {
		eventsRepo := postgres.NewEventsRepo(pool, prom)
		registrationsRepo := postgres.NewRegistrationsRepo(pool, prom)
		eventsReader, eventsAdmin = eventsRepo, eventsRepo
		regsStore, regsLister = registrationsRepo, registrationsRepo
	} else {
		store := memory.NewStore()
		eventsReader, eventsAdmin = store.Events(), store.Events()
		regsStore, regsLister = store.Registrations(), store.Registrations()
	}

	// list cache for the script-driven JSON path
	var listCache cache.Store
	if cfg.RedisAddr != "" {
		listCache = cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.ListCacheTTL)
	} else {
		listCache = cache.NewMemory(cfg.ListCacheTTL)
	}

	// confirmation notifier, circuit-protected
	var base notifications.Notifier
	if cfg.NotifierProvider == "ses" {
		base = notifications.NewSESNotifier(notifications.SESConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
			FromAddress:     cfg.EmailFrom,
			FromName:        cfg.EmailFromName,
		})
	} else {
		base = notifications.NewLogNotifier()
	}
	notifier := notifications.NewProtectedNotifier(base, notifications.ProtectedNotifierConfig{})

	// wire up handlers; mutating ones share the list cache so they can
	// invalidate it
	eventsHandler := handlers.NewEventsHandlerWithCache(eventsReader, listCache)
	registerHandler := handlers.NewRegisterHandlerWithCache(eventsReader, regsStore, notifier, prom, listCache)
	adminHandler := handlers.NewAdminEventsHandlerWithCache(eventsAdmin, regsLister, listCache)

	registerLimiter := middlewares.NewRateLimiter(cfg.RegisterRateLimit, cfg.RegisterRateWindow)

	r.GET("/", eventsHandler.List)
	r.GET("/event/:id/", eventsHandler.Detail)
	r.GET("/event/:id/register/", registerHandler.Register)
	r.POST("/event/:id/register/",
		registerLimiter.RateLimiterMiddleware(middlewares.KeyByIP),
		registerHandler.Register,
	)
	r.GET("/confirmation/", eventsHandler.Confirmation)

	admin := r.Group("/admin")
	admin.POST("/events", adminHandler.CreateEvent)
	admin.PUT("/events/:id", adminHandler.UpdateEvent)
	admin.DELETE("/events/:id", adminHandler.DeleteEvent)
	admin.GET("/events/:id/registrations", adminHandler.ListRegistrations)

	// anything else gets the site's own not-found page
	r.NoRoute(func(ctx *gin.Context) {
		handlers.RenderNotFound(ctx)
	})

	return r
}
