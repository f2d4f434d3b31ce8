// Package httpapi exposes the dispatcher over HTTP.
package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"schooldesk/internal/auth"
	"schooldesk/internal/dispatch"
	"schooldesk/internal/httpmiddleware"
	"schooldesk/internal/rowstore"
	"schooldesk/internal/store"
)

// AuthConfig controls the optional session guard.
type AuthConfig struct {
	Required   bool
	SigningKey string
	Issuer     string
	TTL        time.Duration
}

// Options collects the router's collaborators. Redis and MetricsHandler are
// optional.
type Options struct {
	Dispatcher      *dispatch.Dispatcher
	Store           rowstore.Store
	Redis           *store.Redis
	Logger          *slog.Logger
	Auth            AuthConfig
	RateLimitPerMin int
	CORSOrigins     []string
	MetricsHandler  http.Handler
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = promhttp.Handler()
	}
	h := &Handler{
		dispatcher: opts.Dispatcher,
		store:      opts.Store,
		redis:      opts.Redis,
		logger:     opts.Logger,
		auth:       opts.Auth,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.RequestID())

	r.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	r.GET("/healthz", h.Healthz)

	api := r.Group("/")
	api.Use(httpmiddleware.NewRateLimiter(opts.RateLimitPerMin, opts.RateLimitPerMin).Middleware())
	if opts.Auth.Required {
		api.Use(auth.Session(opts.Auth.SigningKey, opts.Auth.Issuer))
	}
	api.POST("/", h.Dispatch)
	api.POST("/exec", h.Dispatch)
	api.GET("/export", h.Export)

	return r
}

// corsConfig allows simple text/plain posts from the dashboard origin and
// exposes the headers the client reads back.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders: []string{AuthTokenHeader, httpmiddleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
