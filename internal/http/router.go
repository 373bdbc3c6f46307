// Package httpapi wires the HTTP transport (Gin) to the complaint services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, identity, idempotency, and rate
// limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/tbourn/go-complaints-backend/internal/config"
	"github.com/tbourn/go-complaints-backend/internal/events"
	"github.com/tbourn/go-complaints-backend/internal/http/handlers"
	"github.com/tbourn/go-complaints-backend/internal/http/middleware"
	"github.com/tbourn/go-complaints-backend/internal/repo"
	"github.com/tbourn/go-complaints-backend/internal/services"
)

// Deps are the collaborators the router mounts. Complaints and Triage are
// required; the rest are optional.
type Deps struct {
	Complaints handlers.ComplaintService
	Triage     handlers.TriageService

	// Idem answers replay lookups for the Idempotency-Key validator.
	Idem services.IdempotencyStore
	// Hub enables the websocket stream when non-nil.
	Hub *events.Hub
	// Redis switches rate limiting to the shared fixed-window limiter.
	Redis redis.Cmdable
	// Now overrides the clock used for date filters (tests).
	Now func() time.Time
}

var allowedHeaders = []string{
	"Origin", "Content-Type", "Accept", "Authorization",
	middleware.HeaderUserID, middleware.HeaderUserRole, middleware.HeaderIdempotencyKey,
	"If-None-Match",
}

var exposedHeaders = []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", "Idempotent-Replayed"}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the complaint API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Compression (not on the websocket stream or /metrics)
//  7. Metrics
//  8. CORS and Security headers
//
// Identity, idempotency validation and rate limiting are applied on the API
// group only, in that order, so the limiter can key by user and skip replays.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true
	apiBase := cfg.APIBasePath

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) gzip
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		joinPath(apiBase, "/complaints/stream"),
		"/metrics",
	})))

	// 7) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     allowedHeaders,
			ExposeHeaders:    exposedHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     allowedHeaders,
			ExposeHeaders:    exposedHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	opts := []handlers.Option{handlers.WithLocation(cfg.Location()), handlers.WithClock(deps.Now)}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		opts = append(opts, handlers.WithOriginCheck(originAllowed(cfg.CORS.AllowedOrigins)))
	}
	h := handlers.New(deps.Complaints, deps.Triage, deps.Hub, opts...)

	// Public, unauthenticated reference data
	pub := groupWithPrefix(r, apiBase)
	{
		pub.GET("/categories", h.Categories)
		pub.GET("/resolution-presets", h.ResolutionPresets)
	}

	// Authenticated API
	api := groupWithPrefix(r, apiBase)
	api.Use(
		middleware.Auth([]byte(cfg.Auth.JWTSecret)),
		middleware.IdempotencyValidator(
			middleware.IdempotencyOptions{Scope: services.IdempotencyScope, MaxLen: 200},
			idempotencyLookup(deps.Idem),
		),
		newLimiter(deps.Redis, cfg).Handler(),
	)
	{
		admin := middleware.AdminOnly()

		// Complaints
		api.POST("/complaints", h.SubmitComplaint)
		api.GET("/complaints", h.ListComplaints)
		api.GET("/complaints/stream", h.Stream)
		api.GET("/complaints/grouped", admin, h.GroupedComplaints)
		api.GET("/complaints/:id", h.GetComplaint)
		api.GET("/complaints/:id/history", h.ComplaintHistory)
		api.PUT("/complaints/:id/status", admin, h.UpdateComplaintStatus)

		// Triage
		api.GET("/stats", admin, h.Stats)
	}
}

// idempotencyLookup adapts the store to the validator. Missing records and
// store errors both read as "no replay".
func idempotencyLookup(store services.IdempotencyStore) middleware.IdempotencyLookup {
	if store == nil {
		return nil
	}
	return func(ctx context.Context, userID, scope, key string, now time.Time) (bool, error) {
		rec, err := store.LookupIdempotency(ctx, userID, scope, key, now)
		if errors.Is(err, repo.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return rec != nil, nil
	}
}

// newLimiter picks the shared Redis limiter when a client is configured and
// the per-process token bucket otherwise.
func newLimiter(rdb redis.Cmdable, cfg config.Config) middleware.Limiter {
	if rdb != nil {
		limit := cfg.RateBurst
		if perMin := int(cfg.RateRPS * 60); perMin > limit {
			limit = perMin
		}
		return middleware.NewRedisLimiter(rdb, limit, time.Minute, middleware.KeyByUserOrIP())
	}
	return middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
}

func originAllowed(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}

func joinPath(base, p string) string {
	if base == "" || base == "/" {
		return p
	}
	return base + p
}
