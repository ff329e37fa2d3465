// Package httpapi wires the HTTP transport (Gin) to the conversation engine,
// admin services, middleware, and route handlers. It centralizes cross-cutting
// concerns such as tracing, correlation IDs, logging/redaction, panic
// recovery, metrics, CORS, security headers, webhook signatures, idempotency,
// and rate limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-contest-bot/docs"
	"github.com/tbourn/go-contest-bot/internal/config"
	"github.com/tbourn/go-contest-bot/internal/conversation"
	"github.com/tbourn/go-contest-bot/internal/domain"
	"github.com/tbourn/go-contest-bot/internal/http/handlers"
	"github.com/tbourn/go-contest-bot/internal/http/middleware"
	"github.com/tbourn/go-contest-bot/internal/notify"
	"github.com/tbourn/go-contest-bot/internal/repo"
	"github.com/tbourn/go-contest-bot/internal/services"
)

// App carries the long-lived collaborators built in main.
type App struct {
	DB       *gorm.DB
	Engine   handlers.Engine
	Sessions handlers.Pinger // nil skips the session health check
	Mailer   notify.Mailer
	Notifier notify.Notifier
}

// idempotencyShim adapts the repository free functions to the handler and
// middleware contracts.
type idempotencyShim struct {
	db  *gorm.DB
	ttl time.Duration
}

// Remember proxies repo.CreateIdempotency; a duplicate is reported as false.
func (s idempotencyShim) Remember(ctx context.Context, scope, key string) (bool, error) {
	_, err := repo.CreateIdempotency(ctx, s.db, scope, key, "", http.StatusOK, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Lookup proxies repo.GetIdempotency.
func (s idempotencyShim) Lookup(ctx context.Context, scope, key string, now time.Time) (bool, error) {
	_, err := repo.GetIdempotency(ctx, s.db, scope, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// dbPinger exposes the ledger connection as a health check.
type dbPinger struct{ db *gorm.DB }

func (p dbPinger) Ping(ctx context.Context) error { return repo.Ping(ctx, p.db) }

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine: the provider webhook at /webhook, the admin API under
// API_BASE_PATH/admin, /health, /metrics and, when enabled, /swagger.
//
// Global middleware order:
//  1. OpenTelemetry
//  2. RequestID
//  3. RedactingLogger
//  4. Recovery
//  5. Body size limiter
//  6. Metrics
//  7. CORS and security headers
//
// The admin group adds idempotency validation ahead of the rate limiter so a
// replayed draw bypasses the bucket, then gzip.
func RegisterRoutes(r *gin.Engine, app App, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{middleware.HeaderHubSignature},
		MaskQuery:   []string{"hub.verify_token"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(corsMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	idem := idempotencyShim{db: app.DB, ttl: cfg.IdempotencyTTL}
	checks := []handlers.HealthCheck{{Name: "db", Pinger: dbPinger{db: app.DB}}}
	if app.Sessions != nil {
		checks = append(checks, handlers.HealthCheck{Name: "sessions", Pinger: app.Sessions})
	}

	h := handlers.New(handlers.Deps{
		Engine:        app.Engine,
		Idempotency:   idem,
		Stats:         services.NewStatsService(app.DB),
		Registrations: &services.RegistrationService{DB: app.DB},
		Winners: &services.WinnerService{
			DB:       app.DB,
			Mailer:   app.Mailer,
			Notifier: app.Notifier,
			MaxDraw:  cfg.Contest.MaxDraw,
		},
		Codes:          &services.CodeService{DB: app.DB, MaxBatch: 10000},
		Checks:         checks,
		VerifyToken:    cfg.Webhook.VerifyToken,
		ProcessTimeout: messageBudget(cfg.CallTimeout),
	})

	r.GET("/health", h.Health)

	// Provider webhook
	r.GET("/webhook", h.VerifyWebhook)
	r.POST("/webhook", middleware.HubSignature(cfg.Webhook.AppSecret), h.ReceiveWebhook)

	// Admin API
	admin := groupWithPrefix(r, cfg.APIBasePath).Group("/admin")
	admin.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{
		MaxLen: 200,
		Scope:  adminScope,
	}, idem.Lookup))
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByRouteAndIP())
	admin.Use(rl.Handler())
	admin.Use(gzip.Gzip(gzip.DefaultCompression))
	{
		admin.GET("/stats", h.Stats)
		admin.GET("/registrations", h.ListRegistrations)
		admin.GET("/winners", h.ListWinners)
		admin.POST("/winners/draw", h.DrawWinners)
		admin.POST("/winners/reset", h.ResetWinners)
		admin.POST("/winners/notify", h.NotifyWinners)
		admin.POST("/codes", h.ImportCodes)
	}

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
}

// adminScope keys draw replays under the winner-draw scope so they share the
// idempotency table with inbound dedup without colliding.
func adminScope(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && strings.HasSuffix(c.FullPath(), "/winners/draw") {
		return domain.ScopeWinnerDraw
	}
	return middleware.RouteScope(c)
}

// corsMiddleware allows every origin when none is configured, otherwise only
// the allowlist.
func corsMiddleware(origins []string) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotencyReplayed},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return cors.New(c)
}

// limitBody caps the request body size for all endpoints to maxBytes using
// http.MaxBytesReader. Requests exceeding the cap will cause downstream body
// reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// messageBudget is the deadline for one inbound message: the dedup write plus
// every engine call, each bounded by callTimeout. Zero leaves the handler
// default in place.
func messageBudget(callTimeout time.Duration) time.Duration {
	if callTimeout <= 0 {
		return 0
	}
	return time.Duration(conversation.CallsPerTurn+1) * callTimeout
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
