package bootstrap

import (
	"net/http"

	"github.com/go-authgate/qrgate/internal/config"
	"github.com/go-authgate/qrgate/internal/core"
	"github.com/go-authgate/qrgate/internal/metrics"
	"github.com/go-authgate/qrgate/internal/middleware"
	"github.com/go-authgate/qrgate/internal/store"
	"github.com/go-authgate/qrgate/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// setupRouter configures the Gin router with all routes and middleware
func setupRouter(
	cfg *config.Config,
	db *store.Store,
	artifacts core.ArtifactStore,
	h handlerSet,
	prometheusMetrics core.Recorder,
	log *zap.Logger,
) *gin.Engine {
	setupGinMode(cfg, log)
	r := gin.New()

	r.Use(metrics.HTTPMetricsMiddleware(prometheusMetrics))
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(util.IPMiddleware())

	r.GET("/health", createHealthCheckHandler(db, artifacts))
	setupMetricsEndpoint(r, cfg, log)

	// Owner decision links and operator listing carry their own credentials
	r.GET("/process/:action/:token", h.process.Process)
	r.GET("/debug/requests", middleware.OperatorAuthMiddleware(cfg.OperatorToken), h.debug.ListRequests)

	// Browser pages (session + CSRF)
	pages := r.Group("")
	pages.Use(sessionMiddleware(cfg), middleware.CSRFMiddleware())
	{
		pages.GET("/generate", h.generate.ShowGeneratePage)
		pages.POST("/generate", h.generate.Generate)
		pages.GET("/qr/:token", h.generate.DownloadQR)

		pages.GET("/", h.request.ShowIndex)
		pages.POST("/", h.request.SubmitIndex)

		pages.GET("/request/:token", h.request.ShowRequest)
		pages.POST("/request/:token", h.request.SubmitRequest)
		pages.POST("/request/:token/reopen", h.request.Reopen)
	}

	log.Info("qrgate server configured",
		zap.String("addr", cfg.ServerAddr),
		zap.String("generate_url", cfg.BaseURL+"/generate"),
		zap.Bool("tokenless_requests", cfg.DefaultFileLink != ""),
		zap.Bool("operator_listing", cfg.OperatorToken != ""),
	)

	return r
}

// sessionMiddleware configures cookie sessions holding the CSRF token
func sessionMiddleware(cfg *config.Config) gin.HandlerFunc {
	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   cfg.IsProduction,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions("qrgate_session", sessionStore)
}

// setupMetricsEndpoint configures the Prometheus metrics endpoint
func setupMetricsEndpoint(r *gin.Engine, cfg *config.Config, log *zap.Logger) {
	switch {
	case !cfg.MetricsEnabled:
		log.Info("Prometheus metrics disabled")
	case cfg.MetricsToken != "":
		log.Info("Prometheus metrics enabled at /metrics with Bearer token authentication")
		r.GET(
			"/metrics",
			middleware.MetricsAuthMiddleware(cfg.MetricsToken),
			gin.WrapH(promhttp.Handler()),
		)
	default:
		log.Info("Prometheus metrics enabled at /metrics (no authentication)")
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

// createHealthCheckHandler reports database and artifact storage health
func createHealthCheckHandler(db *store.Store, artifacts core.ArtifactStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus, artifactStatus := "connected", "connected"
		healthy := true

		if err := db.Health(c.Request.Context()); err != nil {
			dbStatus, healthy = "disconnected", false
		}
		if err := artifacts.Health(c.Request.Context()); err != nil {
			artifactStatus, healthy = "unavailable", false
		}

		status, code := "healthy", http.StatusOK
		if !healthy {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":    status,
			"database":  dbStatus,
			"artifacts": artifactStatus,
		})
	}
}

// setupGinMode sets Gin mode based on environment configuration
func setupGinMode(cfg *config.Config, log *zap.Logger) {
	mode := ginModeMap[cfg.IsProduction]
	gin.SetMode(mode)
	log.Info("gin mode", zap.String("mode", mode))
}

var ginModeMap = map[bool]string{
	true:  gin.ReleaseMode,
	false: gin.DebugMode,
}
