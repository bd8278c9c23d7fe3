// File: internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"prompthub_backend/internal/clerk"
	"prompthub_backend/internal/common"
	"prompthub_backend/internal/config"
	"prompthub_backend/internal/jobs"
	"prompthub_backend/internal/metrics"
	"prompthub_backend/internal/middleware"
	"prompthub_backend/internal/platform/database"
	"prompthub_backend/internal/prompt"
	"prompthub_backend/internal/webhook"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger
	db         *gorm.DB

	cleanupJob  *jobs.TestUserCleanupJob
	rateLimiter *middleware.RateLimiter
}

// NewServer creates the gin engine and registers every route.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	gatherer prometheus.Gatherer,
	recorder metrics.Recorder,
	sessionVerifier clerk.SessionVerifier,
	rateLimiter *middleware.RateLimiter,
	promptHandler *prompt.Handler,
	webhookHandler *webhook.Handler,
	cleanupJob *jobs.TestUserCleanupJob,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		common.UseJSONFieldNames(v)
	}

	router := gin.New()
	router.HandleMethodNotAllowed = true

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger.Named("http")))
	router.Use(middleware.HTTPMetrics(recorder))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(cfg)))

	router.NoRoute(middleware.NoRoute)
	router.NoMethod(middleware.NoMethod)

	authMW := middleware.AuthMiddleware(sessionVerifier, logger)

	s := &Server{
		router:      router,
		cfg:         cfg,
		logger:      logger,
		db:          db,
		cleanupJob:  cleanupJob,
		rateLimiter: rateLimiter,
	}

	// --- Setup Routes ---
	router.GET("/health", s.health)
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))
	}
	webhookHandler.RegisterRoutes(router)
	promptHandler.RegisterRoutes(router, authMW, rateLimiter.Middleware())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s, nil
}

func corsConfig(cfg *config.Config) cors.Config {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", common.RequestIDHeader}
	corsCfg.ExposeHeaders = []string{"Content-Length", common.RequestIDHeader}

	allowAll := len(cfg.CORSAllowedOrigins) == 0
	for _, o := range cfg.CORSAllowedOrigins {
		if o == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
		corsCfg.AllowCredentials = true
	}
	return corsCfg
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := database.Ping(ctx, s.db); err != nil {
		s.logger.Error("Health check: database ping failed", zap.Error(err))
		common.RespondWithError(c, common.ErrServiceUnavailable.WithDetails("Database is unreachable."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "PromptHub API is healthy!"})
}

// Router exposes the engine, mainly for in-process tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the cleanup job and blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	if err := s.cleanupJob.SetupAndStart(); err != nil {
		s.logger.Error("Failed to setup and start test user cleanup job", zap.Error(err))
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped")
	return nil
}

// Shutdown stops background work and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	s.cleanupJob.Stop()
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}
