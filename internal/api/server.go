// Package api exposes the lookup service over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/tracuunnt-api/internal/api/handlers"
	"github.com/nexconsult/tracuunnt-api/internal/api/middleware"
	"github.com/nexconsult/tracuunnt-api/internal/config"
	"github.com/nexconsult/tracuunnt-api/internal/models"
	"github.com/nexconsult/tracuunnt-api/internal/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server represents the HTTP server
type Server struct {
	Router   *gin.Engine
	config   *config.Config
	logger   *logrus.Logger
	services *services.Container
	stop     context.CancelFunc
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, logger *logrus.Logger, services *services.Container) *Server {
	server := &Server{
		config:   cfg,
		logger:   logger,
		services: services,
	}

	server.setupRouter()
	return server
}

// Close stops background work started by the router.
func (s *Server) Close() {
	if s.stop != nil {
		s.stop()
	}
}

func (s *Server) setupRouter() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel

	s.Router = gin.New()

	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Logger(s.logger))
	s.Router.Use(middleware.Recovery(s.logger))
	s.Router.Use(middleware.CORS(s.config.Security.CORS))
	s.Router.Use(middleware.Security())

	healthHandler := handlers.NewHealthHandler(s.services, s.logger)
	s.Router.GET("/health", healthHandler.GetHealth)
	s.Router.GET("/health/ready", healthHandler.GetReadiness)
	s.Router.GET("/health/live", healthHandler.GetLiveness)

	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if !s.config.IsProduction() {
		s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		s.Router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})
	}

	rateLimiter := middleware.NewRateLimiter(ctx, s.config.Security.RateLimit)

	v1 := s.Router.Group("/api/v1")
	v1.Use(rateLimiter.Middleware())
	{
		statsHandler := handlers.NewStatsHandler(s.services.CacheService, s.services.BrowserPool, s.logger)
		v1.GET("/stats", statsHandler.GetStats)

		runsHandler := handlers.NewRunsHandler(s.services.LookupService, s.logger)
		v1.GET("/runs", runsHandler.GetRuns)

		cache := v1.Group("/cache")
		{
			cacheHandler := handlers.NewCacheHandler(s.services.CacheService, s.logger)
			cache.GET("/stats", cacheHandler.GetStats)
			cache.DELETE("/clear", cacheHandler.Clear)
		}

		browser := v1.Group("/browser")
		{
			browserHandler := handlers.NewBrowserHandler(s.services.BrowserPool, s.logger)
			browser.GET("/stats", browserHandler.GetStats)
			browser.POST("/restart", browserHandler.Restart)
			browser.GET("/health", browserHandler.GetHealth)
		}

		// static segments above take precedence over the site parameter
		lookupHandler := handlers.NewLookupHandler(s.services.LookupService, s.logger)
		v1.GET("/:site/:command", lookupHandler.GetLookup)
		v1.POST("/:site/batch", lookupHandler.PostBatch)
	}

	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:     "Not Found",
			Message:   "The requested resource was not found",
			Code:      "NOT_FOUND",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
	})

	s.Router.HandleMethodNotAllowed = true
	s.Router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{
			Error:     "Method Not Allowed",
			Message:   "The requested method is not allowed for this resource",
			Code:      "METHOD_NOT_ALLOWED",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
	})
}
