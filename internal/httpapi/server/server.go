package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/redhat-data-and-ai/favourites/internal/httpapi/handlers"
	"github.com/redhat-data-and-ai/favourites/internal/httpapi/middleware"
	"github.com/redhat-data-and-ai/favourites/pkg/config"
)

const shutdownTimeout = 15 * time.Second

type APIServer struct {
	config   *config.AppConfig
	router   *gin.Engine
	server   *http.Server
	handlers *handlers.Handlers
}

func NewAPIServer(cfg *config.AppConfig, h *handlers.Handlers) *APIServer {
	if cfg.App.Environment == "local" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	s := &APIServer{
		config:   cfg,
		router:   router,
		handlers: h,
	}

	router.Use(middleware.CORS(&s.config.APIServer))

	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests
func (s *APIServer) Handler() http.Handler {
	return s.router
}

func (s *APIServer) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/api/v1")
	v1.Use(s.authMiddleware())

	v1.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "favourites-api",
			"status":  "running",
		})
	})

	fav := v1.Group("/favourites/:type")
	fav.GET("", s.handlers.ListFavourites)
	fav.DELETE("", s.handlers.RemoveAllFavourites)
	fav.POST("/compact", s.handlers.CompactFavourites)
	fav.GET("/:id", s.handlers.IsFavourite)
	fav.PUT("/:id", s.handlers.AddFavourite)
	fav.DELETE("/:id", s.handlers.RemoveFavourite)
	fav.POST("/:id/move", s.handlers.MoveFavourite)

	admin := v1.Group("/admin")
	admin.Use(middleware.AdminOnly(s.config))
	admin.POST("/cache/clear", s.handlers.ClearCache)
	admin.POST("/entities/:type/:id/deleted", s.handlers.EntityDeleted)
}

func (s *APIServer) authMiddleware() gin.HandlerFunc {
	switch s.config.APIServer.Auth.Mode {
	case config.AuthModeBasic:
		return middleware.BasicAuth(s.config)
	case config.AuthModeLDAP:
		return middleware.LDAPBasicAuth(s.config)
	default:
		return middleware.APIKeyAuth(s.config)
	}
}

// Start serves until ctx is cancelled and then shuts the server down gracefully
func (s *APIServer) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.config.APIServer.Host, s.config.APIServer.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("address", s.server.Addr).Info("starting http API server")
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start http API server : %w", err)
	case <-ctx.Done():
	}

	logrus.Info("turning down http API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Error during HTTP API server shutdown")
		return err
	}
	logrus.Info("http API server stopped")
	return nil
}
