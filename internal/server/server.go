package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"geminiproxy/internal/config"
	"geminiproxy/internal/logger"
	"geminiproxy/internal/middleware"
)

const shutdownTimeout = 5 * time.Second

// Server owns the gin engine and the HTTP listener.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	logger     *zap.Logger
}

// New builds the engine with recovery, request ids, CORS and access logging.
func New(cfg config.ServerConfig, l *zap.Logger) *Server {
	switch cfg.Mode {
	case logger.ProductionMode:
		gin.SetMode(gin.ReleaseMode)
	case logger.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
	if l == nil {
		l = zap.NewNop()
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.CORS(cfg.AllowedOrigins))
	engine.Use(middleware.Logging(l))

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		logger: l,
	}
}

// Engine exposes the router so handlers can register routes.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received, draining connections", zap.Duration("timeout", shutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	s.logger.Info("server stopped gracefully")
	return nil
}
