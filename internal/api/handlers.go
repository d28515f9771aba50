package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"geminiproxy/internal/logger"
	"geminiproxy/internal/models"
)

// Generator is the outbound generation proxy.
type Generator interface {
	Configured() bool
	Generate(ctx context.Context, prompt *string) (json.RawMessage, error)
}

// ChatStore records and lists chat messages.
type ChatStore interface {
	RecordMessage(ctx context.Context, sessionID, sender, text string) (*models.Message, error)
	ListMessages(ctx context.Context, sessionID string) ([]*models.Message, error)
	Ping(ctx context.Context) error
}

// Routes selects which route groups RegisterRoutes mounts.
type Routes struct {
	Gemini bool
	Chat   bool
}

// Handler wires HTTP routes to the generation proxy and the chat store.
type Handler struct {
	gemini Generator
	chat   ChatStore
	routes Routes
	logger *zap.Logger
}

// NewHandler constructs a Handler instance. Either dependency may be nil when
// its routes are disabled.
func NewHandler(gemini Generator, chat ChatStore, routes Routes, l *zap.Logger) *Handler {
	if l == nil {
		l = zap.NewNop()
	}
	return &Handler{
		gemini: gemini,
		chat:   chat,
		routes: routes,
		logger: l,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.health)

	api := router.Group("/api")
	if h.routes.Gemini && h.gemini != nil {
		api.POST("/gemini", h.generate)
	}
	if h.routes.Chat && h.chat != nil {
		api.POST("/chat", h.recordMessage)
		api.GET("/chat/:session_id", h.listMessages)
	}
}

func (h *Handler) health(c *gin.Context) {
	if h.chat != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.chat.Ping(ctx); err != nil {
			h.log(c).Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) log(c *gin.Context) *zap.Logger {
	return logger.WithContext(c.Request.Context(), h.logger)
}
