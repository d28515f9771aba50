package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"geminiproxy/internal/gemini"
)

const (
	msgMissingAPIKey = "API 키가 없습니다"
	msgGeminiFailed  = "Failed to Gemini"
)

type generateRequest struct {
	Prompt *string `json:"prompt"`
}

// generate relays one prompt upstream. Upstream JSON is written back byte for
// byte, with the upstream status when it is not 2xx.
func (h *Handler) generate(c *gin.Context) {
	if !h.gemini.Configured() {
		h.log(c).Error("gemini api key not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgMissingAPIKey})
		return
	}

	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var req generateRequest
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	payload, err := h.gemini.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		h.writeGenerateError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

func (h *Handler) writeGenerateError(c *gin.Context, err error) {
	var upErr *gemini.UpstreamError
	switch {
	case errors.Is(err, gemini.ErrMissingAPIKey):
		h.log(c).Error("gemini api key not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgMissingAPIKey})
	case errors.As(err, &upErr):
		h.log(c).Warn("gemini upstream error", zap.Int("status", upErr.HTTPStatusCode()))
		c.Data(upErr.HTTPStatusCode(), "application/json; charset=utf-8", upErr.Body)
	default:
		h.log(c).Error("gemini request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgGeminiFailed, "details": err.Error()})
	}
}
