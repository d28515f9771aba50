package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"geminiproxy/internal/chat"
)

const (
	msgMissingFields = "필수 데이터가 누락되었습니다."
	msgChatSaved     = "채팅 저장 성공"
	msgSaveFailed    = "DB 저장 실패"
	msgLoadFailed    = "DB 조회 실패"
)

var errInvalidField = errors.New("field must be a string or number")

func (h *Handler) recordMessage(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	body := map[string]any{}
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	var fields [3]string
	for i, key := range []string{"session_id", "sender", "text"} {
		v, err := fieldText(body[key])
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		fields[i] = v
	}

	if _, err := h.chat.RecordMessage(c.Request.Context(), fields[0], fields[1], fields[2]); err != nil {
		if errors.Is(err, chat.ErrMissingFields) {
			c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingFields})
			return
		}
		h.log(c).Error("save chat message failed", zap.String("session_id", fields[0]), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgSaveFailed})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msgChatSaved})
}

func (h *Handler) listMessages(c *gin.Context) {
	sessionID := c.Param("session_id")
	messages, err := h.chat.ListMessages(c.Request.Context(), sessionID)
	if err != nil {
		h.log(c).Error("load chat messages failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgLoadFailed})
		return
	}
	c.JSON(http.StatusOK, messages)
}

// fieldText converts a decoded JSON value into the stored text. Absent, null,
// empty, zero and false values all become "", which the store rejects as
// missing.
func fieldText(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		if !t {
			return "", nil
		}
		return "", errInvalidField
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err == nil && f == 0 {
			return "", nil
		}
		return t.String(), nil
	default:
		return "", errInvalidField
	}
}
