package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"geminiproxy/internal/logger"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, logger.RequestID(c.Request.Context()))
	})
	r.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	return r
}

func serve(r http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRequestIDGenerated(t *testing.T) {
	rec := serve(newRouter(RequestID()), http.MethodGet, "/ping", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	id := rec.Header().Get(RequestIDHeader)
	require.Len(t, id, 36)
	require.Equal(t, id, rec.Body.String())
}

func TestRequestIDPropagated(t *testing.T) {
	rec := serve(newRouter(RequestID()), http.MethodGet, "/ping", map[string]string{RequestIDHeader: "abc"})
	require.Equal(t, "abc", rec.Header().Get(RequestIDHeader))
	require.Equal(t, "abc", rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	rec := serve(newRouter(CORS([]string{"*"})), http.MethodOptions, "/api/gemini", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSAllowList(t *testing.T) {
	r := newRouter(CORS([]string{"https://app.example.com"}))

	rec := serve(r, http.MethodGet, "/ping", map[string]string{"Origin": "https://app.example.com"})
	require.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(r, http.MethodGet, "/ping", map[string]string{"Origin": "https://evil.example.com"})
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggingRecordsRequest(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(RequestID(), Logging(zap.New(core)))

	serve(r, http.MethodGet, "/ping", map[string]string{RequestIDHeader: "req-1"})
	serve(r, http.MethodGet, "/boom", nil)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)

	first := entries[0].ContextMap()
	require.Equal(t, "GET", first["method"])
	require.Equal(t, "/ping", first["path"])
	require.Equal(t, int64(200), first["status"])
	require.Equal(t, "req-1", first["request_id"])

	require.Equal(t, zap.ErrorLevel, entries[1].Level)
	require.Equal(t, int64(500), entries[1].ContextMap()["status"])
}
