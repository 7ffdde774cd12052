package security

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mystery_hunt_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(handlers...)
	r.GET("/ping", func(c *gin.Context) { util.Success(c, "pong") })
	return r
}

func get(r *gin.Engine, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterUsesResponseEnvelope(t *testing.T) {
	l := NewIPRateLimiter(2, time.Hour)
	defer l.Stop()
	r := newRouter(l.Middleware())

	assert.Equal(t, http.StatusOK, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "").Code)

	w := get(r, "")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	var resp util.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "too many requests", resp.Message)
}

func TestRateLimiterSweepsIdleVisitors(t *testing.T) {
	l := NewIPRateLimiter(10, time.Minute)
	defer l.Stop()
	now := time.Now()
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("10.0.0.1"))
	assert.True(t, l.allow("10.0.0.2"))

	now = now.Add(2 * time.Minute)
	assert.True(t, l.allow("10.0.0.2"))
	now = now.Add(2 * time.Minute)
	l.sweep()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.visitors, "10.0.0.1")
	assert.Contains(t, l.visitors, "10.0.0.2")
}

func TestRateLimiterStopEndsCleanup(t *testing.T) {
	l := NewIPRateLimiter(10, time.Minute)
	done := make(chan struct{})
	go func() {
		l.cleanupLoop(time.Millisecond)
		close(done)
	}()

	l.Stop()
	l.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop still running after Stop")
	}
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS([]string{"https://hunt.example.com"}), Secure())

	w := get(r, "https://hunt.example.com")
	assert.Equal(t, "https://hunt.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = get(r, "https://evil.example.com")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://hunt.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
