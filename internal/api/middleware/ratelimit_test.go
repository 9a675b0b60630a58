package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/api/middleware"
)

func setupLimitedEngine(t *testing.T, rps float64, burst int) (*gin.Engine, *middleware.RateLimiterMiddleware) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, rps, burst, zap.NewNop())
	r := gin.New()
	r.Use(rateLimiter.Limit())
	r.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	return r, rateLimiter
}

func getFrom(r *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = remoteAddr
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterMiddleware_BurstExhausted(t *testing.T) {
	router, _ := setupLimitedEngine(t, 0.001, 2)

	assert.Equal(t, http.StatusOK, getFrom(router, "1.2.3.4:12345").Code)
	assert.Equal(t, http.StatusOK, getFrom(router, "1.2.3.4:12345").Code)

	w := getFrom(router, "1.2.3.4:12345")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	var respBody map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &respBody))
	assert.Contains(t, respBody["message"], "Too many requests")
}

func TestRateLimiterMiddleware_ClientsAreIndependent(t *testing.T) {
	router, _ := setupLimitedEngine(t, 0.001, 1)

	assert.Equal(t, http.StatusOK, getFrom(router, "5.6.7.8:1000").Code)
	assert.Equal(t, http.StatusTooManyRequests, getFrom(router, "5.6.7.8:1001").Code)
	assert.Equal(t, http.StatusOK, getFrom(router, "9.1.2.3:1000").Code)
}

func TestRateLimiterMiddleware_ForgetIdleClients(t *testing.T) {
	router, rateLimiter := setupLimitedEngine(t, 0.001, 1)

	assert.Equal(t, http.StatusOK, getFrom(router, "1.1.1.1:1").Code)
	assert.Equal(t, 0, rateLimiter.Forget(time.Hour))
	assert.Equal(t, 1, rateLimiter.Forget(0))

	// A forgotten client starts with a full bucket again.
	assert.Equal(t, http.StatusOK, getFrom(router, "1.1.1.1:1").Code)
}
