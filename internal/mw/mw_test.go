package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"machine-ledger-backend/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	return w
}

func TestResponseCache(t *testing.T) {
	rc := NewResponseCache(time.Minute)
	calls := 0
	r := gin.New()
	r.GET("/dashboard", rc.Handler(), func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"calls": calls})
	})
	r.GET("/broken", rc.Handler(), func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
	})

	first := serve(r, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, "MISS", first.Header().Get(CacheHeader))
	assert.JSONEq(t, `{"calls":1}`, first.Body.String())

	second := serve(r, http.MethodGet, "/dashboard", nil)
	assert.Equal(t, "HIT", second.Header().Get(CacheHeader))
	assert.Equal(t, "application/json; charset=utf-8", second.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"calls":1}`, second.Body.String())
	assert.Equal(t, 1, calls)

	rc.Flush()
	assert.Equal(t, 0, rc.Len())
	third := serve(r, http.MethodGet, "/dashboard", nil)
	assert.JSONEq(t, `{"calls":2}`, third.Body.String())

	serve(r, http.MethodGet, "/broken", nil)
	assert.Equal(t, 1, rc.Len(), "errors are not cached")
}

func TestRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 2)
	r := gin.New()
	r.Use(RateLimiter(limiter, "X-Real-IP"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	ip1 := http.Header{"X-Real-Ip": {"10.0.0.1"}}
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", ip1).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", ip1).Code)

	w := serve(r, http.MethodGet, "/", ip1)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"ok":false,"error":"too many requests"}`, w.Body.String())

	ip2 := http.Header{"X-Real-Ip": {"10.0.0.2"}}
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", ip2).Code, "limits are per IP")
}

func TestIPRateLimiter_EvictsIdle(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(rate.Limit(1), 1)
	l.now = func() time.Time { return now }

	first := l.GetLimiter("a")
	l.GetLimiter("b")
	assert.Same(t, first, l.GetLimiter("a"))
	assert.Equal(t, 2, l.Len())

	now = now.Add(idleLimiterAge + time.Second)
	l.GetLimiter("c")
	assert.Equal(t, 1, l.Len())
}

func TestRequestID(t *testing.T) {
	var seen string
	r := gin.New()
	r.Use(RequestID(), Logger())
	r.GET("/", func(c *gin.Context) {
		seen = logging.RequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := serve(r, http.MethodGet, "/", nil)
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	w = serve(r, http.MethodGet, "/", http.Header{RequestIDHeader: {"abc-123"}})
	assert.Equal(t, "abc-123", seen)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRateLimiter_ForwardedList(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 1)
	r := gin.New()
	r.Use(RateLimiter(limiter, "X-Forwarded-For"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/", http.Header{"X-Forwarded-For": {"1.1.1.1, 10.0.0.9"}}).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/", http.Header{"X-Forwarded-For": {"1.1.1.1"}}).Code)
}
