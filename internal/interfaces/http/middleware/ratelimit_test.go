package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter(t *testing.T) {
	l, err := NewRateLimiter(RateLimitDisabled, nil)
	require.NoError(t, err)
	assert.Nil(t, l)

	_, err = NewRateLimiter("lots", nil)
	assert.ErrorContains(t, err, "invalid rate limit")
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	for name, c := range map[string]*redis.Client{"memory": nil, "redis": client} {
		t.Run(name, func(t *testing.T) {
			l, err := NewRateLimiter("2-M", c)
			require.NoError(t, err)

			router := gin.New()
			router.Use(RequestID(), RateLimit(l))
			router.GET("/vouchers", func(c *gin.Context) { c.Status(http.StatusOK) })

			codes := make([]int, 0, 3)
			var last *httptest.ResponseRecorder
			for range 3 {
				req := httptest.NewRequest(http.MethodGet, "/vouchers", nil)
				req.RemoteAddr = "10.0.0.7:5555"
				last = httptest.NewRecorder()
				router.ServeHTTP(last, req)
				codes = append(codes, last.Code)
			}

			assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
			assert.Equal(t, "2", last.Header().Get("X-RateLimit-Limit"))
			assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
			assert.Contains(t, last.Body.String(), "RATE_LIMITED")
		})
	}

	t.Run("nil limiter passes through", func(t *testing.T) {
		router := gin.New()
		router.Use(RateLimit(nil))
		router.GET("/vouchers", func(c *gin.Context) { c.Status(http.StatusOK) })
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vouchers", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
