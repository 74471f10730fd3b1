package logger

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newLoggedRouter(level zapcore.Level) (*gin.Engine, *observer.ObservedLogs) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(level)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		ctx := WithRequestID(c.Request.Context(), "req-123")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	router.Use(GinMiddleware(zap.New(core)))
	return router, recorded
}

func findHTTPLog(t *testing.T, recorded *observer.ObservedLogs) observer.LoggedEntry {
	t.Helper()
	entries := recorded.FilterMessage("HTTP Request").All()
	require.Len(t, entries, 1)
	return entries[0]
}

func TestGinMiddleware_LevelByStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  zapcore.Level
	}{
		{"success is info", http.StatusOK, zapcore.InfoLevel},
		{"client error is warn", http.StatusUnprocessableEntity, zapcore.WarnLevel},
		{"server error is error", http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, recorded := newLoggedRouter(zapcore.DebugLevel)
			router.GET("/vouchers", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vouchers", nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.level, findHTTPLog(t, recorded).Level)
		})
	}
}

func TestGinMiddleware_Fields(t *testing.T) {
	router, recorded := newLoggedRouter(zapcore.InfoLevel)
	router.POST("/vouchers/:id/post", func(c *gin.Context) {
		// Identity is attached after the logging middleware has run
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), "company-1", "user-1"))
		assert.NotNil(t, GetGinLogger(c))
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/vouchers/v-1/post?dryRun=1", nil))

	fields := findHTTPLog(t, recorded).ContextMap()
	assert.Equal(t, "req-123", fields["request_id"])
	assert.Equal(t, "company-1", fields["company_id"])
	assert.Equal(t, "user-1", fields["user_id"])
	assert.Equal(t, "/vouchers/:id/post", fields["route"])
	assert.Equal(t, "/vouchers/v-1/post", fields["path"])
	assert.Equal(t, "dryRun=1", fields["query"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Contains(t, fields, "latency")
}

func TestGinMiddleware_StoresLoggerInRequestContext(t *testing.T) {
	router, recorded := newLoggedRouter(zapcore.InfoLevel)
	router.GET("/health", func(c *gin.Context) {
		L(c.Request.Context()).Info("from handler")
		c.Status(http.StatusOK)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entries := recorded.FilterMessage("from handler").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/health", entries[0].ContextMap()["path"])
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, recorded := observer.New(zapcore.ErrorLevel)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), "req-panic"))
		c.Next()
	})
	router.Use(Recovery(zap.New(core)))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code          string `json:"code"`
			CorrelationID string `json:"correlationId"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "req-panic", body.Error.CorrelationID)

	require.Equal(t, 1, recorded.FilterMessage("Panic recovered").Len())
}

func TestGetGinLogger_NotSet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	l := GetGinLogger(c)
	require.NotNil(t, l)
	assert.NotPanics(t, func() { l.Info("test") })
}
