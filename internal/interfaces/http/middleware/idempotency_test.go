package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingIdempotencyStore struct{ cache.InMemoryIdempotencyStore }

func (*failingIdempotencyStore) Lookup(context.Context, string) ([]byte, error) {
	return nil, errors.New("redis down")
}

func TestIdempotency(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(store shared.IdempotencyStore, status *int, calls *int) *gin.Engine {
		router := gin.New()
		router.Use(RequestID(), func(c *gin.Context) {
			c.Set(CompanyIDKey, c.GetHeader(HeaderCompanyID))
			c.Next()
		}, Idempotency(store, time.Hour))
		router.POST("/vouchers", func(c *gin.Context) {
			*calls++
			c.JSON(*status, gin.H{"call": *calls})
		})
		return router
	}
	post := func(router *gin.Engine, key, company string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/vouchers", nil)
		if key != "" {
			req.Header.Set(HeaderIdempotencyKey, key)
		}
		req.Header.Set(HeaderCompanyID, company)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("replays a completed request", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusCreated, 0
		router := newRouter(store, &status, &calls)

		first := post(router, "k-1", "c-1")
		second := post(router, "k-1", "c-1")

		assert.Equal(t, 1, calls)
		assert.Equal(t, http.StatusCreated, second.Code)
		assert.JSONEq(t, first.Body.String(), second.Body.String())
		assert.Equal(t, "true", second.Header().Get(HeaderIdempotencyReplayed))
	})

	t.Run("keys are scoped per company", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusCreated, 0
		router := newRouter(store, &status, &calls)

		post(router, "k-1", "c-1")
		post(router, "k-1", "c-2")
		assert.Equal(t, 2, calls)
	})

	t.Run("failed requests release the key", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusUnprocessableEntity, 0
		router := newRouter(store, &status, &calls)

		post(router, "k-1", "c-1")
		status = http.StatusOK
		w := post(router, "k-1", "c-1")
		assert.Equal(t, 2, calls)
		assert.Empty(t, w.Header().Get(HeaderIdempotencyReplayed))
	})

	t.Run("in-flight key conflicts", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		ok, err := store.Reserve(context.Background(), "c-1:POST:/vouchers:k-1", time.Hour)
		require.NoError(t, err)
		require.True(t, ok)
		status, calls := http.StatusCreated, 0

		w := post(newRouter(store, &status, &calls), "k-1", "c-1")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Contains(t, w.Body.String(), "IDEMPOTENCY_KEY_IN_PROGRESS")
		assert.Zero(t, calls)
	})

	t.Run("no key and store failures pass through", func(t *testing.T) {
		status, calls := http.StatusCreated, 0
		store := &failingIdempotencyStore{}
		router := newRouter(store, &status, &calls)

		post(router, "", "c-1")
		post(router, "k-1", "c-1")
		assert.Equal(t, 2, calls)
	})

	t.Run("oversized key", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()
		status, calls := http.StatusCreated, 0
		w := post(newRouter(store, &status, &calls), strings.Repeat("k", 300), "c-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
