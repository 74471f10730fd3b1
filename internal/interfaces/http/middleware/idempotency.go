package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const (
	HeaderIdempotencyKey      = "Idempotency-Key"
	HeaderIdempotencyReplayed = "Idempotency-Replayed"
	MaxIdempotencyKeyLength   = 255
)

// storedResponse is what a completed key remembers
type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a request carrying an Idempotency-Key it has
// already completed. Keys are scoped by company, method and path. Only 2xx responses are
// remembered; failures release the key so the client can retry. Store errors fail open.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			abortWithError(c, http.StatusBadRequest, "IDEMPOTENCY_KEY_INVALID",
				"Idempotency-Key must be at most 255 characters", "VALIDATION")
			return
		}

		ctx := c.Request.Context()
		log := logger.L(ctx)
		scoped := GetCompanyID(c) + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + key

		stored, err := store.Lookup(ctx, scoped)
		if err != nil {
			log.Warn("Idempotency lookup failed, continuing without replay", zap.Error(err))
			c.Next()
			return
		}
		if stored != nil {
			var resp storedResponse
			if err := json.Unmarshal(stored, &resp); err == nil {
				c.Header(HeaderIdempotencyReplayed, "true")
				c.Data(resp.Status, "application/json; charset=utf-8", resp.Body)
				c.Abort()
				return
			}
			log.Warn("Discarding unreadable idempotent response", zap.String("idempotency_key", key))
		}

		reserved, err := store.Reserve(ctx, scoped, ttl)
		if err != nil {
			log.Warn("Idempotency reserve failed, continuing without protection", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			abortWithError(c, http.StatusConflict, "IDEMPOTENCY_KEY_IN_PROGRESS",
				"A request with this Idempotency-Key is already being processed", "CONFLICT")
			return
		}

		w := &capturingWriter{ResponseWriter: c.Writer}
		c.Writer = w
		c.Next()

		status := w.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices {
			if err := store.Release(ctx, scoped); err != nil {
				log.Warn("Failed to release idempotency key", zap.String("idempotency_key", key), zap.Error(err))
			}
			return
		}
		payload, err := json.Marshal(storedResponse{Status: status, Body: bodyOrNull(w.body.Bytes())})
		if err == nil {
			err = store.Complete(ctx, scoped, payload, ttl)
		}
		if err != nil {
			log.Warn("Failed to store idempotent response", zap.String("idempotency_key", key), zap.Error(err))
		}
	}
}

func bodyOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}
