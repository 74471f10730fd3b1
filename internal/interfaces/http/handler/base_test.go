package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/auth"
	"github.com/ledger/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setIdentity simulates the identity middleware
func setIdentity(c *gin.Context, companyID, userID uuid.UUID) {
	c.Set(middleware.IdentityKey, &auth.Identity{CompanyID: companyID, UserID: userID})
	c.Set(middleware.CompanyIDKey, companyID.String())
	c.Set(middleware.UserIDKey, userID.String())
}

type errorBody struct {
	Success bool `json:"success"`
	Error   struct {
		Code          string         `json:"code"`
		Message       string         `json:"message"`
		Category      string         `json:"category"`
		Details       map[string]any `json:"details"`
		CorrelationID string         `json:"correlationId"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.False(t, body.Success)
	return body
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantStatus   int
		wantCode     string
		wantCategory string
	}{
		{"validation", shared.NewValidationError("INVALID_DATE", "bad date"), http.StatusBadRequest, "INVALID_DATE", "VALIDATION"},
		{"auth", shared.NewAuthError("PERMISSION_DENIED", "no"), http.StatusForbidden, "PERMISSION_DENIED", "AUTH"},
		{"not found", shared.NewNotFoundError("VOUCHER_NOT_FOUND", "missing"), http.StatusNotFound, "VOUCHER_NOT_FOUND", "NOT_FOUND"},
		{"conflict", shared.NewConflictError("VERSION_CONFLICT", "stale"), http.StatusConflict, "VERSION_CONFLICT", "CONFLICT"},
		{"core invariant", shared.NewCoreInvariantError("UNBALANCED_VOUCHER", "unbalanced"), http.StatusUnprocessableEntity, "UNBALANCED_VOUCHER", "CORE_INVARIANT"},
		{"wrapped policy", fmt.Errorf("post: %w", shared.NewPolicyError("POLICY_VIOLATION", "blocked", nil)), http.StatusUnprocessableEntity, "POLICY_VIOLATION", "POLICY"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR", "INTERNAL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/vouchers", nil)
			c.Set(middleware.RequestIDKey, "req-7")

			(&BaseHandler{}).HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Equal(t, tt.wantCategory, body.Error.Category)
			assert.Equal(t, "req-7", body.Error.CorrelationID)
			assert.NotContains(t, body.Error.Message, "connection reset")
		})
	}
}

func TestBaseHandler_ActorAndPathID(t *testing.T) {
	h := &BaseHandler{}

	t.Run("missing identity is 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/vouchers", nil)

		_, ok := h.actor(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("identity becomes the actor", func(t *testing.T) {
		companyID, userID := uuid.New(), uuid.New()
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		setIdentity(c, companyID, userID)

		actor, ok := h.actor(c)
		require.True(t, ok)
		assert.Equal(t, companyID, actor.CompanyID)
		assert.Equal(t, userID, actor.UserID)
	})

	t.Run("bad id is 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/vouchers/x", nil)
		c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

		_, ok := h.pathID(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
