package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/infrastructure/auth"
	"github.com/ledger/backend/internal/interfaces/http/dto"
)

// Gin context keys set by the middleware chain
const (
	RequestIDKey = "request_id"
	IdentityKey  = "identity"
	CompanyIDKey = "company_id"
	UserIDKey    = "user_id"
)

// HeaderRequestID carries the correlation id in and out of the API
const HeaderRequestID = "X-Request-ID"

// GetRequestID returns the correlation id of the request
func GetRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return truncate(c.GetHeader(HeaderRequestID), MaxRequestIDLength)
}

// GetIdentity returns the authenticated caller, if any
func GetIdentity(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*auth.Identity)
	return id, ok && id != nil
}

// GetCompanyID returns the caller's company id as a string, or ""
func GetCompanyID(c *gin.Context) string {
	return c.GetString(CompanyIDKey)
}

// GetUserID returns the caller's user id as a string, or ""
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func abortWithError(c *gin.Context, status int, code, message, category string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message, category, GetRequestID(c)))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
