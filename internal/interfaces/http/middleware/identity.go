package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ledger/backend/internal/infrastructure/auth"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

const (
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
	HeaderCompanyID = "X-Company-ID"
	HeaderUserID    = "X-User-ID"
)

// TokenValidator turns a bearer token into an identity
type TokenValidator interface {
	Validate(token string) (*auth.Identity, error)
}

// IdentityConfig configures the identity middleware
type IdentityConfig struct {
	Validator   TokenValidator
	Revocations auth.RevocationList
	// HeaderFallback accepts X-Company-ID / X-User-ID when no bearer token is sent
	HeaderFallback bool
	SkipPaths      []string
	Logger         *zap.Logger
}

// Identity resolves the calling user and company for every request.
// A bearer token wins over the fallback headers.
func Identity(cfg IdentityConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		if slices.Contains(cfg.SkipPaths, c.Request.URL.Path) {
			c.Next()
			return
		}

		var (
			identity *auth.Identity
			err      error
		)
		header := c.GetHeader(AuthHeaderKey)
		switch {
		case header != "":
			identity, err = bearerIdentity(c, cfg, header)
		case cfg.HeaderFallback:
			identity, err = headerIdentity(c)
		default:
			err = errMissingCredentials
		}
		if err != nil {
			log.Warn("Authentication failed",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", GetRequestID(c)),
				zap.Error(err))
			code, message := authFailure(err)
			abortWithError(c, http.StatusUnauthorized, code, message, "AUTH")
			return
		}

		companyID, userID := identity.CompanyID.String(), identity.UserID.String()
		c.Set(IdentityKey, identity)
		c.Set(CompanyIDKey, companyID)
		c.Set(UserIDKey, userID)
		c.Request = c.Request.WithContext(logger.WithIdentity(c.Request.Context(), companyID, userID))

		c.Next()
	}
}

var (
	errMissingCredentials = errors.New("missing credentials")
	errMalformedHeader    = errors.New("malformed authorization header")
)

func bearerIdentity(c *gin.Context, cfg IdentityConfig, header string) (*auth.Identity, error) {
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return nil, errMalformedHeader
	}
	identity, err := cfg.Validator.Validate(strings.TrimSpace(token))
	if err != nil {
		return nil, err
	}
	if cfg.Revocations == nil {
		return identity, nil
	}

	ctx := c.Request.Context()
	if identity.TokenID != "" {
		revoked, err := cfg.Revocations.IsRevoked(ctx, identity.TokenID)
		if err != nil {
			logger.L(ctx).Error("Failed to check token revocation", zap.String("jti", identity.TokenID), zap.Error(err))
		} else if revoked {
			return nil, auth.ErrTokenRevoked
		}
	}
	invalidated, err := cfg.Revocations.IsUserInvalidated(ctx, identity.UserID.String(), identity.IssuedAt)
	if err != nil {
		logger.L(ctx).Error("Failed to check user session invalidation", zap.String("user_id", identity.UserID.String()), zap.Error(err))
	} else if invalidated {
		return nil, auth.ErrTokenRevoked
	}
	return identity, nil
}

func headerIdentity(c *gin.Context) (*auth.Identity, error) {
	companyID, err := uuid.Parse(c.GetHeader(HeaderCompanyID))
	if err != nil || companyID == uuid.Nil {
		return nil, auth.ErrMissingCompanyID
	}
	userID, err := uuid.Parse(c.GetHeader(HeaderUserID))
	if err != nil || userID == uuid.Nil {
		return nil, auth.ErrMissingUserID
	}
	return &auth.Identity{CompanyID: companyID, UserID: userID}, nil
}

func authFailure(err error) (code, message string) {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "TOKEN_EXPIRED", "Token has expired"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "TOKEN_REVOKED", "Token has been revoked"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		return "TOKEN_NOT_VALID", "Token is not yet valid"
	case errors.Is(err, auth.ErrMissingCompanyID):
		return "MISSING_COMPANY_ID", "Company id is required"
	case errors.Is(err, auth.ErrMissingUserID):
		return "MISSING_USER_ID", "User id is required"
	case errors.Is(err, errMalformedHeader):
		return "INVALID_TOKEN", "Invalid authorization header format"
	case errors.Is(err, errMissingCredentials):
		return "UNAUTHORIZED", "Authentication required"
	default:
		return "INVALID_TOKEN", "Invalid token"
	}
}
