package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/authorization-service/internal/domain/security"
	"github.com/oksasatya/authorization-service/pkg/helpers"
	"github.com/oksasatya/authorization-service/pkg/response"
)

const (
	CtxUserIDKey      = "userID"
	CtxSessionIDKey   = "sessionID"
	CtxAuthoritiesKey = "authorities"
)

// SessionVerifier confirms that sid is the live session of userID.
type SessionVerifier interface {
	VerifySession(ctx context.Context, userID, sid string) error
}

// Auth validates the access token (cookie or Bearer header) and ensures the
// session it names is still active. It sets userID, sessionID and authorities.
func Auth(jwt *helpers.JWTManager, sessions SessionVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := accessToken(c)
		if token == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing access token", nil)
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", nil)
			return
		}
		if sessions != nil {
			if err := sessions.VerifySession(c.Request.Context(), claims.UserID, claims.SessionID); err != nil {
				response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
				return
			}
		}

		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxSessionIDKey, claims.SessionID)
		c.Set(CtxAuthoritiesKey, claims.Authorities)
		c.Next()
	}
}

func accessToken(c *gin.Context) string {
	if t, err := c.Cookie(helpers.AccessCookie); err == nil && t != "" {
		return t
	}
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// RequireAuthority aborts with 403 unless the authenticated principal holds want.
// It must run after Auth.
func RequireAuthority(want string) gin.HandlerFunc {
	return func(c *gin.Context) {
		granted := c.GetStringSlice(CtxAuthoritiesKey)
		if !security.HasAuthority(granted, want) {
			response.Error[any](c, http.StatusForbidden, "forbidden", nil)
			return
		}
		c.Next()
	}
}
