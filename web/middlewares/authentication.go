package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tfshrms.cloud/hrms/infrastructure/logging"
	"tfshrms.cloud/hrms/security"
	"tfshrms.cloud/hrms/web/common"
)

const (
	SessionCookie = "hrms.session"
	ClaimsKey     = "claims"
)

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		// Try to get from cookie
		cookie, err := c.Cookie(SessionCookie)
		if err != nil {
			return ""
		}
		return cookie
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Authentication checks for a valid Bearer token and stores the caller id in the
// request context.
func Authentication(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing token"))
			return
		}

		claims, err := security.ParseIdentityToken(tokenStr, jwtSecret)
		if err != nil || claims.Identity.ID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired token"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Request = c.Request.WithContext(logging.WithCaller(c.Request.Context(), claims.Identity.ID))
		c.Next()
	}
}

// CallerID returns the authenticated user id.
func CallerID(c *gin.Context) (int, bool) {
	return logging.CallerFromContext(c.Request.Context())
}
