package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alignhq/align/pkg/auth"
	"github.com/alignhq/align/pkg/tenantctx"
)

// Auth validates the Bearer token and establishes the acting identity on the
// request context. A nil tenant claim on a valid token designates a platform
// superuser; requests without any identity never reach handlers.
func Auth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "missing authorization"})
			return
		}
		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid authorization"})
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid or expired token"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid subject"})
			return
		}

		identity := tenantctx.Identity{UserID: userID, Superuser: claims.Superuser}
		if claims.TenantID != nil {
			tenantID, err := uuid.Parse(*claims.TenantID)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "invalid tenant claim"})
				return
			}
			identity.TenantID = &tenantID
		}

		c.Request = c.Request.WithContext(tenantctx.With(c.Request.Context(), identity))
		c.Next()
	}
}
