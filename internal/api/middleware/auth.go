package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/pkg/jwt"
	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

// RevocationChecker reports revoked token ids. *redis.Client implements it.
type RevocationChecker interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// JWTAuth validates "Authorization: Bearer <access token>" and puts user_id
// and the claims into the context. revoked may be nil; tokens are then only
// checked for signature and expiry.
func JWTAuth(jwtMgr *jwt.Manager, revoked RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "authentication credentials were not provided")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Unauthorized(c, 10002, "malformed authorization header")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			response.Unauthorized(c, 10002, "token is invalid or expired")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, 10002, "token is not an access token")
			c.Abort()
			return
		}

		if revoked != nil {
			// a redis outage lets the token through
			if hit, err := revoked.IsBlacklisted(c.Request.Context(), claims.ID); err == nil && hit {
				response.Unauthorized(c, 10002, "token has been revoked")
				c.Abort()
				return
			}
		}

		c.Set("user_id", claims.UserID)
		c.Set("claims", claims)

		c.Next()
	}
}
