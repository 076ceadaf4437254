package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/oumizumi/Kairo-sub002/pkg/jwt"
	"github.com/oumizumi/Kairo-sub002/pkg/response"
)

// Context keys set by middleware.JWTAuth.
const (
	ContextUserID = "user_id"
	ContextClaims = "claims"
)

// MustGetUserID extracts user_id from the gin context. When the JWT
// middleware did not set it a 401 is written and ok is false; callers return.
func MustGetUserID(c *gin.Context) (string, bool) {
	v, exists := c.Get(ContextUserID)
	if !exists {
		response.Unauthorized(c, 10002, "authentication required")
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		response.Unauthorized(c, 10002, "authentication required")
		return "", false
	}
	return s, true
}

// GetClaims returns the access token claims, or nil.
func GetClaims(c *gin.Context) *jwt.Claims {
	v, exists := c.Get(ContextClaims)
	if !exists {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
