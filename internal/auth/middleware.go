package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextKeyClientID = "client_id"
	ContextKeyScope    = "client_scope"
	ContextKeyClaims   = "client_claims"
)

// Middleware requires a valid bearer access token on every request it
// guards, matching the teacher's JWT middleware shape trimmed to this
// service's single claim set.
func Middleware(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   ErrUnauthorized.Code,
				"message": "missing authorization header",
			})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   ErrUnauthorized.Code,
				"message": "invalid authorization header format",
			})
			return
		}

		claims, err := jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			authErr, ok := err.(AuthError)
			if !ok {
				authErr = ErrInvalidToken
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   authErr.Code,
				"message": authErr.Message,
			})
			return
		}

		c.Set(ContextKeyClientID, claims.ClientID)
		c.Set(ContextKeyScope, claims.Scope)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetClientID extracts the calling client's ID from the Gin context.
func GetClientID(c *gin.Context) string {
	if id, exists := c.Get(ContextKeyClientID); exists {
		return id.(string)
	}
	return ""
}

// GetClientClaims extracts the full claim set from the Gin context.
func GetClientClaims(c *gin.Context) *ClientClaims {
	if claims, exists := c.Get(ContextKeyClaims); exists {
		return claims.(*ClientClaims)
	}
	return nil
}
