package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IdentityMiddleware validates the bearer token and sets the caller id in
// context. Identity comes exclusively from the verified token; there is no
// fallback caller and no default identity.
func (s *Server) IdentityMiddleware() gin.HandlerFunc {
	key := []byte(s.Config.JWTKey())
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "missing authorization header",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid authorization header format",
			})
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			// HMAC only; an "alg: none" or asymmetric token must not pass
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid access token",
			})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "invalid token claims",
			})
			c.Abort()
			return
		}

		// Prefer user_id claim, fallback to sub
		userID := stringClaim(claims, "user_id")
		if userID == "" {
			userID = stringClaim(claims, "sub")
		}
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":             "unauthorized",
				"error_description": "token carries no subject",
			})
			c.Abort()
			return
		}

		c.Set("user_id", userID)
		if role := stringClaim(claims, "role"); role != "" {
			c.Set("role", role)
		}
		c.Set("token_claims", claims)
		c.Next()
	}
}

func stringClaim(claims jwt.MapClaims, name string) string {
	if v, exists := claims[name]; exists {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// GetUserIDFromContext returns the authenticated caller id set by
// IdentityMiddleware, or "" when unauthenticated.
func GetUserIDFromContext(c *gin.Context) string {
	if v, exists := c.Get("user_id"); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
