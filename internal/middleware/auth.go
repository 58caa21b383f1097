package middleware

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type AccessClaims struct {
	Wallet string `json:"wallet"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the Bearer access token issued by the wallet-auth
// provider and puts the caller's identity into the request context.
func AuthMiddleware(verifySecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required", "code": "UNAUTHORIZED"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format", "code": "UNAUTHORIZED"})
			return
		}

		claims := &AccessClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(verifySecret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired access token", "code": "UNAUTHORIZED"})
			return
		}

		c.Set("privyUserID", claims.Subject)
		c.Set("wallet", claims.Wallet)
		c.Set("email", claims.Email)
		c.Next()
	}
}

// AdminMiddleware gates admin routes behind the shared access key header.
func AdminMiddleware(accessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader("x-admin-access-key")
		if accessKey == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(accessKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin access key required", "code": "UNAUTHORIZED"})
			return
		}
		c.Next()
	}
}
