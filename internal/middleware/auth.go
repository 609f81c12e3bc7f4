package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"filegate/api/internal/service"
)

const (
	currentUserKey = "current_user"
	accessTokenKey = "access_token"
)

// Auth resolves the bearer token against the session store and aborts with
// 401 when it is missing, expired, revoked, or still pending a second
// factor.
func Auth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing_token"})
			return
		}

		user, err := auth.Validate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(accessTokenKey, token)
		c.Set(currentUserKey, user)

		c.Next()
	}
}

// OptionalAuth populates the requester identity when a valid token is
// presented but lets anonymous requests through. Share access uses it: the
// evaluator decides what an anonymous requester may see.
func OptionalAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if user, err := auth.Validate(c.Request.Context(), token); err == nil {
				c.Set(accessTokenKey, token)
				c.Set(currentUserKey, user)
			}
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}
