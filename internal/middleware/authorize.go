package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"filegate/api/internal/models"
)

func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.Next()
	}
}

// CurrentUser reads the user the auth middleware stashed in the context.
func CurrentUser(c *gin.Context) (models.User, bool) {
	val, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := val.(models.User)
	return user, ok
}

// AccessToken reads the raw bearer token for the current request.
func AccessToken(c *gin.Context) (string, bool) {
	val, exists := c.Get(accessTokenKey)
	if !exists {
		return "", false
	}
	token, ok := val.(string)
	return token, ok
}
