package middleware

import (
	"log"
	"net/http"
	"strings"

	"webtracker/api/utils"

	"github.com/gin-gonic/gin"
)

// AdminAuth requires a valid operator bearer token, taken from the
// Authorization header or the jwt_token cookie.
func AdminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie("jwt_token")
		if err != nil {
			tokenString = c.GetHeader("Authorization")
			if tokenString == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
				return
			}
			tokenString = strings.TrimPrefix(tokenString, "Bearer ")
		}

		claims, err := utils.ValidateJWT(tokenString)
		if err != nil {
			log.Printf("AdminAuth: Invalid JWT token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}

		c.Set("operator", claims.Username)
		c.Next()
	}
}
