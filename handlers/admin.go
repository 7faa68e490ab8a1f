package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminTokenHeader carries the plain admin token on destructive requests
const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards a route group with a bcrypt-hashed token.
// An empty hash leaves the routes open.
func RequireAdminToken(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hash == "" {
			c.Next()
			return
		}
		token := c.GetHeader(AdminTokenHeader)
		if token == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)) != nil {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Valid "+AdminTokenHeader+" header required")
			c.Abort()
			return
		}
		c.Next()
	}
}
