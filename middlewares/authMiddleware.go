package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/cabletrack_backend/models"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware authenticates automation clients with a bearer JWT issued by
// /auth/token. Interactive clients use the redis session token instead; when
// a session is already attached this middleware does nothing.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); ok {
			c.Next()
			return
		}

		auth := c.Request.Header.Get("Authorization")
		const bearer = "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			c.Next()
			return
		}

		validate, err := utils.JwtValidate(auth[len(bearer):])
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		claim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := models.GetUserById(c.Request.Context(), claim.ID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if user.IsActive == nil || !*user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user is disabled"})
			c.Abort()
			return
		}

		attachSession(c, "", user.Username, user)
		c.Next()
	}
}
