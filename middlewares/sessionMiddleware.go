package middlewares

import (
	"net/http"

	"bitbucket.org/mmdatafocus/cabletrack_backend/config"
	"bitbucket.org/mmdatafocus/cabletrack_backend/models"
	"bitbucket.org/mmdatafocus/cabletrack_backend/utils"
	"github.com/gin-gonic/gin"
)

func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		// resolve the session user so handlers get vessel scoping and the
		// capability without another lookup
		user := models.User{}
		cached, err := config.GetRedisObject("User:"+username, &user)
		if err != nil || !cached {
			fetched, err := models.GetUserByUsername(c.Request.Context(), username)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				c.Abort()
				return
			}
			user = *fetched
		}
		if user.IsActive == nil || !*user.IsActive {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user is disabled"})
			c.Abort()
			return
		}

		attachSession(c, token, username, &user)
		c.Next()
	}
}

// attachSession puts the authenticated user on the request context so model
// code sees the same keys regardless of how the caller authenticated.
func attachSession(c *gin.Context, token string, username string, user *models.User) {
	ctx := utils.SetTokenInContext(c.Request.Context(), token)
	ctx = utils.SetUsernameInContext(ctx, username)
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUserNameInContext(ctx, user.Name)
	ctx = utils.SetVesselIdInContext(ctx, user.VesselId)
	ctx = utils.SetIsAdminInContext(ctx, user.Role == models.UserRoleAdmin)
	c.Request = c.Request.WithContext(ctx)
	c.Set("capability", user.Capability())
}

// CapabilityFrom extracts the session capability a handler passes into model
// mutations. The zero Capability carries no permissions.
func CapabilityFrom(c *gin.Context) models.Capability {
	if v, ok := c.Get("capability"); ok {
		if capability, ok := v.(models.Capability); ok {
			return capability
		}
	}
	return models.Capability{}
}

// RequireSession rejects requests that skipped the token header.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}
