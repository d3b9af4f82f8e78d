package middleware

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/redhat-data-and-ai/favourites/pkg/config"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
)

// AdminOnly guards the admin routes. It runs after the auth middleware:
// callers authenticated by API key carry no user and pass, users resolved by
// basic or ldap auth must be listed in apiServer.auth.adminUsers
func AdminOnly(cfg *config.AppConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.APIServer.Auth.Enabled {
			c.Next()
			return
		}

		user := c.GetString(UserKey)
		if user == "" && cfg.APIServer.Auth.Mode == config.AuthModeAPIKey {
			c.Next()
			return
		}

		if user == "" || !slices.Contains(cfg.APIServer.Auth.AdminUsers, user) {
			logger.Logger(c.Request.Context()).WithField("user", user).Warn("admin request denied")
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
