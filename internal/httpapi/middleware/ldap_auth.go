package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redhat-data-and-ai/favourites/pkg/clients/ldap"
	"github.com/redhat-data-and-ai/favourites/pkg/config"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
)

// LDAPBasicAuth verifies basic auth credentials with an LDAP bind as the user
func LDAPBasicAuth(cfg *config.AppConfig) gin.HandlerFunc {
	return LDAPBasicAuthWith(cfg, ldap.NewAuthenticator(cfg.LDAP.Server, cfg.LDAP.UserDN, cfg.LDAP.BaseUserDN, nil))
}

// LDAPBasicAuthWith is LDAPBasicAuth with an explicit authenticator
func LDAPBasicAuthWith(cfg *config.AppConfig, authenticator *ldap.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cfg.APIServer.Auth.Enabled {
			c.Next()
			return
		}
		username, password, ok := c.Request.BasicAuth()
		if !ok || username == "" || password == "" {
			c.Header("WWW-Authenticate", `Basic realm="Favourites"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		uid, err := authenticator.Authenticate(c.Request.Context(), username, password)
		switch {
		case errors.Is(err, ldap.ErrInvalidCredentials), errors.Is(err, ldap.ErrUserNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		case err != nil:
			logger.Logger(c.Request.Context()).WithError(err).Error("LDAP authentication failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		c.Set(UserKey, uid)
		c.Next()
	}
}
