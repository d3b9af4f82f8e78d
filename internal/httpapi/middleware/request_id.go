package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redhat-data-and-ai/favourites/pkg/logger"
	"github.com/sirupsen/logrus"
)

const (
	RequestIDHeader = "X-Request-ID"
	// UserKey is the gin context key holding the authenticated user
	UserKey = "userId"
)

// RequestID tags the request context logger with the caller's request id,
// generating one when the header is missing
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(RequestIDHeader, requestID)

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		ctx = logger.WithFields(ctx, logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
