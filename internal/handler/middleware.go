package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CredentialReader interface for dependency injection
type CredentialReader interface {
	AccessToken(ctx context.Context) (string, bool)
}

// RequireCredential rejects requests while no credential is stored. It does
// not check whether the token is still accepted by the partner API.
func RequireCredential(creds CredentialReader, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := creds.AccessToken(c.Request.Context()); !ok {
			logger.Warn("Authentication failed: no access token found", zap.String("path", c.Request.URL.Path))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Unauthorized: Please authenticate first.",
			})
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request. Query strings are left out since
// the callback carries the authorization code.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
