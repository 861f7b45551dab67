package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "moneta/internal/errors"
	"moneta/internal/logger"
)

// APIKeyHeader carries the shared secret for internal endpoints.
const APIKeyHeader = "X-API-Key"

// PipelineAuthMiddleware guards the internal endpoints that schedulers and
// the recurring CLI call. Requests must carry apiKey in APIKeyHeader; with no
// key configured the endpoints answer 503.
func PipelineAuthMiddleware(apiKey string) gin.HandlerFunc {
	secret := []byte(apiKey)
	return func(c *gin.Context) {
		if len(secret) == 0 {
			abortWithError(c, apperrors.ErrPipelineNotConfigured)
			return
		}

		key := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), secret) != 1 {
			logger.Named("pipeline").Warnw("rejected internal request",
				"path", c.Request.URL.Path,
				"client_ip", c.ClientIP(),
				"key_present", key != "",
			)
			abortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Next()
	}
}
