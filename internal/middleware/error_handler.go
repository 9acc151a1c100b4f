package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"quick_chat/pkg/errors"
	"quick_chat/pkg/logger"
)

// ErrorHandler renders the last error attached with c.Error. Server side
// failures are logged and their details hidden from the client.
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		statusCode := errors.HTTPStatusFromError(err)
		message := err.Error()
		switch {
		case errors.Is(err, errors.ErrStorageUnavailable):
			message = errors.ErrStorageUnavailable.Error()
		case statusCode >= http.StatusInternalServerError:
			message = "Internal server error"
		}
		if statusCode >= http.StatusInternalServerError {
			log.Error("Request failed", "error", err, "path", c.Request.URL.Path, "status", statusCode)
		}

		c.JSON(statusCode, gin.H{
			"error": message,
		})
	}
}
