package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mealtrack-bff/internal/pkg/apperr"
	"mealtrack-bff/internal/transport/http/response"
)

// ErrorHandler writes the response for the last error a handler pushed with
// c.Error. Handlers never format errors themselves.
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, code, message := apperr.From(err)
		if status >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Int("status", status),
				zap.Error(err),
			)
		}
		response.Error(c, status, code, message)
	}
}

// Recovery turns a panic into a 500 with the usual envelope.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered",
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		response.Error(c, http.StatusInternalServerError, apperr.CodeInternalServer, "internal server error")
		c.Abort()
	})
}

func NotFound(c *gin.Context) {
	response.Error(c, http.StatusNotFound, apperr.CodeNotFound, "route not found")
}
