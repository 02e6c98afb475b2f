package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// APIResponse is the error body. Success bodies carry the payload alone.
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}
