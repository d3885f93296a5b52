package middleware

import (
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			if appErr.Code >= http.StatusInternalServerError {
				logger.Log.Error("Request failed", "path", c.FullPath(), "status", appErr.Code, "error", appErr.Err)
			}
			var detail interface{}
			if appErr.Kind != "" {
				detail = response.ErrorDetail{Kind: appErr.Kind}
			}
			response.Error(c, appErr.Code, appErr.Message, detail)
			return
		}

		// SECURITY: Never expose internal error details to clients.
		logger.Log.Error("Internal Server Error", "path", c.FullPath(), "error", err)
		response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
	}
}
