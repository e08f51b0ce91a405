package middleware

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/logger"
	"github.com/FathanAkram-app/VCOMM-web-sub005/pkg/response"
)

// Recovery recovers from panics, reports them, and returns a 500 error
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", r)
				}
				logger.Error("panic recovered",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err))
				sentry.CaptureException(err)

				response.InternalError(c, "Internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}
