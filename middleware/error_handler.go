package middleware

import (
	"net/http"
	"runtime/debug"

	"safewatch/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Recovery turns a handler panic into a 500 response and logs the stack.
func Recovery(environment string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				stack := string(debug.Stack())
				logrus.WithFields(logrus.Fields{
					"panic":      err,
					"stack":      stack,
					"request_id": c.GetString("request_id"),
					"path":       c.Request.URL.Path,
					"user_id":    c.GetString("userID"),
				}).Error("Panic recovered")

				var details interface{}
				if environment == "development" {
					details = map[string]interface{}{"panic": err}
				}
				utils.ErrorResponse(c, http.StatusInternalServerError, utils.ErrCodeInternal, "Internal server error", details)
				c.Abort()
			}
		}()

		c.Next()
	}
}
