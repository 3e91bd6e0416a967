package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewPreflightMiddleware answers every OPTIONS request with an empty 200.
// The cors middleware only does that when an Origin header is present.
func NewPreflightMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}

		c.Next()
	}
}

// MethodNotAllowed is the NoMethod handler, it keeps 405s in the usual
// error shape
func MethodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, gin.H{
		"error":     "Method not allowed",
		"requestID": c.GetString("requestID"),
	})
}
