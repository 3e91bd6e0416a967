package user

import (
	"errors"
	"net/http"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/service"
	"utmcouncil/vote-api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserStatus reports verification and voting state read from the store
func UserStatus(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	session := middleware.Session(c)

	if session.IsSuperAdmin() {
		c.JSON(http.StatusOK, service.SuperAdminStatus(session.Email))
		return
	}

	status, err := service.UserStatus(c.Request.Context(), d.DB, session.UserID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":     "User not found",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to load user status", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, status)
}
