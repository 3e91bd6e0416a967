package user

import (
	"errors"
	"net/http"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/service"
	"utmcouncil/vote-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginBody struct {
	Email    string `json:"email" form:"email" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

func UserLogin(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data loginBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Email and password are required",
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	email := validators.NormalizeEmail(data.Email)

	if d.Admin.IsAdminEmail(email) {
		superAdminLogin(c, d, email, data.Password)
		return
	}

	user, err := service.Authenticate(c.Request.Context(), d.DB, d.Argon, email, data.Password)
	if err != nil {
		if errors.Is(err, service.ErrBadCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":     "Invalid email or password",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to authenticate user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	token, err := d.Sessions.Issue(user.ID, user.Email, user.IsAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to sign session token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    user.Profile(),
	})
}

// superAdminLogin authenticates the administrator configured through
// admin.email and admin.password. It has no row in the users table.
func superAdminLogin(c *gin.Context, d *internal.Deps, email, password string) {
	requestID := c.MustGet("requestID").(string)

	if !d.Admin.Verify(email, password) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "Invalid email or password",
			"requestID": requestID,
		})

		zap.L().Warn("Failed administrator login", zap.String("ip", c.ClientIP()), zap.String("requestID", requestID))
		return
	}

	token, err := d.Sessions.IssueSuperAdmin(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to sign administrator token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    service.SuperAdminStatus(email).User,
	})
}
