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

type resubmitBody struct {
	ImageData string `json:"image_data" form:"image_data"`
}

// CarnetResubmit replaces the photo of a record that isn't approved and
// verifies it again
func CarnetResubmit(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	session := middleware.Session(c)

	if session.IsSuperAdmin() {
		c.JSON(http.StatusForbidden, gin.H{
			"error":     "The administrator account has no carnet",
			"requestID": requestID,
		})
		return
	}

	var data resubmitBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	photo, contentType, code, err := readPhoto(c, data.ImageData, d.MaxPhotoSize)
	if err != nil {
		if code == http.StatusInternalServerError {
			zap.L().Error("Failed to read carnet photo", zap.Error(err), zap.String("requestID", requestID))
			err = errors.New("internal server error")
		}

		c.JSON(code, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	out, err := d.Registrar.Resubmit(c.Request.Context(), session.UserID, photo, contentType)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "No carnet registered for this account",
				"requestID": requestID,
			})
		case errors.Is(err, service.ErrAlreadyApproved):
			c.JSON(http.StatusConflict, gin.H{
				"error":     "Your carnet is already verified",
				"requestID": requestID,
			})
		case service.IsConflict(err):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to resubmit carnet", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"status":        out.Carnet.Status,
		"auto_verified": out.Carnet.AutoVerified(),
		"message":       outcomeMessages[out.Decision.Outcome],
		"note":          out.Decision.Note,
		"validation":    out.Scan.Match,
		"attempts":      out.Carnet.Attempts,
	})
}
