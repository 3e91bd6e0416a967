package user

import (
	"errors"
	"net/http"
	"strings"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/carnet"
	"utmcouncil/vote-api/internal/service"
	"utmcouncil/vote-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type registerBody struct {
	Email        string `json:"email" form:"email" binding:"required"`
	Password     string `json:"password" form:"password" binding:"required"`
	Name         string `json:"name" form:"name" binding:"required,max=100"`
	CarnetNumber string `json:"carnet_number" form:"carnet_number" binding:"required,carnet"`
	Class        string `json:"class" form:"class" binding:"required,max=20"`
	ImageData    string `json:"image_data" form:"image_data"`
}

var outcomeMessages = map[carnet.Outcome]string{
	carnet.OutcomeApproved:     "Your carnet was verified automatically, you can vote now",
	carnet.OutcomeManualReview: "Registration received, an administrator will review your carnet",
	carnet.OutcomeRetry:        "Your carnet photo could not be verified, please log in and upload a clearer one",
}

// UserRegister creates an account and runs the carnet photo through
// verification. The account exists in every outcome.
func UserRegister(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data registerBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     validators.BindingMessage(err),
			"requestID": requestID,
		})

		zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	email := validators.NormalizeEmail(data.Email)

	if err := validators.EmailValidator(email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if err := validators.PasswordValidator(data.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if d.Admin.IsAdminEmail(email) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "This email can't be used for registration",
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

	out, err := d.Registrar.Register(c.Request.Context(), service.Registration{
		Email:        email,
		Password:     data.Password,
		Name:         strings.TrimSpace(data.Name),
		CarnetNumber: validators.NormalizeCarnet(data.CarnetNumber),
		Class:        strings.TrimSpace(data.Class),
		Photo:        photo,
		PhotoType:    contentType,
	})
	if err != nil {
		if service.IsConflict(err) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     err.Error(),
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to register user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	token, err := d.Sessions.Issue(out.User.ID, out.User.Email, out.User.IsAdmin)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to sign session token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":       true,
		"token":         token,
		"status":        out.Carnet.Status,
		"auto_verified": out.Carnet.AutoVerified(),
		"message":       outcomeMessages[out.Decision.Outcome],
		"note":          out.Decision.Note,
		"validation":    out.Scan.Match,
		"user":          out.User.Profile(),
	})
}
