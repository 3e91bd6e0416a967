// Package issue holds the public support form handler
package issue

import (
	"net/http"
	"strings"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/service"
	"utmcouncil/vote-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type reportBody struct {
	Email        string `json:"email" form:"email" binding:"required"`
	Name         string `json:"name" form:"name" binding:"required,max=100"`
	Phone        string `json:"phone" form:"phone" binding:"required,phone"`
	CarnetNumber string `json:"carnet_number" form:"carnet_number" binding:"omitempty,carnet"`
	Class        string `json:"class" form:"class" binding:"max=20"`
	IssueType    string `json:"issue_type" form:"issue_type" binding:"required,max=50"`
	Description  string `json:"description" form:"description" binding:"required,max=5000"`
}

func IssueReport(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data reportBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     validators.BindingMessage(err),
			"requestID": requestID,
		})
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

	if strings.TrimSpace(data.Description) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Field description is required",
			"requestID": requestID,
		})
		return
	}

	issue, err := service.ReportIssue(c.Request.Context(), d.DB, service.IssueReport{
		Email:        email,
		Name:         strings.TrimSpace(data.Name),
		Phone:        validators.NormalizePhone(data.Phone),
		CarnetNumber: validators.NormalizeCarnet(data.CarnetNumber),
		Class:        strings.TrimSpace(data.Class),
		IssueType:    strings.TrimSpace(data.IssueType),
		Description:  strings.TrimSpace(data.Description),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to save issue report", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	zap.L().Info("Issue reported", zap.String("issue_id", issue.ID), zap.String("type", issue.IssueType))

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Thank you, your report was received",
		"issue_id": issue.ID,
	})
}
