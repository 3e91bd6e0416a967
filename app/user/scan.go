package user

import (
	"errors"
	"net/http"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/carnet"
	"utmcouncil/vote-api/pkg/validators"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type scanBody struct {
	ExpectedCarnet string `json:"expected_carnet" form:"expected_carnet"`
	ImageData      string `json:"image_data" form:"image_data"`
}

// CarnetScan runs a photo through OCR and the matcher without storing
// anything, so the frontend can tell users early that a photo is unreadable
func CarnetScan(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var data scanBody
	if err := c.ShouldBind(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	photo, _, code, err := readPhoto(c, data.ImageData, d.MaxPhotoSize)
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

	scan := d.Pipeline.Scan(c.Request.Context(), photo, validators.NormalizeCarnet(data.ExpectedCarnet))
	if scan.Err != nil {
		if errors.Is(scan.Err, carnet.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":     "Text recognition is busy, try again in a moment",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Text recognition failed",
			"requestID": requestID,
		})

		zap.L().Error("Failed to scan carnet", zap.Error(scan.Err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"text":         scan.Text,
		"confidence":   scan.EngineConfidence,
		"validation":   scan.Match,
		"utm_detected": scan.Match.Scores[carnet.CheckInstitution] > 0,
		"processed":    true,
	})
}
