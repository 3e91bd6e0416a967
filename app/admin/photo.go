package admin

import (
	"errors"
	"net/http"
	"strconv"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/service"
	"utmcouncil/vote-api/internal/storage"

	"github.com/gin-gonic/gin"
)

// CarnetPhoto streams the stored photo of a verification record
func CarnetPhoto(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid carnet ID",
			"requestID": requestID,
		})
		return
	}

	key, contentType, err := service.CarnetPhoto(c.Request.Context(), d.DB, uint(id))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Carnet not found",
				"requestID": requestID,
			})
			return
		}

		internalError(c, requestID, "Failed to load carnet", err)
		return
	}

	data, storedType, err := d.Photos.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Photo not found",
				"requestID": requestID,
			})
			return
		}

		internalError(c, requestID, "Failed to fetch carnet photo", err)
		return
	}

	if contentType == "" {
		contentType = storedType
	}

	c.Header("Cache-Control", "private, max-age=300")
	c.Data(http.StatusOK, contentType, data)
}
