package vote

import (
	"net/http"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VoteResults returns the tally per position. Access is decided by the
// router.
func VoteResults(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	res, err := service.Tally(c.Request.Context(), d.DB, d.Candidates)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to tally votes", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"total_votes": res.TotalVotes,
		"results":     res.Positions,
	})
}
