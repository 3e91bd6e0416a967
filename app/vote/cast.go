// Package vote holds the ballot and results handlers
package vote

import (
	"errors"
	"net/http"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/service"
	"utmcouncil/vote-api/pkg/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type voteBody struct {
	VoteData service.Ballot `json:"vote_data" binding:"required"`
}

// VoteCast records the caller's ballot. Eligibility comes from the store,
// the token only identifies the voter.
func VoteCast(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	session := middleware.Session(c)

	if session.IsSuperAdmin() {
		c.JSON(http.StatusForbidden, gin.H{
			"error":     "The administrator account can't vote",
			"requestID": requestID,
		})
		return
	}

	var data voteBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Vote data is required",
			"requestID": requestID,
		})
		return
	}

	if err := data.VoteData.Validate(d.Candidates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
		return
	}

	if _, err := service.CastVote(c.Request.Context(), d.DB, session.UserID, data.VoteData); err != nil {
		switch {
		case errors.Is(err, service.ErrNotVerified):
			c.JSON(http.StatusForbidden, gin.H{
				"error":     "Your account is not verified yet",
				"requestID": requestID,
			})
		case errors.Is(err, service.ErrAlreadyVoted):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "You have already voted",
				"requestID": requestID,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to cast vote", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Vote recorded",
		"vote_data": data.VoteData,
	})
}
