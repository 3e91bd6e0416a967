package admin

import (
	"errors"
	"net/http"
	"strings"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/model"
	"utmcouncil/vote-api/internal/service"
	"utmcouncil/vote-api/pkg/middleware"
	"utmcouncil/vote-api/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type actionBody struct {
	Action  string `json:"action" binding:"required"`
	UserID  string `json:"userId"`
	IssueID string `json:"issueId"`
	Approve *bool  `json:"approve"`
	Reason  string `json:"reason"`
}

// AdminAction runs POST /api/admin. The action field picks what happens.
func AdminAction(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	ctx := c.Request.Context()
	reviewer := middleware.Session(c).Email

	var data actionBody
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid request body",
			"requestID": requestID,
		})
		return
	}

	data.Reason = strings.TrimSpace(data.Reason)

	switch data.Action {
	case "verify_user", "request_resubmission", "disconnect_user", "delete_user":
		if data.UserID == "" || data.UserID == security.SuperAdminID {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "A valid userId is required",
				"requestID": requestID,
			})
			return
		}
	case "resolve_issue", "delete_issue":
		if data.IssueID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "issueId is required",
				"requestID": requestID,
			})
			return
		}
	}

	var (
		rec *model.Carnet
		err error
	)

	switch data.Action {
	case "verify_user":
		if data.Approve == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "approve is required",
				"requestID": requestID,
			})
			return
		}

		rec, err = d.Moderator.Verify(ctx, data.UserID, reviewer, *data.Approve, data.Reason)
	case "request_resubmission":
		rec, err = d.Moderator.RequestResubmission(ctx, data.UserID, data.Reason)
	case "disconnect_user":
		rec, err = d.Moderator.Disconnect(ctx, data.UserID, reviewer, data.Reason)
	case "delete_user":
		if err := d.Moderator.DeleteUser(ctx, data.UserID); err != nil {
			moderationError(c, requestID, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "User deleted"})
		return
	case "reset_votes":
		n, err := d.Moderator.ResetVotes(ctx)
		if err != nil {
			internalError(c, requestID, "Failed to reset votes", err)
			return
		}

		zap.L().Warn("Votes reset by administrator", zap.String("reviewer", reviewer), zap.String("requestID", requestID))
		c.JSON(http.StatusOK, gin.H{"success": true, "deleted": n})
		return
	case "resolve_issue":
		issue, err := service.ResolveIssue(ctx, d.DB, data.IssueID)
		if err != nil {
			moderationError(c, requestID, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "issue": issue})
		return
	case "delete_issue":
		if err := service.DeleteIssue(ctx, d.DB, data.IssueID); err != nil {
			moderationError(c, requestID, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Issue deleted"})
		return
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid action",
			"requestID": requestID,
		})
		return
	}

	if err != nil {
		moderationError(c, requestID, err)
		return
	}

	zap.L().Info("Carnet moderated",
		zap.String("action", data.Action),
		zap.String("user_id", data.UserID),
		zap.String("status", string(rec.Status)),
		zap.String("reviewer", reviewer),
		zap.String("requestID", requestID))

	c.JSON(http.StatusOK, gin.H{"success": true, "carnet": rec})
}

func moderationError(c *gin.Context, requestID string, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Not found",
			"requestID": requestID,
		})
	case errors.Is(err, model.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "The carnet can't take this action in its current state",
			"requestID": requestID,
		})
	case service.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{
			"error":     err.Error(),
			"requestID": requestID,
		})
	default:
		internalError(c, requestID, "Failed to run admin action", err)
	}
}
