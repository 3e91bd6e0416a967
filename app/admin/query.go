// Package admin holds the moderation panel handlers. Every route in here runs
// behind the session and admin middlewares.
package admin

import (
	"net/http"

	"utmcouncil/vote-api/internal"
	"utmcouncil/vote-api/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func internalError(c *gin.Context, requestID, msg string, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error(msg, zap.Error(err), zap.String("requestID", requestID))
}

// AdminQuery answers GET /api/admin?action=<name>
func AdminQuery(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	ctx := c.Request.Context()

	switch action := c.Query("action"); action {
	case "stats":
		stats, err := service.GetStats(ctx, d.DB)
		if err != nil {
			internalError(c, requestID, "Failed to load stats", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
	case "pending_users":
		items, err := service.PendingReviews(ctx, d.DB)
		if err != nil {
			internalError(c, requestID, "Failed to list pending verifications", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "pendingUsers": items})
	case "all_users":
		users, err := service.AllUsers(ctx, d.DB)
		if err != nil {
			internalError(c, requestID, "Failed to list users", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "users": users})
	case "issues":
		issues, err := service.ListIssues(ctx, d.DB)
		if err != nil {
			internalError(c, requestID, "Failed to list issues", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "issues": issues})
	case "results":
		res, err := service.Tally(ctx, d.DB, d.Candidates)
		if err != nil {
			internalError(c, requestID, "Failed to tally votes", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "total_votes": res.TotalVotes, "results": res.Positions})
	case "export_data":
		rows, err := service.ExportVotes(ctx, d.DB)
		if err != nil {
			internalError(c, requestID, "Failed to export votes", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true, "votes": rows})
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid action",
			"requestID": requestID,
		})
	}
}
