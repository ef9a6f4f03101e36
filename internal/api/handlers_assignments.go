package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/locatekit/stakeflow/internal/apierrors"
)

// handleCreateAssignment links a ticket to a project.
func (router *APIRouter) handleCreateAssignment(c *gin.Context) {
	sess, ok := sessionFor(c)
	if !ok {
		apierrors.Error(c, apierrors.CodeUnauthorized)
		return
	}

	var req struct {
		TicketNumber string `json:"ticket_number" binding:"required"`
		ProjectID    int64  `json:"project_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeInvalidRequest, "ticket_number and project_id are required")
		return
	}

	if err := router.engine.AssignTicketToProject(c.Request.Context(), sess, req.TicketNumber, req.ProjectID); err != nil {
		router.sendEngineError(c, err)
		return
	}
	sendSuccess(c, gin.H{
		"ticket_number": req.TicketNumber,
		"project_id":    req.ProjectID,
	})
}

// handleDeleteAssignment stops tracking a renewal chain.
func (router *APIRouter) handleDeleteAssignment(c *gin.Context) {
	sess, ok := sessionFor(c)
	if !ok {
		apierrors.Error(c, apierrors.CodeUnauthorized)
		return
	}

	number := c.Param("number")
	if err := router.engine.MarkChainInactive(c.Request.Context(), sess, number); err != nil {
		router.sendEngineError(c, err)
		return
	}
	sendSuccess(c, gin.H{"ticket_number": number, "tracking": false})
}

// handleDueAssignments returns the raw due assignment rows straight from the
// store, without the upstream detail fetch. Cheap store-only view for
// dashboards.
func (router *APIRouter) handleDueAssignments(c *gin.Context) {
	rows, err := router.assignments.ListDue(c.Request.Context(), time.Now())
	if err != nil {
		router.logger.Printf("due assignments query failed: %v", err)
		apierrors.Error(c, apierrors.CodeStoreFailed)
		return
	}
	sendSuccess(c, gin.H{
		"assignments": rows,
		"count":       len(rows),
	})
}
