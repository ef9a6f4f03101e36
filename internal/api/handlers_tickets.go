package api

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/locatekit/stakeflow/internal/apierrors"
	"github.com/locatekit/stakeflow/internal/bluestakes"
	"github.com/locatekit/stakeflow/internal/services/reconcile"
)

// handleDueTickets returns the tickets whose renewal deadline has arrived,
// sorted soonest first.
func (router *APIRouter) handleDueTickets(c *gin.Context) {
	sess, ok := sessionFor(c)
	if !ok {
		apierrors.Error(c, apierrors.CodeUnauthorized)
		return
	}

	state, err := router.engine.ComputeTicketState(c.Request.Context(), sess)
	if err != nil {
		router.sendEngineError(c, err)
		return
	}
	sendSuccess(c, gin.H{
		"tickets": state.DueForUpdate,
		"count":   len(state.DueForUpdate),
	})
}

// handleUnassignedTickets returns tickets available for manual assignment.
func (router *APIRouter) handleUnassignedTickets(c *gin.Context) {
	sess, ok := sessionFor(c)
	if !ok {
		apierrors.Error(c, apierrors.CodeUnauthorized)
		return
	}

	state, err := router.engine.ComputeTicketState(c.Request.Context(), sess)
	if err != nil {
		router.sendEngineError(c, err)
		return
	}
	sendSuccess(c, gin.H{
		"tickets": state.Unassigned,
		"count":   len(state.Unassigned),
	})
}

// handleRefresh drops the session's cached lists and recomputes both.
func (router *APIRouter) handleRefresh(c *gin.Context) {
	sess, ok := sessionFor(c)
	if !ok {
		apierrors.Error(c, apierrors.CodeUnauthorized)
		return
	}

	state, err := router.engine.Refresh(c.Request.Context(), sess)
	if err != nil {
		router.sendEngineError(c, err)
		return
	}
	sendSuccess(c, gin.H{
		"due_for_update": state.DueForUpdate,
		"unassigned":     state.Unassigned,
	})
}

// handleTicketDetail proxies a single ticket lookup upstream.
func (router *APIRouter) handleTicketDetail(c *gin.Context) {
	sess, ok := sessionFor(c)
	if !ok {
		apierrors.Error(c, apierrors.CodeUnauthorized)
		return
	}

	number := c.Param("number")
	ticket, err := router.upstream.GetTicketDetail(c.Request.Context(), number, sess.Token)
	if err != nil {
		var remoteErr *bluestakes.RemoteError
		if errors.As(err, &remoteErr) && remoteErr.StatusCode == 404 {
			apierrors.Error(c, apierrors.CodeNotFound)
			return
		}
		router.logger.Printf("detail proxy failed for %s: %v", number, err)
		apierrors.Error(c, apierrors.CodeRemoteFetchFailed)
		return
	}
	sendSuccess(c, ticket)
}

// sendEngineError maps engine error kinds onto registered API codes.
func (router *APIRouter) sendEngineError(c *gin.Context, err error) {
	var (
		validationErr *reconcile.ValidationError
		storeErr      *reconcile.StoreError
		remoteErr     *bluestakes.RemoteError
	)
	switch {
	case errors.As(err, &validationErr):
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, validationErr.Error())
	case errors.As(err, &storeErr):
		router.logger.Printf("store error: %v", err)
		apierrors.Error(c, apierrors.CodeStoreFailed)
	case errors.As(err, &remoteErr):
		router.logger.Printf("upstream error: %v", err)
		apierrors.Error(c, apierrors.CodeRemoteFetchFailed)
	default:
		router.logger.Printf("unexpected error: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
	}
}
